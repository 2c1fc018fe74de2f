// Package board implements a rules-correct Go position: legality of
// moves (suicide, ko, captures), liberties, string/group tracking, and
// Chinese (area) scoring with komi.
//
// The layout is grounded on the teacher engine's barrier-padded array
// (skybrian-Gongo's robot.go): the grid is padded with a border of Edge
// cells so neighbor lookups never need bounds checks. Unlike the
// teacher's incremental neighbor-count bookkeeping, groups and their
// liberties are recomputed by flood fill on every move — spec.md §9
// explicitly allows this ("a simpler implementation that recomputes
// strings by flood-fill on every move is acceptable at the board sizes
// required by tests").
package board

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/Sir-Teo/tenuki/internal/vertex"
)

// MinBoardSize and MaxBoardSize bound the sizes Resize will accept.
// spec.md requires at least 5, 7, 9; GTP itself tops out at 25.
const (
	MinBoardSize = 1
	MaxBoardSize = vertex.MaxBoardSize
)

// Stone is the contents of a board point.
type Stone int

const (
	Empty Stone = iota
	Black
	White
	edge // border padding; never returned from the public API
)

func (s Stone) String() string {
	switch s {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

func stoneOf(c vertex.Color) Stone {
	if c == vertex.White {
		return White
	}
	return Black
}

// StoneFor returns the Stone a move by c places on the board.
func StoneFor(c vertex.Color) Stone { return stoneOf(c) }

func (s Stone) opponent() Stone {
	switch s {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Sentinel errors surfaced to the GTP layer. Their text carries the
// "illegal move" / "invalid ..." prefixes spec.md §7 requires.
var (
	ErrInvalidBoardSize = errors.New("invalid boardsize")
	ErrInvalidKomi      = errors.New("invalid komi")
	ErrOccupied         = errors.New("illegal move: occupied")
	ErrSuicide          = errors.New("illegal move: suicide")
	ErrKo               = errors.New("illegal move: ko")
)

// Move is a single committed entry in a game's history.
type Move struct {
	Color  vertex.Color
	Vertex vertex.Vertex
}

// Board is the authoritative Go position described in spec.md §3.
type Board struct {
	size   int
	stride int // size + 2, accounting for one barrier cell on each side
	cells  []Stone

	komi    float64
	toMove  vertex.Color
	history []Move
	koPoint *vertex.Vertex

	lastCaptures int
}

// New creates a board of the given size. Size must be in
// [MinBoardSize, MaxBoardSize].
func New(size int) (*Board, error) {
	b := &Board{}
	if err := b.Resize(size); err != nil {
		return nil, err
	}
	return b, nil
}

// Resize installs a fresh empty board of size N, preserving komi.
// Fails with ErrInvalidBoardSize if N is not supported.
func (b *Board) Resize(size int) error {
	if size < MinBoardSize || size > MaxBoardSize {
		return fmt.Errorf("%w: %d", ErrInvalidBoardSize, size)
	}
	b.size = size
	b.stride = size + 2
	b.cells = make([]Stone, b.stride*b.stride)
	for i := range b.cells {
		b.cells[i] = edge
	}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			b.cells[b.index(col, row)] = Empty
		}
	}
	b.toMove = vertex.Black
	b.history = nil
	b.koPoint = nil
	return nil
}

// Clear resets the board to empty, preserving size and komi.
func (b *Board) Clear() {
	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			b.cells[b.index(col, row)] = Empty
		}
	}
	b.toMove = vertex.Black
	b.history = nil
	b.koPoint = nil
}

// SetKomi sets the komi used by Score. Fails with ErrInvalidKomi if k is
// not finite.
func (b *Board) SetKomi(k float64) error {
	if math.IsNaN(k) || math.IsInf(k, 0) {
		return ErrInvalidKomi
	}
	b.komi = k
	return nil
}

// Komi returns the current komi.
func (b *Board) Komi() float64 { return b.komi }

// Size returns the current board size.
func (b *Board) Size() int { return b.size }

// ToMove returns the color whose turn it is. This is informational only
// (spec.md §3): GTP clients typically set color explicitly on every play.
func (b *Board) ToMove() vertex.Color { return b.toMove }

// History returns the committed move sequence since the last Clear.
func (b *Board) History() []Move {
	out := make([]Move, len(b.history))
	copy(out, b.history)
	return out
}

// KoPoint returns the vertex currently forbidden by the simple-ko rule,
// or nil if none.
func (b *Board) KoPoint() *vertex.Vertex {
	if b.koPoint == nil {
		return nil
	}
	v := *b.koPoint
	return &v
}

// Get returns the stone at (col, row), or Empty if out of range.
func (b *Board) Get(col, row int) Stone {
	if col < 0 || col >= b.size || row < 0 || row >= b.size {
		return Empty
	}
	return b.cells[b.index(col, row)]
}

func (b *Board) index(col, row int) int {
	return (row+1)*b.stride + (col + 1)
}

func (b *Board) vertexOf(idx int) vertex.Vertex {
	row := idx/b.stride - 1
	col := idx%b.stride - 1
	return vertex.Vertex{Col: col, Row: row}
}

func (b *Board) neighbors(idx int) [4]int {
	return [4]int{idx + 1, idx - 1, idx + b.stride, idx - b.stride}
}

// Play commits a move for color at vertex v. See spec.md §4.2 for the
// exact algorithm: occupied/suicide/ko checks, in that order, with all
// opposing dead strings removed before suicide is tested.
func (b *Board) Play(color vertex.Color, v vertex.Vertex) error {
	if v.Pass {
		b.history = append(b.history, Move{Color: color, Vertex: v})
		b.koPoint = nil
		b.toMove = color.Opponent()
		b.lastCaptures = 0
		return nil
	}

	newCells, newKo, captures, err := b.simulate(color, v)
	if err != nil {
		return err
	}
	b.cells = newCells
	b.koPoint = newKo
	b.lastCaptures = captures
	b.history = append(b.history, Move{Color: color, Vertex: v})
	b.toMove = color.Opponent()
	return nil
}

// LastCaptureCount returns how many opposing stones the most recent
// successful Play call removed from the board (0 for a pass or for a
// move that captured nothing).
func (b *Board) LastCaptureCount() int { return b.lastCaptures }

// simulate plays color at v against a private copy of the board and
// returns the resulting cells, ko point, and capture count, or an error
// if the move is illegal. The receiver is never mutated.
func (b *Board) simulate(color vertex.Color, v vertex.Vertex) (cells []Stone, newKo *vertex.Vertex, captures int, err error) {
	idx := b.index(v.Col, v.Row)
	if b.cells[idx] != Empty {
		return nil, nil, 0, ErrOccupied
	}

	cells = append([]Stone(nil), b.cells...)
	friendly := stoneOf(color)
	enemy := friendly.opponent()
	cells[idx] = friendly

	var captured []vertex.Vertex
	for _, n := range b.neighbors(idx) {
		if cells[n] != enemy {
			continue
		}
		group, liberties := b.groupAndLiberties(cells, n)
		if liberties == 0 {
			for _, p := range group {
				cells[p] = Empty
				captured = append(captured, b.vertexOf(p))
			}
		}
	}

	ownGroup, ownLiberties := b.groupAndLiberties(cells, idx)
	if ownLiberties == 0 && len(captured) == 0 {
		return nil, nil, 0, ErrSuicide
	}

	if b.koPoint != nil && v == *b.koPoint {
		return nil, nil, 0, ErrKo
	}

	if len(captured) == 1 && len(ownGroup) == 1 && ownLiberties == 1 {
		ko := captured[0]
		newKo = &ko
	}
	return cells, newKo, len(captured), nil
}

// groupAndLiberties flood-fills the maximal same-color group containing
// idx and returns its member indices and liberty count.
func (b *Board) groupAndLiberties(cells []Stone, idx int) (group []int, liberties int) {
	color := cells[idx]
	if color == Empty || color == edge {
		return nil, 0
	}

	visited := make(map[int]bool)
	libertySet := make(map[int]bool)
	stack := []int{idx}
	visited[idx] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, cur)

		for _, n := range b.neighbors(cur) {
			switch cells[n] {
			case Empty:
				libertySet[n] = true
			case color:
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return group, len(libertySet)
}

// LegalMoves enumerates every vertex where Play(color, v) would succeed,
// plus Pass.
func (b *Board) LegalMoves(color vertex.Color) []vertex.Vertex {
	moves := []vertex.Vertex{vertex.PassVertex}
	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			if b.cells[b.index(col, row)] != Empty {
				continue
			}
			v := vertex.Vertex{Col: col, Row: row}
			if _, _, _, err := b.simulate(color, v); err == nil {
				moves = append(moves, v)
			}
		}
	}
	return moves
}

// Neighbors returns the in-bounds orthogonal neighbors of v. A direction
// missing from the result means v sits on the board edge in that
// direction.
func (b *Board) Neighbors(v vertex.Vertex) []vertex.Vertex {
	deltas := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	var out []vertex.Vertex
	for _, d := range deltas {
		c, r := v.Col+d[0], v.Row+d[1]
		if c >= 0 && c < b.size && r >= 0 && r < b.size {
			out = append(out, vertex.Vertex{Col: c, Row: r})
		}
	}
	return out
}

// DiagonalNeighbors returns the in-bounds diagonal neighbors of v.
func (b *Board) DiagonalNeighbors(v vertex.Vertex) []vertex.Vertex {
	deltas := [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	var out []vertex.Vertex
	for _, d := range deltas {
		c, r := v.Col+d[0], v.Row+d[1]
		if c >= 0 && c < b.size && r >= 0 && r < b.size {
			out = append(out, vertex.Vertex{Col: c, Row: r})
		}
	}
	return out
}

// Clone returns a deep copy of the board, independent of the receiver.
// Used by the move generator to run playouts without disturbing the
// live game.
func (b *Board) Clone() *Board {
	cp := &Board{
		size:   b.size,
		stride: b.stride,
		komi:   b.komi,
		toMove: b.toMove,
	}
	cp.cells = append([]Stone(nil), b.cells...)
	cp.history = append([]Move(nil), b.history...)
	if b.koPoint != nil {
		k := *b.koPoint
		cp.koPoint = &k
	}
	return cp
}

// ScoreMargin returns black area minus white area minus komi, as a raw
// number (see Score for the formatted wire string).
func (b *Board) ScoreMargin() float64 {
	blackArea, whiteArea := b.areas()
	return float64(blackArea) - float64(whiteArea) - b.komi
}

func (b *Board) areas() (blackArea, whiteArea int) {
	visited := make(map[int]bool)
	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			idx := b.index(col, row)
			switch b.cells[idx] {
			case Black:
				blackArea++
			case White:
				whiteArea++
			case Empty:
				if visited[idx] {
					continue
				}
				region, borders := b.floodEmptyRegion(idx, visited)
				if borders == Black {
					blackArea += len(region)
				} else if borders == White {
					whiteArea += len(region)
				}
			}
		}
	}
	return blackArea, whiteArea
}

// Score computes the area (Chinese) score: each empty region scores for
// the single color bordering it, or for neither (dame) if it borders
// both. Returns black area minus white area minus komi, formatted per
// spec.md §4.2/§9: "0" for an exact tie, otherwise "B+<n>.<d>" or
// "W+<n>.<d>" with one decimal place.
func (b *Board) Score() string {
	return formatMargin(b.ScoreMargin())
}

// floodEmptyRegion flood-fills the maximal empty region containing idx,
// marking visited cells, and returns its members plus which single
// color (if any) borders it. borders is Empty if the region touches
// both colors or neither.
func (b *Board) floodEmptyRegion(idx int, visited map[int]bool) (region []int, borders Stone) {
	stack := []int{idx}
	visited[idx] = true
	seenBlack, seenWhite := false, false

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		region = append(region, cur)

		for _, n := range b.neighbors(cur) {
			switch b.cells[n] {
			case Empty:
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			case Black:
				seenBlack = true
			case White:
				seenWhite = true
			}
		}
	}

	switch {
	case seenBlack && !seenWhite:
		return region, Black
	case seenWhite && !seenBlack:
		return region, White
	default:
		return region, Empty
	}
}

func formatMargin(margin float64) string {
	if margin == 0 {
		return "0"
	}
	winner := "B"
	abs := margin
	if margin < 0 {
		winner = "W"
		abs = -margin
	}
	return fmt.Sprintf("%s+%.1f", winner, abs)
}

// Render draws a human-readable board: column header A B C D E F G H J ...
// (never I), decreasing row numbers, stones as X (black) / O (white) /
// . (empty).
func (b *Board) Render() string {
	var out bytes.Buffer

	header := columnHeader(b.size)
	fmt.Fprintf(&out, "   %s\n", header)
	for row := b.size - 1; row >= 0; row-- {
		fmt.Fprintf(&out, "%2d ", row+1)
		for col := 0; col < b.size; col++ {
			switch b.cells[b.index(col, row)] {
			case Black:
				out.WriteString("X ")
			case White:
				out.WriteString("O ")
			default:
				out.WriteString(". ")
			}
		}
		fmt.Fprintf(&out, "%d", row+1)
		if row > 0 {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func columnHeader(size int) string {
	var out bytes.Buffer
	for col := 0; col < size; col++ {
		v := vertex.Vertex{Col: col, Row: 0}
		letter := vertex.Format(v, size)[0]
		out.WriteByte(letter)
		if col < size-1 {
			out.WriteByte(' ')
		}
	}
	return out.String()
}

// PositionHash returns a DJB-style hash of the current position, useful
// for detecting repeated positions. Only simple ko is enforced (see
// DESIGN.md); Play never consults this hash, so it is not used to
// reject moves. Grounded on the teacher's board.getHash().
func (b *Board) PositionHash() int64 {
	var h int64 = 5381
	for row := 0; row < b.size; row++ {
		for col := 0; col < b.size; col++ {
			h = ((h << 5) + h) + int64(b.cells[b.index(col, row)])
		}
	}
	return h
}
