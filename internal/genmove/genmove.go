// Package genmove selects a move for a given color and board. It must
// always return a legal move and must be deterministic under a fixed
// seed, per spec.md §4.3.
//
// The algorithm is grounded on the teacher engine's Monte-Carlo robot
// (skybrian-Gongo's robot.go GenMove/findWins): random playouts from the
// current position, scored by the resulting area margin, with wins
// credited to every point the color played during a playout (the "All
// Moves As First" heuristic). Unlike the teacher, playouts run against
// the flood-fill Board in internal/board rather than a bit-packed array,
// and are fanned out over a worker pool (spec.md §5 permits internal
// parallelism as long as results are gathered in canonical order).
package genmove

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Sir-Teo/tenuki/internal/board"
	"github.com/Sir-Teo/tenuki/internal/vertex"
)

// Config tunes the generator's search effort and determinism.
type Config struct {
	// Samples is the number of random playouts per Generate call.
	Samples int
	// Workers bounds how many playouts run concurrently. Must be >= 1.
	Workers int
	// Seed seeds the generator's RNG. Fixing it makes Generate
	// reproducible across runs, as required for fuzz/regression tests.
	Seed int64
}

// DefaultConfig returns reasonable defaults: enough playouts to produce
// non-degenerate play, bounded so genmove completes quickly even on
// 19x19, per spec.md §5's "cap search effort" guidance.
func DefaultConfig() Config {
	return Config{Samples: 48, Workers: 4, Seed: 1}
}

// Generator selects legal moves deterministically from a fixed seed.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a Generator. Non-positive Samples and Workers fall back to
// DefaultConfig's values; Seed is used as given, including zero.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Samples <= 0 {
		cfg.Samples = def.Samples
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Stats summarizes one Generate call, used by internal/metrics.
type Stats struct {
	Samples    int
	Candidates int
}

// Generate returns a vertex v such that b.Play(color, v) would succeed.
// It returns Pass when no non-eye-filling legal move exists.
func (g *Generator) Generate(b *board.Board, color vertex.Color) (vertex.Vertex, Stats) {
	candidates := nonEyeFillingMoves(b, color)
	stats := Stats{Samples: g.cfg.Samples, Candidates: len(candidates)}
	if len(candidates) == 0 {
		return vertex.PassVertex, stats
	}

	// Seeds are drawn sequentially from g.rng on the calling goroutine
	// before any playout is dispatched, so the result is independent of
	// goroutine scheduling order.
	seeds := make([]int64, g.cfg.Samples)
	for i := range seeds {
		seeds[i] = g.rng.Int63()
	}

	results := make([]playoutResult, len(seeds))
	sem := make(chan struct{}, g.cfg.Workers)
	done := make(chan int, len(seeds))
	for i, seed := range seeds {
		sem <- struct{}{}
		go func(i int, seed int64) {
			defer func() { <-sem }()
			results[i] = runPlayout(b, color, seed)
			done <- i
		}(i, seed)
	}
	for range seeds {
		<-done
	}

	wins := make(map[vertex.Vertex]int)
	hits := make(map[vertex.Vertex]int)
	for _, r := range results { // fixed slice order: deterministic
		for _, v := range r.playedByColor {
			wins[v] += r.winAmount
			hits[v]++
		}
	}

	return pickBest(candidates, wins, hits), stats
}

// pickBest chooses the candidate with the highest win ratio. Candidates
// with no statistics rank last. Equal ratios break by hit count (more
// first), then by board-scan order, which is itself deterministic, so
// the overall choice never depends on map iteration order or goroutine
// timing.
func pickBest(candidates []vertex.Vertex, wins, hits map[vertex.Vertex]int) vertex.Vertex {
	type scored struct {
		v     vertex.Vertex
		score float64
		hits  int
	}
	ranked := make([]scored, len(candidates))
	for i, v := range candidates {
		h := hits[v]
		s := math.Inf(-1)
		if h > 0 {
			s = float64(wins[v]) / float64(h)
		}
		ranked[i] = scored{v: v, score: s, hits: h}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].hits > ranked[j].hits
	})
	return ranked[0].v
}

type playoutResult struct {
	playedByColor []vertex.Vertex
	winAmount     int // +1/0/-1 from color's perspective
}

// runPlayout simulates one random game to completion from b and reports
// every point color played (for the All-Moves-As-First credit) plus
// whether the final score favored color.
func runPlayout(b *board.Board, color vertex.Color, seed int64) playoutResult {
	rng := rand.New(rand.NewSource(seed))
	sim := b.Clone()

	maxMoves := sim.Size() * sim.Size() * 3
	passes := 0
	seen := make(map[vertex.Vertex]bool)
	var played []vertex.Vertex

	cur := color
	for moves := 0; moves < maxMoves && passes < 2; moves++ {
		candidates := nonEyeFillingMoves(sim, cur)
		if len(candidates) == 0 {
			_ = sim.Play(cur, vertex.PassVertex)
			passes++
			cur = cur.Opponent()
			continue
		}
		v := candidates[rng.Intn(len(candidates))]
		if err := sim.Play(cur, v); err != nil {
			// A candidate that simulate() accepted moments ago can only
			// fail here if the position changed underneath us, which it
			// didn't; treat defensively as a pass rather than panic.
			_ = sim.Play(cur, vertex.PassVertex)
			passes++
			cur = cur.Opponent()
			continue
		}
		passes = 0
		if cur == color && !seen[v] {
			seen[v] = true
			played = append(played, v)
		}
		cur = cur.Opponent()
	}

	margin := sim.ScoreMargin()
	win := 0
	switch {
	case margin > 0:
		win = 1
	case margin < 0:
		win = -1
	}
	if color == vertex.White {
		win = -win
	}
	return playoutResult{playedByColor: played, winAmount: win}
}

// nonEyeFillingMoves returns b.LegalMoves(color) minus Pass and minus
// moves that would fill a one-point eye, per spec.md §4.3's eye
// heuristic: an empty point whose orthogonal neighbors are all friendly
// (or off-board) and whose diagonal neighbors contain at most one enemy
// stone (zero if the point is itself on the board edge).
func nonEyeFillingMoves(b *board.Board, color vertex.Color) []vertex.Vertex {
	legal := b.LegalMoves(color)
	out := make([]vertex.Vertex, 0, len(legal))
	for _, v := range legal {
		if v.Pass {
			continue
		}
		if wouldFillEye(b, color, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func wouldFillEye(b *board.Board, color vertex.Color, v vertex.Vertex) bool {
	friendly := board.StoneFor(color)
	enemy := board.StoneFor(color.Opponent())

	orthogonal := b.Neighbors(v)
	for _, n := range orthogonal {
		if b.Get(n.Col, n.Row) != friendly {
			return false
		}
	}

	diagonals := b.DiagonalNeighbors(v)
	enemies := 0
	for _, n := range diagonals {
		if b.Get(n.Col, n.Row) == enemy {
			enemies++
		}
	}
	onEdge := len(diagonals) < 4
	if onEdge {
		return enemies == 0
	}
	return enemies <= 1
}
