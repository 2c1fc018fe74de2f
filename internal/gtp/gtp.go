// Package gtp implements a Go Text Protocol v2 line-mode dispatcher:
// command framing, the standard command table, and argument validation.
// Wire behavior (the "= "/"? " prefixes, blank-line-terminated replies,
// "#" comment lines, whitespace tokenization) is grounded directly on
// skybrian-Gongo's gongo_gtp.go Run/parseCommand/response. Unlike that
// engine, a Session also stamps one correlation ID per Session
// and logs every dispatched command and its outcome through
// internal/logging, and reports counters through internal/metrics.
package gtp

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sir-Teo/tenuki/internal/board"
	"github.com/Sir-Teo/tenuki/internal/genmove"
	"github.com/Sir-Teo/tenuki/internal/logging"
	"github.com/Sir-Teo/tenuki/internal/metrics"
	"github.com/Sir-Teo/tenuki/internal/vertex"
)

// Name and Version are reported by the "name"/"version" commands.
// original_source's GTP integration test requires the name reply to
// contain "Tenuki".
const (
	Name    = "Tenuki"
	Version = "1.0.0"
)

var wordPattern = regexp.MustCompile(`\S+`)

// prometheusRegistry backs NewSession when no WithMetrics option is given.
// Each call to prometheusRegistry returns a fresh registry, so building
// multiple Sessions in tests never trips Prometheus's duplicate
// registration panic.
func prometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

type reply struct {
	message string
	success bool
}

func ok(message string) reply   { return reply{message: message, success: true} }
func fail(message string) reply { return reply{message: message, success: false} }

func (r reply) String() string {
	prefix := "="
	if !r.success {
		prefix = "?"
	}
	return prefix + " " + r.message + "\n\n"
}

// Session holds the live game state and collaborators for one GTP
// connection. Exactly one Session is expected per process (cmd/tenuki
// wires stdin/stdout to it), but nothing here prevents running several
// in one process, e.g. for tests.
type Session struct {
	board     *board.Board
	generator *genmove.Generator
	log       *logging.Logger
	metrics   *metrics.Collector

	handlers map[string]func(*Session, []string) reply
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithGenerator overrides the default move generator (used by tests
// that want a cheap, low-sample Generator).
func WithGenerator(g *genmove.Generator) Option {
	return func(s *Session) { s.generator = g }
}

// WithBoard overrides the default 19x19 board, e.g. to apply
// configured board size and komi before the first command arrives.
func WithBoard(b *board.Board) Option {
	return func(s *Session) { s.board = b }
}

// WithLogger overrides the default stderr logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics overrides the default metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// NewSession builds a Session over a 19x19 empty board with default
// komi, matching GTP's conventional startup state; a controller is
// expected to send boardsize/clear_board/komi before play.
func NewSession(opts ...Option) (*Session, error) {
	b, err := board.New(19)
	if err != nil {
		return nil, err
	}
	if err := b.SetKomi(6.5); err != nil {
		return nil, err
	}
	s := &Session{
		board:     b,
		generator: genmove.New(genmove.DefaultConfig()),
		log:       logging.NewStderr("tenuki-gtp", logging.InfoLevel),
		metrics:   metrics.New(prometheusRegistry()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithCorrelationID(logging.NewCorrelationID())
	s.handlers = map[string]func(*Session, []string) reply{
		"protocol_version": handleProtocolVersion,
		"name":             handleName,
		"version":          handleVersion,
		"known_command":    handleKnownCommand,
		"list_commands":    handleListCommands,
		"boardsize":        handleBoardsize,
		"clear_board":      handleClearBoard,
		"komi":             handleKomi,
		"play":             handlePlay,
		"genmove":          handleGenmove,
		"showboard":        handleShowboard,
		"final_score":      handleFinalScore,
		"quit":             handleQuit,
	}
	return s, nil
}

// Run reads GTP commands from in, line by line, and writes framed
// replies to out until "quit" is processed or in reaches EOF. Mirrors
// gongo_gtp.go's Run loop: blank/comment lines are skipped, unknown
// commands get a single fixed error reply, and "quit" ends the loop
// after its own reply is written.
func (s *Session) Run(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		command, args, err := readCommand(reader)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if command == "" {
			continue
		}

		r := s.dispatch(command, args)
		if _, err := fmt.Fprint(out, r.String()); err != nil {
			return err
		}
		if command == "quit" {
			return nil
		}
	}
}

func (s *Session) dispatch(command string, args []string) (r reply) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.ErrorFields(map[string]interface{}{"command": command, "panic": fmt.Sprint(rec)}, "recovered from panic")
			s.metrics.RecordCommandError(command, "internal error")
			r = fail("internal error")
		}
	}()

	handler, known := s.handlers[command]
	if !known {
		s.metrics.RecordCommandError(command, "unknown command")
		s.log.Warn("unknown command %q", command)
		return fail("unknown command")
	}

	s.metrics.RecordCommand(command)
	r = handler(s, args)
	if !r.success {
		s.metrics.RecordCommandError(command, r.message)
	}
	s.log.InfoFields(map[string]interface{}{
		"command":     command,
		"args":        args,
		"success":     r.success,
		"duration_ms": time.Since(start).Milliseconds(),
	}, "dispatched command")
	return r
}

// readCommand reads lines until it finds a non-blank, non-comment one,
// then tokenizes it on whitespace. Returns io.EOF once the reader is
// exhausted without producing such a line.
func readCommand(r *bufio.Reader) (command string, args []string, err error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return "", nil, io.EOF
		}
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			words := wordPattern.FindAllString(line, -1)
			return strings.ToLower(words[0]), words[1:], nil
		}
		if err != nil {
			return "", nil, io.EOF
		}
	}
}

func handleProtocolVersion(_ *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	return ok("2")
}

func handleName(_ *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	return ok(Name)
}

func handleVersion(_ *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	return ok(Version)
}

func handleKnownCommand(s *Session, args []string) reply {
	if len(args) != 1 {
		return fail("wrong number of arguments")
	}
	_, known := s.handlers[args[0]]
	return ok(strconv.FormatBool(known))
}

func handleListCommands(s *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return ok(strings.Join(names, "\n"))
}

func handleBoardsize(s *Session, args []string) reply {
	if len(args) != 1 {
		return fail("wrong number of arguments")
	}
	size, err := strconv.Atoi(args[0])
	if err != nil {
		return fail("invalid boardsize")
	}
	if err := s.board.Resize(size); err != nil {
		return fail("invalid boardsize")
	}
	return ok("")
}

func handleClearBoard(s *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	s.board.Clear()
	return ok("")
}

func handleKomi(s *Session, args []string) reply {
	if len(args) != 1 {
		return fail("wrong number of arguments")
	}
	komi, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fail("invalid komi")
	}
	if err := s.board.SetKomi(komi); err != nil {
		return fail("invalid komi")
	}
	return ok("")
}

func handlePlay(s *Session, args []string) reply {
	if len(args) != 2 {
		return fail("wrong number of arguments")
	}
	color, err := vertex.ParseColor(args[0])
	if err != nil {
		return fail("invalid color")
	}
	v, err := vertex.Parse(args[1], s.board.Size())
	if err != nil {
		return fail("invalid vertex")
	}
	if err := s.board.Play(color, v); err != nil {
		s.metrics.RecordIllegalMove(err.Error())
		return fail(err.Error())
	}
	s.metrics.RecordCaptures(color.String(), s.board.LastCaptureCount())
	return ok("")
}

func handleGenmove(s *Session, args []string) reply {
	if len(args) != 1 {
		return fail("wrong number of arguments")
	}
	color, err := vertex.ParseColor(args[0])
	if err != nil {
		return fail("invalid color")
	}

	start := time.Now()
	v, stats := s.generator.Generate(s.board, color)
	s.metrics.ObserveGenmoveDuration(time.Since(start).Seconds())
	s.metrics.AddPlayouts(stats.Samples)

	if err := s.board.Play(color, v); err != nil {
		s.log.ErrorFields(map[string]interface{}{"vertex": v, "error": err.Error()}, "generator produced illegal move")
		return fail("internal error")
	}
	s.metrics.RecordCaptures(color.String(), s.board.LastCaptureCount())
	if v.Pass {
		return ok("pass")
	}
	return ok(vertex.Format(v, s.board.Size()))
}

func handleShowboard(s *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	return ok(s.board.Render())
}

func handleFinalScore(s *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	return ok(s.board.Score())
}

func handleQuit(s *Session, args []string) reply {
	if len(args) != 0 {
		return fail("wrong number of arguments")
	}
	if text, err := s.metrics.DumpText(); err == nil {
		s.log.Info("final metrics:\n%s", text)
	}
	return ok("")
}
