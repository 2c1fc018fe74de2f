package gtp

import (
	"bytes"
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sir-Teo/tenuki/internal/genmove"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(WithGenerator(genmove.New(genmove.Config{Samples: 4, Workers: 2, Seed: 1})))
	require.NoError(t, err)
	return s
}

func checkRun(t *testing.T, s *Session, input, expected string) {
	t.Helper()
	if s == nil {
		s = newTestSession(t)
	}
	var out bytes.Buffer
	err := s.Run(strings.NewReader(input), &out)
	require.NoError(t, err)
	assert.Equal(t, expected, out.String())
}

func checkCommand(t *testing.T, s *Session, command, expectedMessage string) {
	t.Helper()
	if s == nil {
		s = newTestSession(t)
	}
	var out bytes.Buffer
	err := s.Run(strings.NewReader(command+"\nquit\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "= "+expectedMessage+"\n\n= \n\n", out.String())
}

func TestProtocolVersion(t *testing.T) {
	checkCommand(t, nil, "protocol_version", "2")
}

func TestNameContainsTenuki(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	require.NoError(t, s.Run(strings.NewReader("name\nquit\n"), &out))
	assert.Contains(t, out.String(), "Tenuki")
}

func TestVersionIsNonEmpty(t *testing.T) {
	checkCommand(t, nil, "version", Version)
}

func TestUnknownCommandReply(t *testing.T) {
	checkRun(t, nil, "frobnicate\nquit\n", "? unknown command\n\n= \n\n")
}

func TestCommentAndBlankLinesAreSkipped(t *testing.T) {
	checkRun(t, nil, "# a comment\n\nquit\n", "= \n\n")
}

func TestBoardsizeAcceptsValidSize(t *testing.T) {
	checkCommand(t, nil, "boardsize 9", "")
}

func TestBoardsizeRejectsOutOfRange(t *testing.T) {
	checkRun(t, nil, "boardsize 99\nquit\n", "? invalid boardsize\n\n= \n\n")
}

func TestClearBoard(t *testing.T) {
	checkCommand(t, nil, "clear_board", "")
}

func TestKomi(t *testing.T) {
	checkCommand(t, nil, "komi 7.5", "")
}

func TestKomiRejectsGarbage(t *testing.T) {
	checkRun(t, nil, "komi not-a-number\nquit\n", "? invalid komi\n\n= \n\n")
}

func TestPlayAndShowboard(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	err := s.Run(strings.NewReader("boardsize 9\nclear_board\nplay B D4\nshowboard\nquit\n"), &out)
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "= \n\n= \n\n= \n\n")
	assert.Contains(t, text, "A B C D E F G H J")
}

func TestPlayRejectsOccupiedPoint(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	err := s.Run(strings.NewReader("boardsize 9\nclear_board\nplay B D4\nplay W D4\nquit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "? illegal move: occupied")
}

func TestPlayValidatesColorBeforeVertex(t *testing.T) {
	checkRun(t, nil, "play X D4\nquit\n", "? invalid color\n\n= \n\n")
}

func TestFinalScoreOnEmptyBoard(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	err := s.Run(strings.NewReader("boardsize 9\nclear_board\nkomi 0\nfinal_score\nquit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "= 0\n\n")
}

func TestFinalScoreMatchesWirePattern(t *testing.T) {
	scorePattern := regexp.MustCompile(`^[BW]\+[0-9]+(\.[0-9])?$|^0$`)
	s := newTestSession(t)
	var out bytes.Buffer
	err := s.Run(strings.NewReader("boardsize 9\nclear_board\nkomi 7.5\nplay B D4\nfinal_score\nquit\n"), &out)
	require.NoError(t, err)
	lines := strings.Split(out.String(), "\n\n")
	// commands: boardsize, clear_board, komi, play, final_score, quit.
	score := strings.TrimPrefix(lines[4], "= ")
	assert.Regexp(t, scorePattern, score)
}

func TestGenmoveReturnsLegalVertexOrPass(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	err := s.Run(strings.NewReader("boardsize 9\nclear_board\nkomi 6.5\ngenmove B\nquit\n"), &out)
	require.NoError(t, err)
	lines := strings.Split(out.String(), "\n\n")
	// commands: boardsize, clear_board, komi, genmove, quit.
	move := strings.TrimPrefix(lines[3], "= ")
	if move != "pass" {
		assert.Regexp(t, regexp.MustCompile(`^[A-HJ][1-9]$`), move)
	}
}

func TestKnownCommand(t *testing.T) {
	checkCommand(t, nil, "known_command version", "true")
	checkCommand(t, nil, "known_command nonexistent", "false")
}

func TestListCommandsIncludesCoreSet(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	require.NoError(t, s.Run(strings.NewReader("list_commands\nquit\n"), &out))
	for _, want := range []string{"boardsize", "clear_board", "play", "genmove", "showboard", "final_score", "quit"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestWrongArgumentCount(t *testing.T) {
	checkRun(t, nil, "komi\nquit\n", "? wrong number of arguments\n\n= \n\n")
	checkRun(t, nil, "protocol_version extra\nquit\n", "? wrong number of arguments\n\n= \n\n")
}

// TestIntegrationSequence ports original_source's GTPIntegration test
// transcript end to end.
func TestIntegrationSequence(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer
	script := "boardsize 9\nclear_board\nkomi 7.5\ngenmove B\nshowboard\nplay B D4\nplay W pass\nplay B J9\nfinal_score\nunknown_command_xyz\nquit\n"
	err := s.Run(strings.NewReader(script), &out)
	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "A B C D E F G H J")
	assert.Contains(t, text, "? unknown command")
}

// TestFuzzSequence ports original_source's GTPFuzz_test.py loop shape:
// repeated alternating genmove calls across a handful of board sizes
// under a fixed seed, checking the session never errors or panics.
func TestFuzzSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	for round := 0; round < 5; round++ {
		size := []int{5, 7, 9}[rng.Intn(3)]
		s, err := NewSession(WithGenerator(genmove.New(genmove.Config{Samples: 4, Workers: 2, Seed: int64(round)})))
		require.NoError(t, err)

		var script strings.Builder
		script.WriteString("boardsize ")
		script.WriteString(itoa(size))
		script.WriteString("\nclear_board\nkomi 6.5\n")
		for i := 0; i < 30; i++ {
			color := "B"
			if i%2 == 1 {
				color = "W"
			}
			script.WriteString("genmove ")
			script.WriteString(color)
			script.WriteString("\n")
		}
		script.WriteString("final_score\nshowboard\nquit\n")

		var out bytes.Buffer
		require.NoError(t, s.Run(strings.NewReader(script.String()), &out))
		assert.NotContains(t, out.String(), "internal error")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
