package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return New(prometheus.NewRegistry())
}

func TestRecordCommandIncrementsCounter(t *testing.T) {
	c := newTestCollector(t)
	c.RecordCommand("genmove")
	c.RecordCommand("genmove")
	c.RecordCommandError("play", "illegal move: ko")

	text, err := c.DumpText()
	require.NoError(t, err)
	assert.Contains(t, text, `tenuki_gtp_commands_total{command="genmove"} 2`)
	assert.Contains(t, text, `tenuki_gtp_command_errors_total{command="play",reason="illegal move: ko"} 1`)
}

func TestRecordCapturesIgnoresZero(t *testing.T) {
	c := newTestCollector(t)
	c.RecordCaptures("black", 0)
	c.RecordCaptures("black", 3)

	text, err := c.DumpText()
	require.NoError(t, err)
	assert.Contains(t, text, `tenuki_board_captures_total{color="black"} 3`)
}

func TestAddPlayoutsAccumulates(t *testing.T) {
	c := newTestCollector(t)
	c.AddPlayouts(48)
	c.AddPlayouts(16)

	text, err := c.DumpText()
	require.NoError(t, err)
	assert.Contains(t, text, "tenuki_genmove_playouts_total 64")
}

func TestDumpTextIsSortedByFamilyName(t *testing.T) {
	c := newTestCollector(t)
	c.RecordCommand("quit")
	c.RecordIllegalMove("occupied")

	text, err := c.DumpText()
	require.NoError(t, err)
	boardIdx := indexOf(text, "tenuki_board_illegal_moves_total")
	gtpIdx := indexOf(text, "tenuki_gtp_commands_total")
	require.GreaterOrEqual(t, boardIdx, 0)
	require.GreaterOrEqual(t, gtpIdx, 0)
	assert.Less(t, boardIdx, gtpIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
