// Package metrics collects Prometheus counters/histograms for the GTP
// engine. Grounded on dmmcquay-katago-mcp's internal/metrics/prometheus.go
// (the PrometheusCollector singleton built on promauto), trimmed to the
// counters a GTP session actually produces and re-registered against a
// caller-supplied prometheus.Registry rather than the global default so
// that multiple Collectors can coexist in tests.
//
// There is no HTTP listener here: spec.md's Non-goals exclude "any
// protocol other than GTP v2 line mode," so metrics are dumped as a
// single text line to stderr on quit instead of served over /metrics.
package metrics

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector holds every metric the GTP dispatcher and move generator
// report against.
type Collector struct {
	registry *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	commandErrorsTotal *prometheus.CounterVec
	genmoveDuration   prometheus.Histogram
	playoutsTotal     prometheus.Counter
	capturesTotal     *prometheus.CounterVec
	illegalMovesTotal *prometheus.CounterVec
}

// New creates a Collector registered against reg. Pass
// prometheus.NewRegistry() for an isolated instance (tests, or multiple
// engines in one process); cmd/tenuki uses a single process-wide
// registry.
func New(reg *prometheus.Registry) *Collector {
	c := &Collector{registry: reg}

	c.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenuki_gtp_commands_total",
		Help: "Total number of GTP commands dispatched, by command name.",
	}, []string{"command"})

	c.commandErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenuki_gtp_command_errors_total",
		Help: "Total number of GTP commands that returned a failure reply.",
	}, []string{"command", "reason"})

	c.genmoveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tenuki_genmove_duration_seconds",
		Help:    "Wall-clock time spent generating a move.",
		Buckets: prometheus.DefBuckets,
	})

	c.playoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenuki_genmove_playouts_total",
		Help: "Total number of Monte-Carlo playouts run across all genmove calls.",
	})

	c.capturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenuki_board_captures_total",
		Help: "Total number of opposing stones captured, by the capturing color.",
	}, []string{"color"})

	c.illegalMovesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenuki_board_illegal_moves_total",
		Help: "Total number of rejected play attempts, by rejection reason.",
	}, []string{"reason"})

	reg.MustRegister(
		c.commandsTotal,
		c.commandErrorsTotal,
		c.genmoveDuration,
		c.playoutsTotal,
		c.capturesTotal,
		c.illegalMovesTotal,
	)
	return c
}

func (c *Collector) RecordCommand(command string) {
	c.commandsTotal.WithLabelValues(command).Inc()
}

func (c *Collector) RecordCommandError(command, reason string) {
	c.commandErrorsTotal.WithLabelValues(command, reason).Inc()
}

func (c *Collector) ObserveGenmoveDuration(seconds float64) {
	c.genmoveDuration.Observe(seconds)
}

func (c *Collector) AddPlayouts(n int) {
	c.playoutsTotal.Add(float64(n))
}

func (c *Collector) RecordCaptures(color string, n int) {
	if n <= 0 {
		return
	}
	c.capturesTotal.WithLabelValues(color).Add(float64(n))
}

func (c *Collector) RecordIllegalMove(reason string) {
	c.illegalMovesTotal.WithLabelValues(reason).Inc()
}

// DumpText renders every registered metric family as Prometheus text
// exposition format, sorted by family name for stable output. Called
// once on "quit" and written to stderr.
func (c *Collector) DumpText() (string, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}
