// Command tenuki is a GTP v2 line-mode Go-playing engine. It reads
// commands from stdin and writes replies to stdout; all logging and the
// final metrics dump go to stderr (spec.md §6 reserves stdout for the
// wire protocol). Grounded on skybrian-Gongo's main.go, generalized from
// a single sampleCount CLI argument to the layered internal/config
// precedence (defaults, JSON file, env vars, flags).
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Sir-Teo/tenuki/internal/board"
	"github.com/Sir-Teo/tenuki/internal/config"
	"github.com/Sir-Teo/tenuki/internal/genmove"
	"github.com/Sir-Teo/tenuki/internal/gtp"
	"github.com/Sir-Teo/tenuki/internal/logging"
	"github.com/Sir-Teo/tenuki/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, in io.Reader, out io.Writer) int {
	cfg, err := config.Load(config.ConfigPathFromEnv(), args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenuki: %v\n", err)
		return 2
	}

	log := logging.NewStderr("tenuki-gtp", cfg.LogLevel())
	collector := metrics.New(prometheus.NewRegistry())

	b, err := board.New(cfg.Engine.BoardSize)
	if err != nil {
		log.Error("failed to create board: %v", err)
		return 2
	}
	if err := b.SetKomi(cfg.Engine.Komi); err != nil {
		log.Error("failed to set komi: %v", err)
		return 2
	}

	generator := genmove.New(genmove.Config{
		Samples: cfg.Engine.Samples,
		Workers: cfg.Engine.Workers,
		Seed:    cfg.Engine.Seed,
	})

	session, err := gtp.NewSession(
		gtp.WithBoard(b),
		gtp.WithGenerator(generator),
		gtp.WithLogger(log),
		gtp.WithMetrics(collector),
	)
	if err != nil {
		log.Error("failed to start session: %v", err)
		return 2
	}

	log.Info("tenuki-gtp starting: boardsize=%d komi=%.1f samples=%d workers=%d",
		cfg.Engine.BoardSize, cfg.Engine.Komi, cfg.Engine.Samples, cfg.Engine.Workers)

	if err := session.Run(in, out); err != nil {
		log.Error("session ended with error: %v", err)
		return 1
	}
	return 0
}
