package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/techradar/internal/simulate"
	"github.com/okian/techradar/pkg/logger"
)

// Default configuration constants.
const (
	defaultVoters      = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

const usage = `Tech Radar Simulator
====================

Drives a running server through a complete voting event and checks the
blips it computes against a local tally.

Usage:
  simulate [options]

Options:
`

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		name    = flag.String("name", "", "Event name (default: timestamped)")
		voters  = flag.Int("voters", defaultVoters, "Number of distinct voters")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed    = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Ballot generator seed") //nolint:gosec // seed
		revote  = flag.Bool("revote", true, "Advance the round and revote tied technologies")
		token   = flag.String("token", "simulator", "Bearer token recorded as event creator")
		format  = flag.String("log-format", "text", "Log format: text or json")
		verbose = flag.Bool("verbose", false, "Log every rejected submission")
	)
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString(usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	f, err := logger.ParseFormat(*format)
	if err == nil {
		err = logger.InitWith(os.Stdout, f)
	}
	if err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:   *baseURL,
		EventName: *name,
		Voters:    *voters,
		Workers:   *workers,
		Timeout:   *timeout,
		Seed:      *seed,
		Revote:    *revote,
		Token:     *token,
		Verbose:   *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
