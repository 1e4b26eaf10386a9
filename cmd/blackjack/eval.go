package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/mcblackjack/cmd/blackjack/shared"
	"github.com/lox/mcblackjack/internal/config"
	"github.com/lox/mcblackjack/internal/simulator"
	"github.com/lox/mcblackjack/internal/solver"
)

type EvalCmd struct {
	Policy    string `help:"path to the policy file (defaults to the configured output)"`
	Hands     int    `help:"number of hands to simulate (0 keeps the configured value)" default:"0"`
	Seed      int64  `help:"random seed (0 keeps the configured value)" default:"0"`
	Workers   int    `help:"number of parallel hand streams (0 keeps the configured value)" default:"0"`
	Reference bool   `help:"evaluate the textbook reference policy instead of a policy file"`
}

func (cmd *EvalCmd) Run(g *Globals) error {
	logger := shared.NewLogger(g.Debug, g.JSONLogs)
	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()

	file, err := config.Load(g.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eval := file.Evaluation()
	if cmd.Hands > 0 {
		eval.Hands = cmd.Hands
	}
	if cmd.Seed != 0 {
		eval.Seed = cmd.Seed
	}
	if cmd.Workers > 0 {
		eval.Workers = cmd.Workers
	}

	policy := solver.ReferencePolicy()
	if !cmd.Reference {
		path := cmd.Policy
		if path == "" {
			path = file.Outputs().Policy
		}
		f, err := solver.LoadPolicyFile(path)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		if policy, err = f.Policy(); err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		ref := solver.ReferencePolicy()
		logger.Info().
			Str("run_id", f.RunID).
			Str("generated", f.GeneratedAt.Format(time.RFC3339)).
			Int64("episodes", f.Episodes).
			Float64("agreement", solver.Agreement(&policy, &ref)).
			Msg("policy loaded")
	}

	sim := simulator.New(simulator.Config{
		Hands:   eval.Hands,
		Seed:    eval.Seed,
		Workers: eval.Workers,
		Logger:  shared.SimulatorLogger(os.Stderr, g.Debug, g.JSONLogs),
	}, &policy)

	start := time.Now()
	stats, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("run evaluation: %w", err)
	}

	low, high := stats.ConfidenceInterval95()
	logger.Info().
		Int("hands", stats.Hands).
		Dur("duration", time.Since(start)).
		Float64("mean", stats.Mean()).
		Float64("ci_low", low).
		Float64("ci_high", high).
		Msg("evaluation complete")

	simulator.PrintSummary(os.Stdout, stats)
	return nil
}
