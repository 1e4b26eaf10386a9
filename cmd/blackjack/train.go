package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/mcblackjack/cmd/blackjack/shared"
	"github.com/lox/mcblackjack/internal/config"
	"github.com/lox/mcblackjack/internal/fileutil"
	"github.com/lox/mcblackjack/internal/render"
	"github.com/lox/mcblackjack/internal/solver"
)

type TrainCmd struct {
	Episodes           int64         `help:"total number of episodes (0 keeps the configured value)" default:"0"`
	Seed               *int64        `help:"random seed (defaults to the config seed); an explicit 0 picks a time-based seed"`
	Workers            int           `help:"split dealer up-cards across this many workers (1-10)" default:"0"`
	ProgressEvery      int64         `help:"log progress every N episodes (0 => episodes/100)" default:"0"`
	CheckpointEvery    int64         `help:"checkpoint interval in episodes (0 disables)" default:"0"`
	CheckpointInterval time.Duration `help:"checkpoint interval in wall-clock time (0 disables)" default:"0"`
	CheckpointPath     string        `name:"checkpoint" help:"path to write checkpoints"`
	ResumeFrom         string        `help:"resume training from checkpoint file"`
	Out                string        `short:"o" help:"path to write the policy file"`
	Heatmap            string        `help:"path to write an HTML heatmap of the policy"`
	Grid               bool          `help:"print the policy grid when done" default:"true" negatable:""`
}

func (cmd *TrainCmd) Run(g *Globals) error {
	logger := shared.NewLogger(g.Debug, g.JSONLogs)
	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()

	file, err := config.Load(g.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	outputs := cmd.outputs(file)

	trainer, err := cmd.trainer(file, logger)
	if err != nil {
		return err
	}
	trainer.SetLogger(logger)
	if outputs.Checkpoint != "" {
		trainer.EnableCheckpoints(outputs.Checkpoint)
	}

	return cmd.train(ctx, trainer, outputs, logger, os.Stdout)
}

func (cmd *TrainCmd) outputs(file *config.File) config.OutputBlock {
	out := file.Outputs()
	if cmd.Out != "" {
		out.Policy = cmd.Out
	}
	if cmd.CheckpointPath != "" {
		out.Checkpoint = cmd.CheckpointPath
	}
	if cmd.Heatmap != "" {
		out.Heatmap = cmd.Heatmap
	}
	return out
}

func (cmd *TrainCmd) trainer(file *config.File, logger zerolog.Logger) (*solver.Trainer, error) {
	if cmd.ResumeFrom != "" {
		trainer, err := solver.LoadTrainerFromCheckpoint(cmd.ResumeFrom)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		if cmd.Episodes > 0 {
			if err := trainer.SetTotalEpisodes(cmd.Episodes); err != nil {
				return nil, err
			}
		}
		if cmd.ProgressEvery > 0 {
			trainer.SetProgressEvery(cmd.ProgressEvery)
		}
		cfg := trainer.TrainingConfig()
		if cmd.Workers > 0 && cmd.Workers != cfg.Workers {
			logger.Warn().Int("requested", cmd.Workers).Int("checkpoint", cfg.Workers).Msg("cannot change workers when resuming from checkpoint; keeping checkpoint partitioning")
		}
		if cmd.Seed != nil && *cmd.Seed != cfg.Seed {
			logger.Warn().Msg("cannot change seed when resuming from checkpoint; random streams continue from the checkpoint")
		}
		logger.Info().
			Str("run_id", trainer.RunID()).
			Int64("episodes", cfg.Episodes).
			Int64("resume_episode", trainer.Episodes()).
			Int("workers", cfg.Workers).
			Str("checkpoint", cmd.ResumeFrom).
			Msg("resuming training run")
		return trainer, nil
	}

	cfg := solver.DefaultTrainingConfig()
	if err := file.Apply(&cfg); err != nil {
		return nil, err
	}
	cmd.apply(&cfg)

	trainer, err := solver.NewTrainer(cfg)
	if err != nil {
		return nil, err
	}
	cfg = trainer.TrainingConfig()
	logger.Info().
		Str("run_id", trainer.RunID()).
		Int64("episodes", cfg.Episodes).
		Int64("seed", cfg.Seed).
		Int("workers", cfg.Workers).
		Msg("starting training run")
	return trainer, nil
}

func (cmd *TrainCmd) apply(cfg *solver.TrainingConfig) {
	if cmd.Episodes > 0 {
		cfg.Episodes = cmd.Episodes
	}
	if cmd.Seed != nil {
		cfg.Seed = *cmd.Seed
	}
	if cmd.Workers > 0 {
		cfg.Workers = cmd.Workers
	}
	if cmd.ProgressEvery > 0 {
		cfg.ProgressEvery = cmd.ProgressEvery
	}
	if cmd.CheckpointEvery > 0 {
		cfg.CheckpointEvery = cmd.CheckpointEvery
	}
	if cmd.CheckpointInterval > 0 {
		cfg.CheckpointInterval = cmd.CheckpointInterval
	}
}

func (cmd *TrainCmd) train(ctx context.Context, trainer *solver.Trainer, outputs config.OutputBlock, logger zerolog.Logger, stdout io.Writer) error {
	start := time.Now()
	progress := func(p solver.Progress) {
		logger.Info().
			Int64("episode", p.Episode).
			Int64("total", p.Total).
			Float64("rate", p.Rate).
			Int64("policy_changes", p.PolicyChanges).
			Float64("agreement", p.Agreement).
			Msg("progress")
	}

	runErr := trainer.Run(ctx, progress)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warn().Int64("episode", trainer.Episodes()).Msg("training interrupted; saving partial policy")
	}

	f := trainer.PolicyFile()
	policy := trainer.Policy()
	ref := solver.ReferencePolicy()
	logger.Info().
		Dur("duration", time.Since(start)).
		Int64("episodes", f.Episodes).
		Float64("agreement", solver.Agreement(&policy, &ref)).
		Msg("training completed")

	if err := f.Save(outputs.Policy); err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	logger.Info().Str("path", outputs.Policy).Msg("policy saved")

	if outputs.Heatmap != "" {
		err := fileutil.WriteAtomic(outputs.Heatmap, 0o644, func(w io.Writer) error {
			return render.Heatmap(w, f)
		})
		if err != nil {
			return fmt.Errorf("write heatmap: %w", err)
		}
		logger.Info().Str("path", outputs.Heatmap).Msg("heatmap saved")
	}

	if cmd.Grid {
		if err := render.Grid(stdout, &policy, true); err != nil {
			return err
		}
	}
	return runErr
}
