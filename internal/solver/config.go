package solver

import (
	"errors"
	"time"
)

// MaxWorkers is the most partitions the dealer up-cards can be split into.
const MaxWorkers = numDealerCards

// TrainingConfig aggregates parameters that control a training run.
type TrainingConfig struct {
	// Episodes is the total number of exploring-starts episodes to run.
	Episodes int64

	// Seed fixes every random stream of the run. Zero picks a time-based seed.
	Seed int64

	// Workers splits the dealer up-cards into that many disjoint ranges, each
	// learned on its own goroutine. One worker keeps the plain sequential order.
	Workers int

	// ProgressEvery is the number of episodes between progress reports. Zero
	// reports every Episodes/100.
	ProgressEvery int64

	// CheckpointEvery and CheckpointInterval trigger checkpoints by episode
	// count and by wall-clock time. Zero disables either trigger.
	CheckpointEvery    int64
	CheckpointInterval time.Duration
}

// Validate ensures the training parameters are safe to use.
func (c TrainingConfig) Validate() error {
	if c.Episodes <= 0 {
		return errors.New("episodes must be > 0")
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return errors.New("workers must be between 1 and 10")
	}
	if c.ProgressEvery < 0 {
		return errors.New("progress interval cannot be negative")
	}
	if c.CheckpointEvery < 0 {
		return errors.New("checkpoint episode interval cannot be negative")
	}
	if c.CheckpointInterval < 0 {
		return errors.New("checkpoint interval cannot be negative")
	}
	return nil
}

// DefaultTrainingConfig returns the settings used for a full run.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Episodes: 2_000_000,
		Seed:     1,
		Workers:  1,
	}
}
