package solver

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mcblackjack/internal/blackjack"
)

func smallConfig(episodes int64, workers int) TrainingConfig {
	cfg := DefaultTrainingConfig()
	cfg.Episodes = episodes
	cfg.Workers = workers
	cfg.Seed = 42
	return cfg
}

func trainedTrainer(t *testing.T, cfg TrainingConfig) *Trainer {
	t.Helper()
	trainer, err := NewTrainer(cfg)
	require.NoError(t, err)
	require.NoError(t, trainer.Run(context.Background(), nil))
	return trainer
}

func TestTrainingConfigValidate(t *testing.T) {
	require.NoError(t, DefaultTrainingConfig().Validate())

	cfg := DefaultTrainingConfig()
	cfg.Episodes = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultTrainingConfig()
	cfg.Workers = MaxWorkers + 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultTrainingConfig()
	cfg.CheckpointInterval = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestSplitDealerCards(t *testing.T) {
	assert.Equal(t, []cardRange{{1, 10}}, splitDealerCards(1))
	assert.Equal(t, []cardRange{{1, 4}, {5, 7}, {8, 10}}, splitDealerCards(3))
	assert.Equal(t, []cardRange{{1, 3}, {4, 6}, {7, 8}, {9, 10}}, splitDealerCards(4))

	ranges := splitDealerCards(MaxWorkers)
	require.Len(t, ranges, MaxWorkers)
	for i, r := range ranges {
		assert.Equal(t, blackjack.Card(i+1), r.low)
		assert.Equal(t, r.low, r.high)
	}
}

func TestAssignTargetsSumsToTotal(t *testing.T) {
	for workers := 1; workers <= MaxWorkers; workers++ {
		trainer, err := NewTrainer(smallConfig(1_003, workers))
		require.NoError(t, err)

		var sum int64
		for _, p := range trainer.partitions {
			sum += p.target
		}
		assert.Equal(t, int64(1_003), sum, "workers=%d", workers)
	}
}

func TestTrainerRunsConfiguredEpisodes(t *testing.T) {
	trainer, err := NewTrainer(smallConfig(5_000, 1))
	require.NoError(t, err)

	var reports []Progress
	require.NoError(t, trainer.Run(context.Background(), func(p Progress) {
		reports = append(reports, p)
	}))

	assert.Equal(t, int64(5_000), trainer.Episodes())
	require.Len(t, reports, 100)
	last := reports[len(reports)-1]
	assert.Equal(t, int64(5_000), last.Episode)
	assert.Equal(t, int64(5_000), last.Total)
	assert.GreaterOrEqual(t, last.Agreement, 0.0)
	assert.LessOrEqual(t, last.Agreement, 1.0)
	for i := 1; i < len(reports); i++ {
		assert.Greater(t, reports[i].Episode, reports[i-1].Episode)
	}
}

func TestTrainerSmallBatchesAlwaysProgress(t *testing.T) {
	cases := []struct {
		episodes int64
		workers  int
	}{
		{100, 2},
		{7, 3},
		{10, 10},
		{13, 4},
		{3, 7},
	}
	for _, tc := range cases {
		cfg := smallConfig(tc.episodes, tc.workers)
		cfg.ProgressEvery = 1
		trainer, err := NewTrainer(cfg)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var last int64
		err = trainer.Run(ctx, func(p Progress) {
			assert.Greater(t, p.Episode, last)
			last = p.Episode
		})
		cancel()
		require.NoError(t, err, "episodes=%d workers=%d", tc.episodes, tc.workers)
		assert.Equal(t, tc.episodes, trainer.Episodes())
		for _, p := range trainer.partitions {
			assert.Equal(t, p.target, p.learner.Episodes(), "partition %d", p.index)
		}
	}
}

func TestMulDivLargeOperands(t *testing.T) {
	assert.Equal(t, int64(3<<60), mulDiv(3, 1<<62, 4))
	assert.Equal(t, int64(math.MaxInt64-1), mulDiv(math.MaxInt64, math.MaxInt64-1, math.MaxInt64))
	assert.Equal(t, int64(0), mulDiv(0, math.MaxInt64, 7))

	total := int64(5_000_000_000)
	trainer, err := NewTrainer(smallConfig(total, 3))
	require.NoError(t, err)
	var sum int64
	for _, p := range trainer.partitions {
		assert.Positive(t, p.target)
		sum += p.target
	}
	assert.Equal(t, total, sum)
}

func TestTrainerDeterministic(t *testing.T) {
	for _, workers := range []int{1, 2, 3} {
		a := trainedTrainer(t, smallConfig(20_000, workers))
		b := trainedTrainer(t, smallConfig(20_000, workers))

		assert.Equal(t, a.Policy(), b.Policy(), "workers=%d", workers)
		assert.Equal(t, *a.merged(), *b.merged(), "workers=%d", workers)
		assert.Equal(t, int64(20_000), a.Episodes())
	}
}

func TestTrainerPartitionsStayInTheirRange(t *testing.T) {
	trainer := trainedTrainer(t, smallConfig(20_000, 3))

	for _, p := range trainer.partitions {
		var owned, foreign int64
		for i := range NumPairs {
			if p.owns(pairAt(i).State.DealerCard) {
				owned += p.learner.visits[i]
			} else {
				foreign += p.learner.visits[i]
			}
		}
		assert.Positive(t, owned, "partition %d", p.index)
		assert.Zero(t, foreign, "partition %d", p.index)
		assert.Equal(t, p.target, p.learner.Episodes())
	}

	merged := trainer.merged()
	for i := range NumPairs {
		assert.Positive(t, merged.visits[i], "pair %s", pairAt(i))
	}

	p := Pair{State: state(16, false, 9), Hit: true}
	want, err := trainer.partitions[2].learner.ActionValue(p)
	require.NoError(t, err)
	got, err := trainer.ActionValue(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTrainerCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.ckpt")

	for _, workers := range []int{1, 4} {
		trainer, err := NewTrainer(smallConfig(10_000, workers))
		require.NoError(t, err)
		trainer.EnableCheckpoints(path)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = trainer.Run(ctx, nil)
		require.ErrorIs(t, err, context.Canceled)
		assert.Less(t, trainer.Episodes(), int64(10_000))
		assert.FileExists(t, path)
		require.NoError(t, os.Remove(path))
	}
}

func TestTrainerTimedCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.ckpt")
	ctx := context.Background()
	clock := quartz.NewMock(t)

	cfg := smallConfig(1_000, 1)
	cfg.ProgressEvery = 100
	cfg.CheckpointInterval = 30 * time.Second

	trainer, err := NewTrainer(cfg)
	require.NoError(t, err)
	trainer.SetClock(clock)
	trainer.EnableCheckpoints(path)

	calls := 0
	require.NoError(t, trainer.Run(ctx, func(p Progress) {
		calls++
		switch calls {
		case 1:
			assert.NoFileExists(t, path)
			clock.Advance(time.Minute).MustWait(ctx)
		case 2:
			restored, err := LoadTrainerFromCheckpoint(path)
			require.NoError(t, err)
			assert.Equal(t, int64(100), restored.Episodes())
		}
	}))
	assert.Equal(t, 10, calls)

	final, err := LoadTrainerFromCheckpoint(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), final.Episodes())
}

func TestTrainerEpisodeCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.ckpt")

	cfg := smallConfig(1_000, 2)
	cfg.ProgressEvery = 100
	cfg.CheckpointEvery = 300

	trainer, err := NewTrainer(cfg)
	require.NoError(t, err)
	trainer.EnableCheckpoints(path)

	var checkpointed []int64
	require.NoError(t, trainer.Run(context.Background(), func(p Progress) {
		if _, err := os.Stat(path); err == nil {
			restored, err := LoadTrainerFromCheckpoint(path)
			require.NoError(t, err)
			checkpointed = append(checkpointed, restored.Episodes())
		}
	}))

	// Progress for batch n is reported before its checkpoint is written.
	assert.Equal(t, []int64{300, 300, 300, 600, 600, 600, 900}, checkpointed)
}

func TestSetTotalEpisodes(t *testing.T) {
	trainer := trainedTrainer(t, smallConfig(2_000, 2))

	assert.Error(t, trainer.SetTotalEpisodes(1_000))
	assert.Equal(t, int64(2_000), trainer.TrainingConfig().Episodes)
	assert.Equal(t, int64(1_000), trainer.partitions[0].target)

	require.NoError(t, trainer.SetTotalEpisodes(3_000))
	require.NoError(t, trainer.Run(context.Background(), nil))
	assert.Equal(t, int64(3_000), trainer.Episodes())
}

func TestNewTrainerPicksSeed(t *testing.T) {
	cfg := smallConfig(10, 1)
	cfg.Seed = 0
	trainer, err := NewTrainer(cfg)
	require.NoError(t, err)
	assert.NotZero(t, trainer.TrainingConfig().Seed)
	assert.NotEmpty(t, trainer.RunID())
}

func TestTrainerConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running convergence test")
	}

	trainer := trainedTrainer(t, smallConfig(500_000, 1))
	policy := trainer.Policy()

	for d := blackjack.Ace; d <= blackjack.Ten; d++ {
		for _, sum := range []int{20, 21} {
			hit, err := policy.Hit(state(sum, false, d))
			require.NoError(t, err)
			assert.False(t, hit, "hard %d vs %s should stand", sum, d)
		}
		hit, err := policy.Hit(state(11, false, d))
		require.NoError(t, err)
		assert.True(t, hit, "hard 11 vs %s should hit", d)
	}

	ref := ReferencePolicy()
	assert.GreaterOrEqual(t, Agreement(&policy, &ref), 0.7)
}
