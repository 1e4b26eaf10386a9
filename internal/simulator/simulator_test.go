package simulator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/solver"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{Level: log.WarnLevel})
}

func TestNew(t *testing.T) {
	policy := solver.InitialPolicy()
	sim := New(Config{Hands: 100, Seed: 12345}, &policy)

	require.NotNil(t, sim)
	assert.Equal(t, 100, sim.config.Hands)
	assert.Equal(t, 1, sim.config.Workers)
	assert.NotNil(t, sim.logger)
}

func TestSimulator_Run(t *testing.T) {
	policy := solver.ReferencePolicy()
	sim := New(Config{Hands: 2_000, Seed: 7, Logger: quietLogger()}, &policy)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2_000, stats.Hands)
	assert.Equal(t, stats.Hands, stats.Wins+stats.Losses+stats.Pushes)
	require.NoError(t, stats.Validate())
	for card := blackjack.Ace; card <= blackjack.Ten; card++ {
		assert.Positive(t, stats.DealerResults[card].Hands, "dealer %s", card)
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	policy := solver.ReferencePolicy()
	for _, workers := range []int{1, 4} {
		cfg := Config{Hands: 1_000, Seed: 99, Workers: workers}
		a, err := New(cfg, &policy).Run(context.Background())
		require.NoError(t, err)
		b, err := New(cfg, &policy).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, a.Values, b.Values, "workers=%d", workers)
		assert.Equal(t, a.Wins, b.Wins, "workers=%d", workers)
		assert.Equal(t, 1_000, a.Hands)
	}
}

func TestSimulator_WorkersSplitHands(t *testing.T) {
	policy := solver.InitialPolicy()
	stats, err := New(Config{Hands: 10, Seed: 1, Workers: 3}, &policy).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Hands)

	stats, err = New(Config{Hands: 2, Seed: 1, Workers: 8}, &policy).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Hands)
}

func TestSimulator_AlwaysStandNeverBusts(t *testing.T) {
	var policy solver.Policy // zero value stands everywhere
	stats, err := RunSimulation(context.Background(), &policy, 1_000, 3, quietLogger())
	require.NoError(t, err)

	assert.Zero(t, stats.PlayerBusts)
	assert.Positive(t, stats.DealerBusts)
}

func TestSimulator_ReferenceBeatsInitialPolicy(t *testing.T) {
	initial := solver.InitialPolicy()
	ref := solver.ReferencePolicy()

	a, err := RunSimulation(context.Background(), &initial, 50_000, 11, nil)
	require.NoError(t, err)
	b, err := RunSimulation(context.Background(), &ref, 50_000, 11, nil)
	require.NoError(t, err)

	assert.Greater(t, b.Mean(), a.Mean())
}

func TestSimulator_Cancelled(t *testing.T) {
	policy := solver.InitialPolicy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{Hands: 100, Seed: 1}, &policy).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulator_InvalidHands(t *testing.T) {
	policy := solver.InitialPolicy()
	_, err := New(Config{Hands: 0}, &policy).Run(context.Background())
	assert.Error(t, err)
}

type brokenPolicy struct{}

func (brokenPolicy) Hit(blackjack.PlayerState) (bool, error) {
	return false, errors.New("no table")
}

func TestSimulator_PolicyError(t *testing.T) {
	_, err := New(Config{Hands: 5, Seed: 1}, brokenPolicy{}).Run(context.Background())
	assert.ErrorContains(t, err, "no table")
}

func TestPrintSummary(t *testing.T) {
	policy := solver.ReferencePolicy()
	stats, err := RunSimulation(context.Background(), &policy, 500, 5, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "Hands played: 500")
	assert.Contains(t, out, "95% CI")
	assert.Contains(t, out, "Dealer A ")
	assert.Contains(t, out, "Usable ace")
}
