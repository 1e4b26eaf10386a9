package simulator

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/randutil"
	"github.com/lox/mcblackjack/internal/solver"
	"github.com/lox/mcblackjack/internal/statistics"
)

// Config holds configuration for evaluating a policy
type Config struct {
	Hands   int
	Seed    int64
	Workers int // Hands are split across this many independent streams
	Logger  *log.Logger
}

// Simulator plays hands with a fixed policy, always taking the policy's
// action, from starts drawn uniformly over the learner's state space.
type Simulator struct {
	config Config
	policy blackjack.Policy
	logger *log.Logger
}

// New creates a new simulator with the given configuration
func New(config Config, policy blackjack.Policy) *Simulator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{config: config, policy: policy, logger: logger}
}

// Run executes the simulation and returns results
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	if s.config.Hands <= 0 {
		return nil, fmt.Errorf("hands must be > 0, got %d", s.config.Hands)
	}

	workers := min(s.config.Workers, s.config.Hands)
	parts := make([]*statistics.Statistics, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		hands := s.config.Hands / workers
		if w < s.config.Hands%workers {
			hands++
		}
		g.Go(func() error {
			stats, err := s.runStream(gctx, w, hands)
			parts[w] = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, part := range parts {
		stats.Merge(part)
	}

	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}

	s.logger.Info("evaluation complete", "hands", stats.Hands, "mean", stats.Mean())
	return stats, nil
}

// runStream plays hands on its own random stream so results do not depend on
// goroutine scheduling.
func (s *Simulator) runStream(ctx context.Context, stream, hands int) (*statistics.Statistics, error) {
	rng := randutil.Derive(s.config.Seed, stream)
	starts := solver.NewExploringStarts(rng)
	shoe := blackjack.NewInfiniteShoe(rng)
	stats := &statistics.Statistics{}

	for hand := range hands {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		result, err := s.playHand(starts.SampleStart().State, shoe)
		if err != nil {
			return stats, fmt.Errorf("stream %d hand %d: %w", stream, hand+1, err)
		}
		stats.Add(result)
	}

	s.logger.Debug("stream finished", "stream", stream, "hands", hands, "mean", stats.Mean())
	return stats, nil
}

// playHand plays a single hand greedily from start
func (s *Simulator) playHand(start blackjack.PlayerState, shoe blackjack.CardSource) (statistics.HandResult, error) {
	hit, err := s.policy.Hit(start)
	if err != nil {
		return statistics.HandResult{}, err
	}
	out, err := solver.Play(solver.Start{State: start, Hit: hit}, shoe, s.policy, nil)
	if err != nil {
		return statistics.HandResult{}, err
	}
	return statistics.HandResult{
		Reward:     out.Reward,
		Start:      start,
		Hit:        hit,
		PlayerBust: out.PlayerBust,
		DealerBust: out.DealerBust,
	}, nil
}

// RunSimulation is a convenience function for running a simulation with basic parameters
func RunSimulation(ctx context.Context, policy blackjack.Policy, hands int, seed int64, logger *log.Logger) (*statistics.Statistics, error) {
	return New(Config{Hands: hands, Seed: seed, Logger: logger}, policy).Run(ctx)
}

// PrintSummary writes a summary of simulation results
func PrintSummary(w io.Writer, stats *statistics.Statistics) {
	low, high := stats.ConfidenceInterval95()
	pct := func(n int) float64 {
		return float64(n) / float64(stats.Hands) * 100
	}

	fmt.Fprintf(w, "\n=== RESULTS ===\n")
	fmt.Fprintf(w, "Hands played: %d\n", stats.Hands)
	fmt.Fprintf(w, "Wins: %d (%.1f%%), Losses: %d (%.1f%%), Pushes: %d (%.1f%%)\n",
		stats.Wins, pct(stats.Wins), stats.Losses, pct(stats.Losses), stats.Pushes, pct(stats.Pushes))
	fmt.Fprintf(w, "Player busts: %d, Dealer busts: %d\n", stats.PlayerBusts, stats.DealerBusts)

	fmt.Fprintf(w, "\n=== STATISTICAL RESULTS ===\n")
	fmt.Fprintf(w, "Mean: %.4f per hand\n", stats.Mean())
	fmt.Fprintf(w, "Std Dev: %.4f\n", stats.StdDev())
	fmt.Fprintf(w, "Std Error: %.4f\n", stats.StdError())
	fmt.Fprintf(w, "95%% CI: [%.4f, %.4f]\n", low, high)

	fmt.Fprintf(w, "\n=== HAND TYPE ===\n")
	fmt.Fprintf(w, "Usable ace: %d hands, %.3f per hand\n", stats.Soft.Hands, stats.Soft.Mean())
	fmt.Fprintf(w, "No usable ace: %d hands, %.3f per hand\n", stats.Hard.Hands, stats.Hard.Mean())

	fmt.Fprintf(w, "\n=== DEALER UP-CARD ===\n")
	for card := blackjack.Ace; card <= blackjack.Ten; card++ {
		b := stats.DealerResults[card]
		if b.Hands > 0 {
			fmt.Fprintf(w, "Dealer %-2s: %d hands, %.3f per hand\n", card, b.Hands, b.Mean())
		}
	}
}
