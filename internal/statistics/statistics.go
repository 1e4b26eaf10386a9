package statistics

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lox/mcblackjack/internal/blackjack"
)

// HandResult represents the outcome of a single evaluated hand
type HandResult struct {
	Reward     int                   // +1 win, 0 push, -1 loss
	Start      blackjack.PlayerState // State the hand was dealt in
	Hit        bool                  // First action taken
	PlayerBust bool
	DealerBust bool
}

// Bucket accumulates results for one slice of the state space
type Bucket struct {
	Hands  int
	Sum    float64
	Wins   int
	Losses int
}

// Mean returns the average reward of the bucket
func (b Bucket) Mean() float64 {
	if b.Hands == 0 {
		return 0
	}
	return b.Sum / float64(b.Hands)
}

// Statistics tracks evaluation results for a fixed policy
type Statistics struct {
	Hands  int
	Values []float64 // Every reward, kept for variance and quantiles

	Wins        int
	Losses      int
	Pushes      int
	PlayerBusts int // Losses where the player went over 21
	DealerBusts int // Wins where the dealer went over 21

	Soft Bucket // Hands dealt with a usable ace
	Hard Bucket // Hands dealt without one

	DealerResults [11]Bucket // Index 0 unused, 1-10 for the dealer up-card
}

// Add incorporates a new hand result into the statistics
func (s *Statistics) Add(result HandResult) {
	reward := float64(result.Reward)
	s.Hands++
	s.Values = append(s.Values, reward)

	switch {
	case result.Reward > 0:
		s.Wins++
		if result.DealerBust {
			s.DealerBusts++
		}
	case result.Reward < 0:
		s.Losses++
		if result.PlayerBust {
			s.PlayerBusts++
		}
	default:
		s.Pushes++
	}

	bucket := &s.Hard
	if result.Start.UsableAce {
		bucket = &s.Soft
	}
	bucket.add(result.Reward)

	if d := result.Start.DealerCard; d.Valid() {
		s.DealerResults[d].add(result.Reward)
	}
}

func (b *Bucket) add(reward int) {
	b.Hands++
	b.Sum += float64(reward)
	switch {
	case reward > 0:
		b.Wins++
	case reward < 0:
		b.Losses++
	}
}

// Mean returns the average reward per hand
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean using
// the Student t distribution with Hands-1 degrees of freedom.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	if s.Hands < 2 {
		return mean, mean
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.Hands - 1)}
	margin := tDist.Quantile(0.975) * s.StdError()
	return mean - margin, mean + margin
}

// WinRate returns the fraction of hands won
func (s *Statistics) WinRate() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Hands)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := slices.Clone(s.Values)
	slices.Sort(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// DealerMean returns the mean result against a dealer up-card
func (s *Statistics) DealerMean(card blackjack.Card) float64 {
	if !card.Valid() {
		return 0
	}
	return s.DealerResults[card].Mean()
}

// Merge folds other into s
func (s *Statistics) Merge(other *Statistics) {
	s.Hands += other.Hands
	s.Values = append(s.Values, other.Values...)
	s.Wins += other.Wins
	s.Losses += other.Losses
	s.Pushes += other.Pushes
	s.PlayerBusts += other.PlayerBusts
	s.DealerBusts += other.DealerBusts
	s.Soft.merge(other.Soft)
	s.Hard.merge(other.Hard)
	for i := range s.DealerResults {
		s.DealerResults[i].merge(other.DealerResults[i])
	}
}

func (b *Bucket) merge(o Bucket) {
	b.Hands += o.Hands
	b.Sum += o.Sum
	b.Wins += o.Wins
	b.Losses += o.Losses
}

// Validate performs consistency checks on the accumulated counts
func (s *Statistics) Validate() error {
	if s.Hands <= 0 {
		return fmt.Errorf("invalid hands count: %d", s.Hands)
	}

	if len(s.Values) != s.Hands {
		return fmt.Errorf("values array length (%d) does not match hands count (%d)",
			len(s.Values), s.Hands)
	}

	if total := s.Wins + s.Losses + s.Pushes; total != s.Hands {
		return fmt.Errorf("wins+losses+pushes (%d) does not match total hands (%d)", total, s.Hands)
	}

	if s.PlayerBusts > s.Losses {
		return fmt.Errorf("player busts (%d) exceed losses (%d)", s.PlayerBusts, s.Losses)
	}
	if s.DealerBusts > s.Wins {
		return fmt.Errorf("dealer busts (%d) exceed wins (%d)", s.DealerBusts, s.Wins)
	}

	if total := s.Soft.Hands + s.Hard.Hands; total != s.Hands {
		return fmt.Errorf("soft+hard hands (%d) does not match total hands (%d)", total, s.Hands)
	}

	dealerHands := 0
	for card := blackjack.Ace; card <= blackjack.Ten; card++ {
		dealerHands += s.DealerResults[card].Hands
	}
	if dealerHands != s.Hands {
		return fmt.Errorf("dealer card hands total (%d) does not match total hands (%d)",
			dealerHands, s.Hands)
	}

	sum := s.Soft.Sum + s.Hard.Sum
	if math.Abs(sum-float64(s.Wins-s.Losses)) > 1e-6 {
		return fmt.Errorf("reward ledger mismatch: buckets=%.0f, wins-losses=%d", sum, s.Wins-s.Losses)
	}

	return nil
}
