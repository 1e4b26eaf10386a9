package solver

import (
	"fmt"

	"github.com/lox/mcblackjack/internal/blackjack"
)

// tables holds everything that persists across episodes.
type tables struct {
	values [NumPairs]float64
	visits [NumPairs]int64
	policy Policy
}

func newTables() tables {
	return tables{policy: InitialPolicy()}
}

// Learner runs exploring-starts episodes and improves its policy after each
// one. It is not safe for concurrent use.
type Learner struct {
	tables
	cards      blackjack.CardSource
	starts     StartSampler
	trajectory Trajectory

	episodes      int64
	policyChanges int64
}

// NewLearner returns a learner with zeroed values and the initial policy.
func NewLearner(cards blackjack.CardSource, starts StartSampler) *Learner {
	return &Learner{
		tables: newTables(),
		cards:  cards,
		starts: starts,
	}
}

// RunEpisode plays one episode and folds its return into the tables. When the
// episode fails the tables are left untouched.
func (l *Learner) RunEpisode() (Outcome, error) {
	start := l.starts.SampleStart()
	l.trajectory.Reset()

	out, err := Play(start, l.cards, &l.policy, &l.trajectory)
	if err != nil {
		return Outcome{}, fmt.Errorf("episode %d: %w", l.episodes+1, err)
	}

	l.update(&l.trajectory, float64(out.Reward))
	l.episodes++
	return out, nil
}

// update applies the first-visit sample-mean update to every pair in tr and
// re-derives the greedy action of each touched state. Ties stand.
func (l *Learner) update(tr *Trajectory, reward float64) {
	for _, i := range tr.order {
		l.visits[i]++
		l.values[i] += (reward - l.values[i]) / float64(l.visits[i])

		s := i / 2
		hit := l.values[pairIndex(s, true)] > l.values[pairIndex(s, false)]
		if l.policy.hit[s] != hit {
			l.policyChanges++
		}
		l.policy.hit[s] = hit
	}
}

// Policy returns a copy of the current greedy policy.
func (l *Learner) Policy() Policy {
	return l.policy
}

// ActionValue returns the mean return observed for p.
func (l *Learner) ActionValue(p Pair) (float64, error) {
	i, err := PairIndex(p)
	if err != nil {
		return 0, err
	}
	return l.values[i], nil
}

// Visits returns how many episodes credited p.
func (l *Learner) Visits(p Pair) (int64, error) {
	i, err := PairIndex(p)
	if err != nil {
		return 0, err
	}
	return l.visits[i], nil
}

// Episodes returns the number of completed episodes.
func (l *Learner) Episodes() int64 {
	return l.episodes
}

// PolicyChanges counts how many times a state's greedy action flipped.
func (l *Learner) PolicyChanges() int64 {
	return l.policyChanges
}
