package solver

import (
	"errors"
	"fmt"
	"iter"

	"github.com/lox/mcblackjack/internal/blackjack"
)

const (
	// MinSum and MaxSum bound the player totals the learner tracks. Totals
	// below 11 cannot bust on a hit and are never sampled.
	MinSum = 11
	MaxSum = 21

	numSums        = MaxSum - MinSum + 1
	numDealerCards = int(blackjack.Ten)

	// NumStates is the number of (sum, usable ace, dealer card) states.
	NumStates = numSums * 2 * numDealerCards
	// NumPairs is the number of (state, action) pairs.
	NumPairs = NumStates * 2
)

// ErrStateOutOfRange is returned when a state outside the tracked ranges is
// looked up. Reaching one means the episode logic is wrong.
var ErrStateOutOfRange = errors.New("solver: player state out of range")

// Pair is a state together with the action taken in it.
type Pair struct {
	State blackjack.PlayerState
	Hit   bool
}

func (p Pair) String() string {
	if p.Hit {
		return p.State.String() + ": hit"
	}
	return p.State.String() + ": stand"
}

// StateIndex maps s to its dense table index.
func StateIndex(s blackjack.PlayerState) (int, error) {
	if s.Sum < MinSum || s.Sum > MaxSum || !s.DealerCard.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrStateOutOfRange, s)
	}
	i := (s.Sum - MinSum) * 2 * numDealerCards
	if s.UsableAce {
		i += numDealerCards
	}
	return i + int(s.DealerCard) - 1, nil
}

// StateAt is the inverse of StateIndex.
func StateAt(i int) blackjack.PlayerState {
	return blackjack.PlayerState{
		Sum:        MinSum + i/(2*numDealerCards),
		UsableAce:  (i/numDealerCards)%2 == 1,
		DealerCard: blackjack.Card(i%numDealerCards + 1),
	}
}

// States yields every tracked state in index order.
func States() iter.Seq[blackjack.PlayerState] {
	return func(yield func(blackjack.PlayerState) bool) {
		for i := range NumStates {
			if !yield(StateAt(i)) {
				return
			}
		}
	}
}

func pairIndex(state int, hit bool) int {
	if hit {
		return state*2 + 1
	}
	return state * 2
}

// PairIndex maps p to its dense table index.
func PairIndex(p Pair) (int, error) {
	s, err := StateIndex(p.State)
	if err != nil {
		return 0, err
	}
	return pairIndex(s, p.Hit), nil
}

func pairAt(i int) Pair {
	return Pair{State: StateAt(i / 2), Hit: i%2 == 1}
}
