package solver

import (
	"iter"

	"github.com/lox/mcblackjack/internal/blackjack"
)

// Policy maps every tracked state to hit (true) or stand (false).
type Policy struct {
	hit [NumStates]bool
}

// InitialPolicy stands on 20 and 21 and hits everything else.
func InitialPolicy() Policy {
	var p Policy
	for i := range NumStates {
		p.hit[i] = StateAt(i).Sum < 20
	}
	return p
}

// Hit implements blackjack.Policy.
func (p *Policy) Hit(s blackjack.PlayerState) (bool, error) {
	i, err := StateIndex(s)
	if err != nil {
		return false, err
	}
	return p.hit[i], nil
}

// Set overrides the action for s.
func (p *Policy) Set(s blackjack.PlayerState, hit bool) error {
	i, err := StateIndex(s)
	if err != nil {
		return err
	}
	p.hit[i] = hit
	return nil
}

// All yields every state with its action, in index order.
func (p *Policy) All() iter.Seq2[blackjack.PlayerState, bool] {
	return func(yield func(blackjack.PlayerState, bool) bool) {
		for i := range NumStates {
			if !yield(StateAt(i), p.hit[i]) {
				return
			}
		}
	}
}

// Agreement returns the fraction of states on which a and b pick the same
// action.
func Agreement(a, b *Policy) float64 {
	same := 0
	for i := range NumStates {
		if a.hit[i] == b.hit[i] {
			same++
		}
	}
	return float64(same) / float64(NumStates)
}

// ReferencePolicy is the optimal policy published by Sutton and Barto for
// this game (stand on soft 17 dealer, no doubling or splitting), extended to
// always hit 11.
func ReferencePolicy() Policy {
	var p Policy
	for i := range NumStates {
		p.hit[i] = referenceHit(StateAt(i))
	}
	return p
}

func referenceHit(s blackjack.PlayerState) bool {
	d := s.DealerCard
	if s.UsableAce {
		switch {
		case s.Sum >= 19:
			return false
		case s.Sum == 18:
			return d == blackjack.Ace || d >= 9
		default:
			return true
		}
	}
	switch {
	case s.Sum >= 17:
		return false
	case s.Sum >= 13:
		return d == blackjack.Ace || d >= 7
	case s.Sum == 12:
		return d < 4 || d > 6
	default:
		return true
	}
}
