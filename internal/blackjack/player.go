package blackjack

import "fmt"

// bustThreshold is the highest total that does not bust.
const bustThreshold = 21

// PlayerState is the learner's view of a player hand. It is comparable and
// is used as a table key.
type PlayerState struct {
	Sum        int
	UsableAce  bool
	DealerCard Card
}

func (s PlayerState) String() string {
	ace := "hard"
	if s.UsableAce {
		ace = "soft"
	}
	return fmt.Sprintf("%s %d vs %s", ace, s.Sum, s.DealerCard)
}

// Policy decides whether the player hits in a given state.
type Policy interface {
	Hit(state PlayerState) (bool, error)
}

// PlayerHand tracks the running total of a hand that may have started with an
// ace counted as 11. The ace is demoted to 1 the first time a card would bust
// the soft total and is never promoted again.
type PlayerHand struct {
	sum        int
	usableAce  bool
	usingAce   bool
	dealerCard Card
}

// NewPlayerHand starts a hand at sum. usableAce records whether the starting
// total counts an ace as 11.
func NewPlayerHand(sum int, usableAce bool, dealerCard Card) *PlayerHand {
	return &PlayerHand{
		sum:        sum,
		usableAce:  usableAce,
		usingAce:   usableAce,
		dealerCard: dealerCard,
	}
}

// AddCard adds a card; an ace drawn here always counts as 1.
func (p *PlayerHand) AddCard(c Card) {
	if p.usingAce && p.sum+int(c) > bustThreshold {
		p.usingAce = false
		p.sum += int(c) - 10
		return
	}
	p.sum += int(c)
}

// Value returns the current total.
func (p *PlayerHand) Value() int {
	return p.sum
}

// Bust reports whether the total is over 21.
func (p *PlayerHand) Bust() bool {
	return p.Value() > bustThreshold
}

// UsingAce reports whether the starting ace still counts as 11.
func (p *PlayerHand) UsingAce() bool {
	return p.usingAce
}

// State keys the hand by its starting shape: UsableAce keeps the value the
// hand was dealt with even after the ace has been demoted.
func (p *PlayerHand) State() PlayerState {
	return PlayerState{Sum: p.sum, UsableAce: p.usableAce, DealerCard: p.dealerCard}
}

// ShouldHit asks policy what to do in the current state.
func (p *PlayerHand) ShouldHit(policy Policy) (bool, error) {
	return policy.Hit(p.State())
}
