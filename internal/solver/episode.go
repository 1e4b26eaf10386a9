package solver

import (
	rand "math/rand/v2"

	"github.com/lox/mcblackjack/internal/blackjack"
)

// Start is the state and first action of an episode.
type Start struct {
	State blackjack.PlayerState
	Hit   bool
}

// StartSampler chooses where episodes begin.
type StartSampler interface {
	SampleStart() Start
}

// ExploringStarts samples every state and first action uniformly so that all
// pairs keep being visited whatever the current policy prefers.
type ExploringStarts struct {
	rng       *rand.Rand
	low, high blackjack.Card
}

// NewExploringStarts samples dealer up-cards over the whole A..10 range.
func NewExploringStarts(rng *rand.Rand) *ExploringStarts {
	return NewExploringStartsRange(rng, blackjack.Ace, blackjack.Ten)
}

// NewExploringStartsRange restricts dealer up-cards to low..high inclusive.
func NewExploringStartsRange(rng *rand.Rand, low, high blackjack.Card) *ExploringStarts {
	return &ExploringStarts{rng: rng, low: low, high: high}
}

// SampleStart draws the player sum, the usable ace flag, the dealer up-card
// and the first action, in that order.
func (e *ExploringStarts) SampleStart() Start {
	sum := MinSum + e.rng.IntN(numSums)
	usableAce := e.rng.IntN(2) == 1
	dealer := e.low + blackjack.Card(e.rng.IntN(int(e.high-e.low)+1))
	hit := e.rng.IntN(2) == 1
	return Start{
		State: blackjack.PlayerState{Sum: sum, UsableAce: usableAce, DealerCard: dealer},
		Hit:   hit,
	}
}

// Outcome describes how a hand ended.
type Outcome struct {
	Reward       int
	PlayerValue  int
	DealerValue  int
	PlayerBust   bool
	DealerBust   bool
	DealerPlayed bool
}

// Play runs one hand from start: the first action is forced, later decisions
// come from policy. Every pair the player acts in is added to tr when tr is
// not nil. A player bust ends the hand at -1 before the dealer is dealt.
func Play(start Start, cards blackjack.CardSource, policy blackjack.Policy, tr *Trajectory) (Outcome, error) {
	record := func(p Pair) error {
		if tr == nil {
			return nil
		}
		return tr.Add(p)
	}

	player := blackjack.NewPlayerHand(start.State.Sum, start.State.UsableAce, start.State.DealerCard)
	if err := record(Pair{State: player.State(), Hit: start.Hit}); err != nil {
		return Outcome{}, err
	}

	if start.Hit {
		player.AddCard(cards.Draw())
		for !player.Bust() {
			hit, err := player.ShouldHit(policy)
			if err != nil {
				return Outcome{}, err
			}
			if !hit {
				break
			}
			if err := record(Pair{State: player.State(), Hit: true}); err != nil {
				return Outcome{}, err
			}
			player.AddCard(cards.Draw())
		}
	}

	if player.Bust() {
		return Outcome{Reward: -1, PlayerValue: player.Value(), PlayerBust: true}, nil
	}

	if err := record(Pair{State: player.State(), Hit: false}); err != nil {
		return Outcome{}, err
	}

	dealer := blackjack.NewDealerHand(start.State.DealerCard)
	dealer.Play(cards)

	out := Outcome{
		PlayerValue:  player.Value(),
		DealerValue:  dealer.Value(),
		DealerBust:   dealer.Bust(),
		DealerPlayed: true,
	}
	switch {
	case out.DealerBust:
		out.Reward = 1
	case out.PlayerValue > out.DealerValue:
		out.Reward = 1
	case out.PlayerValue < out.DealerValue:
		out.Reward = -1
	}
	return out, nil
}
