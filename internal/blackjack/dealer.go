package blackjack

// dealerStandsOn is the total at which the dealer stops drawing, soft or hard.
const dealerStandsOn = 17

// DealerHand follows the house rule and never consults a policy.
type DealerHand struct {
	cards []Card
}

// NewDealerHand starts a dealer hand holding only the up-card.
func NewDealerHand(upCard Card) *DealerHand {
	return &DealerHand{cards: []Card{upCard}}
}

// AddCard appends a card to the hand.
func (d *DealerHand) AddCard(c Card) {
	d.cards = append(d.cards, c)
}

// Cards returns the cards in the order they were dealt.
func (d *DealerHand) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Value recomputes the total from the raw cards on every call. Every ace is
// first counted as 11 and then demoted to 1, one at a time, for as long as the
// total is over 21, so a hand can move between soft and hard as cards arrive.
func (d *DealerHand) Value() int {
	total, aces := 0, 0
	for _, c := range d.cards {
		if c == Ace {
			aces++
			total += 11
			continue
		}
		total += int(c)
	}
	for total > bustThreshold && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// ShouldHit is true below 17.
func (d *DealerHand) ShouldHit() bool {
	return d.Value() < dealerStandsOn
}

// Bust reports whether the total is over 21.
func (d *DealerHand) Bust() bool {
	return d.Value() > bustThreshold
}

// Play draws from src until the dealer stands or busts.
func (d *DealerHand) Play(src CardSource) {
	for !d.Bust() && d.ShouldHit() {
		d.AddCard(src.Draw())
	}
}
