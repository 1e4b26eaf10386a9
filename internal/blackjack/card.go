package blackjack

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"strconv"
)

// Card is a blackjack card value: 1 for an ace and 2..10 otherwise.
type Card int

const (
	Ace Card = 1
	Ten Card = 10
)

// ErrInvalidCard is returned when a card value falls outside 1..10.
var ErrInvalidCard = errors.New("blackjack: card must be in 1..10")

// Valid reports whether c is a card the shoe can produce.
func (c Card) Valid() bool {
	return c >= Ace && c <= Ten
}

func (c Card) String() string {
	if c == Ace {
		return "A"
	}
	return strconv.Itoa(int(c))
}

// ParseCard accepts "A" or a number in 1..10.
func ParseCard(s string) (Card, error) {
	if s == "A" || s == "a" {
		return Ace, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse card %q: %w", s, err)
	}
	c := Card(n)
	if !c.Valid() {
		return 0, fmt.Errorf("parse card %q: %w", s, ErrInvalidCard)
	}
	return c, nil
}

// CardSource is an endless supply of cards.
type CardSource interface {
	Draw() Card
}

// InfiniteShoe samples ranks uniformly with replacement. It holds no state of
// its own beyond the generator.
type InfiniteShoe struct {
	rng *rand.Rand
}

// NewInfiniteShoe returns a shoe drawing from rng.
func NewInfiniteShoe(rng *rand.Rand) *InfiniteShoe {
	return &InfiniteShoe{rng: rng}
}

// Draw samples a rank in 1..13 and collapses the three face ranks to 10.
func (s *InfiniteShoe) Draw() Card {
	rank := s.rng.IntN(13) + 1
	if rank > 9 {
		return Ten
	}
	return Card(rank)
}

// StackedShoe deals a fixed sequence of cards, which makes hands replayable.
// Drawing past the end of the sequence panics.
type StackedShoe struct {
	cards []Card
	next  int
}

// NewStackedShoe returns a shoe that deals cards in order.
func NewStackedShoe(cards ...Card) *StackedShoe {
	return &StackedShoe{cards: cards}
}

func (s *StackedShoe) Draw() Card {
	if s.next >= len(s.cards) {
		panic(fmt.Sprintf("blackjack: stacked shoe exhausted after %d cards", len(s.cards)))
	}
	c := s.cards[s.next]
	s.next++
	return c
}

// Remaining returns how many cards have not been dealt yet.
func (s *StackedShoe) Remaining() int {
	return len(s.cards) - s.next
}
