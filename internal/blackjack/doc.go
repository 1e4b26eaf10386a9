// Package blackjack models the pieces of a single-player blackjack hand that
// the Monte Carlo learner simulates: an infinite shoe of card values, the
// player's hand with its one-shot usable ace, and a dealer that stands on 17.
//
// Cards are drawn independently with replacement, so there is no shoe
// depletion. Face cards are collapsed to 10 at the source and an ace is the
// value 1; whether it counts as 11 is decided by the hand holding it.
package blackjack
