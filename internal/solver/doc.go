// Package solver learns a blackjack hit/stand policy with Monte Carlo control
// using exploring starts.
//
// A Learner owns three dense tables indexed by (sum, usable ace, dealer card,
// action): the running mean return of each pair, how many episodes credited
// it, and the greedy action of each state. Every episode starts from a
// uniformly random state and action, follows the current policy to the end,
// and then credits the single terminal reward to each distinct pair it
// visited, improving the policy of those states immediately.
//
// The Trainer drives one Learner, or several learners over disjoint dealer
// up-card ranges in parallel, and handles progress reporting, checkpoints and
// policy export.
package solver
