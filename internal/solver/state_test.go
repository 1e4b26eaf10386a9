package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mcblackjack/internal/blackjack"
)

func TestStateIndexRoundTrip(t *testing.T) {
	seen := make(map[blackjack.PlayerState]bool)
	for i := range NumStates {
		s := StateAt(i)
		got, err := StateIndex(s)
		require.NoError(t, err)
		require.Equal(t, i, got, "state %s", s)
		seen[s] = true
	}
	assert.Len(t, seen, NumStates)
}

func TestStateIndexLayout(t *testing.T) {
	i, err := StateIndex(blackjack.PlayerState{Sum: 11, UsableAce: false, DealerCard: blackjack.Ace})
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = StateIndex(blackjack.PlayerState{Sum: 21, UsableAce: true, DealerCard: blackjack.Ten})
	require.NoError(t, err)
	assert.Equal(t, NumStates-1, i)

	i, err = StateIndex(blackjack.PlayerState{Sum: 12, UsableAce: true, DealerCard: 5})
	require.NoError(t, err)
	assert.Equal(t, ((12-11)*2+1)*10+4, i)
}

func TestStateIndexOutOfRange(t *testing.T) {
	cases := []blackjack.PlayerState{
		{Sum: 10, DealerCard: 5},
		{Sum: 22, DealerCard: 5},
		{Sum: 15, DealerCard: 0},
		{Sum: 15, DealerCard: 11},
	}
	for _, s := range cases {
		_, err := StateIndex(s)
		assert.ErrorIs(t, err, ErrStateOutOfRange, "state %+v", s)

		_, err = PairIndex(Pair{State: s, Hit: true})
		assert.ErrorIs(t, err, ErrStateOutOfRange, "pair %+v", s)
	}
}

func TestPairIndexCoversAllPairs(t *testing.T) {
	seen := make([]bool, NumPairs)
	for s := range States() {
		for _, hit := range []bool{false, true} {
			i, err := PairIndex(Pair{State: s, Hit: hit})
			require.NoError(t, err)
			require.False(t, seen[i])
			seen[i] = true
			assert.Equal(t, Pair{State: s, Hit: hit}, pairAt(i))
		}
	}
	for i, ok := range seen {
		assert.True(t, ok, "pair %d never produced", i)
	}
}
