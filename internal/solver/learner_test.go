package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/mcblackjack/internal/blackjack"
)

type scriptedStarts struct {
	starts []Start
}

func (s *scriptedStarts) SampleStart() Start {
	next := s.starts[0]
	s.starts = s.starts[1:]
	return next
}

func TestLearnerSampleAverage(t *testing.T) {
	start := Start{State: state(15, false, 6)}
	starts := &scriptedStarts{starts: []Start{start, start, start}}
	shoe := blackjack.NewStackedShoe(
		10, 10, // dealer 26: +1
		10, blackjack.Ace, // dealer 17: -1
		5, 6, // dealer 17: -1
	)
	l := NewLearner(shoe, starts)
	stand := Pair{State: start.State, Hit: false}
	hit := Pair{State: start.State, Hit: true}

	_, err := l.RunEpisode()
	require.NoError(t, err)
	q, _ := l.ActionValue(stand)
	assert.Equal(t, 1.0, q)
	policy := l.Policy()
	h, _ := policy.Hit(start.State)
	assert.False(t, h, "stand should now look better than an unvisited hit")

	_, err = l.RunEpisode()
	require.NoError(t, err)
	q, _ = l.ActionValue(stand)
	assert.Equal(t, 0.0, q)
	policy = l.Policy()
	h, _ = policy.Hit(start.State)
	assert.False(t, h, "ties stand")

	_, err = l.RunEpisode()
	require.NoError(t, err)
	q, _ = l.ActionValue(stand)
	assert.InDelta(t, -1.0/3, q, 1e-12)
	policy = l.Policy()
	h, _ = policy.Hit(start.State)
	assert.True(t, h)

	visits, _ := l.Visits(stand)
	assert.Equal(t, int64(3), visits)
	visits, _ = l.Visits(hit)
	assert.Equal(t, int64(0), visits)
	assert.Equal(t, int64(3), l.Episodes())
	assert.Equal(t, int64(2), l.PolicyChanges())
	assert.Equal(t, 0, shoe.Remaining())
}

func TestLearnerCreditsEveryVisitedPairOnce(t *testing.T) {
	// 13 hit +5 = 18 hit +2 = 20 stand; dealer 2+10+5 = 17; reward +1.
	starts := &scriptedStarts{starts: []Start{{State: state(13, false, 2), Hit: true}}}
	l := NewLearner(blackjack.NewStackedShoe(5, 2, 10, 5), starts)

	out, err := l.RunEpisode()
	require.NoError(t, err)
	require.Equal(t, 1, out.Reward)

	for _, p := range []Pair{
		{State: state(13, false, 2), Hit: true},
		{State: state(18, false, 2), Hit: true},
		{State: state(20, false, 2), Hit: false},
	} {
		q, err := l.ActionValue(p)
		require.NoError(t, err)
		assert.Equal(t, 1.0, q, "pair %s", p)
		n, err := l.Visits(p)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "pair %s", p)
	}

	var total int64
	for i := range NumPairs {
		total += l.visits[i]
	}
	assert.Equal(t, int64(3), total)
}

func TestLearnerRevisitCountedOnce(t *testing.T) {
	starts := &scriptedStarts{starts: []Start{{State: state(12, true, 5), Hit: true}}}
	l := NewLearner(blackjack.NewStackedShoe(10, 10), starts)

	out, err := l.RunEpisode()
	require.NoError(t, err)
	require.True(t, out.PlayerBust)

	p := Pair{State: state(12, true, 5), Hit: true}
	n, _ := l.Visits(p)
	assert.Equal(t, int64(1), n)
	q, _ := l.ActionValue(p)
	assert.Equal(t, -1.0, q)
}

func TestLearnerFailedEpisodeLeavesTablesUntouched(t *testing.T) {
	starts := &scriptedStarts{starts: []Start{{State: state(9, false, 2), Hit: true}}}
	l := NewLearner(blackjack.NewStackedShoe(), starts)

	_, err := l.RunEpisode()
	require.ErrorIs(t, err, ErrStateOutOfRange)
	assert.Equal(t, int64(0), l.Episodes())
	assert.Equal(t, newTables(), l.tables)
}

func TestLearnerRejectsUntrackedLookup(t *testing.T) {
	l := NewLearner(blackjack.NewStackedShoe(), &scriptedStarts{})
	_, err := l.ActionValue(Pair{State: state(30, false, 2)})
	assert.ErrorIs(t, err, ErrStateOutOfRange)
	_, err = l.Visits(Pair{State: state(15, false, 12)})
	assert.ErrorIs(t, err, ErrStateOutOfRange)
}
