package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	b := newTestBoard(t)
	moves := [][3]int{
		{4, 4, 1}, {4, 5, -1}, {3, 5, 1}, {5, 5, -1}, {5, 4, 1}, {2, 2, -1},
		{6, 5, 1}, {4, 6, -1}, {5, 6, 1},
	}
	for _, m := range moves {
		mustPlay(t, b, m[0], m[1], Color(m[2]))
	}

	state := b.GetState()
	require.Len(t, state, (9*9+15)/16+3)

	restored := newTestBoard(t)
	require.NoError(t, restored.LoadState(state))

	assert.Equal(t, b.GetColors(), restored.GetColors())
	assert.Equal(t, b.GetPatterns(), restored.GetPatterns())
	assert.Equal(t, b.GetHistories(Black), restored.GetHistories(Black))
	assert.Equal(t, b.GetHistories(White), restored.GetHistories(White))
	assert.Equal(t, b.GetKo(Black), restored.GetKo(Black))
	assert.Equal(t, b.GetKo(White), restored.GetKo(White))

	// Group structure is rebuilt, not copied: spot-check it.
	assert.Equal(t, b.GetRenSize(4, 4), restored.GetRenSize(4, 4))
	assert.Equal(t, b.GetRenSpace(4, 4), restored.GetRenSpace(4, 4))
}

func TestStateRoundTripWithKo(t *testing.T) {
	b := newTestBoard(t)
	buildKo(t, b)
	require.Equal(t, Pos{4, 3}, b.GetKo(Black))

	restored := newTestBoard(t)
	require.NoError(t, restored.LoadState(b.GetState()))
	assert.Equal(t, Pos{4, 3}, restored.GetKo(Black))
	assert.Equal(t, PassPos, restored.GetKo(White))
	assert.False(t, restored.IsEnabled(4, 3, Black, false))
	assert.Equal(t, b.GetColors(), restored.GetColors())
}

func TestStateRoundTripAfterCapture(t *testing.T) {
	b := newTestBoard(t)
	mustPlay(t, b, 0, 0, Black)
	mustPlay(t, b, 0, 1, White)
	mustPlay(t, b, 1, 0, White)

	restored := newTestBoard(t)
	require.NoError(t, restored.LoadState(b.GetState()))
	assert.Equal(t, Empty, restored.GetColor(0, 0))
	assert.Equal(t, b.GetColors(), restored.GetColors())
	assert.Equal(t, b.GetHistories(White), restored.GetHistories(White))
}

func TestLoadStateRejectsWrongLength(t *testing.T) {
	b := newTestBoard(t)
	require.Error(t, b.LoadState(make([]uint32, 2)))
}
