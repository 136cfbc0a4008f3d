package ai

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/nn"
)

// stubService returns a uniform policy and a fixed pre-scale value.
type stubService struct {
	value float32
	calls atomic.Int64
}

func (s *stubService) Execute(inputs, outputs []float32, n int) {
	s.calls.Add(int64(n))
	cells := nn.ModelSize * nn.ModelSize
	for b := 0; b < n; b++ {
		row := outputs[b*nn.ModelOutputSize:]
		for i := 0; i < nn.ModelPredictions*cells; i++ {
			row[i] = 1 / float32(cells)
		}
		row[nn.ModelPredictions*cells] = s.value
	}
}

func TestEvaluateFiltersAndNormalizes(t *testing.T) {
	service := &stubService{value: 0.75}
	e := NewEvaluator(service)
	b := board.New(9, 9, board.RuleChinese, 7.5, false)
	require.GreaterOrEqual(t, b.Play(4, 4, board.Black), 0)

	e.Evaluate(b, board.White)
	require.True(t, e.Evaluated())

	policies := e.Policies()
	require.Len(t, policies, 80, "81 points minus the occupied one")
	var total float32
	for _, entry := range policies {
		assert.True(t, b.IsEnabled(entry.Pos.X(), entry.Pos.Y(), board.White, true))
		total += entry.Prob
	}
	assert.InDelta(t, 1, total, 1e-4)

	// 0.75*2-1 = 0.5 for the side to move; White to move means Black is
	// behind, so the stored value is -0.5.
	assert.InDelta(t, -0.5, e.Value(), 1e-6)
}

func TestEvaluateIdempotent(t *testing.T) {
	service := &stubService{value: 0.5}
	e := NewEvaluator(service)
	b := board.New(9, 9, board.RuleChinese, 7.5, false)

	e.Evaluate(b, board.Black)
	e.Evaluate(b, board.Black)
	assert.Equal(t, int64(1), service.calls.Load(), "second call must be a no-op")

	e.Reset()
	require.False(t, e.Evaluated())
	e.Evaluate(b, board.Black)
	assert.Equal(t, int64(2), service.calls.Load())
}

func TestEvaluateBlackPerspective(t *testing.T) {
	service := &stubService{value: 0.75}
	e := NewEvaluator(service)
	b := board.New(9, 9, board.RuleChinese, 7.5, false)
	e.Evaluate(b, board.Black)
	assert.InDelta(t, 0.5, e.Value(), 1e-6)
}

func TestEvaluateSkipsOwnTerritory(t *testing.T) {
	service := &stubService{value: 0.5}
	b := board.New(9, 9, board.RuleChinese, 7.5, false)
	// Living black corner group with eyes at (0,0) and (2,0).
	for _, p := range [][2]int{{1, 0}, {3, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}} {
		require.GreaterOrEqual(t, b.Play(p[0], p[1], board.Black), 0)
	}
	require.GreaterOrEqual(t, b.Play(5, 5, board.White), 0)

	e := NewEvaluator(service)
	e.Evaluate(b, board.Black)
	for _, entry := range e.Policies() {
		assert.NotEqual(t, board.Pos{0, 0}, entry.Pos, "own eye is never a candidate")
		assert.NotEqual(t, board.Pos{2, 0}, entry.Pos)
	}
}
