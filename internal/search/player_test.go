package search

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/nn"
	"github.com/sente-go/sente/internal/parameters"
)

// fakeService answers with a uniform policy and a fixed pre-scale value,
// counting rows so tests can assert whether search ran.
type fakeService struct {
	value float32 // pre-scale value in [0, 1]; 0.5 is an even position
	rows  atomic.Int64
}

func (s *fakeService) Execute(inputs, outputs []float32, n int) {
	s.rows.Add(int64(n))
	cells := nn.ModelSize * nn.ModelSize
	p := float32(1) / float32(cells)
	for b := 0; b < n; b++ {
		row := outputs[b*nn.ModelOutputSize : (b+1)*nn.ModelOutputSize]
		for i := 0; i < nn.ModelPredictions*cells; i++ {
			row[i] = p
		}
		row[nn.ModelPredictions*cells] = s.value
	}
}

// biasedService reads the side-to-move scalar and always reports Black
// losing badly.
type biasedService struct{ fakeService }

func (s *biasedService) Execute(inputs, outputs []float32, n int) {
	scalarBase := (nn.ModelFeatures + 1) * nn.ModelSize * nn.ModelSize
	for b := 0; b < n; b++ {
		s.fakeService.Execute(inputs[b*nn.ModelInputSize:(b+1)*nn.ModelInputSize],
			outputs[b*nn.ModelOutputSize:(b+1)*nn.ModelOutputSize], 1)
		row := outputs[b*nn.ModelOutputSize:]
		if inputs[b*nn.ModelInputSize+scalarBase] == 1 {
			row[nn.ModelPredictions*nn.ModelSize*nn.ModelSize] = 0.05 // Black to move, losing
		} else {
			row[nn.ModelPredictions*nn.ModelSize*nn.ModelSize] = 0.95 // White to move, winning
		}
	}
}

func testConfig() *parameters.Config {
	cfg := parameters.NewConfig()
	cfg.BoardSize = 9
	cfg.Threads = 2
	cfg.Visits = 50
	cfg.Playouts = 50
	return cfg
}

func newTestPlayer(t *testing.T, cfg *parameters.Config) (*Player, *fakeService) {
	t.Helper()
	service := &fakeService{value: 0.5}
	player := NewPlayer(cfg, service)
	t.Cleanup(player.Terminate)
	return player, service
}

func TestGetCandidatesBeforeSearch(t *testing.T) {
	player, service := newTestPlayer(t, testConfig())

	candidates := player.GetCandidates()
	require.Len(t, candidates, 1, "fresh root reports the single policy best move")
	c := candidates[0]
	assert.Equal(t, board.Black, c.Color)
	assert.False(t, c.Pos.IsPass())
	assert.Zero(t, c.Visits)
	assert.Positive(t, c.Policy)
	assert.Positive(t, service.rows.Load(), "policy answer needs one inference")

	player.Initialize()
	require.Len(t, player.GetCandidates(), 1)
}

func TestSearchReachesTargets(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())

	player.StartEvaluation(false, false, 0, 1, 0)
	visits, playouts := player.WaitEvaluation(50, 50, time.Minute, true)
	require.GreaterOrEqual(t, visits, 50)
	require.GreaterOrEqual(t, playouts, 50)

	root := player.Root()
	total := 0
	for _, child := range root.Children() {
		assert.Equal(t, board.Black, child.Color())
		total += child.Visits()
	}
	assert.Equal(t, root.Visits()-1, total,
		"every root visit after the first descends into exactly one child")

	candidates := player.GetCandidates()
	require.NotEmpty(t, candidates)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Visits, candidates[i].Visits)
	}
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Value, float32(-1))
		assert.LessOrEqual(t, c.Value, float32(1))
		require.NotEmpty(t, c.Variations)
		assert.Equal(t, c.Pos, c.Variations[0])
	}
}

func TestCandidatesAfterPlay(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())

	require.Equal(t, 0, player.Play(4, 4)) // Black
	require.Equal(t, 0, player.Play(4, 5)) // White

	player.StartEvaluation(false, false, 0, 1, 0)
	player.WaitEvaluation(20, 20, time.Minute, true)

	for _, c := range player.GetCandidates() {
		assert.Equal(t, board.Black, c.Color, "after two moves Black is on turn again")
		assert.GreaterOrEqual(t, c.Pos.X(), 0)
		assert.Less(t, c.Pos.X(), 9)
		assert.GreaterOrEqual(t, c.Pos.Y(), 0)
		assert.Less(t, c.Pos.Y(), 9)
	}
}

func TestPlayRejectsIllegal(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	require.Equal(t, 0, player.Play(4, 4))
	assert.Equal(t, -1, player.Play(4, 4), "occupied point")
	assert.Equal(t, board.Black, player.Root().Board().GetColor(4, 4))
}

func TestPlayCaptures(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	require.Equal(t, 0, player.Play(0, 0))   // B
	require.Equal(t, 0, player.Play(0, 1))   // W
	require.Equal(t, 0, player.Play(-1, -1)) // B passes
	captured := player.Play(1, 0)            // W captures the corner
	assert.Equal(t, 1, captured)
	assert.Equal(t, board.Empty, player.Root().Board().GetColor(0, 0))
}

func TestWaitEvaluationTimeout(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	player.StartEvaluation(false, false, 0, 1, 0)
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	player.WaitEvaluation(1<<30, 1<<30, 200*time.Millisecond, true)
	assert.Less(t, time.Since(start), 2*time.Second)

	done := make(chan struct{})
	go func() {
		player.Initialize()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Initialize blocked after a stopped search")
	}
}

func TestGetRandomNeverSearches(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	for _, temperature := range []float32{0, 0.5, 1, 4} {
		candidates := player.GetRandom(temperature)
		require.Len(t, candidates, 1)
		c := candidates[0]
		assert.Equal(t, board.Black, c.Color)
		assert.True(t, player.Root().Board().IsEnabled(c.Pos.X(), c.Pos.Y(), board.Black, true))
	}
	assert.Zero(t, player.Root().Visits(), "sampling must not touch search statistics")
}

func TestGetPass(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	candidates := player.GetPass()
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Pos.IsPass())
	assert.Equal(t, board.Black, candidates[0].Color)
}

func TestPonderCarriesOver(t *testing.T) {
	cfg := testConfig()
	cfg.Ponder = true
	player, _ := newTestPlayer(t, cfg)

	player.StartEvaluation(false, false, 0, 1, 0)
	visits, _ := player.WaitEvaluation(30, 30, time.Minute, true)
	require.GreaterOrEqual(t, visits, 30)

	// Counters seed from the root: restarting keeps the accumulated work.
	player.StartEvaluation(false, false, 0, 1, 0)
	visits2, playouts2 := player.WaitEvaluation(30, 30, time.Minute, true)
	assert.GreaterOrEqual(t, visits2, 30)
	assert.GreaterOrEqual(t, playouts2, 30)
}

func TestShouldResign(t *testing.T) {
	cfg := testConfig()
	cfg.Resign = true
	cfg.MinTurn = 0
	cfg.MinScore = 0.5
	// The biased model scores every position as lost for Black, whichever
	// side is to move.
	service := &biasedService{}
	player := NewPlayer(cfg, service)
	defer player.Terminate()

	player.StartEvaluation(false, false, 0, 1, 0)
	player.WaitEvaluation(20, 20, time.Minute, true)
	assert.True(t, player.ShouldResign())
}

func TestEquallyRootRespectsWidth(t *testing.T) {
	player, _ := newTestPlayer(t, testConfig())
	player.StartEvaluation(true, false, 8, 1, 0.2)
	player.WaitEvaluation(40, 40, time.Minute, true)

	root := player.Root()
	children := root.Children()
	require.NotEmpty(t, children)
	assert.LessOrEqual(t, len(children), 8, "width caps the expanded siblings")
}
