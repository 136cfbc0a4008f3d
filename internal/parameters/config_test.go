package parameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sente-go/sente/internal/board"
)

func TestNewFromConfigString(t *testing.T) {
	params := NewFromConfigString("boardsize=9, Ponder ,komi=6.5")
	assert.Equal(t, "9", params["boardsize"])
	assert.Equal(t, "", params["ponder"], "option names are case-insensitive")
	assert.Equal(t, "6.5", params["komi"])
	assert.Empty(t, NewFromConfigString(""))
}

func TestFromParamsDefaults(t *testing.T) {
	cfg, err := FromParams(NewFromConfigString(""))
	require.NoError(t, err)
	assert.Equal(t, 19, cfg.BoardSize)
	assert.Equal(t, board.RuleChinese, cfg.Rule)
	assert.False(t, cfg.UseUcb1)
	assert.Equal(t, CriterionLCB, cfg.Criterion)
	assert.InDelta(t, 7.5, cfg.Komi, 1e-6)
}

func TestFromParamsFull(t *testing.T) {
	cfg, err := FromParams(NewFromConfigString(
		"visits=400,playouts=300,search=ucb1,temperature=0.7,randomness=0.3," +
			"criterion=visits,rule=jp,boardsize=13,komi=6.5,superko,eval-leaf-only," +
			"timelimit=12.5,ponder,resign,min-score=0.8,min-turn=40,initial-turn=2," +
			"threads=16,batch-size=32,gpu=0:1,fp16"))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Visits)
	assert.Equal(t, 300, cfg.Playouts)
	assert.True(t, cfg.UseUcb1)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-6)
	assert.InDelta(t, 0.3, cfg.Randomness, 1e-6)
	assert.Equal(t, CriterionVisits, cfg.Criterion)
	assert.Equal(t, board.RuleJapanese, cfg.Rule)
	assert.Equal(t, 13, cfg.BoardSize)
	assert.True(t, cfg.Superko)
	assert.True(t, cfg.EvalLeafOnly)
	assert.InDelta(t, 12.5, cfg.TimeLimit, 1e-9)
	assert.True(t, cfg.Ponder)
	assert.True(t, cfg.Resign)
	assert.Equal(t, 40, cfg.MinTurn)
	assert.Equal(t, 2, cfg.InitialTurn)
	assert.Equal(t, 16, cfg.Threads)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, []int{0, 1}, cfg.GPUs)
	assert.True(t, cfg.FP16)
}

func TestFromParamsRejectsBadValues(t *testing.T) {
	for _, config := range []string{
		"temperature=0",
		"temperature=-1",
		"randomness=2",
		"search=alphabeta",
		"criterion=score",
		"rule=tromp",
		"boardsize=25",
		"threads=0",
		"batch-size=0",
		"gpu=a:b",
		"no-such-option=1",
	} {
		_, err := FromParams(NewFromConfigString(config))
		assert.Error(t, err, "config %q must be rejected", config)
	}
}

func TestPopHelpers(t *testing.T) {
	params := NewFromConfigString("visits=123,superko,rule=JP")

	v, err := params.popInt("visits", 0, 1, 1<<30)
	require.NoError(t, err)
	assert.Equal(t, 123, v)
	_, popped := params["visits"]
	assert.False(t, popped, "popping consumes the option")

	on, err := params.popBool("superko", false)
	require.NoError(t, err)
	assert.True(t, on, "bare option name switches on")

	rule, err := params.popName("rule", "ch", "ch", "jp", "com")
	require.NoError(t, err)
	assert.Equal(t, "jp", rule, "name values are case-insensitive")

	d, err := params.popInt("missing", 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, d, "absent options keep the engine default")
	assert.Empty(t, params)
}

func TestPopGPUs(t *testing.T) {
	params := NewFromConfigString("gpu=2:0:1")
	gpus, err := params.popGPUs("gpu")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, gpus)

	none, err := Params{}.popGPUs("gpu")
	require.NoError(t, err)
	assert.Nil(t, none)
}
