// Package parameters parses the engine configuration: the user's
// "key=value,key" option string is turned into a typed Config, with every
// option validated against the engine's own ranges and name tables.
package parameters

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/generics"
)

// Search rule names accepted by the "search" option.
const (
	SearchPucb = "pucb"
	SearchUcb1 = "ucb1"
)

// Criterion names accepted by the "criterion" option: how the caller picks
// the final move from the candidates. The engine exposes both statistics; the
// choice is applied by the controller.
const (
	CriterionLCB    = "lcb"
	CriterionVisits = "visits"
)

// ruleNames maps the "rule" option to the board rule sets.
var ruleNames = map[string]board.Rule{
	"ch":  board.RuleChinese,
	"jp":  board.RuleJapanese,
	"com": board.RuleCommon,
}

// Params holds the raw engine options, keyed by option name. FromParams pops
// every option it recognizes; whatever is left over is a typo.
type Params map[string]string

// NewFromConfigString splits the user's configuration string into Params.
// Option names are case-insensitive; a bare name ("ponder") is a boolean
// switch.
func NewFromConfigString(config string) Params {
	params := make(Params)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		params[strings.ToLower(key)] = value
	}
	return params
}

// popInt pops an integer option, enforcing the engine's range for it.
func (p Params) popInt(key string, def, lo, hi int) (int, error) {
	value, exists := p[key]
	if !exists || value == "" {
		delete(p, key)
		return def, nil
	}
	delete(p, key)
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def, errors.Wrapf(err, "engine option %s=%q is not an integer", key, value)
	}
	if parsed < lo || parsed > hi {
		return def, errors.Errorf("engine option %s=%d is outside [%d, %d]", key, parsed, lo, hi)
	}
	return parsed, nil
}

// popFloat pops a float option, enforcing the engine's range for it.
func (p Params) popFloat(key string, def, lo, hi float32) (float32, error) {
	value, exists := p[key]
	if !exists || value == "" {
		delete(p, key)
		return def, nil
	}
	delete(p, key)
	parsed, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return def, errors.Wrapf(err, "engine option %s=%q is not a number", key, value)
	}
	f := float32(parsed)
	if f < lo || f > hi {
		return def, errors.Errorf("engine option %s=%g is outside [%g, %g]", key, f, lo, hi)
	}
	return f, nil
}

// popBool pops a boolean switch. A bare option name counts as true.
func (p Params) popBool(key string, def bool) (bool, error) {
	value, exists := p[key]
	if !exists {
		return def, nil
	}
	delete(p, key)
	switch strings.ToLower(value) {
	case "", "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return def, errors.Errorf("engine option %s=%q is not a boolean", key, value)
}

// popName pops an option whose value must come from a fixed name set.
func (p Params) popName(key, def string, names ...string) (string, error) {
	value, exists := p[key]
	if !exists || value == "" {
		delete(p, key)
		return def, nil
	}
	delete(p, key)
	value = strings.ToLower(value)
	for _, name := range names {
		if value == name {
			return value, nil
		}
	}
	return def, errors.Errorf("engine option %s=%q, want one of %s", key, value, strings.Join(names, ", "))
}

// popGPUs pops the "gpu" option: a colon-separated device ordinal list.
func (p Params) popGPUs(key string) ([]int, error) {
	value, exists := p[key]
	if !exists || value == "" {
		delete(p, key)
		return nil, nil
	}
	delete(p, key)
	var gpus []int
	for _, field := range strings.Split(value, ":") {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "engine option %s=%q is not a device list", key, value)
		}
		gpus = append(gpus, id)
	}
	return gpus, nil
}

// Config is the full engine configuration.
type Config struct {
	// Search termination, AND-combined in WaitEvaluation.
	Visits   int
	Playouts int

	UseUcb1      bool    // search=ucb1
	Temperature  float32 // policy sharpening in the expansion rule, > 0
	Randomness   float32 // Gumbel noise scale in [0, 1]
	Criterion    string  // lcb or visits
	EvalLeafOnly bool    // only leaves contribute to Q estimates

	Rule      board.Rule
	BoardSize int
	Komi      float32
	Superko   bool

	TimeLimit   float64 // seconds, wall-clock bound for WaitEvaluation
	Ponder      bool
	Resign      bool
	MinScore    float32 // resign when the expected value drops below -MinScore
	MinTurn     int     // never resign before this turn
	InitialTurn int

	Threads   int // search worker pool size
	BatchSize int
	GPUs      []int
	FP16      bool
}

// NewConfig returns the defaults: a 19x19 Chinese-rules board, komi 7.5, PUCB
// search with one worker per batch slot.
func NewConfig() *Config {
	return &Config{
		Visits:      1000,
		Playouts:    1000,
		Temperature: 1,
		Criterion:   CriterionLCB,
		Rule:        board.RuleChinese,
		BoardSize:   19,
		Komi:        7.5,
		TimeLimit:   60,
		MinScore:    0.9,
		MinTurn:     30,
		Threads:     8,
		BatchSize:   8,
	}
}

// FromParams fills a Config from params, popping every recognized option.
// Leftover options are reported as an error so typos never pass silently.
func FromParams(params Params) (*Config, error) {
	cfg := NewConfig()
	var err error
	if cfg.Visits, err = params.popInt("visits", cfg.Visits, 1, 1<<30); err != nil {
		return nil, err
	}
	if cfg.Playouts, err = params.popInt("playouts", cfg.Playouts, 1, 1<<30); err != nil {
		return nil, err
	}
	search, err := params.popName("search", SearchPucb, SearchPucb, SearchUcb1)
	if err != nil {
		return nil, err
	}
	cfg.UseUcb1 = search == SearchUcb1
	// Temperature 0 would freeze the expansion rule; the selection math caps
	// the exponent at 1/0.1 anyway.
	if cfg.Temperature, err = params.popFloat("temperature", cfg.Temperature, 0.01, 100); err != nil {
		return nil, err
	}
	if cfg.Randomness, err = params.popFloat("randomness", cfg.Randomness, 0, 1); err != nil {
		return nil, err
	}
	if cfg.Criterion, err = params.popName("criterion", cfg.Criterion, CriterionLCB, CriterionVisits); err != nil {
		return nil, err
	}
	rule, err := params.popName("rule", "ch", generics.SortedKeys(ruleNames)...)
	if err != nil {
		return nil, err
	}
	cfg.Rule = ruleNames[rule]
	if cfg.BoardSize, err = params.popInt("boardsize", cfg.BoardSize, 2, 19); err != nil {
		return nil, err
	}
	if cfg.Komi, err = params.popFloat("komi", cfg.Komi, -361, 361); err != nil {
		return nil, err
	}
	if cfg.Superko, err = params.popBool("superko", cfg.Superko); err != nil {
		return nil, err
	}
	if cfg.EvalLeafOnly, err = params.popBool("eval-leaf-only", cfg.EvalLeafOnly); err != nil {
		return nil, err
	}
	timelimit, err := params.popFloat("timelimit", float32(cfg.TimeLimit), 0, 86400)
	if err != nil {
		return nil, err
	}
	cfg.TimeLimit = float64(timelimit)
	if cfg.Ponder, err = params.popBool("ponder", cfg.Ponder); err != nil {
		return nil, err
	}
	if cfg.Resign, err = params.popBool("resign", cfg.Resign); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = params.popFloat("min-score", cfg.MinScore, 0, 1); err != nil {
		return nil, err
	}
	if cfg.MinTurn, err = params.popInt("min-turn", cfg.MinTurn, 0, 1<<30); err != nil {
		return nil, err
	}
	if cfg.InitialTurn, err = params.popInt("initial-turn", cfg.InitialTurn, 0, 1<<30); err != nil {
		return nil, err
	}
	if cfg.Threads, err = params.popInt("threads", cfg.Threads, 1, 1024); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = params.popInt("batch-size", cfg.BatchSize, 1, 4096); err != nil {
		return nil, err
	}
	if cfg.GPUs, err = params.popGPUs("gpu"); err != nil {
		return nil, err
	}
	if cfg.FP16, err = params.popBool("fp16", cfg.FP16); err != nil {
		return nil, err
	}

	if len(params) > 0 {
		return nil, errors.Errorf("unknown engine option(s): %s",
			strings.Join(generics.SortedKeys(params), ", "))
	}
	return cfg, nil
}
