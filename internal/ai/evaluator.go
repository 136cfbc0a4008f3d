// Package ai turns raw network outputs into move candidates: it runs one
// inference for a board position and filters the policy down to playable,
// sensible points.
package ai

import (
	"github.com/chewxy/math32"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/nn"
)

// InferenceService is the synchronous inference contract the evaluator needs:
// n rows of nn.ModelInputSize floats in, n rows of nn.ModelOutputSize floats
// out. Implementations must be safe for concurrent use.
type InferenceService interface {
	Execute(inputs, outputs []float32, n int)
}

// PolicyEntry is one legal candidate with its prior probability.
type PolicyEntry struct {
	Pos  board.Pos
	Prob float32
}

// Evaluator holds the last inference result for one board and side to move:
// the legality- and territory-filtered policy and the normalized value. It is
// owned by a search node and cleared when the node resets.
type Evaluator struct {
	service InferenceService

	evaluated bool
	policies  []PolicyEntry
	value     float32
}

// NewEvaluator returns an evaluator bound to the given service.
func NewEvaluator(service InferenceService) *Evaluator {
	return &Evaluator{service: service}
}

// Evaluate runs the network for color to move on b. Candidate points must be
// legal under the seki check and not already inside color's own territory.
// A second call while the result is live is a no-op.
func (e *Evaluator) Evaluate(b *board.Board, color board.Color) {
	if e.evaluated {
		return
	}
	inputs := b.GetInputs(color)
	outputs := make([]float32, nn.ModelOutputSize)
	e.service.Execute(inputs, outputs, 1)

	territories := b.GetTerritories()
	dx := (nn.ModelSize - b.Width()) / 2
	dy := (nn.ModelSize - b.Height()) / 2
	e.policies = e.policies[:0]
	var total float32
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			if !b.IsEnabled(x, y, color, true) {
				continue
			}
			if territories[y*b.Width()+x] == color {
				continue
			}
			prob := outputs[(y+dy)*nn.ModelSize+(x+dx)]
			if prob < 0 {
				prob = 0
			}
			e.policies = append(e.policies, PolicyEntry{
				Pos:  board.Pos{int8(x), int8(y)},
				Prob: prob,
			})
			total += prob
		}
	}
	if total > 0 {
		for i := range e.policies {
			e.policies[i].Prob /= total
		}
	} else if len(e.policies) > 0 {
		uniform := 1 / float32(len(e.policies))
		for i := range e.policies {
			e.policies[i].Prob = uniform
		}
	}

	value := outputs[nn.ModelPredictions*nn.ModelSize*nn.ModelSize]*2 - 1
	if color == board.White {
		value = -value
	}
	e.value = math32.Max(-1, math32.Min(1, value))
	e.evaluated = true
}

// Evaluated reports whether a result is live.
func (e *Evaluator) Evaluated() bool { return e.evaluated }

// Policies returns the filtered candidates. Valid until the next Reset.
func (e *Evaluator) Policies() []PolicyEntry { return e.policies }

// Value returns the normalized value in [-1, 1], positive when Black is
// ahead. The model reports the side to move's win chance; the White negation
// folds both sides into that single convention.
func (e *Evaluator) Value() float32 { return e.value }

// Reset drops the result so the evaluator can be reused for another position.
func (e *Evaluator) Reset() {
	e.evaluated = false
	e.policies = e.policies[:0]
	e.value = 0
}
