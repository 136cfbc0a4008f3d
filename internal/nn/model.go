// Package nn defines the neural-network model geometry, the Model interface
// the engine evaluates positions through, and the batching inference service
// that amortizes forward passes across the search threads.
package nn

import (
	"os"

	"github.com/pkg/errors"
)

// Model geometry, compiled in. The board is centered into a square canvas of
// ModelSize; inputs carry ModelFeatures binary planes plus a padding-mask
// plane and ModelInfos trailing scalars; outputs carry the per-cell policy
// planes followed by the value head.
const (
	ModelSize        = 19
	ModelFeatures    = 32
	ModelInfos       = 7
	ModelPredictions = 1
	ModelValues      = 1

	ModelInputSize  = (ModelFeatures+1)*ModelSize*ModelSize + ModelInfos
	ModelOutputSize = ModelPredictions*ModelSize*ModelSize + ModelValues
)

// Model is one loaded network instance on one device. Forward takes batch
// rows of ModelInputSize floats and returns batch rows of ModelOutputSize
// floats. Implementations need not be thread-safe: each Executor owns one
// instance and calls it from a single worker.
type Model interface {
	Forward(inputs []float32, batch int) ([]float32, error)
	Close() error
}

// ModelBuilder constructs a Model on the given device. gpu < 0 selects the
// CPU. Construction failures are fatal to engine start-up.
type ModelBuilder func(gpu int, halfPrecision bool) (Model, error)

// UniformModel is the fallback network: a uniform policy over the whole
// canvas and an even value. It keeps the engine playable without a model file
// and anchors deterministic tests.
type UniformModel struct{}

// Forward implements Model.
func (UniformModel) Forward(inputs []float32, batch int) ([]float32, error) {
	out := make([]float32, batch*ModelOutputSize)
	cells := ModelSize * ModelSize
	p := float32(1) / float32(cells)
	for b := 0; b < batch; b++ {
		row := out[b*ModelOutputSize:]
		for i := 0; i < ModelPredictions*cells; i++ {
			row[i] = p
		}
		row[ModelPredictions*cells] = 0.5 // value pre-scale: even position
	}
	return out, nil
}

// Close implements Model.
func (UniformModel) Close() error { return nil }

// CheckModelFile verifies a model path is present and readable before any
// device work starts, so a bad path fails at initialization rather than in a
// worker thread.
func CheckModelFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "model file %q is not readable", path)
	}
	if info.IsDir() {
		return errors.Errorf("model path %q is a directory", path)
	}
	return nil
}
