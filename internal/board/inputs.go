package board

import (
	"github.com/sente-go/sente/internal/nn"
)

// Feature-plane indices inside the model input tensor, from the side to move's
// perspective ("own" is the color passed to GetInputs).
const (
	planeEmpty        = 0
	planeOwnStones    = 1
	planeOwnShicho    = 2
	planeOwnLiberties = 3 // 8 planes, liberty count clamped to 8
	planeOwnHistory   = 11
	planeOppStones    = 14
	planeOppShicho    = 15
	planeOppLiberties = 16
	planeOppHistory   = 24
	planeLines        = 27 // 4 planes, 1st to 4th line
	planeKo           = 31
)

// GetInputs builds the model input tensor for the side to move: the feature
// planes centered into the model canvas, the padding mask plane, and the
// trailing game-state scalars. The returned slice has length nn.ModelInputSize.
func (b *Board) GetInputs(color Color) []float32 {
	in := make([]float32, nn.ModelInputSize)
	b.updateShicho()

	dx := (nn.ModelSize - b.width) / 2
	dy := (nn.ModelSize - b.height) / 2
	cell := func(plane, x, y int) *float32 {
		return &in[plane*nn.ModelSize*nn.ModelSize+(y+dy)*nn.ModelSize+(x+dx)]
	}

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			idx := b.index(x, y)
			*cell(nn.ModelFeatures, x, y) = 1 // padding mask: inside the board
			c := b.colors[idx]
			if c == Empty {
				*cell(planeEmpty, x, y) = 1
			} else {
				ren := b.rens[b.renIds[idx]]
				stones, shicho, liberties := planeOppStones, planeOppShicho, planeOppLiberties
				if c == color {
					stones, shicho, liberties = planeOwnStones, planeOwnShicho, planeOwnLiberties
				}
				*cell(stones, x, y) = 1
				if ren.Shicho {
					*cell(shicho, x, y) = 1
				}
				libs := len(ren.Liberties)
				if libs > 8 {
					libs = 8
				}
				if libs >= 1 {
					*cell(liberties+libs-1, x, y) = 1
				}
			}
			line := min(x, y, b.width-1-x, b.height-1-y) + 1
			if line <= 4 {
				*cell(planeLines+line-1, x, y) = 1
			}
		}
	}

	for i, side := range [2]Color{color, color.Opposite()} {
		base := planeOwnHistory
		if i == 1 {
			base = planeOppHistory
		}
		for j, idx := range b.histories[historyIndex(side)].Moves() {
			p := b.coord(idx)
			*cell(base+j, p.X(), p.Y()) = 1
		}
	}

	if b.koIndex >= 0 && color == b.koColor {
		p := b.coord(b.koIndex)
		*cell(planeKo, p.X(), p.Y()) = 1
	}

	scalars := in[(nn.ModelFeatures+1)*nn.ModelSize*nn.ModelSize:]
	if color == Black {
		scalars[0] = 1
	} else {
		scalars[1] = 1
	}
	scalars[2] = b.komi * float32(color) / 13
	if b.superko {
		scalars[3] = 1
	}
	if b.koIndex >= 0 {
		scalars[4] = 1
	}
	if b.rule != RuleJapanese {
		scalars[5] = 1
	} else {
		scalars[6] = 1
	}
	return in
}
