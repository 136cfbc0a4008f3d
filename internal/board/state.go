package board

import (
	"github.com/pkg/errors"
)

// Compact snapshot format: the packed Pattern words, one word packing
// (koIndex+1, koColor+1), and one word per side packing its three most recent
// moves as 10-bit (index+1) fields, newest in the low bits. Indices are
// row-major over the playable area; 0 means "absent". The snapshot does not
// preserve group leader ids: LoadState rebuilds the groups by replaying the
// stones through Play.

const historyFieldBits = 10

// GetState serializes the position.
func (b *Board) GetState() []uint32 {
	words := b.pattern.Words()

	ko := uint32(0)
	if b.koIndex >= 0 {
		ko = uint32(b.unpadded(b.koIndex)+1) | uint32(b.koColor+1)<<16
	}
	words = append(words, ko)

	for _, color := range [2]Color{Black, White} {
		var w uint32
		for i, idx := range b.histories[historyIndex(color)].Moves() {
			w |= uint32(b.unpadded(idx)+1) << uint(historyFieldBits*i)
		}
		words = append(words, w)
	}
	return words
}

// LoadState clears the board and restores a snapshot produced by GetState on a
// board of the same dimensions.
func (b *Board) LoadState(words []uint32) error {
	cells := b.width * b.height
	patternWords := (cells + cellsPerWord - 1) / cellsPerWord
	if len(words) != patternWords+3 {
		return errors.Errorf("snapshot has %d words, a %dx%d board needs %d",
			len(words), b.width, b.height, patternWords+3)
	}

	b.reset()
	pattern := &Pattern{words: append([]uint32(nil), words[:patternWords]...), cells: cells}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			c := pattern.Get(y*b.width + x)
			if c == Empty {
				continue
			}
			if b.Play(x, y, c) < 0 {
				return errors.Errorf("snapshot stone at (%d, %d) cannot be replayed", x, y)
			}
		}
	}

	ko := words[patternWords]
	if ko&0xFFFF != 0 {
		i := int(ko&0xFFFF) - 1
		b.koIndex = b.index(i%b.width, i/b.width)
		b.koColor = Color(int8(ko>>16) - 1)
	} else {
		b.koIndex = -1
		b.koColor = Empty
	}

	for hi, color := range [2]Color{Black, White} {
		w := words[patternWords+1+hi]
		var moves []int32
		for i := 0; i < historySize; i++ {
			field := (w >> uint(historyFieldBits*i)) & (1<<historyFieldBits - 1)
			if field == 0 {
				break
			}
			j := int(field) - 1
			moves = append(moves, b.index(j%b.width, j/b.width))
		}
		b.histories[historyIndex(color)].Set(moves)
	}

	if b.superko {
		b.superkoHashes = map[uint64]struct{}{b.pattern.Hash(): {}}
	}
	b.superkoHit = false
	b.invalidate()
	return nil
}
