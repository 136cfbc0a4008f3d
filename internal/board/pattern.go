package board

import (
	"encoding/binary"
	"hash/fnv"
)

// Cell codes inside the packed bitmap.
const (
	patternEmpty uint32 = 0
	patternBlack uint32 = 1
	patternWhite uint32 = 2

	cellsPerWord = 16
)

// Pattern is a packed stone bitmap: two bits per playable cell, row-major.
// It is maintained incrementally on every put/remove and doubles as the
// position key for superko hashing and the compact snapshot format.
type Pattern struct {
	words []uint32
	cells int
}

// NewPattern returns an all-empty bitmap for a width x height board.
func NewPattern(width, height int) *Pattern {
	cells := width * height
	return &Pattern{
		words: make([]uint32, (cells+cellsPerWord-1)/cellsPerWord),
		cells: cells,
	}
}

// Copy returns an independent copy.
func (p *Pattern) Copy() *Pattern {
	return &Pattern{words: append([]uint32(nil), p.words...), cells: p.cells}
}

func cellCode(c Color) uint32 {
	switch c {
	case Black:
		return patternBlack
	case White:
		return patternWhite
	}
	return patternEmpty
}

func codeColor(code uint32) Color {
	switch code {
	case patternBlack:
		return Black
	case patternWhite:
		return White
	}
	return Empty
}

// Put records a stone of the given color at cell i.
func (p *Pattern) Put(i int, c Color) {
	word, shift := i/cellsPerWord, uint(i%cellsPerWord)*2
	p.words[word] = (p.words[word] &^ (3 << shift)) | (cellCode(c) << shift)
}

// Clear empties cell i.
func (p *Pattern) Clear(i int) {
	word, shift := i/cellsPerWord, uint(i%cellsPerWord)*2
	p.words[word] &^= 3 << shift
}

// Get returns the color recorded at cell i.
func (p *Pattern) Get(i int) Color {
	word, shift := i/cellsPerWord, uint(i%cellsPerWord)*2
	return codeColor((p.words[word] >> shift) & 3)
}

// Words exposes a copy of the packed words, for snapshots and tests.
func (p *Pattern) Words() []uint32 {
	return append([]uint32(nil), p.words...)
}

// Hash returns a position hash over the packed cells.
func (p *Pattern) Hash() uint64 {
	hasher := fnv.New64a()
	var buf [4]byte
	for _, w := range p.words {
		binary.LittleEndian.PutUint32(buf[:], w)
		hasher.Write(buf[:])
	}
	return hasher.Sum64()
}
