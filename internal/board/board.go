// Package board implements the rules of the game of Go (baduk, weiqi): stone
// placement and capture, group (ren) and liberty tracking, ko and positional
// superko, ladder (shicho) reading, seki and nakade recognition, territory and
// owner scoring, and the construction of the fixed-shape feature tensors fed to
// the neural network.
//
// Internally the board lives in a padded index space of (width+2)*(height+2)
// cells. The border cells all belong to a single sentinel group of color Edge
// at padded index 0, so neighbor iteration never needs a bounds check: the
// neighbors of any playable cell always exist and report a color.
package board

import (
	"fmt"
	"strings"
)

// Color of a board cell. Side-relative quantities (values, feature planes,
// territory) flip sign with it.
type Color int8

const (
	Empty Color = 0
	Black Color = 1
	White Color = -1

	// Edge is the color of the sentinel border cells. Its opposite is -Edge;
	// neither ever participates in liberties or captures.
	Edge Color = 2
)

// Opposite returns the other side.
func (c Color) Opposite() Color { return -c }

// String returns a single-word name for the color.
func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case White:
		return "white"
	case Empty:
		return "empty"
	}
	return "edge"
}

// Rule selects the scoring rule set.
type Rule int

const (
	RuleChinese Rule = iota
	RuleJapanese
	RuleCommon
)

// Pos packages an (x, y) coordinate. Boards are at most 19x19 so int8 is enough.
type Pos [2]int8

// PassPos represents a pass.
var PassPos = Pos{-1, -1}

// X coordinate of the position.
func (p Pos) X() int { return int(p[0]) }

// Y coordinate of the position.
func (p Pos) Y() int { return int(p[1]) }

// IsPass reports whether the position encodes a pass.
func (p Pos) IsPass() bool { return p[0] < 0 || p[1] < 0 }

// String returns a text representation of the position.
func (p Pos) String() string {
	if p.IsPass() {
		return "pass"
	}
	return fmt.Sprintf("(%d, %d)", p[0], p[1])
}

// historySize is the number of recent moves remembered per side, used by the
// feature planes and the compact snapshot format.
const historySize = 3

// Board is one Go position plus the incremental structures kept alongside it:
// the group map, the packed stone bitmap, the recent-move rings and the ko
// state. It is not safe for concurrent mutation; search code copies it.
type Board struct {
	width, height       int
	extWidth, extHeight int
	rule                Rule
	komi                float32
	superko             bool

	// colors and renIds are indexed by padded index. renIds[p] == -1 iff the
	// cell is empty, 0 for the Edge sentinel, otherwise the leader index of
	// the group occupying p.
	colors []Color
	renIds []int32
	rens   map[int32]*Ren

	pattern   *Pattern
	histories [2]*History

	koIndex int32 // padded index of the forbidden point, -1 when no ko
	koColor Color // the color that may not recapture there

	// superkoHashes records every position hash seen so far when the superko
	// rule is enabled; superkoHit is set when the latest move repeated one.
	superkoHashes map[uint64]struct{}
	superkoHit    bool

	// Lazily rebuilt caches, dropped on every successful Play.
	territoryCache []Color
	shichoValid    bool
}

// New returns an empty board of the given size.
func New(width, height int, rule Rule, komi float32, superko bool) *Board {
	b := &Board{
		width:     width,
		height:    height,
		extWidth:  width + 2,
		extHeight: height + 2,
		rule:      rule,
		komi:      komi,
		superko:   superko,
	}
	b.reset()
	return b
}

func (b *Board) reset() {
	n := b.extWidth * b.extHeight
	b.colors = make([]Color, n)
	b.renIds = make([]int32, n)
	edge := newRen(Edge)
	for i := 0; i < n; i++ {
		x, y := i%b.extWidth, i/b.extWidth
		if x == 0 || y == 0 || x == b.extWidth-1 || y == b.extHeight-1 {
			b.colors[i] = Edge
			b.renIds[i] = 0
			edge.Positions[int32(i)] = struct{}{}
		} else {
			b.colors[i] = Empty
			b.renIds[i] = -1
		}
	}
	b.rens = map[int32]*Ren{0: edge}
	b.pattern = NewPattern(b.width, b.height)
	b.histories = [2]*History{NewHistory(historySize), NewHistory(historySize)}
	b.koIndex = -1
	b.koColor = Empty
	if b.superko {
		b.superkoHashes = map[uint64]struct{}{b.pattern.Hash(): {}}
	}
	b.superkoHit = false
	b.invalidate()
}

// Copy returns a deep copy sharing nothing with the receiver.
func (b *Board) Copy() *Board {
	nb := &Board{
		width:     b.width,
		height:    b.height,
		extWidth:  b.extWidth,
		extHeight: b.extHeight,
		rule:      b.rule,
		komi:      b.komi,
		superko:   b.superko,
		colors:    append([]Color(nil), b.colors...),
		renIds:    append([]int32(nil), b.renIds...),
		rens:      make(map[int32]*Ren, len(b.rens)),
		pattern:   b.pattern.Copy(),
		koIndex:   b.koIndex,
		koColor:   b.koColor,
	}
	for id, ren := range b.rens {
		nb.rens[id] = ren.Copy()
	}
	nb.histories = [2]*History{b.histories[0].Copy(), b.histories[1].Copy()}
	if b.superkoHashes != nil {
		nb.superkoHashes = make(map[uint64]struct{}, len(b.superkoHashes))
		for h := range b.superkoHashes {
			nb.superkoHashes[h] = struct{}{}
		}
	}
	nb.superkoHit = b.superkoHit
	return nb
}

// Width of the playable area.
func (b *Board) Width() int { return b.width }

// Height of the playable area.
func (b *Board) Height() int { return b.height }

// Rule in effect.
func (b *Board) Rule() Rule { return b.rule }

// Komi in effect.
func (b *Board) Komi() float32 { return b.komi }

// Superko reports whether the positional-superko rule is enabled.
func (b *Board) Superko() bool { return b.superko }

// index maps playable coordinates to the padded index space.
func (b *Board) index(x, y int) int32 {
	return int32((y+1)*b.extWidth + (x + 1))
}

// coord is the inverse of index.
func (b *Board) coord(idx int32) Pos {
	return Pos{int8(int(idx)%b.extWidth - 1), int8(int(idx)/b.extWidth - 1)}
}

// neighbors fills dst with the four 4-adjacent padded indices of idx.
func (b *Board) neighbors(idx int32, dst *[4]int32) {
	dst[0] = idx - 1
	dst[1] = idx + 1
	dst[2] = idx - int32(b.extWidth)
	dst[3] = idx + int32(b.extWidth)
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Board) invalidate() {
	b.territoryCache = nil
	b.shichoValid = false
}

func historyIndex(c Color) int {
	if c == Black {
		return 0
	}
	return 1
}

// GetColor returns the color at (x, y), or Edge for off-board coordinates.
func (b *Board) GetColor(x, y int) Color {
	if !b.inBounds(x, y) {
		return Edge
	}
	return b.colors[b.index(x, y)]
}

// GetColors returns the playable area row-major, without padding.
func (b *Board) GetColors() []Color {
	out := make([]Color, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			out[y*b.width+x] = b.colors[b.index(x, y)]
		}
	}
	return out
}

// GetKo returns the point color may not play because of a ko, or PassPos.
func (b *Board) GetKo(color Color) Pos {
	if b.koIndex >= 0 && color == b.koColor {
		return b.coord(b.koIndex)
	}
	return PassPos
}

// GetHistories returns up to the last three moves of color, newest first.
func (b *Board) GetHistories(color Color) []Pos {
	idxs := b.histories[historyIndex(color)].Moves()
	out := make([]Pos, len(idxs))
	for i, idx := range idxs {
		out[i] = b.coord(idx)
	}
	return out
}

// GetPatterns returns the packed 2-bit stone bitmap, row-major over the
// playable area.
func (b *Board) GetPatterns() []uint32 {
	return b.pattern.Words()
}

// GetRenSize returns the number of stones of the group at (x, y), 0 for empty.
func (b *Board) GetRenSize(x, y int) int {
	ren := b.renAt(x, y)
	if ren == nil {
		return 0
	}
	return len(ren.Positions)
}

// GetRenSpace returns the number of liberties of the group at (x, y), 0 for empty.
func (b *Board) GetRenSpace(x, y int) int {
	ren := b.renAt(x, y)
	if ren == nil {
		return 0
	}
	return len(ren.Liberties)
}

func (b *Board) renAt(x, y int) *Ren {
	if !b.inBounds(x, y) {
		return nil
	}
	id := b.renIds[b.index(x, y)]
	if id <= 0 {
		return nil
	}
	return b.rens[id]
}

// SuperkoViolation reports whether the most recent move repeated an earlier
// position. Only meaningful when the superko rule is enabled; it is announced
// to the model as an input scalar, never enforced by IsEnabled.
func (b *Board) SuperkoViolation() bool { return b.superkoHit }

// IsEnabled reports whether color may legally play at (x, y): the cell must be
// empty, not the ko point, and the move must not be suicide. With checkSeki the
// point is additionally rejected when it sits in a settled seki.
func (b *Board) IsEnabled(x, y int, color Color, checkSeki bool) bool {
	if !b.inBounds(x, y) {
		return false
	}
	idx := b.index(x, y)
	if b.colors[idx] != Empty {
		return false
	}
	if idx == b.koIndex && color == b.koColor {
		return false
	}
	if checkSeki && b.isSeki(idx) {
		return false
	}
	var nbs [4]int32
	b.neighbors(idx, &nbs)
	for _, n := range nbs {
		switch b.colors[n] {
		case Empty:
			return true
		case color:
			if len(b.rens[b.renIds[n]].Liberties) >= 2 {
				return true
			}
		case color.Opposite():
			if len(b.rens[b.renIds[n]].Liberties) == 1 {
				return true
			}
		}
	}
	return false
}

// Play places a stone of color at (x, y) and returns the number of captured
// stones. A pass (negative coordinate) clears the ko and returns 0. Illegal
// moves return -1 and leave the board untouched.
func (b *Board) Play(x, y int, color Color) int {
	if x < 0 || y < 0 {
		b.koIndex = -1
		b.koColor = Empty
		return 0
	}
	if !b.inBounds(x, y) || (color != Black && color != White) {
		return -1
	}
	idx := b.index(x, y)
	if b.colors[idx] != Empty {
		return -1
	}
	if idx == b.koIndex && color == b.koColor {
		return -1
	}

	// Suicide check: some neighbor must give the new stone a liberty, extend a
	// group that keeps one, or capture.
	var nbs [4]int32
	b.neighbors(idx, &nbs)
	legal := false
	for _, n := range nbs {
		switch b.colors[n] {
		case Empty:
			legal = true
		case color:
			if len(b.rens[b.renIds[n]].Liberties) >= 2 {
				legal = true
			}
		case color.Opposite():
			if len(b.rens[b.renIds[n]].Liberties) == 1 {
				legal = true
			}
		}
	}
	if !legal {
		return -1
	}

	// Place the stone as a fresh single-stone group.
	b.colors[idx] = color
	b.pattern.Put(b.unpadded(idx), color)
	ren := newRen(color)
	ren.Positions[idx] = struct{}{}
	b.renIds[idx] = idx
	b.rens[idx] = ren
	for _, n := range nbs {
		if b.colors[n] == Empty {
			ren.Liberties[n] = struct{}{}
		}
	}

	// Merge adjacent own groups and take the new point off everyone's liberties.
	for _, n := range nbs {
		id := b.renIds[n]
		if id <= 0 {
			continue
		}
		other := b.rens[id]
		delete(other.Liberties, idx)
		if other.Color == color && id != b.renIds[idx] {
			b.merge(b.renIds[idx], id)
		}
	}
	ren = b.rens[b.renIds[idx]]

	// Remove opposing groups left without liberties.
	captured := 0
	capturedIdx := int32(-1)
	for _, n := range nbs {
		id := b.renIds[n]
		if id <= 0 {
			continue
		}
		other := b.rens[id]
		if other.Color == color.Opposite() && len(other.Liberties) == 0 {
			captured += len(other.Positions)
			for p := range other.Positions {
				capturedIdx = p
			}
			b.remove(id)
		}
	}

	// Ko: a single-stone capture by a single-stone, single-liberty group.
	if captured == 1 && len(ren.Positions) == 1 && len(ren.Liberties) == 1 {
		b.koIndex = capturedIdx
		b.koColor = color.Opposite()
	} else {
		b.koIndex = -1
		b.koColor = Empty
	}

	b.histories[historyIndex(color)].Add(idx)
	if b.superko {
		h := b.pattern.Hash()
		_, b.superkoHit = b.superkoHashes[h]
		b.superkoHashes[h] = struct{}{}
	}
	b.invalidate()
	return captured
}

// merge folds group src into group dst, preserving the union of positions and
// liberties. dst stays the leader.
func (b *Board) merge(dst, src int32) {
	a, c := b.rens[dst], b.rens[src]
	for p := range c.Positions {
		a.Positions[p] = struct{}{}
		b.renIds[p] = dst
	}
	for l := range c.Liberties {
		a.Liberties[l] = struct{}{}
	}
	delete(b.rens, src)
}

// remove frees every stone of the group, restores the bitmap and grants the
// freed points as liberties to their neighboring groups.
func (b *Board) remove(id int32) {
	ren := b.rens[id]
	var nbs [4]int32
	for p := range ren.Positions {
		b.colors[p] = Empty
		b.renIds[p] = -1
		b.pattern.Clear(b.unpadded(p))
	}
	for p := range ren.Positions {
		b.neighbors(p, &nbs)
		for _, n := range nbs {
			nid := b.renIds[n]
			if nid > 0 && nid != id {
				b.rens[nid].Liberties[p] = struct{}{}
			}
		}
	}
	delete(b.rens, id)
}

// unpadded converts a padded index to the row-major index over the playable area.
func (b *Board) unpadded(idx int32) int {
	p := b.coord(idx)
	return p.Y()*b.width + p.X()
}

// String renders the position for logs and test failures.
func (b *Board) String() string {
	var sb strings.Builder
	for y := b.height - 1; y >= 0; y-- {
		fmt.Fprintf(&sb, "%2d ", y)
		for x := 0; x < b.width; x++ {
			switch b.GetColor(x, y) {
			case Black:
				sb.WriteString("X ")
			case White:
				sb.WriteString("O ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   ")
	for x := 0; x < b.width; x++ {
		fmt.Fprintf(&sb, "%d ", x%10)
	}
	sb.WriteByte('\n')
	return sb.String()
}
