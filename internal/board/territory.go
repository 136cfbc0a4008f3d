package board

// Territory, seki and nakade recognition.
//
// Life is decided by a fixpoint: every group starts "fixed" and every empty
// region touching a single color starts as a fixed eye space of that color; a
// group that cannot claim two fixed eye spaces is demoted together with its
// spaces, which may in turn demote its neighbors, until nothing changes.

// emptyRegion is a 4-connected component of empty cells, keyed by its smallest
// padded index.
type emptyRegion struct {
	leader     int32
	positions  map[int32]struct{}
	rens       map[int32]struct{} // adjacent group leaders
	touchBlack bool
	touchWhite bool
	fixed      bool
	color      Color // the single touching color, or Empty when mixed
}

// emptyRegions builds the empty-region decomposition and returns the regions
// plus a map from padded index to the containing region.
func (b *Board) emptyRegions() ([]*emptyRegion, map[int32]*emptyRegion) {
	byCell := make(map[int32]*emptyRegion)
	var regions []*emptyRegion
	var nbs [4]int32
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			idx := b.index(x, y)
			if b.colors[idx] != Empty || byCell[idx] != nil {
				continue
			}
			reg := &emptyRegion{
				leader:    idx,
				positions: make(map[int32]struct{}),
				rens:      make(map[int32]struct{}),
			}
			stack := []int32{idx}
			byCell[idx] = reg
			reg.positions[idx] = struct{}{}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				b.neighbors(p, &nbs)
				for _, n := range nbs {
					switch b.colors[n] {
					case Empty:
						if byCell[n] == nil {
							byCell[n] = reg
							reg.positions[n] = struct{}{}
							stack = append(stack, n)
						}
					case Black:
						reg.touchBlack = true
						reg.rens[b.renIds[n]] = struct{}{}
					case White:
						reg.touchWhite = true
						reg.rens[b.renIds[n]] = struct{}{}
					}
				}
			}
			switch {
			case reg.touchBlack && !reg.touchWhite:
				reg.color = Black
			case reg.touchWhite && !reg.touchBlack:
				reg.color = White
			}
			reg.fixed = reg.color != Empty
			regions = append(regions, reg)
		}
	}
	return regions, byCell
}

// GetTerritories returns, row-major over the playable area, the color whose
// confirmed territory each cell is: cells of fixed single-color regions and
// stones of fixed groups. The result is cached until the next move.
func (b *Board) GetTerritories() []Color {
	if b.territoryCache != nil {
		return append([]Color(nil), b.territoryCache...)
	}
	regions, _ := b.emptyRegions()

	for _, ren := range b.rens {
		if ren.Color != Black && ren.Color != White {
			continue
		}
		ren.Fixed = true
		ren.Spaces = make(map[int32]struct{})
	}
	byLeader := make(map[int32]*emptyRegion, len(regions))
	for _, reg := range regions {
		byLeader[reg.leader] = reg
		for id := range reg.rens {
			if ren, ok := b.rens[id]; ok && ren.Spaces != nil {
				ren.Spaces[reg.leader] = struct{}{}
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, ren := range b.rens {
			if ren.Spaces == nil || !ren.Fixed {
				continue
			}
			eyes := 0
			for leader := range ren.Spaces {
				reg := byLeader[leader]
				if !reg.fixed || reg.color != ren.Color {
					continue
				}
				eyes++
				// A single roomy space can still yield two eyes, unless its
				// shape is a nakade.
				if len(reg.positions) >= 5 && !nakadeShape(b, reg) {
					eyes++
				}
			}
			if eyes < 2 {
				ren.Fixed = false
				for leader := range ren.Spaces {
					reg := byLeader[leader]
					if reg.fixed && reg.color == ren.Color {
						reg.fixed = false
						changed = true
					}
				}
				changed = true
			}
		}
	}

	out := make([]Color, b.width*b.height)
	for _, reg := range regions {
		if !reg.fixed {
			continue
		}
		for p := range reg.positions {
			out[b.unpadded(p)] = reg.color
		}
	}
	for _, ren := range b.rens {
		if ren.Spaces == nil || !ren.Fixed {
			continue
		}
		for p := range ren.Positions {
			out[b.unpadded(p)] = ren.Color
		}
	}
	b.territoryCache = append([]Color(nil), out...)
	return out
}

// GetOwners returns the owner of every cell. It starts from the territories;
// cells still empty in that map but occupied on the board belong to the stone.
// Outside the Japanese rule, empty regions whose stone neighbors are all one
// color are filled in as well (dame and removed-life points).
func (b *Board) GetOwners() []Color {
	out := b.GetTerritories()
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			i := y*b.width + x
			if out[i] == Empty {
				if c := b.colors[b.index(x, y)]; c == Black || c == White {
					out[i] = c
				}
			}
		}
	}
	if b.rule == RuleJapanese {
		return out
	}
	regions, _ := b.emptyRegions()
	for _, reg := range regions {
		if reg.color == Empty {
			continue
		}
		for p := range reg.positions {
			if i := b.unpadded(p); out[i] == Empty {
				out[i] = reg.color
			}
		}
	}
	return out
}

// isSeki reports whether the empty point idx is the shared life of a settled
// seki: a black and a white group both down to the same two liberties.
func (b *Board) isSeki(idx int32) bool {
	var nbs [4]int32
	b.neighbors(idx, &nbs)
	var black, white []*Ren
	for _, n := range nbs {
		id := b.renIds[n]
		if id <= 0 {
			continue
		}
		ren := b.rens[id]
		if len(ren.Liberties) != 2 {
			continue
		}
		switch ren.Color {
		case Black:
			black = append(black, ren)
		case White:
			white = append(white, ren)
		}
	}
	for _, br := range black {
		for _, wr := range white {
			if sameLiberties(br, wr) {
				return true
			}
		}
	}
	return false
}

func sameLiberties(a, c *Ren) bool {
	if len(a.Liberties) != len(c.Liberties) {
		return false
	}
	for l := range a.Liberties {
		if _, ok := c.Liberties[l]; !ok {
			return false
		}
	}
	return true
}

// IsNakade reports whether the empty region containing (x, y) is a dead shape:
// one that cannot be split into two eyes, so a group whose last space it is
// can be killed from the inside.
func (b *Board) IsNakade(x, y int) bool {
	if !b.inBounds(x, y) || b.colors[b.index(x, y)] != Empty {
		return false
	}
	_, byCell := b.emptyRegions()
	return nakadeShape(b, byCell[b.index(x, y)])
}

// nakadeShape classifies a region by its normalized cell pattern. Up to three
// cells nothing can make two eyes; at four the square, T and pyramid die; at
// five the bulky five and the cross die. Larger regions are assumed alive.
func nakadeShape(b *Board, reg *emptyRegion) bool {
	n := len(reg.positions)
	if n <= 3 {
		return true
	}
	if n > 5 {
		return false
	}
	cells := make([]Pos, 0, n)
	for p := range reg.positions {
		cells = append(cells, b.coord(p))
	}
	key := canonicalShape(cells)
	_, dead := deadShapes[key]
	return dead
}

var deadShapes = func() map[uint64]struct{} {
	shapes := [][]Pos{
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},                 // square four
		{{0, 0}, {1, 0}, {2, 0}, {1, 1}},                 // T four (pyramid)
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}},         // bulky five
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}},         // cross five
	}
	m := make(map[uint64]struct{}, len(shapes))
	for _, s := range shapes {
		m[canonicalShape(s)] = struct{}{}
	}
	return m
}()

// canonicalShape returns a key invariant under translation, rotation and
// reflection: the smallest packed encoding over the eight symmetries.
func canonicalShape(cells []Pos) uint64 {
	best := ^uint64(0)
	for sym := 0; sym < 8; sym++ {
		pts := make([][2]int, len(cells))
		for i, c := range cells {
			x, y := c.X(), c.Y()
			if sym&1 != 0 {
				x, y = y, x
			}
			if sym&2 != 0 {
				x = -x
			}
			if sym&4 != 0 {
				y = -y
			}
			pts[i] = [2]int{x, y}
		}
		minX, minY := pts[0][0], pts[0][1]
		for _, p := range pts {
			if p[0] < minX {
				minX = p[0]
			}
			if p[1] < minY {
				minY = p[1]
			}
		}
		var bits uint64
		for _, p := range pts {
			bits |= 1 << uint((p[1]-minY)*8+(p[0]-minX))
		}
		if bits < best {
			best = bits
		}
	}
	return best
}
