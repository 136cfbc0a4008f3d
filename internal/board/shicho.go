package board

// Ladder (shicho) reading. The group under test must be in atari; the reading
// alternates the forced escape move with both attacker replies, depth-first on
// a stack of board copies so memory stays bounded by the reading depth.
//
// The reading is capped at 2*width*height pushed positions; once the cap is
// reached the whole reading resolves to "not ladder", which keeps the predicate
// sound (a group is only ever reported dead when a reading proves it).

// IsShicho reports whether the group at (x, y) is caught in a ladder. Groups
// with more than one liberty are never in a ladder.
func (b *Board) IsShicho(x, y int) bool {
	ren := b.renAt(x, y)
	if ren == nil || len(ren.Liberties) != 1 {
		return false
	}
	target := b.index(x, y)
	maxBoards := 2 * b.width * b.height

	stack := []*Board{b.Copy()}
	pushed := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tr := cur.rens[cur.renIds[target]]
		color := tr.Color

		// An adjacent opponent group in atari means the target can capture
		// its way out: this branch escapes.
		if cur.canCaptureNeighbor(tr) {
			continue
		}

		// Play the unique liberty. If even that is illegal the group is dead.
		var lib int32
		for l := range tr.Liberties {
			lib = l
		}
		lp := cur.coord(lib)
		if cur.Play(lp.X(), lp.Y(), color) < 0 {
			return true
		}
		tr = cur.rens[cur.renIds[target]]
		switch {
		case len(tr.Liberties) == 1:
			return true
		case len(tr.Liberties) > 2:
			// Escaped on this branch.
		default:
			// Two liberties: try both attacker replies.
			for l := range tr.Liberties {
				if pushed >= maxBoards {
					return false
				}
				next := cur.Copy()
				ap := next.coord(l)
				if next.Play(ap.X(), ap.Y(), color.Opposite()) < 0 {
					continue
				}
				if len(next.rens[next.renIds[target]].Liberties) == 1 {
					stack = append(stack, next)
					pushed++
				}
			}
		}
	}
	return false
}

// canCaptureNeighbor reports whether any opposing group adjacent to ren is in
// atari itself.
func (b *Board) canCaptureNeighbor(ren *Ren) bool {
	var nbs [4]int32
	seen := make(map[int32]struct{})
	for p := range ren.Positions {
		b.neighbors(p, &nbs)
		for _, n := range nbs {
			id := b.renIds[n]
			if id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			other := b.rens[id]
			if other.Color == ren.Color.Opposite() && len(other.Liberties) == 1 {
				return true
			}
		}
	}
	return false
}

// updateShicho refreshes the per-group ladder flags consumed by the feature
// planes. Only groups in atari are read.
func (b *Board) updateShicho() {
	if b.shichoValid {
		return
	}
	for _, ren := range b.rens {
		if ren.Color != Black && ren.Color != White {
			continue
		}
		ren.Shicho = false
		if len(ren.Liberties) == 1 {
			for p := range ren.Positions {
				pos := b.coord(p)
				ren.Shicho = b.IsShicho(pos.X(), pos.Y())
				break
			}
		}
	}
	b.shichoValid = true
}
