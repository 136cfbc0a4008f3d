package board

// Ren is one group: a set of same-color stones connected 4-adjacently, with the
// union of their liberties. Every stone of the group maps to the same leader
// index through Board.renIds. Spaces, Shicho and Fixed are filled lazily by the
// territory and ladder passes.
type Ren struct {
	Color     Color
	Positions map[int32]struct{}
	Liberties map[int32]struct{}

	// Spaces holds the leaders of the adjacent empty regions, valid only
	// during a territory pass.
	Spaces map[int32]struct{}

	// Shicho marks the group as caught in a ladder; Fixed marks its life as
	// confirmed. Both are caches, recomputed after every move.
	Shicho bool
	Fixed  bool
}

func newRen(color Color) *Ren {
	return &Ren{
		Color:     color,
		Positions: make(map[int32]struct{}),
		Liberties: make(map[int32]struct{}),
	}
}

// Copy returns a deep copy of the group record.
func (r *Ren) Copy() *Ren {
	nr := &Ren{
		Color:     r.Color,
		Positions: make(map[int32]struct{}, len(r.Positions)),
		Liberties: make(map[int32]struct{}, len(r.Liberties)),
		Shicho:    r.Shicho,
		Fixed:     r.Fixed,
	}
	for p := range r.Positions {
		nr.Positions[p] = struct{}{}
	}
	for l := range r.Liberties {
		nr.Liberties[l] = struct{}{}
	}
	return nr
}
