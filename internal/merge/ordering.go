package merge

// Slot is one global position resolved to a source position (index into the ordered source list)
// and a local index within that source.
type Slot struct {
	Pos   int
	Local int
}

// Total sums per-source counts, ignoring negative values.
func Total(counts []int) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n += c
		}
	}
	return n
}

// Locate maps a global index to (source position, local index).
// counts must be in strategy order. ok is false when g is outside [0, Total(counts)).
func (s Strategy) Locate(counts []int, g int) (pos, local int, ok bool) {
	if g < 0 || g >= Total(counts) {
		return 0, 0, false
	}

	if s == StrategyAlternating {
		r := lastRoundAtOrBefore(counts, g)
		k := g - itemsBeforeRound(counts, r)
		for j, c := range counts {
			if c > r {
				if k == 0 {
					return j, r, true
				}
				k--
			}
		}
		return 0, 0, false
	}

	for j, c := range counts {
		if c <= 0 {
			continue
		}
		if g < c {
			return j, g, true
		}
		g -= c
	}
	return 0, 0, false
}

// GlobalIndex maps (source position, local index) to a global index. It is the inverse of [Strategy.Locate].
func (s Strategy) GlobalIndex(counts []int, pos, local int) (int, bool) {
	if pos < 0 || pos >= len(counts) || local < 0 || local >= counts[pos] {
		return 0, false
	}

	if s == StrategyAlternating {
		g := itemsBeforeRound(counts, local)
		for j := 0; j < pos; j++ {
			if counts[j] > local {
				g++
			}
		}
		return g, true
	}

	g := 0
	for j := 0; j < pos; j++ {
		if counts[j] > 0 {
			g += counts[j]
		}
	}
	return g + local, true
}

// Window resolves [offset, offset+limit) clamped to the collection into slots in global order.
func (s Strategy) Window(counts []int, offset, limit int) []Slot {
	if limit <= 0 || offset < 0 {
		return nil
	}
	total := Total(counts)
	if offset >= total {
		return nil
	}
	n := min(limit, total-offset)

	pos, local, ok := s.Locate(counts, offset)
	if !ok {
		return nil
	}

	slots := make([]Slot, 0, n)
	for len(slots) < n && ok {
		slots = append(slots, Slot{Pos: pos, Local: local})
		pos, local, ok = s.next(counts, pos, local)
	}
	return slots
}

// next advances one global position.
func (s Strategy) next(counts []int, pos, local int) (int, int, bool) {
	if s == StrategyAlternating {
		for j := pos + 1; j < len(counts); j++ {
			if counts[j] > local {
				return j, local, true
			}
		}
		round := local + 1
		for j := 0; j < len(counts); j++ {
			if counts[j] > round {
				return j, round, true
			}
		}
		return 0, 0, false
	}

	if local+1 < counts[pos] {
		return pos, local + 1, true
	}
	for j := pos + 1; j < len(counts); j++ {
		if counts[j] > 0 {
			return j, 0, true
		}
	}
	return 0, 0, false
}

// itemsBeforeRound counts the items emitted by rounds [0, r) of a round robin.
func itemsBeforeRound(counts []int, r int) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n += min(c, r)
		}
	}
	return n
}

// lastRoundAtOrBefore finds the largest round r with itemsBeforeRound(counts, r) <= g.
func lastRoundAtOrBefore(counts []int, g int) int {
	hi := 0
	for _, c := range counts {
		hi = max(hi, c)
	}
	lo := 0
	hi--
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if itemsBeforeRound(counts, mid) <= g {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
