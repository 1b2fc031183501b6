package merge

import (
	"fmt"
	"slices"
	"strings"
)

// Strategy selects how sources are interleaved into the global order.
type Strategy int

const (
	StrategyRanked Strategy = iota
	StrategyAlternating
)

func (s Strategy) String() string {
	switch s {
	case StrategyRanked:
		return "ranked"
	case StrategyAlternating:
		return "alternating"
	default:
		return "unknown"
	}
}

// ParseStrategy accepts "ranked" or "alternating", case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ranked", "":
		return StrategyRanked, nil
	case "alternating":
		return StrategyAlternating, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", ErrArgument, s)
	}
}

// Ranking is the immutable ordering configuration of a collection.
//
// It also decides which facet of a merged item is preferred: the facet whose source comes first.
type Ranking struct {
	strategy Strategy
	priority []string
}

// Ranked orders sources by priority; sources not listed follow in registration order.
func Ranked(priority ...string) Ranking {
	return Ranking{strategy: StrategyRanked, priority: slices.Clone(priority)}
}

// Alternating interleaves sources round robin in registration order.
func Alternating() Ranking {
	return Ranking{strategy: StrategyAlternating}
}

func (r Ranking) Strategy() Strategy {
	return r.strategy
}

func (r Ranking) Priority() []string {
	return slices.Clone(r.priority)
}

func (r Ranking) String() string {
	if r.strategy == StrategyRanked && len(r.priority) > 0 {
		return fmt.Sprintf("ranked(%s)", strings.Join(r.priority, ","))
	}
	return r.strategy.String()
}

// rank returns the sort key of a source: priority position first, registration sequence second.
func (r Ranking) rank(id string, seq int) [2]int {
	if r.strategy == StrategyRanked {
		if i := slices.Index(r.priority, id); i >= 0 {
			return [2]int{i, seq}
		}
		return [2]int{len(r.priority), seq}
	}
	return [2]int{0, seq}
}

// ordered sorts registrations into strategy order without mutating regs.
func ordered[T any](r Ranking, regs []*registration[T]) []*registration[T] {
	out := slices.Clone(regs)
	slices.SortStableFunc(out, func(a, b *registration[T]) int {
		return compareRank(r.rank(a.id, a.seq), r.rank(b.id, b.seq))
	})
	return out
}

func compareRank(a, b [2]int) int {
	if a[0] != b[0] {
		return a[0] - b[0]
	}
	return a[1] - b[1]
}
