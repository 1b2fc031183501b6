package merge

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// subRange is the contiguous local window requested from one source.
type subRange struct {
	lo, hi int
}

// GetItems returns up to limit merged items starting at global offset.
//
// Sources are read concurrently. A source that fails contributes nothing to this page and the
// failure is logged, so the page can come back short; use [Collection.GetIndexed] when the
// global index of each item matters. Only cancellation of ctx fails the call.
//
// Indices address slots, one per source item. A merged item backed by two sources occupies
// two slots and is returned once for each of them; no slot is returned twice.
func (c *Collection[T]) GetItems(ctx context.Context, limit, offset int) ([]*Item[T], error) {
	entries, err := c.GetIndexed(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]*Item[T], len(entries))
	for i, e := range entries {
		items[i] = e.Item
	}
	return items, nil
}

// GetIndexed is [Collection.GetItems] with the global index of every returned item. Indices
// are ascending and skip the slots of sources that failed.
func (c *Collection[T]) GetIndexed(ctx context.Context, limit, offset int) ([]Change[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClosed
	}
	ord, counts := c.snapshot()
	c.mu.RUnlock()

	slots := c.ranking.strategy.Window(counts, offset, limit)
	if len(slots) == 0 {
		return []Change[T]{}, nil
	}

	ranges := make(map[int]*subRange, len(ord))
	for _, s := range slots {
		if r, ok := ranges[s.Pos]; ok {
			r.lo = min(r.lo, s.Local)
			r.hi = max(r.hi, s.Local)
			continue
		}
		ranges[s.Pos] = &subRange{lo: s.Local, hi: s.Local}
	}

	results := make([][]T, len(ord))
	var g errgroup.Group
	for pos, r := range ranges {
		reg := ord[pos]
		g.Go(func() error {
			start := time.Now()
			items, err := reg.src.GetItems(ctx, r.hi-r.lo+1, r.lo)
			recordFetch(c.name, reg.id, time.Since(start), err)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("source read failed", "source", reg.id, "op", "get-items",
						"offset", r.lo, "limit", r.hi-r.lo+1, "err", fault(reg.id, "get-items", err))
				}
				return nil
			}
			results[pos] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	live := make([]bool, len(ord))
	for i, reg := range ord {
		live[i] = !reg.removed
	}
	c.mu.RUnlock()

	page := make([]Change[T], 0, len(slots))
	for k, s := range slots {
		if !live[s.Pos] {
			continue
		}
		i := s.Local - ranges[s.Pos].lo
		if i >= len(results[s.Pos]) {
			continue
		}
		page = append(page, Change[T]{
			Item:  c.identities.resolve(ord[s.Pos].id, s.Local, results[s.Pos][i]),
			Index: offset + k,
		})
	}
	return page, nil
}

// All pages through the whole collection with the given page size.
func (c *Collection[T]) All(ctx context.Context, pageSize int) ([]*Item[T], error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	var out []*Item[T]
	for offset := 0; offset < c.TotalCount(); offset += pageSize {
		page, err := c.GetItems(ctx, pageSize, offset)
		if err != nil {
			return out, err
		}
		out = append(out, page...)
	}
	return out, nil
}
