package merge

import (
	"context"
	"fmt"
)

// route resolves a global index to the registration and local index a mutation targets.
// When insert is set, g may equal the total to append after the last item.
func (c *Collection[T]) route(g int, insert bool) (*registration[T], int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, 0, ErrClosed
	}
	ord, counts := c.snapshot()
	total := Total(counts)

	if insert && g == total && g >= 0 {
		if len(ord) == 0 {
			return nil, 0, fmt.Errorf("%w: %d (no sources)", ErrIndexOutOfRange, g)
		}
		if total == 0 {
			return ord[0], 0, nil
		}
		pos, local, _ := c.ranking.strategy.Locate(counts, total-1)
		return ord[pos], local + 1, nil
	}

	pos, local, ok := c.ranking.strategy.Locate(counts, g)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, g, total)
	}
	return ord[pos], local, nil
}

// Insert adds item at global index g through the source that owns that position.
// The item must carry a facet for that source. The collection is unchanged when the source fails.
func (c *Collection[T]) Insert(ctx context.Context, item *Item[T], g int) error {
	if item == nil {
		return fmt.Errorf("%w: nil item", ErrArgument)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	reg, local, err := c.route(g, true)
	if err != nil {
		return err
	}
	facet, ok := item.Facet(reg.id)
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingFacet, reg.id)
	}

	err = reg.src.Add(ctx, facet.Item, local)
	recordMutation(c.name, reg.id, "add", err)
	if err != nil {
		return fault(reg.id, "add", err)
	}
	c.logger.Debug("inserted", "source", reg.id, "index", g, "local", local)
	c.syncCount(reg)
	return nil
}

// RemoveAt removes the item at global index g from the source that owns it.
func (c *Collection[T]) RemoveAt(ctx context.Context, g int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reg, local, err := c.route(g, false)
	if err != nil {
		return err
	}

	err = reg.src.Remove(ctx, local)
	recordMutation(c.name, reg.id, "remove", err)
	if err != nil {
		return fault(reg.id, "remove", err)
	}
	c.logger.Debug("removed", "source", reg.id, "index", g, "local", local)
	c.syncCount(reg)
	return nil
}

// CanInsert asks the source owning g whether it accepts an insert there.
func (c *Collection[T]) CanInsert(ctx context.Context, g int) (bool, error) {
	reg, local, err := c.route(g, true)
	if err != nil {
		return false, err
	}
	ok, err := reg.src.CanAdd(ctx, local)
	if err != nil {
		return false, fault(reg.id, "can-add", err)
	}
	return ok, nil
}

// CanRemove asks the source owning g whether the item there can be removed.
func (c *Collection[T]) CanRemove(ctx context.Context, g int) (bool, error) {
	reg, local, err := c.route(g, false)
	if err != nil {
		return false, err
	}
	ok, err := reg.src.CanRemove(ctx, local)
	if err != nil {
		return false, fault(reg.id, "can-remove", err)
	}
	return ok, nil
}

// syncCount refreshes the cached count of reg after a mutation, for sources that report
// changes late or not at all.
func (c *Collection[T]) syncCount(reg *registration[T]) {
	n := max(reg.src.TotalCount(), 0)

	c.mu.Lock()
	if reg.removed || reg.count == n {
		c.mu.Unlock()
		return
	}
	reg.count = n
	c.mu.Unlock()

	c.publishCount(reg.id)
}
