package merge

import "slices"

// onSourceEvent re-indexes one source notification into global terms and republishes it.
//
// Removed indices are mapped against the counts before the change, added indices against the
// counts after it. The pre-change count of the source is derived from the event itself so that
// counts refreshed early by a mutation do not skew the mapping.
func (c *Collection[T]) onSourceEvent(reg *registration[T], ev SourceEvent[T]) {
	c.mu.Lock()
	if reg.removed || !c.beginPublish() {
		c.mu.Unlock()
		return
	}

	ord, counts := c.snapshot()
	pos := slices.Index(ord, reg)
	before := slices.Clone(counts)
	if ev.Kind == SourceItemsChanged {
		before[pos] = max(ev.Count-len(ev.Added)+len(ev.Removed), 0)
	}
	reg.count = max(ev.Count, 0)
	counts[pos] = reg.count
	total := Total(counts)
	c.mu.Unlock()
	defer c.inflight.Done()

	if ev.Kind == SourceCountChanged {
		c.publish(Event[T]{Kind: EventCountChanged, SourceID: reg.id, Total: total})
		return
	}

	removed := make([]Change[T], 0, len(ev.Removed))
	removedLocal := make([]int, 0, len(ev.Removed))
	for _, r := range ev.Removed {
		g, ok := c.ranking.strategy.GlobalIndex(before, pos, r.Index)
		if !ok {
			c.logger.Debug("removed index out of range", "source", reg.id, "index", r.Index)
			continue
		}
		item, gone := c.identities.detach(reg.id, r.Item)
		if item == nil {
			item = NewItem(Facet[T]{SourceID: reg.id, Index: r.Index, Item: r.Item})
		} else if !gone {
			c.logger.Debug("facet removed from merged item", "source", reg.id, "item", item.ID())
		}
		removed = append(removed, Change[T]{Item: item, Index: g})
		removedLocal = append(removedLocal, r.Index)
	}

	addedLocal := make([]int, 0, len(ev.Added))
	for _, a := range ev.Added {
		addedLocal = append(addedLocal, a.Index)
	}
	c.identities.shift(reg.id, removedLocal, addedLocal)

	added := make([]Change[T], 0, len(ev.Added))
	for _, a := range ev.Added {
		g, ok := c.ranking.strategy.GlobalIndex(counts, pos, a.Index)
		if !ok {
			c.logger.Debug("added index out of range", "source", reg.id, "index", a.Index)
			continue
		}
		added = append(added, Change[T]{Item: c.identities.resolve(reg.id, a.Index, a.Item), Index: g})
	}
	sortChanges(removed)
	sortChanges(added)

	if len(added) > 0 || len(removed) > 0 {
		c.publish(Event[T]{Kind: EventItemsChanged, SourceID: reg.id, Added: added, Removed: removed})
	}
	c.publish(Event[T]{Kind: EventCountChanged, SourceID: reg.id, Total: total})
}
