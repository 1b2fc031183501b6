package merge

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Options configures a [Collection].
type Options[T any] struct {
	// Name labels logs and metrics.
	Name    string
	Ranking Ranking
	// Identify returns a key unique within one source for a source item. Required.
	Identify func(T) string
	// Resolver is the fold policy. The zero value never folds.
	Resolver Resolver[T]
	// Sources is the initial membership, in registration order.
	Sources []Source[T]
	// OwnsSources closes sources implementing [io.Closer] when they leave the collection.
	OwnsSources bool
	Logger      *log.Logger
}

// Collection presents the sources of one item kind as a single paginated, mutable and evented sequence.
//
// Reads and mutations are not serialized against each other; callers that need strict consistency
// serialize their own calls. Event handlers run on the goroutine of the source that changed and
// must not call [Collection.Close].
type Collection[T any] struct {
	name     string
	ranking  Ranking
	identify func(T) string
	owns     bool
	logger   *log.Logger

	mu       sync.RWMutex
	regs     []*registration[T]
	seq      int
	closed   bool
	inflight sync.WaitGroup

	identities *registry[T]
	events     Hub[Event[T]]
}

// Membership is the owner-only capability to change the sources of a [Collection].
type Membership[T any] struct {
	c *Collection[T]
}

// New builds a collection over opts.Sources and returns it with its membership handle.
func New[T any](opts Options[T]) (*Collection[T], *Membership[T], error) {
	if opts.Identify == nil {
		return nil, nil, fmt.Errorf("%w: identify func is required", ErrArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	name := opts.Name
	if name == "" {
		name = "collection"
	}

	c := &Collection[T]{
		name:       name,
		ranking:    opts.Ranking,
		identify:   opts.Identify,
		owns:       opts.OwnsSources,
		logger:     logger.With("collection", name),
		identities: newRegistry(opts.Identify, opts.Resolver),
	}

	seen := make(map[string]bool, len(opts.Sources))
	for _, src := range opts.Sources {
		if err := validSource(src); err != nil {
			return nil, nil, err
		}
		if seen[src.ID()] {
			return nil, nil, fmt.Errorf("%w: duplicate source %q", ErrArgument, src.ID())
		}
		seen[src.ID()] = true
	}
	c.mu.Lock()
	for _, src := range opts.Sources {
		c.register(src)
	}
	c.mu.Unlock()

	return c, &Membership[T]{c: c}, nil
}

func validSource[T any](src Source[T]) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrArgument)
	}
	if src.ID() == "" {
		return fmt.Errorf("%w: source id is empty", ErrArgument)
	}
	return nil
}

// register adds src and subscribes to it. Callers hold c.mu, so sources must not deliver
// events from inside Subscribe.
func (c *Collection[T]) register(src Source[T]) *registration[T] {
	reg := &registration[T]{src: src, id: src.ID(), seq: c.seq, count: max(src.TotalCount(), 0)}
	c.seq++
	c.regs = append(c.regs, reg)
	c.identities.setRank(reg.id, c.ranking.rank(reg.id, reg.seq))
	reg.cancel = src.Subscribe(func(ev SourceEvent[T]) { c.onSourceEvent(reg, ev) })
	return reg
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Ranking() Ranking {
	return c.ranking
}

// TotalCount is the sum of the last known counts of all sources.
func (c *Collection[T]) TotalCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, reg := range c.regs {
		n += reg.count
	}
	return n
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	ID    string
	Count int
}

// Sources lists the registered sources in strategy order.
func (c *Collection[T]) Sources() []SourceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ord := ordered(c.ranking, c.regs)
	out := make([]SourceInfo, len(ord))
	for i, reg := range ord {
		out[i] = SourceInfo{ID: reg.id, Count: reg.count}
	}
	return out
}

// Subscribe registers fn for collection events and returns a func that detaches it.
func (c *Collection[T]) Subscribe(fn func(Event[T])) (cancel func()) {
	return c.events.Subscribe(fn)
}

// snapshot returns the registrations in strategy order and their counts. Callers hold c.mu.
func (c *Collection[T]) snapshot() ([]*registration[T], []int) {
	ord := ordered(c.ranking, c.regs)
	counts := make([]int, len(ord))
	for i, reg := range ord {
		counts[i] = reg.count
	}
	return ord, counts
}

// beginPublish reserves a publish slot; ok is false once the collection is closed.
// Callers hold c.mu.
func (c *Collection[T]) beginPublish() bool {
	if c.closed {
		return false
	}
	c.inflight.Add(1)
	return true
}

func (c *Collection[T]) publish(ev Event[T]) {
	recordEvent(c.name, ev.Kind)
	c.events.Publish(ev)
}

func (c *Collection[T]) publishCount(sourceID string) {
	c.mu.Lock()
	if !c.beginPublish() {
		c.mu.Unlock()
		return
	}
	total := 0
	for _, reg := range c.regs {
		total += reg.count
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.publish(Event[T]{Kind: EventCountChanged, SourceID: sourceID, Total: total})
}

// AddSource registers src. Already delivered pages are not revisited; later reads and events include it.
func (m *Membership[T]) AddSource(ctx context.Context, src Source[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validSource(src); err != nil {
		return err
	}

	c := m.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	for _, reg := range c.regs {
		if reg.id == src.ID() {
			c.mu.Unlock()
			return fmt.Errorf("%w: duplicate source %q", ErrArgument, src.ID())
		}
	}
	reg := c.register(src)
	c.mu.Unlock()

	c.logger.Debug("source added", "source", reg.id, "count", reg.count)
	c.publishCount(reg.id)
	return nil
}

// RemoveSource unregisters the source with the given id, closing it when the collection owns
// its sources. Reads already in flight against it complete but their results are discarded.
//
// Subscribers see one [EventItemsChanged] removing every slot of the source at its global
// index before the removal, then one [EventFacetsChanged] per merged item that keeps other
// facets, then one [EventCountChanged].
func (m *Membership[T]) RemoveSource(ctx context.Context, id string) error {
	return m.remove(ctx, id, m.c.owns)
}

// ReleaseSource unregisters the source like [Membership.RemoveSource] but never closes it,
// handing it back to the caller.
func (m *Membership[T]) ReleaseSource(ctx context.Context, id string) error {
	return m.remove(ctx, id, false)
}

func (m *Membership[T]) remove(ctx context.Context, id string, closeSrc bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := m.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	i := slices.IndexFunc(c.regs, func(r *registration[T]) bool { return r.id == id })
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: unknown source %q", ErrArgument, id)
	}
	ord, counts := c.snapshot()
	reg := c.regs[i]
	pos := slices.Index(ord, reg)
	reg.removed = true
	c.regs = slices.Delete(c.regs, i, i+1)
	publishing := c.beginPublish()
	total := 0
	for _, r := range c.regs {
		total += r.count
	}
	c.mu.Unlock()

	reg.cancel()
	detached := c.identities.detachSource(id)
	c.logger.Debug("source removed", "source", id, "count", counts[pos], "detached", len(detached))

	if publishing {
		known := make(map[int]*Item[T], len(detached))
		var changed []*Item[T]
		for _, d := range detached {
			if d.facet.Index >= 0 {
				known[d.facet.Index] = d.item
			}
			if !d.gone {
				changed = append(changed, d.item)
			}
		}

		removed := make([]Change[T], 0, counts[pos])
		for local := range counts[pos] {
			g, ok := c.ranking.strategy.GlobalIndex(counts, pos, local)
			if !ok {
				continue
			}
			removed = append(removed, Change[T]{Item: known[local], Index: g})
		}
		sortChanges(removed)

		if len(removed) > 0 {
			c.publish(Event[T]{Kind: EventItemsChanged, SourceID: id, Removed: removed})
		}
		for _, item := range changed {
			c.publish(Event[T]{Kind: EventFacetsChanged, SourceID: id, Item: item})
		}
		c.publish(Event[T]{Kind: EventCountChanged, SourceID: id, Total: total})
		c.inflight.Done()
	}

	if closeSrc {
		if err := closeSource(reg.src); err != nil {
			return fault(id, "close", err)
		}
	}
	return nil
}

// Close detaches every source subscription and, when the collection owns its sources, closes
// them in parallel. No events are delivered after Close returns. Closing twice is a no-op.
func (c *Collection[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	regs := c.regs
	c.regs = nil
	for _, reg := range regs {
		reg.removed = true
	}
	c.mu.Unlock()

	c.inflight.Wait()
	c.events.Clear()

	var g errgroup.Group
	for _, reg := range regs {
		g.Go(func() error {
			reg.cancel()
			if !c.owns {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := closeSource(reg.src); err != nil {
				return fault(reg.id, "close", err)
			}
			return nil
		})
	}
	err := g.Wait()
	c.logger.Debug("collection closed", "sources", len(regs))
	return err
}

func closeSource[T any](src Source[T]) error {
	if closer, ok := src.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
