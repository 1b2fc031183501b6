// Package merge exposes N independent, paginated, mutable collections of the same item kind as one logical collection.
//
// # Sources
//
// Every backing collection implements [Source]: a stable ID, a count, windowed reads, positional
// insert/remove with capability queries, and a change stream carrying local indices.
// The [Collection] references its sources but does not own them unless [Options.OwnsSources] is set.
//
// # Ordering
//
// A [Ranking] picks one of two orderings and is fixed for the lifetime of a collection:
//   - [Ranked]: sources are exhausted in priority order; every item of the first source precedes the second.
//   - [Alternating]: round robin over sources in registration order, skipping exhausted ones.
//
// [Strategy.Locate] and [Strategy.GlobalIndex] translate between global and per-source indices and are pure
// functions of the strategy and the per-source counts.
//
// # Reads
//
// [Collection.GetItems] turns a global window into one contiguous sub-range per source, fetches them
// concurrently, and interleaves the results back into global order. A failing source contributes nothing to
// that page; the rest of the page is still returned.
//
// # Identity
//
// Items from different sources that a [Resolver] judges equal fold into one [Item] with one [Facet] per source.
// Positions stay arithmetic: [Collection.TotalCount] is the sum of the source counts, and one merged item may
// occupy several positions when its facets sit at different places.
//
// # Mutations
//
// [Collection.Insert] and [Collection.RemoveAt] resolve the global index to exactly one source and delegate to it.
// Failures leave the collection untouched and fire no event.
//
// # Events
//
// Subscribers receive a single [Event] stream: items changed (global indices), count changed, facets changed.
// Events fire on the goroutine of the underlying source. Handlers must not call [Collection.Close].
//
// # Membership
//
// Only the holder of the [Membership] returned by [New] can add or remove sources.
package merge
