// Package tasks runs long operations over a merged track collection with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Coverage] : Compare a collection against each of its sources
//     - Pages through the merged sequence once
//     - Collapses folded items that appear at several positions
//     - Reports, per source, the merged items it does not contribute to
//
//  2. [Engine.ExportPages] : Export the merged sequence
//     - Pages through the collection under a rate limiter
//     - Streams every page through a [formatter.PageWriter] (table, csv or json)
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default so a slow reader never stalls the operation.
package tasks
