// Package repositories implements SQLite persistence for the user's own track list.
//
// [LibraryRepository] stores tracks in the library_tracks table with a dense, zero-based position column.
// Inserts and removals shift neighbouring positions inside one transaction, so the stored order always
// matches the order the library core exposes to the merge engine.
//
// Row ids come from [shared.GenerateID] and double as the track's identity within the database core.
package repositories
