// Package cores adapts item providers into [merge.Source] implementations.
//
// A core is one place items live: a remote service, a folder of audio files, the local database,
// or memory. Each adapter reports its count, serves windows of items in its own order and notifies
// subscribers when that order changes.
//
// Sources:
//   - [Memory] : mutable in-memory list, used by tests and the demo command
//   - [Remote] : read-only windows over a [services.Service] listing
//   - [LocalTracks] : read-only MP3 files under a directory, read with afs and id3v2
//   - [DatabaseTracks] : mutable positional list persisted in SQLite
//   - [Throttle] : decorator applying a rate limit to any source
//
// Events are always delivered after the source has released its own lock, and never from
// inside Subscribe.
package cores
