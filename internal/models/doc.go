// Package models defines the item kinds shared by every core of the unison library.
//
// Each core reports its own representation of an item:
//   - [Track] : Song metadata with ISRC and album position for cross-core matching
//   - [Album], [Artist] : Catalog entities folded by normalized name
//   - [Playlist] : Playlist metadata; playlists from different cores are never folded
//   - [Image], [User], [SearchResult] : Kinds with fixed fold policies
//
// All kinds implement [Identifiable]. Identity only needs to be unique within one core; the merge engine
// pairs it with the core's source id.
//
// Tracks refer to their merged album through AlbumID instead of holding the album itself, so no
// merged entity owns another.
package models
