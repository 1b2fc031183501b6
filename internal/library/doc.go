// Package library merges the item kinds of several cores into one view per kind.
//
// A [Library] owns one merged collection each for tracks, albums, artists and playlists, plus the
// membership handles that add and remove cores. Nothing else can change which cores feed a collection.
//
// Fold policies decide when items from different cores are the same entity:
//   - albums and artists fold on their normalized name
//   - tracks fold on title, track number, type, disc number, duration and album name
//   - playlists, images and users never fold
//   - search results always fold
//
// Tracks do not hold their merged album. The [Index] maps merged album IDs to items and links a
// track to its album by name.
package library
