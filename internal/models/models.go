package models

import "fmt"

// TrackType distinguishes recordings that share a title.
type TrackType string

const (
	TrackTypeSong    TrackType = "song"
	TrackTypeVideo   TrackType = "video"
	TrackTypePodcast TrackType = "podcast"
)

// Track represents a music track from any core.
type Track struct {
	ID          string
	Title       string
	Artist      string
	Album       string
	AlbumID     string // merged album id; resolve through library.Index
	TrackNumber int
	DiscNumber  int
	Type        TrackType
	Duration    int    // Duration in seconds
	ISRC        string // International Standard Recording Code for matching
}

// Identity is unique within one core.
func (t Track) Identity() string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("%s|%s|%d|%d", t.Title, t.Album, t.DiscNumber, t.TrackNumber)
}

func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// Album represents an album from any core.
type Album struct {
	ID         string
	Name       string
	Artist     string
	Year       int
	TrackCount int
}

func (a Album) Identity() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Artist + "|" + a.Name
}

// Artist represents an artist from any core.
type Artist struct {
	ID   string
	Name string
}

func (a Artist) Identity() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Name
}

// Playlist represents a music playlist from any core.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

func (p Playlist) Identity() string {
	return p.ID
}

// Image is artwork referenced by URL.
type Image struct {
	URL    string
	Width  int
	Height int
}

func (i Image) Identity() string {
	return i.URL
}

// User is a profile on one core.
type User struct {
	ID          string
	DisplayName string
}

func (u User) Identity() string {
	return u.ID
}

// SearchResult is one hit of a search query.
type SearchResult struct {
	ID    string
	Query string
	Kind  string
	Title string
}

func (s SearchResult) Identity() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Kind + "|" + s.Title
}

// Identifiable is implemented by every item kind.
type Identifiable interface {
	Identity() string
}

// IdentityOf adapts Identity for use as a merge identify func.
func IdentityOf[T Identifiable](v T) string {
	return v.Identity()
}
