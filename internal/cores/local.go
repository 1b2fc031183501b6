package cores

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/bogem/id3v2"
	"github.com/charmbracelet/log"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

// LocalTracks is a read-only source over the MP3 files under a directory, ordered by path.
//
// Tracks are read from ID3v2 tags; the file URL is the track ID. Files without a title tag use
// their file name. The albums and artists named by the tags are kept in two companion sources
// that share the same ID.
type LocalTracks struct {
	id     string
	root   string
	fs     afs.Service
	logger *log.Logger

	mu     sync.RWMutex
	tracks []models.Track
	events merge.Hub[merge.SourceEvent[models.Track]]

	albums  *Memory[models.Album]
	artists *Memory[models.Artist]
}

// NewLocalTracks creates an empty source; call [LocalTracks.Scan] to load the directory.
func NewLocalTracks(id, root string, logger *log.Logger) *LocalTracks {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LocalTracks{
		id:      id,
		root:    root,
		fs:      afs.New(),
		logger:  logger,
		albums:  NewReadOnlyMemory[models.Album](id),
		artists: NewReadOnlyMemory[models.Artist](id),
	}
}

// Albums is the source of albums found by the last scan, ordered by artist and name.
func (l *LocalTracks) Albums() *Memory[models.Album] { return l.albums }

// Artists is the source of artists found by the last scan, ordered by name.
func (l *LocalTracks) Artists() *Memory[models.Artist] { return l.artists }

// Scan walks the directory and replaces the contents when the file set changed.
func (l *LocalTracks) Scan(ctx context.Context) error {
	var files []string
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return !strings.HasPrefix(info.Name(), "."), nil
		}
		if strings.EqualFold(path.Ext(info.Name()), ".mp3") {
			dir := baseURL
			if parent != "" {
				dir = url.Join(baseURL, parent)
			}
			files = append(files, url.Join(dir, info.Name()))
		}
		return true, nil
	}
	if err := l.fs.Walk(ctx, l.root, visitor); err != nil {
		return fmt.Errorf("scan %s: %w", l.root, err)
	}
	slices.Sort(files)

	tracks := make([]models.Track, 0, len(files))
	for _, file := range files {
		track, err := l.read(ctx, file)
		if err != nil {
			l.logger.Warn("skipping unreadable file", "file", file, "err", err)
			continue
		}
		tracks = append(tracks, track)
	}

	if albums := albumsOf(tracks); !slices.Equal(albums, l.albums.Items()) {
		l.albums.Replace(albums...)
	}
	if artists := artistsOf(tracks); !slices.Equal(artists, l.artists.Items()) {
		l.artists.Replace(artists...)
	}

	l.mu.Lock()
	before := l.tracks
	if slices.Equal(trackIDs(before), trackIDs(tracks)) {
		l.tracks = tracks
		l.mu.Unlock()
		return nil
	}
	l.tracks = tracks
	l.mu.Unlock()

	l.logger.Debug("local library scanned", "root", l.root, "tracks", len(tracks))
	l.events.Publish(replaced(before, slices.Clone(tracks)))
	return nil
}

func (l *LocalTracks) read(ctx context.Context, file string) (models.Track, error) {
	data, err := l.fs.DownloadWithURL(ctx, file)
	if err != nil {
		return models.Track{}, err
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return models.Track{}, err
	}
	return trackFromTag(file, tag), nil
}

func trackFromTag(file string, tag *id3v2.Tag) models.Track {
	track := models.Track{
		ID:     file,
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
		Album:  strings.TrimSpace(tag.Album()),
		Type:   models.TrackTypeSong,
	}
	if track.Title == "" {
		name := path.Base(file)
		track.Title = strings.TrimSuffix(name, path.Ext(name))
	}
	track.TrackNumber = leadingNumber(tag.GetTextFrame("TRCK").Text)
	track.DiscNumber = leadingNumber(tag.GetTextFrame("TPOS").Text)
	if ms := leadingNumber(tag.GetTextFrame("TLEN").Text); ms > 0 {
		track.Duration = ms / 1000
	}
	track.ISRC = strings.TrimSpace(tag.GetTextFrame("TSRC").Text)
	return track
}

// leadingNumber parses "3" and "3/12" as 3.
func leadingNumber(s string) int {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func albumsOf(tracks []models.Track) []models.Album {
	seen := make(map[string]int)
	var albums []models.Album
	for _, t := range tracks {
		if t.Album == "" {
			continue
		}
		key := strings.ToLower(t.Artist + "|" + t.Album)
		if i, ok := seen[key]; ok {
			albums[i].TrackCount++
			continue
		}
		seen[key] = len(albums)
		albums = append(albums, models.Album{Name: t.Album, Artist: t.Artist, TrackCount: 1})
	}
	slices.SortFunc(albums, func(a, b models.Album) int {
		if c := strings.Compare(a.Artist, b.Artist); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return albums
}

func artistsOf(tracks []models.Track) []models.Artist {
	seen := make(map[string]bool)
	var artists []models.Artist
	for _, t := range tracks {
		key := strings.ToLower(t.Artist)
		if t.Artist == "" || seen[key] {
			continue
		}
		seen[key] = true
		artists = append(artists, models.Artist{Name: t.Artist})
	}
	slices.SortFunc(artists, func(a, b models.Artist) int { return strings.Compare(a.Name, b.Name) })
	return artists
}

func trackIDs(tracks []models.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func (l *LocalTracks) ID() string { return l.id }

func (l *LocalTracks) TotalCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

func (l *LocalTracks) GetItems(ctx context.Context, limit, offset int) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return window(l.tracks, limit, offset), nil
}

func (l *LocalTracks) CanAdd(ctx context.Context, index int) (bool, error)    { return false, nil }
func (l *LocalTracks) CanRemove(ctx context.Context, index int) (bool, error) { return false, nil }

func (l *LocalTracks) Add(ctx context.Context, track models.Track, index int) error {
	return fmt.Errorf("%w: %s", shared.ErrReadOnly, l.id)
}

func (l *LocalTracks) Remove(ctx context.Context, index int) error {
	return fmt.Errorf("%w: %s", shared.ErrReadOnly, l.id)
}

func (l *LocalTracks) Subscribe(fn func(merge.SourceEvent[models.Track])) func() {
	return l.events.Subscribe(fn)
}
