// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/services"
)

// MockService is a test double for [services.Service] backed by in-memory slices.
//
// Fail, when set, is returned by every call.
type MockService struct {
	Saved     []models.Track
	Lists     []models.Playlist
	ListItems map[string][]models.Track
	Fail      error

	mu    sync.Mutex
	calls []Window
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.Fail
}

func (m *MockService) LibraryTracks(ctx context.Context, limit, offset int) (*services.TrackPage, error) {
	m.record(limit, offset)
	if m.Fail != nil {
		return nil, m.Fail
	}
	return &services.TrackPage{Items: slice(m.Saved, limit, offset), Total: len(m.Saved)}, nil
}

func (m *MockService) Playlists(ctx context.Context, limit, offset int) (*services.PlaylistPage, error) {
	m.record(limit, offset)
	if m.Fail != nil {
		return nil, m.Fail
	}
	return &services.PlaylistPage{Items: slice(m.Lists, limit, offset), Total: len(m.Lists)}, nil
}

func (m *MockService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*services.TrackPage, error) {
	m.record(limit, offset)
	if m.Fail != nil {
		return nil, m.Fail
	}
	tracks := m.ListItems[playlistID]
	return &services.TrackPage{Items: slice(tracks, limit, offset), Total: len(tracks)}, nil
}

func (m *MockService) Name() string { return "mock" }

// Calls returns every window requested so far.
func (m *MockService) Calls() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Window(nil), m.calls...)
}

func (m *MockService) record(limit, offset int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Window{Limit: limit, Offset: offset})
}

func slice[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) || limit <= 0 {
		return []T{}
	}
	return append([]T(nil), items[offset:min(offset+limit, len(items))]...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
