package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func titles(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func seed(t *testing.T, repo *LibraryRepository, names ...string) {
	t.Helper()
	for i, name := range names {
		if _, err := repo.Insert(i, models.Track{Title: name}); err != nil {
			t.Fatalf("failed to insert %s: %v", name, err)
		}
	}
}

func TestLibraryRepository(t *testing.T) {
	t.Run("Insert", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))

		stored, err := repo.Insert(0, models.Track{
			Title:       "One",
			Artist:      "U2",
			Album:       "Achtung Baby",
			TrackNumber: 3,
			DiscNumber:  1,
			Type:        models.TrackTypeSong,
			Duration:    276,
			ISRC:        "GBUM71029604",
		})
		if err != nil {
			t.Fatalf("failed to insert track: %v", err)
		}
		if stored.ID == "" {
			t.Fatal("track ID should be set after insert")
		}

		got, err := repo.Get(stored.ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if got != stored {
			t.Errorf("expected %+v, got %+v", stored, got)
		}
	})

	t.Run("Insert shifts positions", func(t *testing.T) {
		tests := []struct {
			name     string
			position int
			want     []string
		}{
			{"front", 0, []string{"x", "a", "b", "c"}},
			{"middle", 1, []string{"a", "x", "b", "c"}},
			{"append", 3, []string{"a", "b", "c", "x"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := NewLibraryRepository(setupTestDB(t))
				seed(t, repo, "a", "b", "c")

				if _, err := repo.Insert(tt.position, models.Track{Title: "x"}); err != nil {
					t.Fatalf("failed to insert: %v", err)
				}

				tracks, err := repo.List(10, 0)
				if err != nil {
					t.Fatalf("failed to list: %v", err)
				}
				if got := titles(tracks); !equal(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			})
		}
	})

	t.Run("Insert rejects invalid input", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		seed(t, repo, "a")

		if _, err := repo.Insert(2, models.Track{Title: "x"}); !errors.Is(err, shared.ErrInvalidPosition) {
			t.Errorf("expected ErrInvalidPosition, got %v", err)
		}
		if _, err := repo.Insert(-1, models.Track{Title: "x"}); !errors.Is(err, shared.ErrInvalidPosition) {
			t.Errorf("expected ErrInvalidPosition, got %v", err)
		}
		if _, err := repo.Insert(0, models.Track{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}

		if n, _ := repo.Count(); n != 1 {
			t.Errorf("expected failed inserts to leave 1 track, got %d", n)
		}
	})

	t.Run("RemoveAt", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		seed(t, repo, "a", "b", "c")

		removed, err := repo.RemoveAt(1)
		if err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if removed.Title != "b" {
			t.Errorf("expected to remove b, got %s", removed.Title)
		}

		tracks, _ := repo.List(10, 0)
		if got := titles(tracks); !equal(got, []string{"a", "c"}) {
			t.Errorf("expected [a c], got %v", got)
		}

		if _, err := repo.Get(removed.ID); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if _, err := repo.RemoveAt(2); !errors.Is(err, shared.ErrInvalidPosition) {
			t.Errorf("expected ErrInvalidPosition, got %v", err)
		}
	})

	t.Run("List windows", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		seed(t, repo, "a", "b", "c", "d")

		tests := []struct {
			name          string
			limit, offset int
			want          []string
		}{
			{"head", 2, 0, []string{"a", "b"}},
			{"tail", 3, 2, []string{"c", "d"}},
			{"past end", 2, 9, []string{}},
			{"zero limit", 0, 0, []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tracks, err := repo.List(tt.limit, tt.offset)
				if err != nil {
					t.Fatalf("failed to list: %v", err)
				}
				if got := titles(tracks); !equal(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			})
		}
	})

	t.Run("Count", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))
		if n, err := repo.Count(); err != nil || n != 0 {
			t.Fatalf("expected empty table, got %d (%v)", n, err)
		}
		seed(t, repo, "a", "b")
		if n, _ := repo.Count(); n != 2 {
			t.Errorf("expected 2 tracks, got %d", n)
		}
	})
}
