package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

const trackColumns = "id, title, artist, album, track_number, disc_number, kind, duration, isrc"

// LibraryRepository persists an ordered list of [models.Track].
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Count returns the number of stored tracks.
func (r *LibraryRepository) Count() (int, error) {
	return countTracks(r.db)
}

// List returns up to limit tracks starting at position offset, in position order.
func (r *LibraryRepository) List(limit, offset int) ([]models.Track, error) {
	if limit <= 0 || offset < 0 {
		return []models.Track{}, nil
	}

	rows, err := r.db.Query(
		"SELECT "+trackColumns+" FROM library_tracks ORDER BY position ASC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// Get retrieves a track by ID.
func (r *LibraryRepository) Get(id string) (models.Track, error) {
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM library_tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return track, err
}

// Insert stores track at position, shifting the tracks at and after it. A position equal to
// the count appends. The stored track, with its generated ID, is returned.
func (r *LibraryRepository) Insert(position int, track models.Track) (models.Track, error) {
	if track.Title == "" {
		return models.Track{}, fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	}

	err := withTx(r.db, func(tx *sql.Tx) error {
		n, err := countTracks(tx)
		if err != nil {
			return err
		}
		if position < 0 || position > n {
			return fmt.Errorf("%w: %d not in [0, %d]", shared.ErrInvalidPosition, position, n)
		}

		if _, err := tx.Exec("UPDATE library_tracks SET position = position + 1 WHERE position >= ?", position); err != nil {
			return fmt.Errorf("failed to shift tracks: %w", err)
		}

		track.ID = shared.GenerateID()
		now := time.Now()
		_, err = tx.Exec(`
			INSERT INTO library_tracks (id, position, title, artist, album, track_number, disc_number, kind, duration, isrc, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			track.ID,
			position,
			track.Title,
			track.Artist,
			track.Album,
			track.TrackNumber,
			track.DiscNumber,
			string(track.Type),
			track.Duration,
			track.ISRC,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Track{}, err
	}
	return track, nil
}

// RemoveAt deletes the track at position and closes the gap. The removed track is returned.
func (r *LibraryRepository) RemoveAt(position int) (models.Track, error) {
	var removed models.Track
	err := withTx(r.db, func(tx *sql.Tx) error {
		row := tx.QueryRow("SELECT "+trackColumns+" FROM library_tracks WHERE position = ?", position)
		track, err := scanTrack(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: no track at %d", shared.ErrInvalidPosition, position)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec("DELETE FROM library_tracks WHERE id = ?", track.ID); err != nil {
			return fmt.Errorf("failed to delete track: %w", err)
		}
		if _, err := tx.Exec("UPDATE library_tracks SET position = position - 1 WHERE position > ?", position); err != nil {
			return fmt.Errorf("failed to shift tracks: %w", err)
		}

		removed = track
		return nil
	})
	return removed, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTrack scans one row selected with trackColumns.
func scanTrack(s scanner) (models.Track, error) {
	var (
		track models.Track
		kind  string
	)

	err := s.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.TrackNumber, &track.DiscNumber, &kind, &track.Duration, &track.ISRC)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, err
	}
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to scan track: %w", err)
	}

	track.Type = models.TrackType(kind)
	return track, nil
}
