// package repositories provides persistence for the tracks owned by the local library.
package repositories

import (
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction, committing only when fn succeeds.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// countTracks returns the number of stored tracks.
func countTracks(q interface {
	QueryRow(query string, args ...any) *sql.Row
}) (int, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM library_tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}
