package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/shared"
)

// sequenced lists the tables that own a <table>_sequence counter row.
var sequenced = map[string]bool{
	"sessions": true,
}

// NextSequence bumps the counter for table inside tx and returns the new value.
//
// Sessions are numbered so List output and log lines read in creation order. The number stays on the host.
// Running it in the caller's transaction means a failed insert does not burn a value.
func NextSequence(tx *sql.Tx, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("%w: no sequence for table %q", shared.ErrInvalidArgument, table)
	}

	var sequence int
	err := tx.QueryRow("UPDATE " + table + "_sequence SET value = value + 1 WHERE id = 1 RETURNING value").Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}

	return sequence, nil
}

// withTx runs fn in a transaction and commits only when fn succeeds.
func withTx(db *sql.DB, fn func(*sql.Tx) error) error {
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
