package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// MoveLogEntry is one applied position change. Written in the same transaction as the
// change itself.
type MoveLogEntry struct {
	Zone            string
	EstablishmentID string
	FromRow         *int
	FromCol         *int
	ToRow           *int
	ToCol           *int
	SwapWith        string
	Editor          string
	RequestID       string
	CreatedAt       time.Time
}

type MoveLogRepo struct {
	db *DB
}

func NewMoveLogRepo(db *DB) *MoveLogRepo {
	return &MoveLogRepo{db: db}
}

// writeMoveLog inserts a batch of entries inside tx.
func writeMoveLog(ctx context.Context, tx pgx.Tx, entries []MoveLogEntry) error {
	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO grid_move_log (zone, establishment_id, from_row, from_col, to_row, to_col, swap_with, editor, request_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.Zone, e.EstablishmentID, e.FromRow, e.FromCol, e.ToRow, e.ToCol, e.SwapWith, e.Editor, e.RequestID,
		); err != nil {
			return fmt.Errorf("move log insert: %w", err)
		}
	}
	return nil
}

// Recent returns the newest log entries for a zone.
func (r *MoveLogRepo) Recent(ctx context.Context, zone string, limit int) ([]MoveLogEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT zone, establishment_id, from_row, from_col, to_row, to_col, swap_with, editor, request_id, created_at
		 FROM grid_move_log WHERE zone = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, zone, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MoveLogEntry
	for rows.Next() {
		var e MoveLogEntry
		if err := rows.Scan(&e.Zone, &e.EstablishmentID, &e.FromRow, &e.FromCol, &e.ToRow, &e.ToCol,
			&e.SwapWith, &e.Editor, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
