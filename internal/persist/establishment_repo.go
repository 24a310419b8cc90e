package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// EstablishmentRow is one establishment placed (or not yet placed) on a zone grid.
type EstablishmentRow struct {
	ID        string
	Zone      string
	Name      string
	Category  string
	Icon      string
	GridRow   *int
	GridCol   *int
	UpdatedAt time.Time
}

// MoveRequest is a validated move or swap.
type MoveRequest struct {
	Zone       string
	ID         string
	Row        int
	Col        int
	SwapWithID string
	Editor     string
	RequestID  string
}

// Placement is an establishment's position after a move.
type Placement struct {
	ID  string `json:"id"`
	Row *int   `json:"grid_row"`
	Col *int   `json:"grid_col"`
}

type EstablishmentRepo struct {
	db *DB
}

func NewEstablishmentRepo(db *DB) *EstablishmentRepo {
	return &EstablishmentRepo{db: db}
}

const establishmentColumns = `id, zone, name, category, icon, grid_row, grid_col, updated_at`

func scanEstablishment(row pgx.Row) (*EstablishmentRow, error) {
	e := &EstablishmentRow{}
	err := row.Scan(&e.ID, &e.Zone, &e.Name, &e.Category, &e.Icon, &e.GridRow, &e.GridCol, &e.UpdatedAt)
	return e, err
}

// List returns the placed establishments of a zone.
func (r *EstablishmentRepo) List(ctx context.Context, zone string) ([]EstablishmentRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+establishmentColumns+` FROM establishments
		 WHERE zone = $1 AND grid_row IS NOT NULL
		 ORDER BY grid_row, grid_col`, zone,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EstablishmentRow
	for rows.Next() {
		e, err := scanEstablishment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EstablishmentRepo) Get(ctx context.Context, id string) (*EstablishmentRow, error) {
	e, err := scanEstablishment(r.db.Pool.QueryRow(ctx,
		`SELECT `+establishmentColumns+` FROM establishments WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ApplyMove moves an establishment to (Row, Col), swapping with SwapWithID when that
// establishment holds the target cell. Rows are locked for the duration of the
// transaction and every change is written to grid_move_log.
func (r *EstablishmentRepo) ApplyMove(ctx context.Context, req MoveRequest) ([]Placement, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("move begin: %w", err)
	}
	defer tx.Rollback(ctx)

	mover, err := scanEstablishment(tx.QueryRow(ctx,
		`SELECT `+establishmentColumns+` FROM establishments WHERE id = $1 FOR UPDATE`, req.ID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock mover: %w", err)
	}
	if mover.Zone != req.Zone {
		return nil, ErrNotFound
	}

	var occupant string
	err = tx.QueryRow(ctx,
		`SELECT id FROM establishments
		 WHERE zone = $1 AND grid_row = $2 AND grid_col = $3 AND id <> $4
		 FOR UPDATE`, req.Zone, req.Row, req.Col, req.ID,
	).Scan(&occupant)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lock target cell: %w", err)
	}

	switch {
	case occupant == "" && req.SwapWithID != "":
		// The swap partner left the cell since the client looked.
		return nil, fmt.Errorf("%w: %s no longer at (%d,%d)", ErrConflict, req.SwapWithID, req.Row, req.Col)
	case occupant != "" && occupant != req.SwapWithID:
		return nil, fmt.Errorf("%w: (%d,%d) held by %s", ErrConflict, req.Row, req.Col, occupant)
	}

	row, col := req.Row, req.Col
	placements := []Placement{{ID: req.ID, Row: &row, Col: &col}}
	logs := []MoveLogEntry{{
		Zone: req.Zone, EstablishmentID: req.ID,
		FromRow: mover.GridRow, FromCol: mover.GridCol, ToRow: &row, ToCol: &col,
		SwapWith: occupant, Editor: req.Editor, RequestID: req.RequestID,
	}}

	if occupant != "" {
		// Vacate the mover's cell first so the unique index never sees two rows on one cell.
		if err := setPosition(ctx, tx, req.ID, nil, nil); err != nil {
			return nil, err
		}
		if err := setPosition(ctx, tx, occupant, mover.GridRow, mover.GridCol); err != nil {
			return nil, err
		}
		placements = append(placements, Placement{ID: occupant, Row: mover.GridRow, Col: mover.GridCol})
		logs = append(logs, MoveLogEntry{
			Zone: req.Zone, EstablishmentID: occupant,
			FromRow: &row, FromCol: &col, ToRow: mover.GridRow, ToCol: mover.GridCol,
			SwapWith: req.ID, Editor: req.Editor, RequestID: req.RequestID,
		})
	}
	if err := setPosition(ctx, tx, req.ID, &row, &col); err != nil {
		return nil, err
	}
	if err := writeMoveLog(ctx, tx, logs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("move commit: %w", err)
	}
	return placements, nil
}

func setPosition(ctx context.Context, tx pgx.Tx, id string, row, col *int) error {
	_, err := tx.Exec(ctx,
		`UPDATE establishments SET grid_row = $2, grid_col = $3, updated_at = NOW() WHERE id = $1`,
		id, row, col,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("update position %s: %w", id, err)
	}
	return nil
}

// Upsert inserts or replaces an establishment, including its position. Used by the
// seed tool; editors move establishments through ApplyMove.
func (r *EstablishmentRepo) Upsert(ctx context.Context, e EstablishmentRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO establishments (id, zone, name, category, icon, grid_row, grid_col)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   zone = EXCLUDED.zone, name = EXCLUDED.name, category = EXCLUDED.category,
		   icon = EXCLUDED.icon, grid_row = EXCLUDED.grid_row, grid_col = EXCLUDED.grid_col,
		   updated_at = NOW()`,
		e.ID, e.Zone, e.Name, e.Category, e.Icon, e.GridRow, e.GridCol,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s at (%v,%v)", ErrConflict, e.ID, deref(e.GridRow), deref(e.GridCol))
	}
	if err != nil {
		return fmt.Errorf("upsert establishment %s: %w", e.ID, err)
	}
	return nil
}

func deref(p *int) any {
	if p == nil {
		return "-"
	}
	return *p
}
