package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/labels"
)

type labelRepo struct {
	db *sqlx.DB
}

// NewLabelRepository creates the label-pool repository.
func NewLabelRepository(db *sqlx.DB) labels.Repository {
	return &labelRepo{db: db}
}

// Create inserts one pool entry. Names are unique.
func (r *labelRepo) Create(ctx context.Context, label *labels.UserLabel) error {
	query := r.db.Rebind(`INSERT INTO xlabels (id, name, ts, creator_id) VALUES (?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, label.ID, label.Name, label.TS, label.CreatorID)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("label already exists: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create label: %w", err)
	}
	return nil
}

// Get retrieves one pool entry by id.
func (r *labelRepo) Get(ctx context.Context, id string) (*labels.UserLabel, error) {
	label := &labels.UserLabel{}
	query := r.db.Rebind(`SELECT id, name, ts, creator_id FROM xlabels WHERE id = ?`)

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&label.ID, &label.Name, &label.TS, &label.CreatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read label: %w", err)
	}

	return label, nil
}

// List lists the whole pool, oldest first.
func (r *labelRepo) List(ctx context.Context) ([]*labels.UserLabel, error) {
	query := `SELECT id, name, ts, creator_id FROM xlabels ORDER BY ts ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var pool []*labels.UserLabel
	for rows.Next() {
		label := &labels.UserLabel{}
		if err := rows.Scan(&label.ID, &label.Name, &label.TS, &label.CreatorID); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		pool = append(pool, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}

	return pool, nil
}

// Delete removes one pool entry.
func (r *labelRepo) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM xlabels WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check label delete: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
