package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/relationships"
)

type relationshipRepo struct {
	db *sqlx.DB
}

// NewRelationshipRepository creates the relationship repository.
func NewRelationshipRepository(db *sqlx.DB) relationships.Repository {
	return &relationshipRepo{db: db}
}

// Get retrieves the row for an unordered pair, matching either ordering.
func (r *relationshipRepo) Get(ctx context.Context, a, b string) (*relationships.Relationship, error) {
	rel := &relationships.Relationship{}
	query := r.db.Rebind(`
		SELECT one_id, two_id, status, ts FROM xrelationships
		WHERE (one_id = ? AND two_id = ?) OR (one_id = ? AND two_id = ?)`)

	err := r.db.QueryRowContext(ctx, query, a, b, b, a).
		Scan(&rel.One, &rel.Two, &rel.Status, &rel.TS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read relationship: %w", err)
	}

	return rel, nil
}

// Create inserts the row for a pair.
func (r *relationshipRepo) Create(ctx context.Context, rel *relationships.Relationship) error {
	query := r.db.Rebind(`INSERT INTO xrelationships (one_id, two_id, status, ts) VALUES (?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, rel.One, rel.Two, rel.Status, rel.TS); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("relationship already exists: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// UpdateStatus transitions the row identified by its stored ordering.
func (r *relationshipRepo) UpdateStatus(ctx context.Context, one, two string, status relationships.Status) error {
	query := r.db.Rebind(`UPDATE xrelationships SET status = ? WHERE one_id = ? AND two_id = ?`)

	result, err := r.db.ExecContext(ctx, query, status, one, two)
	if err != nil {
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check relationship update: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the row for a pair, matching either ordering.
func (r *relationshipRepo) Delete(ctx context.Context, a, b string) error {
	query := r.db.Rebind(`
		DELETE FROM xrelationships
		WHERE (one_id = ? AND two_id = ?) OR (one_id = ? AND two_id = ?)`)

	if _, err := r.db.ExecContext(ctx, query, a, b, b, a); err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return nil
}

// ListByStatus lists the user's rows in one status, either side.
func (r *relationshipRepo) ListByStatus(ctx context.Context, user string, status relationships.Status) ([]*relationships.Relationship, error) {
	query := r.db.Rebind(`
		SELECT one_id, two_id, status, ts FROM xrelationships
		WHERE (one_id = ? OR two_id = ?) AND status = ?
		ORDER BY ts DESC`)

	rows, err := r.db.QueryContext(ctx, query, user, user, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var rels []*relationships.Relationship
	for rows.Next() {
		rel := &relationships.Relationship{}
		if err := rows.Scan(&rel.One, &rel.Two, &rel.Status, &rel.TS); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}

	return rels, nil
}

// CountFriends counts the user's Friends rows.
func (r *relationshipRepo) CountFriends(ctx context.Context, user string) (int64, error) {
	var count int64
	query := r.db.Rebind(`
		SELECT COUNT(*) FROM xrelationships
		WHERE (one_id = ? OR two_id = ?) AND status = ?`)

	err := r.db.QueryRowContext(ctx, query, user, user, relationships.StatusFriends).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count friends: %w", err)
	}
	return count, nil
}
