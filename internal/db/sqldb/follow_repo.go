package sqldb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/follows"
)

type followRepo struct {
	db *sqlx.DB
}

// NewFollowRepository creates the follow repository.
func NewFollowRepository(db *sqlx.DB) follows.Repository {
	return &followRepo{db: db}
}

// Exists reports whether user follows following.
func (r *followRepo) Exists(ctx context.Context, user, following string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM xfollows WHERE user_id = ? AND following_id = ?`)

	if err := r.db.QueryRowContext(ctx, query, user, following).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return count > 0, nil
}

// Create inserts a follow edge.
func (r *followRepo) Create(ctx context.Context, edge *follows.UserFollow) error {
	query := r.db.Rebind(`INSERT INTO xfollows (user_id, following_id) VALUES (?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, edge.User, edge.Following); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("already following: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create follow edge: %w", err)
	}
	return nil
}

// Delete removes a follow edge. Removing an absent edge is not an error.
func (r *followRepo) Delete(ctx context.Context, user, following string) error {
	query := r.db.Rebind(`DELETE FROM xfollows WHERE user_id = ? AND following_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, user, following); err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}
	return nil
}

// ListFollowers lists the edges pointing at id.
func (r *followRepo) ListFollowers(ctx context.Context, id string) ([]*follows.UserFollow, error) {
	query := r.db.Rebind(`SELECT user_id, following_id FROM xfollows WHERE following_id = ?`)
	return r.list(ctx, query, id)
}

// ListFollowing lists the edges starting at id.
func (r *followRepo) ListFollowing(ctx context.Context, id string) ([]*follows.UserFollow, error) {
	query := r.db.Rebind(`SELECT user_id, following_id FROM xfollows WHERE user_id = ?`)
	return r.list(ctx, query, id)
}

// CountFollowers counts edges pointing at id.
func (r *followRepo) CountFollowers(ctx context.Context, id string) (int64, error) {
	return r.count(ctx, r.db.Rebind(`SELECT COUNT(*) FROM xfollows WHERE following_id = ?`), id)
}

// CountFollowing counts edges starting at id.
func (r *followRepo) CountFollowing(ctx context.Context, id string) (int64, error) {
	return r.count(ctx, r.db.Rebind(`SELECT COUNT(*) FROM xfollows WHERE user_id = ?`), id)
}

func (r *followRepo) list(ctx context.Context, query, id string) ([]*follows.UserFollow, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow edges: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var edges []*follows.UserFollow
	for rows.Next() {
		edge := &follows.UserFollow{}
		if err := rows.Scan(&edge.User, &edge.Following); err != nil {
			return nil, fmt.Errorf("failed to scan follow edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow edges: %w", err)
	}

	return edges, nil
}

func (r *followRepo) count(ctx context.Context, query, id string) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count follow edges: %w", err)
	}
	return count, nil
}
