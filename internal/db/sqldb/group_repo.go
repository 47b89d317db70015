package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
)

type groupRepo struct {
	db *sqlx.DB
}

// NewGroupRepository creates the group repository.
func NewGroupRepository(db *sqlx.DB) groups.Repository {
	return &groupRepo{db: db}
}

// GetByID retrieves one group row.
func (r *groupRepo) GetByID(ctx context.Context, id int32) (groups.Group, error) {
	group := groups.Group{}
	query := r.db.Rebind(`SELECT id, name, permissions FROM xgroups WHERE id = ?`)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&group.ID, &group.Name, &group.Permissions)
	if errors.Is(err, sql.ErrNoRows) {
		return groups.Group{}, errs.ErrNotFound
	}
	if err != nil {
		return groups.Group{}, fmt.Errorf("failed to read group: %w", err)
	}

	return group, nil
}
