package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/bans"
	"rbeam/internal/core/errs"
)

type banRepo struct {
	db *sqlx.DB
}

// NewBanRepository creates the ban repository. It persists both global
// IP bans and per-user IP blocks.
func NewBanRepository(db *sqlx.DB) bans.Repository {
	return &banRepo{db: db}
}

// CreateBan inserts one ban row. IPs are unique.
func (r *banRepo) CreateBan(ctx context.Context, ban *bans.IpBan) error {
	query := r.db.Rebind(`
		INSERT INTO xbans (id, ip, reason, moderator_id, ts)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, ban.ID, ban.IP, ban.Reason, ban.ModeratorID, ban.TS)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("ip is already banned: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create ban: %w", err)
	}
	return nil
}

// GetBan retrieves one ban by id.
func (r *banRepo) GetBan(ctx context.Context, id string) (*bans.IpBan, error) {
	query := r.db.Rebind(`SELECT id, ip, reason, moderator_id, ts FROM xbans WHERE id = ?`)
	return r.scanBan(r.db.QueryRowContext(ctx, query, id))
}

// GetBanByIP retrieves the ban covering one source address.
func (r *banRepo) GetBanByIP(ctx context.Context, ip string) (*bans.IpBan, error) {
	query := r.db.Rebind(`SELECT id, ip, reason, moderator_id, ts FROM xbans WHERE ip = ?`)
	return r.scanBan(r.db.QueryRowContext(ctx, query, ip))
}

// ListBans lists every ban, newest first.
func (r *banRepo) ListBans(ctx context.Context) ([]*bans.IpBan, error) {
	query := `SELECT id, ip, reason, moderator_id, ts FROM xbans ORDER BY ts DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var entries []*bans.IpBan
	for rows.Next() {
		ban := &bans.IpBan{}
		if err := rows.Scan(&ban.ID, &ban.IP, &ban.Reason, &ban.ModeratorID, &ban.TS); err != nil {
			return nil, fmt.Errorf("failed to scan ban: %w", err)
		}
		entries = append(entries, ban)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bans: %w", err)
	}

	return entries, nil
}

// DeleteBan removes one ban.
func (r *banRepo) DeleteBan(ctx context.Context, id string) error {
	return r.deleteRow(ctx, `DELETE FROM xbans WHERE id = ?`, "ban", id)
}

// CreateBlock inserts one block row, unique per (user, ip).
func (r *banRepo) CreateBlock(ctx context.Context, block *bans.IpBlock) error {
	query := r.db.Rebind(`INSERT INTO xipblocks (id, ip, user_id, ts) VALUES (?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, block.ID, block.IP, block.UserID, block.TS)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("ip is already blocked: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create block: %w", err)
	}
	return nil
}

// GetBlock retrieves one block by id.
func (r *banRepo) GetBlock(ctx context.Context, id string) (*bans.IpBlock, error) {
	query := r.db.Rebind(`SELECT id, ip, user_id, ts FROM xipblocks WHERE id = ?`)
	return r.scanBlock(r.db.QueryRowContext(ctx, query, id))
}

// GetBlockByUserIP retrieves the block one user holds against one address.
func (r *banRepo) GetBlockByUserIP(ctx context.Context, userID, ip string) (*bans.IpBlock, error) {
	query := r.db.Rebind(`SELECT id, ip, user_id, ts FROM xipblocks WHERE user_id = ? AND ip = ?`)
	return r.scanBlock(r.db.QueryRowContext(ctx, query, userID, ip))
}

// ListBlocksByUser lists one user's blocks, newest first.
func (r *banRepo) ListBlocksByUser(ctx context.Context, userID string) ([]*bans.IpBlock, error) {
	query := r.db.Rebind(`SELECT id, ip, user_id, ts FROM xipblocks WHERE user_id = ? ORDER BY ts DESC`)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var entries []*bans.IpBlock
	for rows.Next() {
		block := &bans.IpBlock{}
		if err := rows.Scan(&block.ID, &block.IP, &block.UserID, &block.TS); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		entries = append(entries, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}

	return entries, nil
}

// DeleteBlock removes one block.
func (r *banRepo) DeleteBlock(ctx context.Context, id string) error {
	return r.deleteRow(ctx, `DELETE FROM xipblocks WHERE id = ?`, "block", id)
}

func (r *banRepo) scanBan(row rowScanner) (*bans.IpBan, error) {
	ban := &bans.IpBan{}
	err := row.Scan(&ban.ID, &ban.IP, &ban.Reason, &ban.ModeratorID, &ban.TS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ban: %w", err)
	}
	return ban, nil
}

func (r *banRepo) scanBlock(row rowScanner) (*bans.IpBlock, error) {
	block := &bans.IpBlock{}
	err := row.Scan(&block.ID, &block.IP, &block.UserID, &block.TS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read block: %w", err)
	}
	return block, nil
}

func (r *banRepo) deleteRow(ctx context.Context, query, kind, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s delete: %w", kind, err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
