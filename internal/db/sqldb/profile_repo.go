package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/profiles"
)

const profileColumns = `id, username, password_hash, salt, tokens, ips, token_contexts, metadata, badges, group_id, joined, tier, labels, coins`

type profileRepo struct {
	db *sqlx.DB
}

// NewProfileRepository creates the profile repository.
func NewProfileRepository(db *sqlx.DB) profiles.Repository {
	return &profileRepo{db: db}
}

// Create inserts a new profile row.
func (r *profileRepo) Create(ctx context.Context, profile *profiles.Profile) error {
	tokens, err := encodeJSON(profile.Tokens)
	if err != nil {
		return err
	}
	ips, err := encodeJSON(profile.IPs)
	if err != nil {
		return err
	}
	contexts, err := encodeJSON(profile.TokenContexts)
	if err != nil {
		return err
	}
	metadata, err := encodeJSON(profile.Metadata)
	if err != nil {
		return err
	}
	badges, err := encodeJSON(profile.Badges)
	if err != nil {
		return err
	}
	labels, err := encodeJSON(profile.Labels)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO xprofiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		profile.ID, profile.Username, profile.PasswordHash, profile.Salt,
		tokens, ips, contexts, metadata, badges,
		profile.GroupID, profile.JoinedMs, profile.Tier, labels, profile.Coins)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("username is taken: %w", errs.ErrMustBeUnique)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by its id.
func (r *profileRepo) GetByID(ctx context.Context, id string) (*profiles.Profile, error) {
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM xprofiles WHERE id = ?`)
	return r.scanProfile(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a profile by its username.
func (r *profileRepo) GetByUsername(ctx context.Context, username string) (*profiles.Profile, error) {
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM xprofiles WHERE username = ?`)
	return r.scanProfile(r.db.QueryRowContext(ctx, query, username))
}

// GetByTokenHash finds the profile whose serialized tokens array contains
// the hash. The hash is quoted so the match can only hit an array element.
func (r *profileRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*profiles.Profile, error) {
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM xprofiles WHERE tokens LIKE ?`)
	return r.scanProfile(r.db.QueryRowContext(ctx, query, `%"`+tokenHash+`"%`))
}

// UpdateSessions rewrites the three parallel session arrays in one
// statement so they can never drift apart mid-write.
func (r *profileRepo) UpdateSessions(ctx context.Context, id string, tokens, ips []string, contexts []profiles.TokenContext) error {
	encodedTokens, err := encodeJSON(tokens)
	if err != nil {
		return err
	}
	encodedIPs, err := encodeJSON(ips)
	if err != nil {
		return err
	}
	encodedContexts, err := encodeJSON(contexts)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`UPDATE xprofiles SET tokens = ?, ips = ?, token_contexts = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update sessions", encodedTokens, encodedIPs, encodedContexts, id)
}

// UpdatePassword replaces the credential pair.
func (r *profileRepo) UpdatePassword(ctx context.Context, id, passwordHash, salt string) error {
	query := r.db.Rebind(`UPDATE xprofiles SET password_hash = ?, salt = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update password", passwordHash, salt, id)
}

// UpdateUsername renames the account.
func (r *profileRepo) UpdateUsername(ctx context.Context, id, username string) error {
	query := r.db.Rebind(`UPDATE xprofiles SET username = ? WHERE id = ?`)
	if err := r.exec(ctx, query, "failed to update username", username, id); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("username is taken: %w", errs.ErrMustBeUnique)
		}
		return err
	}
	return nil
}

// UpdateMetadata replaces the metadata document.
func (r *profileRepo) UpdateMetadata(ctx context.Context, id string, metadata profiles.Metadata) error {
	encoded, err := encodeJSON(metadata)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`UPDATE xprofiles SET metadata = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update metadata", encoded, id)
}

// UpdateBadges replaces the badge list.
func (r *profileRepo) UpdateBadges(ctx context.Context, id string, badges []profiles.Badge) error {
	encoded, err := encodeJSON(badges)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`UPDATE xprofiles SET badges = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update badges", encoded, id)
}

// UpdateLabels replaces the assigned label list.
func (r *profileRepo) UpdateLabels(ctx context.Context, id string, labels []string) error {
	encoded, err := encodeJSON(labels)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`UPDATE xprofiles SET labels = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update labels", encoded, id)
}

// UpdateGroup moves the account to another permission group.
func (r *profileRepo) UpdateGroup(ctx context.Context, id string, groupID int32) error {
	query := r.db.Rebind(`UPDATE xprofiles SET group_id = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update group", groupID, id)
}

// UpdateTier sets the supporter tier.
func (r *profileRepo) UpdateTier(ctx context.Context, id string, tier int32) error {
	query := r.db.Rebind(`UPDATE xprofiles SET tier = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update tier", tier, id)
}

// AdjustCoins applies a signed delta in a single row update. The database
// serializes concurrent deltas.
func (r *profileRepo) AdjustCoins(ctx context.Context, id string, delta int32) error {
	query := r.db.Rebind(`UPDATE xprofiles SET coins = coins + ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to adjust coins", delta, id)
}

type cascadeStep struct {
	table string
	query string
}

// Ordered so referencing rows go before the rows they reference; the
// orphan sweep on xresponses must run while the user's xquestions rows
// still exist. Every ? binds the profile id.
var cascadeSteps = []cascadeStep{
	{"xnotifications", `DELETE FROM xnotifications WHERE recipient = ?`},
	{"xwarnings", `DELETE FROM xwarnings WHERE recipient = ?`},
	{"xfollows", `DELETE FROM xfollows WHERE user_id = ? OR following_id = ?`},
	{"xrelationships", `DELETE FROM xrelationships WHERE one_id = ? OR two_id = ?`},
	{"xipblocks", `DELETE FROM xipblocks WHERE user_id = ?`},
	{"xugc_transactions", `DELETE FROM xugc_transactions WHERE customer_id = ? OR merchant_id = ?`},
	{"xugc_items", `DELETE FROM xugc_items WHERE creator_id = ?`},
	{"xresponses", `DELETE FROM xresponses WHERE author_id = ?`},
	{"xresponses", `DELETE FROM xresponses WHERE question_id IN (SELECT id FROM xquestions WHERE author_id = ? OR recipient_id = ?)`},
	{"xquestions", `DELETE FROM xquestions WHERE author_id = ? OR recipient_id = ?`},
	{"xcircle_memberships", `DELETE FROM xcircle_memberships WHERE member_id = ?`},
	{"xcircles", `DELETE FROM xcircles WHERE owner_id = ?`},
}

// DeleteCascade removes the profile and every row referencing it, in one
// transaction.
func (r *profileRepo) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start cascade for id=%s: %w", id, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("failed to rollback cascade",
				slog.String("id", id),
				slog.String("error", err.Error()))
		}
	}()

	for _, step := range cascadeSteps {
		args := make([]any, strings.Count(step.query, "?"))
		for i := range args {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(step.query), args...); err != nil {
			return fmt.Errorf("failed to cascade %s for id=%s: %w", step.table, id, err)
		}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM xprofiles WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete profile id=%s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cascade result for id=%s: %w", id, err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cascade for id=%s: %w", id, err)
	}
	return nil
}

func (r *profileRepo) exec(ctx context.Context, query, action string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isDuplicate(err) {
			return err
		}
		return fmt.Errorf("%s: %w", action, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *profileRepo) scanProfile(row rowScanner) (*profiles.Profile, error) {
	profile := &profiles.Profile{}
	var tokens, ips, contexts, metadata, badges, labels string

	err := row.Scan(&profile.ID, &profile.Username, &profile.PasswordHash, &profile.Salt,
		&tokens, &ips, &contexts, &metadata, &badges,
		&profile.GroupID, &profile.JoinedMs, &profile.Tier, &labels, &profile.Coins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := decodeJSON(tokens, &profile.Tokens); err != nil {
		return nil, err
	}
	if err := decodeJSON(ips, &profile.IPs); err != nil {
		return nil, err
	}
	if err := decodeJSON(contexts, &profile.TokenContexts); err != nil {
		return nil, err
	}
	if err := decodeJSON(metadata, &profile.Metadata); err != nil {
		return nil, err
	}
	if err := decodeJSON(badges, &profile.Badges); err != nil {
		return nil, err
	}
	if err := decodeJSON(labels, &profile.Labels); err != nil {
		return nil, err
	}

	// Rows written before token contexts existed come back short.
	profile.SyncSessionArrays()

	return profile, nil
}
