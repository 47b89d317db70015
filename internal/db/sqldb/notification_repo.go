package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/notifications"
)

type notificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the notification repository. It also
// persists warnings; both live in the notification pipeline.
func NewNotificationRepository(db *sqlx.DB) notifications.Repository {
	return &notificationRepo{db: db}
}

// CreateNotification inserts one inbox entry.
func (r *notificationRepo) CreateNotification(ctx context.Context, notification *notifications.Notification) error {
	query := r.db.Rebind(`
		INSERT INTO xnotifications (id, title, content, address, ts, recipient)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.Title, notification.Content,
		notification.Address, notification.TS, notification.Recipient)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotification retrieves one entry by id.
func (r *notificationRepo) GetNotification(ctx context.Context, id string) (*notifications.Notification, error) {
	notification := &notifications.Notification{}
	query := r.db.Rebind(`SELECT id, title, content, address, ts, recipient FROM xnotifications WHERE id = ?`)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&notification.ID, &notification.Title, &notification.Content,
		&notification.Address, &notification.TS, &notification.Recipient)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notification: %w", err)
	}

	return notification, nil
}

// ListByRecipient lists entries for one recipient, newest first.
func (r *notificationRepo) ListByRecipient(ctx context.Context, recipient string) ([]*notifications.Notification, error) {
	query := r.db.Rebind(`
		SELECT id, title, content, address, ts, recipient FROM xnotifications
		WHERE recipient = ? ORDER BY ts DESC`)

	rows, err := r.db.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var entries []*notifications.Notification
	for rows.Next() {
		notification := &notifications.Notification{}
		err := rows.Scan(&notification.ID, &notification.Title, &notification.Content,
			&notification.Address, &notification.TS, &notification.Recipient)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		entries = append(entries, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return entries, nil
}

// DeleteNotification removes one entry.
func (r *notificationRepo) DeleteNotification(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM xnotifications WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check notification delete: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteAllByRecipient clears one recipient's inbox.
func (r *notificationRepo) DeleteAllByRecipient(ctx context.Context, recipient string) error {
	query := r.db.Rebind(`DELETE FROM xnotifications WHERE recipient = ?`)

	if _, err := r.db.ExecContext(ctx, query, recipient); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// CountByRecipient counts one recipient's entries.
func (r *notificationRepo) CountByRecipient(ctx context.Context, recipient string) (int64, error) {
	var count int64
	query := r.db.Rebind(`SELECT COUNT(*) FROM xnotifications WHERE recipient = ?`)

	if err := r.db.QueryRowContext(ctx, query, recipient).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// CreateWarning inserts one warning row.
func (r *notificationRepo) CreateWarning(ctx context.Context, warning *notifications.Warning) error {
	query := r.db.Rebind(`
		INSERT INTO xwarnings (id, content, ts, recipient, moderator_id)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		warning.ID, warning.Content, warning.TS, warning.Recipient, warning.ModeratorID)
	if err != nil {
		return fmt.Errorf("failed to create warning: %w", err)
	}
	return nil
}

// GetWarning retrieves one warning by id.
func (r *notificationRepo) GetWarning(ctx context.Context, id string) (*notifications.Warning, error) {
	warning := &notifications.Warning{}
	query := r.db.Rebind(`SELECT id, content, ts, recipient, moderator_id FROM xwarnings WHERE id = ?`)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&warning.ID, &warning.Content, &warning.TS, &warning.Recipient, &warning.ModeratorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read warning: %w", err)
	}

	return warning, nil
}

// ListWarningsByRecipient lists one user's warnings, newest first.
func (r *notificationRepo) ListWarningsByRecipient(ctx context.Context, recipient string) ([]*notifications.Warning, error) {
	query := r.db.Rebind(`
		SELECT id, content, ts, recipient, moderator_id FROM xwarnings
		WHERE recipient = ? ORDER BY ts DESC`)

	rows, err := r.db.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var warnings []*notifications.Warning
	for rows.Next() {
		warning := &notifications.Warning{}
		err := rows.Scan(&warning.ID, &warning.Content, &warning.TS,
			&warning.Recipient, &warning.ModeratorID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		warnings = append(warnings, warning)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warnings: %w", err)
	}

	return warnings, nil
}

// DeleteWarning removes one warning.
func (r *notificationRepo) DeleteWarning(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM xwarnings WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete warning: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check warning delete: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
