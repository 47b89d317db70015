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
	"rbeam/internal/core/mail"
)

type mailRepo struct {
	db *sqlx.DB
}

// NewMailRepository creates the mail repository.
func NewMailRepository(db *sqlx.DB) mail.Repository {
	return &mailRepo{db: db}
}

// Create inserts one letter. Recipients persist as a JSON list.
func (r *mailRepo) Create(ctx context.Context, letter *mail.Mail) error {
	recipients, err := encodeJSON(letter.Recipients)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO xmail (id, title, content, ts, state, author_id, recipients)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		letter.ID, letter.Title, letter.Content, letter.TS,
		letter.State, letter.AuthorID, recipients)
	if err != nil {
		return fmt.Errorf("failed to create mail: %w", err)
	}
	return nil
}

// Get retrieves one letter by id.
func (r *mailRepo) Get(ctx context.Context, id string) (*mail.Mail, error) {
	query := r.db.Rebind(`SELECT id, title, content, ts, state, author_id, recipients FROM xmail WHERE id = ?`)
	return r.scanMail(r.db.QueryRowContext(ctx, query, id))
}

// ListByRecipient matches the recipient inside the JSON list. Rows from
// before the list format hold a bare id and match by equality.
func (r *mailRepo) ListByRecipient(ctx context.Context, recipient string) ([]*mail.Mail, error) {
	query := r.db.Rebind(`
		SELECT id, title, content, ts, state, author_id, recipients FROM xmail
		WHERE recipients LIKE ? OR recipients = ?
		ORDER BY ts DESC`)
	return r.list(ctx, query, `%"`+recipient+`"%`, recipient)
}

// ListByAuthor lists one author's letters, newest first.
func (r *mailRepo) ListByAuthor(ctx context.Context, author string) ([]*mail.Mail, error) {
	query := r.db.Rebind(`
		SELECT id, title, content, ts, state, author_id, recipients FROM xmail
		WHERE author_id = ? ORDER BY ts DESC`)
	return r.list(ctx, query, author)
}

// UpdateState transitions the read state.
func (r *mailRepo) UpdateState(ctx context.Context, id string, state mail.State) error {
	query := r.db.Rebind(`UPDATE xmail SET state = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update mail state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mail update: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes one letter.
func (r *mailRepo) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM xmail WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete mail: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mail delete: %w", err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *mailRepo) list(ctx context.Context, query string, args ...any) ([]*mail.Mail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mail: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var letters []*mail.Mail
	for rows.Next() {
		letter, err := r.scanMail(rows)
		if err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mail: %w", err)
	}

	return letters, nil
}

func (r *mailRepo) scanMail(row rowScanner) (*mail.Mail, error) {
	letter := &mail.Mail{}
	var recipients string

	err := row.Scan(&letter.ID, &letter.Title, &letter.Content, &letter.TS,
		&letter.State, &letter.AuthorID, &recipients)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mail: %w", err)
	}

	// Legacy rows hold a bare recipient id instead of a JSON list.
	if strings.HasPrefix(recipients, "[") {
		if err := decodeJSON(recipients, &letter.Recipients); err != nil {
			return nil, err
		}
	} else if recipients != "" {
		letter.Recipients = []string{recipients}
	}

	return letter, nil
}
