package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/market"
)

const itemColumns = `id, name, description, cost, content, item_type, status, ts, creator_id`
const transactionColumns = `id, amount, item_id, ts, customer_id, merchant_id`

type marketRepo struct {
	db *sqlx.DB
}

// NewMarketRepository creates the marketplace repository. Items and
// transactions share it; a transaction is meaningless without its item.
func NewMarketRepository(db *sqlx.DB) market.Repository {
	return &marketRepo{db: db}
}

// CreateItem inserts one listing.
func (r *marketRepo) CreateItem(ctx context.Context, item *market.Item) error {
	query := r.db.Rebind(`
		INSERT INTO xugc_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Cost, item.Content,
		item.Type, item.Status, item.TS, item.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// GetItem retrieves one listing by id.
func (r *marketRepo) GetItem(ctx context.Context, id string) (*market.Item, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM xugc_items WHERE id = ?`)
	return r.scanItem(r.db.QueryRowContext(ctx, query, id))
}

// ListItemsByCreator lists one creator's items, newest first.
func (r *marketRepo) ListItemsByCreator(ctx context.Context, creator string) ([]*market.Item, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM xugc_items WHERE creator_id = ? ORDER BY ts DESC`)
	return r.listItems(ctx, query, creator)
}

// ListItemsByStatus lists items in one lifecycle status, newest first.
func (r *marketRepo) ListItemsByStatus(ctx context.Context, status market.ItemStatus) ([]*market.Item, error) {
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM xugc_items WHERE status = ? ORDER BY ts DESC`)
	return r.listItems(ctx, query, status)
}

// UpdateItemStatus moves a listing through the moderation lifecycle.
func (r *marketRepo) UpdateItemStatus(ctx context.Context, id string, status market.ItemStatus) error {
	query := r.db.Rebind(`UPDATE xugc_items SET status = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update item status", status, id)
}

// UpdateItemFields edits listing fields; content edits are separate.
func (r *marketRepo) UpdateItemFields(ctx context.Context, id string, edit market.ItemEdit) error {
	query := r.db.Rebind(`UPDATE xugc_items SET name = ?, description = ?, cost = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update item", edit.Name, edit.Description, edit.Cost, id)
}

// UpdateItemContent replaces the item payload.
func (r *marketRepo) UpdateItemContent(ctx context.Context, id, content string) error {
	query := r.db.Rebind(`UPDATE xugc_items SET content = ? WHERE id = ?`)
	return r.exec(ctx, query, "failed to update item content", content, id)
}

// DeleteItem removes one listing.
func (r *marketRepo) DeleteItem(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM xugc_items WHERE id = ?`)
	return r.exec(ctx, query, "failed to delete item", id)
}

// CreateTransaction inserts one coin movement.
func (r *marketRepo) CreateTransaction(ctx context.Context, transaction *market.Transaction) error {
	query := r.db.Rebind(`
		INSERT INTO xugc_transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		transaction.ID, transaction.Amount, transaction.ItemID,
		transaction.TS, transaction.CustomerID, transaction.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves one movement by id.
func (r *marketRepo) GetTransaction(ctx context.Context, id string) (*market.Transaction, error) {
	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM xugc_transactions WHERE id = ?`)
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, id))
}

// ListTransactionsByParticipant lists movements where id is either party,
// newest first.
func (r *marketRepo) ListTransactionsByParticipant(ctx context.Context, id string) ([]*market.Transaction, error) {
	query := r.db.Rebind(`
		SELECT ` + transactionColumns + ` FROM xugc_transactions
		WHERE customer_id = ? OR merchant_id = ?
		ORDER BY ts DESC`)

	rows, err := r.db.QueryContext(ctx, query, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var movements []*market.Transaction
	for rows.Next() {
		transaction, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return movements, nil
}

// GetTransactionByCustomerItem retrieves the customer's most recent
// movement on one item; this is the ownership check.
func (r *marketRepo) GetTransactionByCustomerItem(ctx context.Context, customer, item string) (*market.Transaction, error) {
	query := r.db.Rebind(`
		SELECT ` + transactionColumns + ` FROM xugc_transactions
		WHERE customer_id = ? AND item_id = ?
		ORDER BY ts DESC LIMIT 1`)
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, customer, item))
}

func (r *marketRepo) exec(ctx context.Context, query, action string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
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

func (r *marketRepo) listItems(ctx context.Context, query string, args ...any) ([]*market.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var items []*market.Item
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

func (r *marketRepo) scanItem(row rowScanner) (*market.Item, error) {
	item := &market.Item{}
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Cost, &item.Content,
		&item.Type, &item.Status, &item.TS, &item.CreatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item: %w", err)
	}
	return item, nil
}

func (r *marketRepo) scanTransaction(row rowScanner) (*market.Transaction, error) {
	transaction := &market.Transaction{}
	err := row.Scan(&transaction.ID, &transaction.Amount, &transaction.ItemID,
		&transaction.TS, &transaction.CustomerID, &transaction.MerchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	return transaction, nil
}
