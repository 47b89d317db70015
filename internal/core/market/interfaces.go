package market

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists items and transactions.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItemsByCreator(ctx context.Context, creator string) ([]*Item, error)
	ListItemsByStatus(ctx context.Context, status ItemStatus) ([]*Item, error)
	UpdateItemStatus(ctx context.Context, id string, status ItemStatus) error
	UpdateItemFields(ctx context.Context, id string, edit ItemEdit) error
	UpdateItemContent(ctx context.Context, id, content string) error
	DeleteItem(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, transaction *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactionsByParticipant(ctx context.Context, id string) ([]*Transaction, error)
	GetTransactionByCustomerItem(ctx context.Context, customer, item string) (*Transaction, error)
}

// Wallet is the slice of the identity service the economy needs.
type Wallet interface {
	GetProfileByID(ctx context.Context, id string) (*profiles.Profile, error)
	AdjustCoins(ctx context.Context, id string, delta int32) error
}

// StaffChecker reports whether an actor holds Helper.
type StaffChecker interface {
	IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error)
}

// Service is the marketplace core.
type Service interface {
	// CreateItem lists an item in Pending status and records the
	// creator's ownership with a zero-amount transaction.
	CreateItem(ctx context.Context, input ItemCreate, creator *profiles.Profile) (*Item, error)

	// GetItem reads an item; the reserved id "0" returns the synthetic
	// system item.
	GetItem(ctx context.Context, id string) (*Item, error)

	ListItemsByCreator(ctx context.Context, creator string) ([]*Item, error)
	ListItemsByStatus(ctx context.Context, status ItemStatus) ([]*Item, error)

	// UpdateItemStatus is Helper-only and notifies the creator.
	UpdateItemStatus(ctx context.Context, id string, status ItemStatus, actor *profiles.Profile) error

	// UpdateItem edits listing fields; creator or Helper.
	UpdateItem(ctx context.Context, id string, edit ItemEdit, actor *profiles.Profile) error

	// UpdateItemContent edits the item payload; creator or Helper.
	UpdateItemContent(ctx context.Context, id, content string, actor *profiles.Profile) error

	// DeleteItem removes a listing; creator or Helper.
	DeleteItem(ctx context.Context, id string, actor *profiles.Profile) error

	// CreateTransaction commits a coin movement, enforcing the balance
	// invariant, and notifies the customer of purchased data.
	CreateTransaction(ctx context.Context, input TransactionCreate, customer *profiles.Profile) (*Transaction, error)

	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, actor *profiles.Profile) ([]*Transaction, error)

	// GetTransactionByCustomerItem is the ownership check used before
	// serving purchased content.
	GetTransactionByCustomerItem(ctx context.Context, customer, item string) (*Transaction, error)
}
