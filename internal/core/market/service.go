package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

const (
	nameMin        = 2
	nameMax        = 128
	contentMin     = 2
	contentMax     = 16384
	descriptionMax = 8192
)

type marketService struct {
	repo   Repository
	cache  cache.Cache
	wallet Wallet
	staff  StaffChecker
	notify notifications.Service
}

// NewService creates the marketplace service.
func NewService(repo Repository, c cache.Cache, wallet Wallet, staff StaffChecker, notify notifications.Service) Service {
	return &marketService{repo: repo, cache: c, wallet: wallet, staff: staff, notify: notify}
}

// CreateItem lists a new item. The creator's ownership is recorded with a
// zero-amount transaction right after the row insert.
func (s *marketService) CreateItem(ctx context.Context, input ItemCreate, creator *profiles.Profile) (*Item, error) {
	if len(input.Name) < nameMin {
		return nil, fmt.Errorf("name must be at least %d characters: %w", nameMin, errs.ErrValue)
	}
	if len(input.Name) > nameMax {
		return nil, fmt.Errorf("name exceeds %d characters: %w", nameMax, errs.ErrTooLong)
	}
	if len(input.Content) < contentMin {
		return nil, fmt.Errorf("content must be at least %d characters: %w", contentMin, errs.ErrValue)
	}
	if len(input.Content) > contentMax {
		return nil, fmt.Errorf("content exceeds %d characters: %w", contentMax, errs.ErrTooLong)
	}
	if len(input.Description) > descriptionMax {
		return nil, fmt.Errorf("description exceeds %d characters: %w", descriptionMax, errs.ErrTooLong)
	}

	switch input.Type {
	case ItemText, ItemUserTheme:
	default:
		return nil, fmt.Errorf("unknown item type %q: %w", input.Type, errs.ErrValue)
	}

	item := &Item{
		ID:          idgen.NewID(),
		Name:        input.Name,
		Description: input.Description,
		Cost:        input.Cost,
		Content:     input.Content,
		Type:        input.Type,
		Status:      ItemPending,
		TS:          profiles.NowMs(),
		CreatorID:   creator.ID,
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	// Ownership receipt for the creator.
	receipt := &Transaction{
		ID:         idgen.NewID(),
		Amount:     0,
		ItemID:     item.ID,
		TS:         profiles.NowMs(),
		CustomerID: creator.ID,
		MerchantID: creator.ID,
	}
	if err := s.repo.CreateTransaction(ctx, receipt); err != nil {
		return nil, err
	}

	return item, nil
}

// GetItem reads an item cache-aside. The reserved id "0" is synthetic.
func (s *marketService) GetItem(ctx context.Context, id string) (*Item, error) {
	if id == SystemItemID {
		return SystemItem(), nil
	}

	key := keys.Item(id)
	if cached, ok := s.cache.Get(ctx, key); ok {
		item := &Item{}
		if err := json.Unmarshal([]byte(cached), item); err == nil {
			return item, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt item", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(item); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache item", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return item, nil
}

func (s *marketService) ListItemsByCreator(ctx context.Context, creator string) ([]*Item, error) {
	return s.repo.ListItemsByCreator(ctx, creator)
}

func (s *marketService) ListItemsByStatus(ctx context.Context, status ItemStatus) ([]*Item, error) {
	return s.repo.ListItemsByStatus(ctx, status)
}

// UpdateItemStatus moves an item through its lifecycle. Helper-only; the
// creator is notified of the new status.
func (s *marketService) UpdateItemStatus(ctx context.Context, id string, status ItemStatus, actor *profiles.Profile) error {
	switch status {
	case ItemPending, ItemApproved, ItemRejected, ItemFeatured:
	default:
		return fmt.Errorf("unknown item status %q: %w", status, errs.ErrValue)
	}

	helper, err := s.staff.IsHelper(ctx, actor)
	if err != nil {
		return err
	}
	if !helper {
		return fmt.Errorf("only staff may review items: %w", errs.ErrNotAllowed)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateItemStatus(ctx, id, status); err != nil {
		return err
	}
	s.evictItem(ctx, id)

	if _, err := s.notify.CreateNotification(ctx, notifications.Create{
		Title:     fmt.Sprintf("Your item is now %q!", status),
		Content:   fmt.Sprintf("The status of %q changed to %q.", item.Name, status),
		Address:   fmt.Sprintf("/market/item/%s", item.ID),
		Recipient: item.CreatorID,
	}); err != nil {
		slog.Error("failed to notify item status change",
			slog.String("item", item.ID),
			slog.String("error", err.Error()))
	}

	return nil
}

// UpdateItem edits listing fields for the creator or a Helper.
func (s *marketService) UpdateItem(ctx context.Context, id string, edit ItemEdit, actor *profiles.Profile) error {
	if len(edit.Name) < nameMin || len(edit.Name) > nameMax {
		return fmt.Errorf("name must be %d-%d characters: %w", nameMin, nameMax, errs.ErrValue)
	}
	if len(edit.Description) > descriptionMax {
		return fmt.Errorf("description exceeds %d characters: %w", descriptionMax, errs.ErrTooLong)
	}

	if err := s.requireCreatorOrHelper(ctx, id, actor); err != nil {
		return err
	}

	if err := s.repo.UpdateItemFields(ctx, id, edit); err != nil {
		return err
	}
	s.evictItem(ctx, id)
	return nil
}

// UpdateItemContent replaces the item payload for the creator or a Helper.
func (s *marketService) UpdateItemContent(ctx context.Context, id, content string, actor *profiles.Profile) error {
	if len(content) < contentMin || len(content) > contentMax {
		return fmt.Errorf("content must be %d-%d characters: %w", contentMin, contentMax, errs.ErrValue)
	}

	if err := s.requireCreatorOrHelper(ctx, id, actor); err != nil {
		return err
	}

	if err := s.repo.UpdateItemContent(ctx, id, content); err != nil {
		return err
	}
	s.evictItem(ctx, id)
	return nil
}

// DeleteItem removes a listing for the creator or a Helper.
func (s *marketService) DeleteItem(ctx context.Context, id string, actor *profiles.Profile) error {
	if err := s.requireCreatorOrHelper(ctx, id, actor); err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.evictItem(ctx, id)
	return nil
}

// CreateTransaction commits a signed coin movement. The customer's
// balance may never go negative; on commit the customer moves by Amount
// and the merchant gains its magnitude.
func (s *marketService) CreateTransaction(ctx context.Context, input TransactionCreate, customer *profiles.Profile) (*Transaction, error) {
	if _, err := s.GetItem(ctx, input.Item); err != nil {
		return nil, err
	}

	// Re-read the balance; the actor copy may predate other commits.
	fresh, err := s.wallet.GetProfileByID(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if fresh.Coins+input.Amount < 0 {
		return nil, fmt.Errorf("balance %d cannot cover %d: %w", fresh.Coins, input.Amount, errs.ErrTooExpensive)
	}

	transaction := &Transaction{
		ID:         idgen.NewID(),
		Amount:     input.Amount,
		ItemID:     input.Item,
		TS:         profiles.NowMs(),
		CustomerID: customer.ID,
		MerchantID: input.Merchant,
	}

	if err := s.repo.CreateTransaction(ctx, transaction); err != nil {
		return nil, err
	}

	if err := s.wallet.AdjustCoins(ctx, transaction.CustomerID, transaction.Amount); err != nil {
		return nil, err
	}
	if transaction.MerchantID != transaction.CustomerID && transaction.MerchantID != profiles.SystemID {
		magnitude := transaction.Amount
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if err := s.wallet.AdjustCoins(ctx, transaction.MerchantID, magnitude); err != nil {
			return nil, err
		}
	}

	if transaction.CustomerID != transaction.MerchantID && transaction.MerchantID != profiles.SystemID {
		if _, err := s.notify.CreateNotification(ctx, notifications.Create{
			Title:     "Purchased data now available!",
			Content:   "Your purchase has completed.",
			Address:   fmt.Sprintf("/market/item/%s", transaction.ItemID),
			Recipient: transaction.CustomerID,
		}); err != nil {
			slog.Error("failed to notify purchase",
				slog.String("transaction", transaction.ID),
				slog.String("error", err.Error()))
		}
	}

	return transaction, nil
}

// GetTransaction reads a transaction cache-aside.
func (s *marketService) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	key := keys.Transaction(id)
	if cached, ok := s.cache.Get(ctx, key); ok {
		transaction := &Transaction{}
		if err := json.Unmarshal([]byte(cached), transaction); err == nil {
			return transaction, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt transaction", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	transaction, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(transaction); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache transaction", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return transaction, nil
}

func (s *marketService) ListTransactions(ctx context.Context, actor *profiles.Profile) ([]*Transaction, error) {
	return s.repo.ListTransactionsByParticipant(ctx, actor.ID)
}

func (s *marketService) GetTransactionByCustomerItem(ctx context.Context, customer, item string) (*Transaction, error) {
	return s.repo.GetTransactionByCustomerItem(ctx, customer, item)
}

func (s *marketService) requireCreatorOrHelper(ctx context.Context, id string, actor *profiles.Profile) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.CreatorID == actor.ID {
		return nil
	}

	helper, err := s.staff.IsHelper(ctx, actor)
	if err != nil {
		return err
	}
	if !helper {
		return fmt.Errorf("only the creator may edit this item: %w", errs.ErrNotAllowed)
	}
	return nil
}

func (s *marketService) evictItem(ctx context.Context, id string) {
	if err := s.cache.Remove(ctx, keys.Item(id)); err != nil {
		slog.Warn("failed to evict item", slog.String("id", id), slog.String("error", err.Error()))
	}
}
