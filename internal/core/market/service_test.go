package market

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
)

type MockMarketRepository struct {
	mock.Mock
}

func (m *MockMarketRepository) CreateItem(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockMarketRepository) GetItem(ctx context.Context, id string) (*Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Item), args.Error(1)
}

func (m *MockMarketRepository) ListItemsByCreator(ctx context.Context, creator string) ([]*Item, error) {
	args := m.Called(ctx, creator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Item), args.Error(1)
}

func (m *MockMarketRepository) ListItemsByStatus(ctx context.Context, status ItemStatus) ([]*Item, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Item), args.Error(1)
}

func (m *MockMarketRepository) UpdateItemStatus(ctx context.Context, id string, status ItemStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMarketRepository) UpdateItemFields(ctx context.Context, id string, edit ItemEdit) error {
	args := m.Called(ctx, id, edit)
	return args.Error(0)
}

func (m *MockMarketRepository) UpdateItemContent(ctx context.Context, id, content string) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

func (m *MockMarketRepository) DeleteItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMarketRepository) CreateTransaction(ctx context.Context, transaction *Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockMarketRepository) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockMarketRepository) ListTransactionsByParticipant(ctx context.Context, id string) ([]*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Transaction), args.Error(1)
}

func (m *MockMarketRepository) GetTransactionByCustomerItem(ctx context.Context, customer, item string) (*Transaction, error) {
	args := m.Called(ctx, customer, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) GetProfileByID(ctx context.Context, id string) (*profiles.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profiles.Profile), args.Error(1)
}

func (m *MockWallet) AdjustCoins(ctx context.Context, id string, delta int32) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type MockStaff struct {
	mock.Mock
}

func (m *MockStaff) IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error) {
	args := m.Called(ctx, actor)
	return args.Bool(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
	notifications.Service
}

func (m *MockNotifier) CreateNotification(ctx context.Context, input notifications.Create) (*notifications.Notification, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notifications.Notification), args.Error(1)
}

type fixture struct {
	repo    *MockMarketRepository
	wallet  *MockWallet
	staff   *MockStaff
	notify  *MockNotifier
	service Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:   new(MockMarketRepository),
		wallet: new(MockWallet),
		staff:  new(MockStaff),
		notify: new(MockNotifier),
	}
	f.service = NewService(f.repo, cache.NewMemory(), f.wallet, f.staff, f.notify)
	return f
}

func creator() *profiles.Profile {
	return &profiles.Profile{ID: "crtr1111", Username: "carol", Coins: 100}
}

func customer() *profiles.Profile {
	return &profiles.Profile{ID: "cust1111", Username: "chris", Coins: 100}
}

func TestCreateItem_PendingWithReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := creator()

	f.repo.On("CreateItem", mock.Anything, mock.MatchedBy(func(item *Item) bool {
		return item.Status == ItemPending && item.CreatorID == actor.ID && item.Type == ItemText
	})).Return(nil)
	f.repo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Amount == 0 && tr.CustomerID == actor.ID && tr.MerchantID == actor.ID
	})).Return(nil)

	item, err := f.service.CreateItem(ctx, ItemCreate{
		Name:    "My theme",
		Content: "body { color: red }",
		Cost:    25,
		Type:    ItemText,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, ItemPending, item.Status)

	f.repo.AssertExpectations(t)
}

func TestCreateItem_UnknownType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateItem(ctx, ItemCreate{
		Name:    "My theme",
		Content: "body { color: red }",
		Type:    "Plugin",
	}, creator())
	assert.ErrorIs(t, err, errs.ErrValue)
	f.repo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
}

func TestCreateItem_NameTooLong(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateItem(ctx, ItemCreate{
		Name:    strings.Repeat("a", nameMax+1),
		Content: "body { color: red }",
		Type:    ItemText,
	}, creator())
	assert.ErrorIs(t, err, errs.ErrTooLong)
}

func TestGetItem_SystemItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	item, err := f.service.GetItem(ctx, SystemItemID)
	require.NoError(t, err)
	assert.Equal(t, SystemItemID, item.ID)
	assert.Equal(t, CostOffSale, item.Cost)

	f.repo.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestGetItem_CachesAfterMiss(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", Name: "Theme"}, nil).Once()

	for i := 0; i < 2; i++ {
		item, err := f.service.GetItem(ctx, "item1111")
		require.NoError(t, err)
		assert.Equal(t, "Theme", item.Name)
	}
	f.repo.AssertNumberOfCalls(t, "GetItem", 1)
}

func TestUpdateItemStatus_StaffOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.staff.On("IsHelper", mock.Anything, actor).Return(false, nil)

	err := f.service.UpdateItemStatus(ctx, "item1111", ItemApproved, actor)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	f.repo.AssertNotCalled(t, "UpdateItemStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateItemStatus_NotifiesCreator(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.staff.On("IsHelper", mock.Anything, actor).Return(true, nil)
	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", Name: "Theme", CreatorID: "crtr1111"}, nil)
	f.repo.On("UpdateItemStatus", mock.Anything, "item1111", ItemApproved).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.MatchedBy(func(input notifications.Create) bool {
		return input.Recipient == "crtr1111" && input.Title == `Your item is now "Approved"!`
	})).Return(&notifications.Notification{ID: "n1"}, nil)

	require.NoError(t, f.service.UpdateItemStatus(ctx, "item1111", ItemApproved, actor))
	f.notify.AssertExpectations(t)
}

func TestUpdateItemStatus_EvictsCachedItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.staff.On("IsHelper", mock.Anything, actor).Return(true, nil)
	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", Name: "Theme", CreatorID: "crtr1111", Status: ItemPending}, nil)
	f.repo.On("UpdateItemStatus", mock.Anything, "item1111", ItemApproved).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.Anything).
		Return(&notifications.Notification{ID: "n1"}, nil)

	// Prime the cache, mutate, then re-read; the read after the status
	// change must go back to the repository.
	_, err := f.service.GetItem(ctx, "item1111")
	require.NoError(t, err)
	require.NoError(t, f.service.UpdateItemStatus(ctx, "item1111", ItemApproved, actor))

	_, err = f.service.GetItem(ctx, "item1111")
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "GetItem", 2)
}

func TestDeleteItem_EvictsCachedItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := creator()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", CreatorID: actor.ID}, nil)
	f.repo.On("DeleteItem", mock.Anything, "item1111").Return(nil)

	_, err := f.service.GetItem(ctx, "item1111")
	require.NoError(t, err)
	require.NoError(t, f.service.DeleteItem(ctx, "item1111", actor))

	_, err = f.service.GetItem(ctx, "item1111")
	require.NoError(t, err)
	f.repo.AssertNumberOfCalls(t, "GetItem", 2)
}

func TestUpdateItemStatus_UnknownStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	err := f.service.UpdateItemStatus(ctx, "item1111", "Archived", customer())
	assert.ErrorIs(t, err, errs.ErrValue)
}

func TestUpdateItem_StrangerDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", CreatorID: "crtr1111"}, nil)
	f.staff.On("IsHelper", mock.Anything, actor).Return(false, nil)

	err := f.service.UpdateItem(ctx, "item1111", ItemEdit{Name: "Renamed"}, actor)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
}

func TestDeleteItem_Creator(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := creator()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", CreatorID: actor.ID}, nil)
	f.repo.On("DeleteItem", mock.Anything, "item1111").Return(nil)

	require.NoError(t, f.service.DeleteItem(ctx, "item1111", actor))
	f.repo.AssertExpectations(t)
}

func TestCreateTransaction_Overdraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", Cost: 150, CreatorID: "crtr1111"}, nil)
	f.wallet.On("GetProfileByID", mock.Anything, actor.ID).
		Return(&profiles.Profile{ID: actor.ID, Coins: 100}, nil)

	_, err := f.service.CreateTransaction(ctx, TransactionCreate{
		Merchant: "crtr1111",
		Item:     "item1111",
		Amount:   -150,
	}, actor)
	assert.ErrorIs(t, err, errs.ErrTooExpensive)
	f.repo.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	f.wallet.AssertNotCalled(t, "AdjustCoins", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTransaction_Purchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.repo.On("GetItem", mock.Anything, "item1111").
		Return(&Item{ID: "item1111", Cost: 25, CreatorID: "crtr1111"}, nil)
	f.wallet.On("GetProfileByID", mock.Anything, actor.ID).
		Return(&profiles.Profile{ID: actor.ID, Coins: 100}, nil)
	f.repo.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tr *Transaction) bool {
		return tr.Amount == -25 && tr.CustomerID == actor.ID && tr.MerchantID == "crtr1111"
	})).Return(nil)
	f.wallet.On("AdjustCoins", mock.Anything, actor.ID, int32(-25)).Return(nil)
	f.wallet.On("AdjustCoins", mock.Anything, "crtr1111", int32(25)).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.MatchedBy(func(input notifications.Create) bool {
		return input.Recipient == actor.ID && input.Title == "Purchased data now available!"
	})).Return(&notifications.Notification{ID: "n1"}, nil)

	transaction, err := f.service.CreateTransaction(ctx, TransactionCreate{
		Merchant: "crtr1111",
		Item:     "item1111",
		Amount:   -25,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, int32(-25), transaction.Amount)

	f.wallet.AssertExpectations(t)
	f.notify.AssertExpectations(t)
}

func TestCreateTransaction_SystemMerchantNotCredited(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.repo.On("GetItem", mock.Anything, SystemItemID).Return(&Item{ID: SystemItemID}, nil)
	f.wallet.On("GetProfileByID", mock.Anything, actor.ID).
		Return(&profiles.Profile{ID: actor.ID, Coins: 100}, nil)
	f.repo.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil)
	f.wallet.On("AdjustCoins", mock.Anything, actor.ID, int32(-10)).Return(nil)

	_, err := f.service.CreateTransaction(ctx, TransactionCreate{
		Merchant: profiles.SystemID,
		Item:     SystemItemID,
		Amount:   -10,
	}, actor)
	require.NoError(t, err)

	// Only the customer side moved; the system sink is not credited.
	f.wallet.AssertNumberOfCalls(t, "AdjustCoins", 1)
}

func TestCreateTransaction_AwardAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := customer()

	f.repo.On("GetItem", mock.Anything, SystemItemID).Return(&Item{ID: SystemItemID}, nil)
	f.wallet.On("GetProfileByID", mock.Anything, actor.ID).
		Return(&profiles.Profile{ID: actor.ID, Coins: 0}, nil)
	f.repo.On("CreateTransaction", mock.Anything, mock.Anything).Return(nil)
	f.wallet.On("AdjustCoins", mock.Anything, actor.ID, int32(15)).Return(nil)

	// A positive amount on an empty balance is fine.
	transaction, err := f.service.CreateTransaction(ctx, TransactionCreate{
		Merchant: profiles.SystemID,
		Item:     SystemItemID,
		Amount:   15,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, int32(15), transaction.Amount)
}
