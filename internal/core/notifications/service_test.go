package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/core/profiles"
	"rbeam/internal/keys"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateNotification(ctx context.Context, notification *Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetNotification(ctx context.Context, id string) (*Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipient string) ([]*Notification, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Notification), args.Error(1)
}

func (m *MockNotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) DeleteAllByRecipient(ctx context.Context, recipient string) error {
	args := m.Called(ctx, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepository) CountByRecipient(ctx context.Context, recipient string) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CreateWarning(ctx context.Context, warning *Warning) error {
	args := m.Called(ctx, warning)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetWarning(ctx context.Context, id string) (*Warning, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Warning), args.Error(1)
}

func (m *MockNotificationRepository) ListWarningsByRecipient(ctx context.Context, recipient string) ([]*Warning, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Warning), args.Error(1)
}

func (m *MockNotificationRepository) DeleteWarning(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockGroups struct {
	mock.Mock
}

func (m *MockGroups) GetGroup(ctx context.Context, id int32) (groups.Group, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(groups.Group), args.Error(1)
}

func member() *profiles.Profile {
	return &profiles.Profile{ID: "user1111", Username: "member", GroupID: 1}
}

func moderator() *profiles.Profile {
	return &profiles.Profile{ID: "staff111", Username: "mod", GroupID: 2}
}

func grantHelper(m *MockGroups) {
	m.On("GetGroup", mock.Anything, int32(2)).
		Return(groups.Group{ID: 2, Name: "helper", Permissions: groups.PermHelper}, nil)
}

func denyStaff(m *MockGroups) {
	m.On("GetGroup", mock.Anything, int32(1)).
		Return(groups.Group{ID: 1, Name: "member"}, nil)
}

func TestCreateNotification_BumpsCounter(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	store := cache.NewMemory()
	service := NewService(mockRepo, store, new(MockGroups))

	mockRepo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.ID != "" && n.Recipient == "user1111" && n.Title == "hello"
	})).Return(nil)

	notification, err := service.CreateNotification(ctx, Create{Title: "hello", Recipient: "user1111"})
	require.NoError(t, err)
	assert.False(t, notification.IsBroadcast())

	value, _ := store.Get(ctx, keys.NotificationCount("user1111"))
	assert.Equal(t, "1", value)
}

func TestCreateNotification_BroadcastNotCounted(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	store := cache.NewMemory()
	service := NewService(mockRepo, store, new(MockGroups))

	mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)

	notification, err := service.CreateNotification(ctx, Create{Title: "maintenance", Recipient: RecipientStaff})
	require.NoError(t, err)
	assert.True(t, notification.IsBroadcast())

	_, ok := store.Get(ctx, keys.NotificationCount(RecipientStaff))
	assert.False(t, ok)
}

func TestDeleteNotification_Recipient(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	store := cache.NewMemory()
	service := NewService(mockRepo, store, new(MockGroups))

	actor := member()
	require.NoError(t, store.Set(ctx, keys.NotificationCount(actor.ID), "2"))

	mockRepo.On("GetNotification", mock.Anything, "n1").
		Return(&Notification{ID: "n1", Recipient: actor.ID}, nil)
	mockRepo.On("DeleteNotification", mock.Anything, "n1").Return(nil)

	require.NoError(t, service.DeleteNotification(ctx, "n1", actor))

	value, _ := store.Get(ctx, keys.NotificationCount(actor.ID))
	assert.Equal(t, "1", value)
}

func TestDeleteNotification_StrangerDenied(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	denyStaff(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	mockRepo.On("GetNotification", mock.Anything, "n1").
		Return(&Notification{ID: "n1", Recipient: "someone-else"}, nil)

	err := service.DeleteNotification(ctx, "n1", member())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "DeleteNotification", mock.Anything, mock.Anything)
}

func TestDeleteNotification_HelperAllowed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	grantHelper(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	mockRepo.On("GetNotification", mock.Anything, "n1").
		Return(&Notification{ID: "n1", Recipient: "someone-else"}, nil)
	mockRepo.On("DeleteNotification", mock.Anything, "n1").Return(nil)

	require.NoError(t, service.DeleteNotification(ctx, "n1", moderator()))
	mockRepo.AssertExpectations(t)
}

func TestClearNotifications(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	store := cache.NewMemory()
	service := NewService(mockRepo, store, new(MockGroups))

	actor := member()
	require.NoError(t, store.Set(ctx, keys.NotificationCount(actor.ID), "2"))

	mockRepo.On("ListByRecipient", mock.Anything, actor.ID).Return([]*Notification{
		{ID: "n1", Recipient: actor.ID},
		{ID: "n2", Recipient: actor.ID},
	}, nil)
	mockRepo.On("DeleteAllByRecipient", mock.Anything, actor.ID).Return(nil)

	require.NoError(t, service.ClearNotifications(ctx, actor))

	_, ok := store.Get(ctx, keys.NotificationCount(actor.ID))
	assert.False(t, ok)
}

func TestGetNotificationCount_PrimesOnMiss(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	service := NewService(mockRepo, cache.NewMemory(), new(MockGroups))

	mockRepo.On("CountByRecipient", mock.Anything, "user1111").Return(int64(5), nil).Once()

	for i := 0; i < 2; i++ {
		count, err := service.GetNotificationCount(ctx, "user1111")
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	}
	mockRepo.AssertNumberOfCalls(t, "CountByRecipient", 1)
}

func TestCreateWarning_StaffOnly(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	denyStaff(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	_, err := service.CreateWarning(ctx, WarningCreate{Content: "be nice", Recipient: "user1111"}, member())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "CreateWarning", mock.Anything, mock.Anything)
}

func TestCreateWarning_NotifiesRecipient(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	grantHelper(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	mod := moderator()
	mockRepo.On("CreateWarning", mock.Anything, mock.MatchedBy(func(w *Warning) bool {
		return w.Recipient == "user1111" && w.ModeratorID == mod.ID && w.Content == "be nice"
	})).Return(nil)
	mockRepo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.Recipient == "user1111" && n.Title == "You have received an account warning!"
	})).Return(nil)

	warning, err := service.CreateWarning(ctx, WarningCreate{Content: "be nice", Recipient: "user1111"}, mod)
	require.NoError(t, err)
	assert.NotEmpty(t, warning.ID)

	mockRepo.AssertExpectations(t)
}

func TestListWarnings_SelfAllowed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	service := NewService(mockRepo, cache.NewMemory(), new(MockGroups))

	actor := member()
	mockRepo.On("ListWarningsByRecipient", mock.Anything, actor.ID).
		Return([]*Warning{{ID: "w1", Recipient: actor.ID}}, nil)

	listed, err := service.ListWarnings(ctx, actor.ID, actor)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestListWarnings_StrangerDenied(t *testing.T) {
	ctx := context.Background()
	mockGroups := new(MockGroups)
	denyStaff(mockGroups)
	service := NewService(new(MockNotificationRepository), cache.NewMemory(), mockGroups)

	_, err := service.ListWarnings(ctx, "someone-else", member())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
}

func TestListBroadcasts_HelperReadsAudit(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	grantHelper(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	mockRepo.On("ListByRecipient", mock.Anything, RecipientAudit).
		Return([]*Notification{{ID: "n1", Recipient: RecipientAudit}}, nil)

	entries, err := service.ListBroadcasts(ctx, RecipientAudit, moderator())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, RecipientAudit, entries[0].Recipient)
}

func TestListBroadcasts_MemberDenied(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroups)
	denyStaff(mockGroups)
	service := NewService(mockRepo, cache.NewMemory(), mockGroups)

	_, err := service.ListBroadcasts(ctx, RecipientStaff, member())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "ListByRecipient", mock.Anything, mock.Anything)
}

func TestListBroadcasts_UnknownSelector(t *testing.T) {
	ctx := context.Background()
	service := NewService(new(MockNotificationRepository), cache.NewMemory(), new(MockGroups))

	_, err := service.ListBroadcasts(ctx, "user1111", moderator())
	assert.ErrorIs(t, err, errs.ErrValue)
}

func TestAudit_Format(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	store := cache.NewMemory()
	service := NewService(mockRepo, store, new(MockGroups))

	mockRepo.On("CreateNotification", mock.Anything, mock.MatchedBy(func(n *Notification) bool {
		return n.Recipient == RecipientAudit &&
			n.Title == "Moderation action" &&
			n.Content == "[@mod] Banned IP 10.0.0.1: spam"
	})).Return(nil)

	require.NoError(t, service.Audit(ctx, moderator(), "Banned IP 10.0.0.1: spam"))

	// Audit entries are broadcasts and never touch a counter.
	_, ok := store.Get(ctx, keys.NotificationCount(RecipientAudit))
	assert.False(t, ok)
}
