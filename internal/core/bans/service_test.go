package bans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
)

type MockBanRepository struct {
	mock.Mock
}

func (m *MockBanRepository) CreateBan(ctx context.Context, ban *IpBan) error {
	args := m.Called(ctx, ban)
	return args.Error(0)
}

func (m *MockBanRepository) GetBan(ctx context.Context, id string) (*IpBan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IpBan), args.Error(1)
}

func (m *MockBanRepository) GetBanByIP(ctx context.Context, ip string) (*IpBan, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IpBan), args.Error(1)
}

func (m *MockBanRepository) ListBans(ctx context.Context) ([]*IpBan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*IpBan), args.Error(1)
}

func (m *MockBanRepository) DeleteBan(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBanRepository) CreateBlock(ctx context.Context, block *IpBlock) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

func (m *MockBanRepository) GetBlock(ctx context.Context, id string) (*IpBlock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IpBlock), args.Error(1)
}

func (m *MockBanRepository) GetBlockByUserIP(ctx context.Context, userID, ip string) (*IpBlock, error) {
	args := m.Called(ctx, userID, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IpBlock), args.Error(1)
}

func (m *MockBanRepository) ListBlocksByUser(ctx context.Context, userID string) ([]*IpBlock, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*IpBlock), args.Error(1)
}

func (m *MockBanRepository) DeleteBlock(ctx context.Context, id string) error {
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

// MockNotifier mocks the audit path.
type MockNotifier struct {
	mock.Mock
	notifications.Service
}

func (m *MockNotifier) Audit(ctx context.Context, moderator *profiles.Profile, content string) error {
	args := m.Called(ctx, moderator, content)
	return args.Error(0)
}

func helperProfile() *profiles.Profile {
	return &profiles.Profile{ID: "staff111", Username: "mod", GroupID: 2}
}

func managerProfile() *profiles.Profile {
	return &profiles.Profile{ID: "staff222", Username: "boss", GroupID: 3}
}

func memberProfile() *profiles.Profile {
	return &profiles.Profile{ID: "user1111", Username: "member", GroupID: 1}
}

func setupGroups(m *MockGroups) {
	m.On("GetGroup", mock.Anything, int32(1)).
		Return(groups.Group{ID: 1, Name: "member"}, nil).Maybe()
	m.On("GetGroup", mock.Anything, int32(2)).
		Return(groups.Group{ID: 2, Name: "helper", Permissions: groups.PermHelper}, nil).Maybe()
	m.On("GetGroup", mock.Anything, int32(3)).
		Return(groups.Group{ID: 3, Name: "manager", Permissions: groups.PermHelper | groups.PermManager | groups.PermBanIP}, nil).Maybe()
}

func newBanService(repo Repository, notify notifications.Service) Service {
	mockGroups := new(MockGroups)
	setupGroups(mockGroups)
	return NewService(repo, cache.NewMemory(), mockGroups, notify)
}

func TestIsBanned_NoBan(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	mockRepo.On("GetBanByIP", mock.Anything, "10.0.0.1").Return(nil, errs.ErrNotFound)

	banned, err := service.IsBanned(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestIsBanned_EmptyAddress(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	banned, err := service.IsBanned(ctx, "")
	require.NoError(t, err)
	assert.False(t, banned)
	mockRepo.AssertNotCalled(t, "GetBanByIP", mock.Anything, mock.Anything)
}

func TestIsBanned_Banned(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	mockRepo.On("GetBanByIP", mock.Anything, "10.0.0.1").
		Return(&IpBan{ID: "b1", IP: "10.0.0.1"}, nil)

	banned, err := service.IsBanned(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestCreateBan_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	mockNotify := new(MockNotifier)
	service := newBanService(mockRepo, mockNotify)

	mod := helperProfile()
	mockRepo.On("GetBanByIP", mock.Anything, "10.0.0.1").Return(nil, errs.ErrNotFound)
	mockRepo.On("CreateBan", mock.Anything, mock.MatchedBy(func(ban *IpBan) bool {
		return ban.IP == "10.0.0.1" && ban.Reason == "spam" && ban.ModeratorID == mod.ID
	})).Return(nil)
	mockNotify.On("Audit", mock.Anything, mod, "Banned IP 10.0.0.1: spam").Return(nil)

	ban, err := service.CreateBan(ctx, BanCreate{IP: "10.0.0.1", Reason: "spam"}, mod)
	require.NoError(t, err)
	assert.NotEmpty(t, ban.ID)

	mockRepo.AssertExpectations(t)
	mockNotify.AssertExpectations(t)
}

func TestCreateBan_MemberDenied(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	_, err := service.CreateBan(ctx, BanCreate{IP: "10.0.0.1"}, memberProfile())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "CreateBan", mock.Anything, mock.Anything)
}

func TestCreateBan_Duplicate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	mockRepo.On("GetBanByIP", mock.Anything, "10.0.0.1").
		Return(&IpBan{ID: "b1", IP: "10.0.0.1"}, nil)

	_, err := service.CreateBan(ctx, BanCreate{IP: "10.0.0.1"}, helperProfile())
	assert.ErrorIs(t, err, errs.ErrMustBeUnique)
}

func TestDeleteBan_OwnBan(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	mockNotify := new(MockNotifier)
	service := newBanService(mockRepo, mockNotify)

	mod := helperProfile()
	mockRepo.On("GetBan", mock.Anything, "b1").
		Return(&IpBan{ID: "b1", IP: "10.0.0.1", ModeratorID: mod.ID}, nil)
	mockRepo.On("DeleteBan", mock.Anything, "b1").Return(nil)
	mockNotify.On("Audit", mock.Anything, mod, "Unbanned IP 10.0.0.1").Return(nil)

	require.NoError(t, service.DeleteBan(ctx, "b1", mod))
	mockRepo.AssertExpectations(t)
}

func TestDeleteBan_AnotherModeratorsNeedsManager(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	mockRepo.On("GetBan", mock.Anything, "b1").
		Return(&IpBan{ID: "b1", IP: "10.0.0.1", ModeratorID: "someone-else"}, nil)

	err := service.DeleteBan(ctx, "b1", helperProfile())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "DeleteBan", mock.Anything, mock.Anything)
}

func TestDeleteBan_ManagerOverrides(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	mockNotify := new(MockNotifier)
	service := newBanService(mockRepo, mockNotify)

	boss := managerProfile()
	mockRepo.On("GetBan", mock.Anything, "b1").
		Return(&IpBan{ID: "b1", IP: "10.0.0.1", ModeratorID: "someone-else"}, nil)
	mockRepo.On("DeleteBan", mock.Anything, "b1").Return(nil)
	mockNotify.On("Audit", mock.Anything, boss, "Unbanned IP 10.0.0.1").Return(nil)

	require.NoError(t, service.DeleteBan(ctx, "b1", boss))
}

func TestCreateBlock_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	actor := memberProfile()
	mockRepo.On("GetBlockByUserIP", mock.Anything, actor.ID, "10.0.0.9").Return(nil, errs.ErrNotFound)
	mockRepo.On("CreateBlock", mock.Anything, mock.MatchedBy(func(block *IpBlock) bool {
		return block.UserID == actor.ID && block.IP == "10.0.0.9"
	})).Return(nil)

	block, err := service.CreateBlock(ctx, BlockCreate{IP: "10.0.0.9"}, actor)
	require.NoError(t, err)
	assert.NotEmpty(t, block.ID)
}

func TestCreateBlock_Duplicate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	actor := memberProfile()
	mockRepo.On("GetBlockByUserIP", mock.Anything, actor.ID, "10.0.0.9").
		Return(&IpBlock{ID: "ib1", UserID: actor.ID, IP: "10.0.0.9"}, nil)

	_, err := service.CreateBlock(ctx, BlockCreate{IP: "10.0.0.9"}, actor)
	assert.ErrorIs(t, err, errs.ErrMustBeUnique)
}

func TestDeleteBlock_Owner(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	mockNotify := new(MockNotifier)
	service := newBanService(mockRepo, mockNotify)

	actor := memberProfile()
	mockRepo.On("GetBlock", mock.Anything, "ib1").
		Return(&IpBlock{ID: "ib1", UserID: actor.ID, IP: "10.0.0.9"}, nil)
	mockRepo.On("DeleteBlock", mock.Anything, "ib1").Return(nil)

	require.NoError(t, service.DeleteBlock(ctx, "ib1", actor))
	mockNotify.AssertNotCalled(t, "Audit", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteBlock_StrangerNeedsManager(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	service := newBanService(mockRepo, new(MockNotifier))

	mockRepo.On("GetBlock", mock.Anything, "ib1").
		Return(&IpBlock{ID: "ib1", UserID: "someone-else"}, nil)

	err := service.DeleteBlock(ctx, "ib1", helperProfile())
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "DeleteBlock", mock.Anything, mock.Anything)
}

func TestDeleteBlock_ManagerAudited(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBanRepository)
	mockNotify := new(MockNotifier)
	service := newBanService(mockRepo, mockNotify)

	boss := managerProfile()
	mockRepo.On("GetBlock", mock.Anything, "ib1").
		Return(&IpBlock{ID: "ib1", UserID: "someone-else"}, nil)
	mockRepo.On("DeleteBlock", mock.Anything, "ib1").Return(nil)
	mockNotify.On("Audit", mock.Anything, boss, "Removed IP block ib1").Return(nil)

	require.NoError(t, service.DeleteBlock(ctx, "ib1", boss))
	mockNotify.AssertExpectations(t)
}
