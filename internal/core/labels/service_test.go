package labels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/profiles"
)

type MockLabelRepository struct {
	mock.Mock
}

func (m *MockLabelRepository) Create(ctx context.Context, label *UserLabel) error {
	args := m.Called(ctx, label)
	return args.Error(0)
}

func (m *MockLabelRepository) Get(ctx context.Context, id string) (*UserLabel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserLabel), args.Error(1)
}

func (m *MockLabelRepository) List(ctx context.Context) ([]*UserLabel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*UserLabel), args.Error(1)
}

func (m *MockLabelRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockStaff struct {
	mock.Mock
}

func (m *MockStaff) IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error) {
	args := m.Called(ctx, actor)
	return args.Bool(0), args.Error(1)
}

type MockLabeler struct {
	mock.Mock
}

func (m *MockLabeler) UpdateLabels(ctx context.Context, id string, labels []string) error {
	args := m.Called(ctx, id, labels)
	return args.Error(0)
}

func moderator() *profiles.Profile {
	return &profiles.Profile{ID: "staff111", Username: "mod", GroupID: 2}
}

func member() *profiles.Profile {
	return &profiles.Profile{ID: "user1111", Username: "member", GroupID: 1}
}

func TestCreateLabel_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockLabelRepository)
	mockStaff := new(MockStaff)
	service := NewService(mockRepo, cache.NewMemory(), mockStaff, new(MockLabeler))

	actor := moderator()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(true, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(label *UserLabel) bool {
		return label.Name == "Verified" && label.CreatorID == actor.ID && label.ID != ""
	})).Return(nil)

	label, err := service.CreateLabel(ctx, Create{Name: "Verified"}, actor)
	require.NoError(t, err)
	assert.Equal(t, "Verified", label.Name)

	mockRepo.AssertExpectations(t)
}

func TestCreateLabel_MemberDenied(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockLabelRepository)
	mockStaff := new(MockStaff)
	service := NewService(mockRepo, cache.NewMemory(), mockStaff, new(MockLabeler))

	actor := member()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(false, nil)

	_, err := service.CreateLabel(ctx, Create{Name: "Verified"}, actor)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateLabel_NameTooShort(t *testing.T) {
	ctx := context.Background()
	mockStaff := new(MockStaff)
	service := NewService(new(MockLabelRepository), cache.NewMemory(), mockStaff, new(MockLabeler))

	actor := moderator()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(true, nil)

	_, err := service.CreateLabel(ctx, Create{Name: "x"}, actor)
	assert.ErrorIs(t, err, errs.ErrValue)
}

func TestGetLabel_CachesAfterMiss(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockLabelRepository)
	service := NewService(mockRepo, cache.NewMemory(), new(MockStaff), new(MockLabeler))

	mockRepo.On("Get", mock.Anything, "lbl11111").
		Return(&UserLabel{ID: "lbl11111", Name: "Verified"}, nil).Once()

	for i := 0; i < 2; i++ {
		label, err := service.GetLabel(ctx, "lbl11111")
		require.NoError(t, err)
		assert.Equal(t, "Verified", label.Name)
	}
	mockRepo.AssertNumberOfCalls(t, "Get", 1)
}

func TestAssignLabels_UnknownLabel(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockLabelRepository)
	mockStaff := new(MockStaff)
	mockLabeler := new(MockLabeler)
	service := NewService(mockRepo, cache.NewMemory(), mockStaff, mockLabeler)

	actor := moderator()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(true, nil)
	mockRepo.On("Get", mock.Anything, "ghost").Return(nil, errs.ErrNotFound)

	err := service.AssignLabels(ctx, member(), []string{"ghost"}, actor)
	assert.ErrorIs(t, err, errs.ErrValue)
	mockLabeler.AssertNotCalled(t, "UpdateLabels", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignLabels_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockLabelRepository)
	mockStaff := new(MockStaff)
	mockLabeler := new(MockLabeler)
	service := NewService(mockRepo, cache.NewMemory(), mockStaff, mockLabeler)

	actor := moderator()
	target := member()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(true, nil)
	mockRepo.On("Get", mock.Anything, "lbl11111").
		Return(&UserLabel{ID: "lbl11111", Name: "Verified"}, nil)
	mockLabeler.On("UpdateLabels", mock.Anything, target.ID, []string{"lbl11111"}).Return(nil)

	require.NoError(t, service.AssignLabels(ctx, target, []string{"lbl11111"}, actor))
	mockLabeler.AssertExpectations(t)
}

func TestAssignLabels_MemberDenied(t *testing.T) {
	ctx := context.Background()
	mockStaff := new(MockStaff)
	mockLabeler := new(MockLabeler)
	service := NewService(new(MockLabelRepository), cache.NewMemory(), mockStaff, mockLabeler)

	actor := member()
	mockStaff.On("IsHelper", mock.Anything, actor).Return(false, nil)

	err := service.AssignLabels(ctx, moderator(), []string{"lbl11111"}, actor)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	mockLabeler.AssertNotCalled(t, "UpdateLabels", mock.Anything, mock.Anything, mock.Anything)
}
