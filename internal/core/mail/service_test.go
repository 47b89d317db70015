package mail

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

type MockMailRepository struct {
	mock.Mock
}

func (m *MockMailRepository) Create(ctx context.Context, letter *Mail) error {
	args := m.Called(ctx, letter)
	return args.Error(0)
}

func (m *MockMailRepository) Get(ctx context.Context, id string) (*Mail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Mail), args.Error(1)
}

func (m *MockMailRepository) ListByRecipient(ctx context.Context, recipient string) ([]*Mail, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Mail), args.Error(1)
}

func (m *MockMailRepository) ListByAuthor(ctx context.Context, author string) ([]*Mail, error) {
	args := m.Called(ctx, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Mail), args.Error(1)
}

func (m *MockMailRepository) UpdateState(ctx context.Context, id string, state State) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockMailRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) GetProfile(ctx context.Context, id string) (*profiles.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profiles.Profile), args.Error(1)
}

type MockBlocks struct {
	mock.Mock
}

func (m *MockBlocks) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type MockStaff struct {
	mock.Mock
}

func (m *MockStaff) IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error) {
	args := m.Called(ctx, actor)
	return args.Bool(0), args.Error(1)
}

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) SendRemoteMail(ctx context.Context, server string, letter *Mail) error {
	args := m.Called(ctx, server, letter)
	return args.Error(0)
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
	repo     *MockMailRepository
	notify   *MockNotifier
	resolver *MockResolver
	blocks   *MockBlocks
	staff    *MockStaff
	remote   *MockRemote
	service  Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(MockMailRepository),
		notify:   new(MockNotifier),
		resolver: new(MockResolver),
		blocks:   new(MockBlocks),
		staff:    new(MockStaff),
		remote:   new(MockRemote),
	}
	f.service = NewService(f.repo, cache.NewMemory(), f.notify, f.resolver, f.blocks, f.staff, f.remote, "home.example")
	return f
}

func author() *profiles.Profile {
	return &profiles.Profile{ID: "auth1111", Username: "alice", Metadata: profiles.Metadata{KV: map[string]string{}}}
}

func recipient(id string) *profiles.Profile {
	return &profiles.Profile{ID: id, Username: "u" + id, Metadata: profiles.Metadata{KV: map[string]string{}}}
}

func TestCreateMail_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sender := author()

	f.resolver.On("GetProfile", mock.Anything, "rcpt1111").Return(recipient("rcpt1111"), nil)
	f.blocks.On("IsBlocked", mock.Anything, sender.ID, "rcpt1111").Return(false, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(letter *Mail) bool {
		return letter.AuthorID == sender.ID &&
			letter.State == StateUnread &&
			len(letter.Recipients) == 1 && letter.Recipients[0] == "rcpt1111"
	})).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.MatchedBy(func(input notifications.Create) bool {
		return input.Recipient == "rcpt1111" &&
			input.Title == "@alice sent you new mail!" &&
			strings.HasPrefix(input.Address, "/inbox/mail/letter/")
	})).Return(&notifications.Notification{ID: "n1"}, nil)

	letter, err := f.service.CreateMail(ctx, Create{
		Title:      "Hello",
		Content:    "How are you?",
		Recipients: []string{"rcpt1111"},
	}, sender)
	require.NoError(t, err)
	assert.NotEmpty(t, letter.ID)

	f.repo.AssertExpectations(t)
	f.notify.AssertExpectations(t)
}

func TestCreateMail_TitleTooShort(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateMail(ctx, Create{Title: "x", Content: "hello there"}, author())
	assert.ErrorIs(t, err, errs.ErrValue)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateMail_ContentTooLong(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateMail(ctx, Create{
		Title:   "Hello",
		Content: strings.Repeat("a", contentMax+1),
	}, author())
	assert.ErrorIs(t, err, errs.ErrTooLong)
}

func TestCreateMail_ContentRendersEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Markdown that renders to no visible text.
	_, err := f.service.CreateMail(ctx, Create{Title: "Hello", Content: "   \n   "}, author())
	assert.ErrorIs(t, err, errs.ErrValue)
}

func TestCreateMail_SkipsDisabledMailbox(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sender := author()

	disabled := recipient("rcpt1111")
	disabled.Metadata.KV[profiles.KeyDisableMailbox] = "true"
	f.resolver.On("GetProfile", mock.Anything, "rcpt1111").Return(disabled, nil)

	_, err := f.service.CreateMail(ctx, Create{
		Title:      "Hello",
		Content:    "How are you?",
		Recipients: []string{"rcpt1111"},
	}, sender)
	// The only recipient was dropped, so nothing is deliverable.
	assert.ErrorIs(t, err, errs.ErrValue)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateMail_SkipsBlockedPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sender := author()

	f.resolver.On("GetProfile", mock.Anything, "rcpt1111").Return(recipient("rcpt1111"), nil)
	f.resolver.On("GetProfile", mock.Anything, "rcpt2222").Return(recipient("rcpt2222"), nil)
	f.blocks.On("IsBlocked", mock.Anything, sender.ID, "rcpt1111").Return(true, nil)
	f.blocks.On("IsBlocked", mock.Anything, sender.ID, "rcpt2222").Return(false, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(letter *Mail) bool {
		return len(letter.Recipients) == 1 && letter.Recipients[0] == "rcpt2222"
	})).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.Anything).
		Return(&notifications.Notification{ID: "n1"}, nil)

	letter, err := f.service.CreateMail(ctx, Create{
		Title:      "Hello",
		Content:    "How are you?",
		Recipients: []string{"rcpt1111", "rcpt2222"},
	}, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"rcpt2222"}, letter.Recipients)
}

func TestCreateMail_FederatedRecipient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sender := author()

	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.remote.On("SendRemoteMail", mock.Anything, "peer.example", mock.MatchedBy(func(letter *Mail) bool {
		return len(letter.Recipients) == 1 && letter.Recipients[0] == "peer.example@remote99"
	})).Return(nil)

	letter, err := f.service.CreateMail(ctx, Create{
		Title:      "Hello",
		Content:    "How are you?",
		Recipients: []string{"peer.example@remote99"},
	}, sender)
	require.NoError(t, err)
	assert.Equal(t, []string{"peer.example@remote99"}, letter.Recipients)

	f.remote.AssertExpectations(t)
	// Remote recipients never resolve locally.
	f.resolver.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestReceiveRemote_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.resolver.On("GetProfile", mock.Anything, "rcpt1111").Return(recipient("rcpt1111"), nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(letter *Mail) bool {
		return letter.ID != "peer-id" && letter.AuthorID == "peer.example@auth9999"
	})).Return(nil)
	f.notify.On("CreateNotification", mock.Anything, mock.MatchedBy(func(input notifications.Create) bool {
		return input.Recipient == "rcpt1111"
	})).Return(&notifications.Notification{ID: "n1"}, nil)

	stored, err := f.service.ReceiveRemote(ctx, &Mail{
		ID:         "peer-id",
		Title:      "Hello",
		Content:    "From afar",
		AuthorID:   "peer.example@auth9999",
		Recipients: []string{"rcpt1111"},
	})
	require.NoError(t, err)
	// Incoming letters always get a fresh local id.
	assert.NotEqual(t, "peer-id", stored.ID)
}

func TestReceiveRemote_UnqualifiedAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.ReceiveRemote(ctx, &Mail{
		Title:      "Hello",
		Content:    "From afar",
		AuthorID:   "auth9999",
		Recipients: []string{"rcpt1111"},
	})
	assert.ErrorIs(t, err, errs.ErrValue)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReceiveRemote_UnresolvableRecipientsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.resolver.On("GetProfile", mock.Anything, "ghost").Return(nil, errs.ErrNotFound)

	_, err := f.service.ReceiveRemote(ctx, &Mail{
		Title:      "Hello",
		Content:    "From afar",
		AuthorID:   "peer.example@auth9999",
		Recipients: []string{"ghost"},
	})
	assert.ErrorIs(t, err, errs.ErrValue)
}

func TestGetMail_Participant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := recipient("rcpt1111")

	f.repo.On("Get", mock.Anything, "m1").
		Return(&Mail{ID: "m1", AuthorID: "auth1111", Recipients: []string{"rcpt1111"}}, nil)

	letter, err := f.service.GetMail(ctx, "m1", actor)
	require.NoError(t, err)
	assert.Equal(t, "m1", letter.ID)
}

func TestGetMail_StrangerNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := recipient("stranger1")

	f.repo.On("Get", mock.Anything, "m1").
		Return(&Mail{ID: "m1", AuthorID: "auth1111", Recipients: []string{"rcpt1111"}}, nil)
	f.staff.On("IsHelper", mock.Anything, actor).Return(false, nil)

	// Non-participants must not learn the letter exists.
	_, err := f.service.GetMail(ctx, "m1", actor)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGetMail_HelperAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := recipient("staff111")

	f.repo.On("Get", mock.Anything, "m1").
		Return(&Mail{ID: "m1", AuthorID: "auth1111", Recipients: []string{"rcpt1111"}}, nil)
	f.staff.On("IsHelper", mock.Anything, actor).Return(true, nil)

	_, err := f.service.GetMail(ctx, "m1", actor)
	assert.NoError(t, err)
}

func TestUpdateMailState_InvalidState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	err := f.service.UpdateMailState(ctx, "m1", SetState{State: "Archived"}, author())
	assert.ErrorIs(t, err, errs.ErrValue)
	f.repo.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateMailState_Recipient(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := recipient("rcpt1111")

	f.repo.On("Get", mock.Anything, "m1").
		Return(&Mail{ID: "m1", AuthorID: "auth1111", Recipients: []string{"rcpt1111"}, State: StateUnread}, nil)
	f.repo.On("UpdateState", mock.Anything, "m1", StateRead).Return(nil)

	require.NoError(t, f.service.UpdateMailState(ctx, "m1", SetState{State: StateRead}, actor))
	f.repo.AssertExpectations(t)
}

func TestDeleteMail_Author(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	actor := author()

	f.repo.On("Get", mock.Anything, "m1").
		Return(&Mail{ID: "m1", AuthorID: actor.ID, Recipients: []string{"rcpt1111"}}, nil)
	f.repo.On("Delete", mock.Anything, "m1").Return(nil)

	require.NoError(t, f.service.DeleteMail(ctx, "m1", actor))
	f.repo.AssertExpectations(t)
}
