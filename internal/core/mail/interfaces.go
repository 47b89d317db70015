package mail

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists letters.
type Repository interface {
	Create(ctx context.Context, mail *Mail) error
	Get(ctx context.Context, id string) (*Mail, error)

	// ListByRecipient matches the recipient inside the JSON list, with
	// a legacy equality fallback for single-string rows.
	ListByRecipient(ctx context.Context, recipient string) ([]*Mail, error)
	ListByAuthor(ctx context.Context, author string) ([]*Mail, error)

	UpdateState(ctx context.Context, id string, state State) error
	Delete(ctx context.Context, id string) error
}

// RemoteMailer delivers a single-recipient copy to a federated peer.
// The implementation verifies the peer advertises the Mail schema.
type RemoteMailer interface {
	SendRemoteMail(ctx context.Context, server string, letter *Mail) error
}

// ProfileResolver resolves recipient ids to profiles.
type ProfileResolver interface {
	GetProfile(ctx context.Context, id string) (*profiles.Profile, error)
}

// StaffChecker reports whether an actor holds Helper.
type StaffChecker interface {
	IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error)
}

// BlockChecker reports whether a pair is blocked in either direction.
type BlockChecker interface {
	IsBlocked(ctx context.Context, a, b string) (bool, error)
}

// Service is the mail core.
type Service interface {
	// CreateMail validates, filters recipients (disabled mailboxes and
	// blocked pairs are silently skipped), stores one row, notifies
	// each local recipient and forwards copies to federated peers.
	CreateMail(ctx context.Context, input Create, author *profiles.Profile) (*Mail, error)

	// GetMail returns a letter to a participant or a Helper.
	GetMail(ctx context.Context, id string, actor *profiles.Profile) (*Mail, error)

	GetInbox(ctx context.Context, actor *profiles.Profile) ([]*Mail, error)
	GetOutbox(ctx context.Context, actor *profiles.Profile) ([]*Mail, error)

	// UpdateMailState transitions the read state. Author, recipient or
	// Helper may transition.
	UpdateMailState(ctx context.Context, id string, input SetState, actor *profiles.Profile) error

	// DeleteMail removes a letter; participant or Helper.
	DeleteMail(ctx context.Context, id string, actor *profiles.Profile) error

	// ReceiveRemote accepts a letter delivered by a federated peer. The
	// author id must already carry the server@id form.
	ReceiveRemote(ctx context.Context, letter *Mail) (*Mail, error)
}
