package relationships

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists relationship rows. Lookups match (a,b) in either
// order; at most one row exists per unordered pair.
type Repository interface {
	Get(ctx context.Context, a, b string) (*Relationship, error)
	Create(ctx context.Context, rel *Relationship) error
	UpdateStatus(ctx context.Context, one, two string, status Status) error
	Delete(ctx context.Context, a, b string) error
	ListByStatus(ctx context.Context, user string, status Status) ([]*Relationship, error)
	CountFriends(ctx context.Context, user string) (int64, error)
}

// Service drives the state machine.
type Service interface {
	// GetRelationship returns the status and the stored ordering, or
	// (Unknown, a, b) when no row exists.
	GetRelationship(ctx context.Context, a, b string) (Status, string, string, error)

	// Friend advances toward Friends: no row means a new request
	// (Pending); a Pending row accepted by the requested party becomes
	// Friends. The transition notifies the other party.
	Friend(ctx context.Context, actor, other *profiles.Profile) (Status, error)

	// Block establishes a block with the actor as the blocker,
	// resetting row ordering if needed and force-removing follow edges
	// in both directions.
	Block(ctx context.Context, actor, other *profiles.Profile) error

	// Remove returns the pair to Unknown: cancel a request, unfriend,
	// or (blocker only) unblock.
	Remove(ctx context.Context, actor, other *profiles.Profile) error

	// IsBlocked reports whether the pair is blocked in either direction.
	IsBlocked(ctx context.Context, a, b string) (bool, error)

	ListFriends(ctx context.Context, user string) ([]*Relationship, error)

	// GetFriendsCount reads the counter key, priming on a miss.
	GetFriendsCount(ctx context.Context, user string) (int64, error)
}
