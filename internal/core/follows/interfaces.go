package follows

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists follow edges.
type Repository interface {
	// Exists reports whether user follows following.
	Exists(ctx context.Context, user, following string) (bool, error)
	Create(ctx context.Context, edge *UserFollow) error
	Delete(ctx context.Context, user, following string) error
	ListFollowers(ctx context.Context, id string) ([]*UserFollow, error)
	ListFollowing(ctx context.Context, id string) ([]*UserFollow, error)
	CountFollowers(ctx context.Context, id string) (int64, error)
	CountFollowing(ctx context.Context, id string) (int64, error)
}

// Service manages follow edges and counters.
type Service interface {
	// Toggle follows other if no edge exists, otherwise unfollows.
	// Returns true when the result is a follow. A new follow notifies
	// the followed user.
	Toggle(ctx context.Context, actor, other *profiles.Profile) (bool, error)

	// ForceRemove deletes the edge without notifications; used when a
	// block is established.
	ForceRemove(ctx context.Context, user, following string) error

	// IsFollowing reports whether user follows following.
	IsFollowing(ctx context.Context, user, following string) (bool, error)

	ListFollowers(ctx context.Context, id string) ([]*UserFollow, error)
	ListFollowing(ctx context.Context, id string) ([]*UserFollow, error)

	// Counter reads prime the cache from a row count on a miss.
	GetFollowersCount(ctx context.Context, id string) (int64, error)
	GetFollowingCount(ctx context.Context, id string) (int64, error)
}
