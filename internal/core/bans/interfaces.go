package bans

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists bans and blocks.
type Repository interface {
	CreateBan(ctx context.Context, ban *IpBan) error
	GetBan(ctx context.Context, id string) (*IpBan, error)
	GetBanByIP(ctx context.Context, ip string) (*IpBan, error)
	ListBans(ctx context.Context) ([]*IpBan, error)
	DeleteBan(ctx context.Context, id string) error

	CreateBlock(ctx context.Context, block *IpBlock) error
	GetBlock(ctx context.Context, id string) (*IpBlock, error)
	GetBlockByUserIP(ctx context.Context, userID, ip string) (*IpBlock, error)
	ListBlocksByUser(ctx context.Context, userID string) ([]*IpBlock, error)
	DeleteBlock(ctx context.Context, id string) error
}

// Service manages bans (staff) and blocks (per-user).
type Service interface {
	// IsBanned reports whether a source address carries a global ban.
	IsBanned(ctx context.Context, ip string) (bool, error)

	// CreateBan requires Helper; it is unique per IP and audited.
	CreateBan(ctx context.Context, input BanCreate, moderator *profiles.Profile) (*IpBan, error)

	GetBan(ctx context.Context, id string, actor *profiles.Profile) (*IpBan, error)
	ListBans(ctx context.Context, actor *profiles.Profile) ([]*IpBan, error)

	// DeleteBan requires Helper; deleting another moderator's ban
	// additionally requires Manager. Audited either way.
	DeleteBan(ctx context.Context, id string, actor *profiles.Profile) error

	// CreateBlock adds a personal block, unique per (user, ip).
	CreateBlock(ctx context.Context, input BlockCreate, actor *profiles.Profile) (*IpBlock, error)

	ListBlocks(ctx context.Context, actor *profiles.Profile) ([]*IpBlock, error)

	// DeleteBlock requires ownership, or Manager for another user's block.
	DeleteBlock(ctx context.Context, id string, actor *profiles.Profile) error
}
