// Package bans implements global IP bans and per-user IP blocks.
// Bans gate registration and login; blocks are a personal filter.
package bans

// IpBan is a global, staff-managed ban of a source address.
type IpBan struct {
	ID          string `json:"id"`
	IP          string `json:"ip"`
	Reason      string `json:"reason"`
	ModeratorID string `json:"moderator"`
	TS          uint64 `json:"timestamp"`
}

// BanCreate is the input for creating an IP ban.
type BanCreate struct {
	IP     string `json:"ip"`
	Reason string `json:"reason"`
}

// IpBlock is one user's personal block of an address. It does not affect
// the account behind the address globally.
type IpBlock struct {
	ID     string `json:"id"`
	IP     string `json:"ip"`
	UserID string `json:"user"`
	TS     uint64 `json:"timestamp"`
}

// BlockCreate is the input for creating an IP block.
type BlockCreate struct {
	IP string `json:"ip"`
}
