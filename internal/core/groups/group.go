// Package groups provides the immutable permission-group lookup data.
package groups

// Permission is a single bit in a group's permission set.
type Permission uint32

const (
	// PermHelper marks staff able to moderate content and view reports.
	PermHelper Permission = 1 << iota
	// PermManager marks staff able to manage other staff and delete accounts.
	// Manager implies Helper semantically but is checked distinctly.
	PermManager
	// PermEditUser allows editing another user's profile fields.
	PermEditUser
	// PermBanIP allows managing global IP bans.
	PermBanIP
)

// Group is an immutable row of lookup data keyed by a small integer id.
type Group struct {
	ID          int32      `json:"id"`
	Name        string     `json:"name"`
	Permissions Permission `json:"permissions"`
}

// Has reports whether the group carries the permission bit.
func (g Group) Has(p Permission) bool {
	return g.Permissions&p != 0
}

// Default is the zero-permission group returned for unknown ids.
func Default(id int32) Group {
	return Group{ID: id, Name: "default"}
}
