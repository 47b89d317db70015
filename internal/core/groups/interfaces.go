package groups

import "context"

// Repository loads group rows from the relational store.
type Repository interface {
	GetByID(ctx context.Context, id int32) (Group, error)
}

// Service resolves groups with indefinite caching and tolerant defaults.
type Service interface {
	// GetGroup returns the group for id, or the zero-permission default
	// when the id has no row. Missing ids are not an error.
	GetGroup(ctx context.Context, id int32) (Group, error)
}
