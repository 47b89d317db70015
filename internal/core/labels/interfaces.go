package labels

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists the label pool.
type Repository interface {
	Create(ctx context.Context, label *UserLabel) error
	Get(ctx context.Context, id string) (*UserLabel, error)
	List(ctx context.Context) ([]*UserLabel, error)
	Delete(ctx context.Context, id string) error
}

// StaffChecker reports whether an actor holds Helper.
type StaffChecker interface {
	IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error)
}

// Labeler assigns a label list to a profile.
type Labeler interface {
	UpdateLabels(ctx context.Context, id string, labels []string) error
}

// Service manages the label pool and assignments.
type Service interface {
	// CreateLabel adds a label to the pool; Helper-only.
	CreateLabel(ctx context.Context, input Create, actor *profiles.Profile) (*UserLabel, error)

	GetLabel(ctx context.Context, id string) (*UserLabel, error)
	ListLabels(ctx context.Context) ([]*UserLabel, error)

	// DeleteLabel removes a pool entry; Helper-only.
	DeleteLabel(ctx context.Context, id string, actor *profiles.Profile) error

	// AssignLabels replaces a profile's label list; Helper-only. Every
	// assigned label must exist in the pool.
	AssignLabels(ctx context.Context, target *profiles.Profile, assigned []string, actor *profiles.Profile) error
}
