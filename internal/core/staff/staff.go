// Package staff answers "is this actor staff" for components that gate
// operations on Helper or Manager.
package staff

import (
	"context"

	"rbeam/internal/core/groups"
	"rbeam/internal/core/profiles"
)

// Checker resolves an actor's group and checks staff bits.
type Checker struct {
	groups groups.Service
}

// NewChecker creates a staff checker.
func NewChecker(g groups.Service) *Checker {
	return &Checker{groups: g}
}

// IsHelper reports whether the actor holds Helper (Manager implies it).
func (c *Checker) IsHelper(ctx context.Context, actor *profiles.Profile) (bool, error) {
	group, err := c.groups.GetGroup(ctx, actor.GroupID)
	if err != nil {
		return false, err
	}
	return group.Has(groups.PermHelper) || group.Has(groups.PermManager), nil
}

// IsManager reports whether the actor holds Manager.
func (c *Checker) IsManager(ctx context.Context, actor *profiles.Profile) (bool, error) {
	group, err := c.groups.GetGroup(ctx, actor.GroupID)
	if err != nil {
		return false, err
	}
	return group.Has(groups.PermManager), nil
}
