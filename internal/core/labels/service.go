package labels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/profiles"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

const (
	nameMin = 2
	nameMax = 32
)

type labelService struct {
	repo    Repository
	cache   cache.Cache
	staff   StaffChecker
	labeler Labeler
}

// NewService creates the label service.
func NewService(repo Repository, c cache.Cache, staff StaffChecker, labeler Labeler) Service {
	return &labelService{repo: repo, cache: c, staff: staff, labeler: labeler}
}

// CreateLabel adds a pool entry. Helper-only.
func (s *labelService) CreateLabel(ctx context.Context, input Create, actor *profiles.Profile) (*UserLabel, error) {
	if err := s.requireHelper(ctx, actor); err != nil {
		return nil, err
	}
	if len(input.Name) < nameMin || len(input.Name) > nameMax {
		return nil, fmt.Errorf("label name must be %d-%d characters: %w", nameMin, nameMax, errs.ErrValue)
	}

	label := &UserLabel{
		ID:        idgen.NewID(),
		Name:      input.Name,
		TS:        profiles.NowMs(),
		CreatorID: actor.ID,
	}

	if err := s.repo.Create(ctx, label); err != nil {
		return nil, err
	}
	return label, nil
}

// GetLabel reads a pool entry cache-aside.
func (s *labelService) GetLabel(ctx context.Context, id string) (*UserLabel, error) {
	key := keys.Label(id)
	if cached, ok := s.cache.Get(ctx, key); ok {
		label := &UserLabel{}
		if err := json.Unmarshal([]byte(cached), label); err == nil {
			return label, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt label", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	label, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(label); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache label", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return label, nil
}

func (s *labelService) ListLabels(ctx context.Context) ([]*UserLabel, error) {
	return s.repo.List(ctx)
}

// DeleteLabel removes a pool entry. Helper-only.
func (s *labelService) DeleteLabel(ctx context.Context, id string, actor *profiles.Profile) error {
	if err := s.requireHelper(ctx, actor); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Remove(ctx, keys.Label(id)); err != nil {
		slog.Warn("failed to evict label", slog.String("id", id), slog.String("error", err.Error()))
	}
	return nil
}

// AssignLabels replaces the target's label list with pool entries.
func (s *labelService) AssignLabels(ctx context.Context, target *profiles.Profile, assigned []string, actor *profiles.Profile) error {
	if err := s.requireHelper(ctx, actor); err != nil {
		return err
	}

	for _, id := range assigned {
		if _, err := s.GetLabel(ctx, id); err != nil {
			return fmt.Errorf("label %q is not in the pool: %w", id, errs.ErrValue)
		}
	}

	return s.labeler.UpdateLabels(ctx, target.ID, assigned)
}

func (s *labelService) requireHelper(ctx context.Context, actor *profiles.Profile) error {
	helper, err := s.staff.IsHelper(ctx, actor)
	if err != nil {
		return err
	}
	if !helper {
		return fmt.Errorf("staff permissions required: %w", errs.ErrNotAllowed)
	}
	return nil
}
