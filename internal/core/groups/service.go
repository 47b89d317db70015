package groups

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/keys"
)

type groupService struct {
	repo  Repository
	cache cache.Cache
}

// NewService creates the group lookup service.
func NewService(repo Repository, c cache.Cache) Service {
	return &groupService{repo: repo, cache: c}
}

// GetGroup resolves a group id, caching rows indefinitely. Group rows are
// immutable, so the cache is never evicted.
func (s *groupService) GetGroup(ctx context.Context, id int32) (Group, error) {
	key := keys.Group(id)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var group Group
		if err := json.Unmarshal([]byte(cached), &group); err == nil {
			return group, nil
		}
		// Corrupt entry: evict and fall through to the store.
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt group entry", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Default(id), nil
		}
		return Group{}, err
	}

	if encoded, err := json.Marshal(group); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache group", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return group, nil
}
