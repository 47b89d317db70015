package follows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/keys"
)

type followService struct {
	repo   Repository
	cache  cache.Cache
	notify notifications.Service
}

// NewService creates the follow service.
func NewService(repo Repository, c cache.Cache, notify notifications.Service) Service {
	return &followService{repo: repo, cache: c, notify: notify}
}

// Toggle flips the follow edge actor→other. The row write lands first;
// counters move in the same task only after it succeeds.
func (s *followService) Toggle(ctx context.Context, actor, other *profiles.Profile) (bool, error) {
	if actor.ID == other.ID {
		return false, fmt.Errorf("cannot follow yourself: %w", errs.ErrOther)
	}

	exists, err := s.repo.Exists(ctx, actor.ID, other.ID)
	if err != nil {
		return false, err
	}

	if exists {
		if err := s.repo.Delete(ctx, actor.ID, other.ID); err != nil {
			return false, err
		}
		s.adjustCounters(ctx, actor.ID, other.ID, false)
		return false, nil
	}

	if err := s.repo.Create(ctx, &UserFollow{User: actor.ID, Following: other.ID}); err != nil {
		return false, err
	}
	s.adjustCounters(ctx, actor.ID, other.ID, true)

	if _, err := s.notify.CreateNotification(ctx, notifications.Create{
		Title:     fmt.Sprintf("@%s followed you!", actor.Username),
		Content:   fmt.Sprintf("You have a new follower: @%s", actor.Username),
		Address:   fmt.Sprintf("/@%s", actor.Username),
		Recipient: other.ID,
	}); err != nil {
		slog.Error("failed to notify new follower",
			slog.String("user", actor.ID),
			slog.String("following", other.ID),
			slog.String("error", err.Error()))
	}

	return true, nil
}

// ForceRemove deletes the edge if present, without notifications.
func (s *followService) ForceRemove(ctx context.Context, user, following string) error {
	exists, err := s.repo.Exists(ctx, user, following)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.repo.Delete(ctx, user, following); err != nil {
		return err
	}
	s.adjustCounters(ctx, user, following, false)
	return nil
}

func (s *followService) IsFollowing(ctx context.Context, user, following string) (bool, error) {
	return s.repo.Exists(ctx, user, following)
}

func (s *followService) ListFollowers(ctx context.Context, id string) ([]*UserFollow, error) {
	return s.repo.ListFollowers(ctx, id)
}

func (s *followService) ListFollowing(ctx context.Context, id string) ([]*UserFollow, error) {
	return s.repo.ListFollowing(ctx, id)
}

// GetFollowersCount reads the counter key, priming it from a row count.
func (s *followService) GetFollowersCount(ctx context.Context, id string) (int64, error) {
	return s.counter(ctx, keys.FollowersCount(id), func() (int64, error) {
		return s.repo.CountFollowers(ctx, id)
	})
}

// GetFollowingCount reads the counter key, priming it from a row count.
func (s *followService) GetFollowingCount(ctx context.Context, id string) (int64, error) {
	return s.counter(ctx, keys.FollowingCount(id), func() (int64, error) {
		return s.repo.CountFollowing(ctx, id)
	})
}

// adjustCounters moves the display counters after a successful row write.
// Drift under crash is acceptable; a cache miss triggers a recount.
func (s *followService) adjustCounters(ctx context.Context, user, following string, up bool) {
	apply := s.cache.Decr
	if up {
		apply = s.cache.Incr
	}
	if err := apply(ctx, keys.FollowingCount(user)); err != nil {
		slog.Warn("failed to adjust following count", slog.String("id", user), slog.String("error", err.Error()))
	}
	if err := apply(ctx, keys.FollowersCount(following)); err != nil {
		slog.Warn("failed to adjust followers count", slog.String("id", following), slog.String("error", err.Error()))
	}
}

func (s *followService) counter(ctx context.Context, key string, count func() (int64, error)) (int64, error) {
	if cached, ok := s.cache.Get(ctx, key); ok {
		if parsed, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return parsed, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt counter", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	counted, err := count()
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(counted, 10)); err != nil {
		slog.Warn("failed to prime counter", slog.String("key", key), slog.String("error", err.Error()))
	}

	return counted, nil
}
