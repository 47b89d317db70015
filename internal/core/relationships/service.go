package relationships

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/follows"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/keys"
)

type relationshipService struct {
	repo    Repository
	cache   cache.Cache
	follows follows.Service
	notify  notifications.Service
}

// NewService creates the relationship service.
func NewService(repo Repository, c cache.Cache, f follows.Service, notify notifications.Service) Service {
	return &relationshipService{repo: repo, cache: c, follows: f, notify: notify}
}

// GetRelationship returns the pair's status and stored ordering.
func (s *relationshipService) GetRelationship(ctx context.Context, a, b string) (Status, string, string, error) {
	rel, err := s.repo.Get(ctx, a, b)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return StatusUnknown, a, b, nil
		}
		return StatusUnknown, a, b, err
	}
	return rel.Status, rel.One, rel.Two, nil
}

// Friend sends or accepts a friend request.
func (s *relationshipService) Friend(ctx context.Context, actor, other *profiles.Profile) (Status, error) {
	if actor.ID == other.ID {
		return StatusUnknown, fmt.Errorf("cannot friend yourself: %w", errs.ErrOther)
	}

	status, one, two, err := s.GetRelationship(ctx, actor.ID, other.ID)
	if err != nil {
		return StatusUnknown, err
	}

	switch status {
	case StatusBlocked:
		// Neither party advances a blocked pair through this path; the
		// blocker must unblock first.
		return StatusUnknown, fmt.Errorf("relationship is blocked: %w", errs.ErrNotAllowed)

	case StatusFriends:
		return StatusFriends, fmt.Errorf("already friends: %w", errs.ErrMustBeUnique)

	case StatusPending:
		if actor.ID == one {
			return StatusPending, fmt.Errorf("request already sent: %w", errs.ErrMustBeUnique)
		}
		// The requested party accepts.
		if err := s.repo.UpdateStatus(ctx, one, two, StatusFriends); err != nil {
			return StatusPending, err
		}
		s.adjustFriendCounters(ctx, one, two, true)

		if _, err := s.notify.CreateNotification(ctx, notifications.Create{
			Title:     fmt.Sprintf("@%s accepted your friend request!", actor.Username),
			Content:   fmt.Sprintf("You are now friends with @%s.", actor.Username),
			Address:   fmt.Sprintf("/@%s", actor.Username),
			Recipient: one,
		}); err != nil {
			slog.Error("failed to notify request acceptance",
				slog.String("requester", one),
				slog.String("error", err.Error()))
		}
		return StatusFriends, nil

	default: // Unknown: a fresh request
		if other.Metadata.IsTrue(profiles.KeyLimitedFriendRequests) {
			followed, err := s.follows.IsFollowing(ctx, other.ID, actor.ID)
			if err != nil {
				return StatusUnknown, err
			}
			if !followed {
				return StatusUnknown, fmt.Errorf("user only accepts requests from people they follow: %w", errs.ErrNotAllowed)
			}
		}

		rel := &Relationship{
			One:    actor.ID,
			Two:    other.ID,
			Status: StatusPending,
			TS:     profiles.NowMs(),
		}
		if err := s.repo.Create(ctx, rel); err != nil {
			return StatusUnknown, err
		}

		if _, err := s.notify.CreateNotification(ctx, notifications.Create{
			Title:     fmt.Sprintf("@%s sent you a friend request!", actor.Username),
			Content:   "Click to accept or decline.",
			Address:   fmt.Sprintf("/@%s/relationship/friend_accept", actor.Username),
			Recipient: other.ID,
		}); err != nil {
			slog.Error("failed to notify friend request",
				slog.String("requested", other.ID),
				slog.String("error", err.Error()))
		}
		return StatusPending, nil
	}
}

// Block establishes actor as the blocker. A prior row not owned by the
// actor is deleted first so the new row's ordering names the blocker;
// follow edges are force-removed in both directions.
func (s *relationshipService) Block(ctx context.Context, actor, other *profiles.Profile) error {
	if actor.ID == other.ID {
		return fmt.Errorf("cannot block yourself: %w", errs.ErrOther)
	}

	status, one, two, err := s.GetRelationship(ctx, actor.ID, other.ID)
	if err != nil {
		return err
	}

	if status == StatusBlocked {
		if actor.ID != one {
			return fmt.Errorf("relationship is blocked: %w", errs.ErrNotAllowed)
		}
		// Blocking an already-blocked pair is a no-op.
		return nil
	}

	if status != StatusUnknown {
		if err := s.repo.Delete(ctx, one, two); err != nil {
			return err
		}
		if status == StatusFriends {
			s.adjustFriendCounters(ctx, one, two, false)
		}
	}

	if err := s.repo.Create(ctx, &Relationship{
		One:    actor.ID,
		Two:    other.ID,
		Status: StatusBlocked,
		TS:     profiles.NowMs(),
	}); err != nil {
		return err
	}

	if err := s.follows.ForceRemove(ctx, actor.ID, other.ID); err != nil {
		return err
	}
	if err := s.follows.ForceRemove(ctx, other.ID, actor.ID); err != nil {
		return err
	}

	return nil
}

// Remove returns the pair to Unknown.
func (s *relationshipService) Remove(ctx context.Context, actor, other *profiles.Profile) error {
	status, one, two, err := s.GetRelationship(ctx, actor.ID, other.ID)
	if err != nil {
		return err
	}

	switch status {
	case StatusUnknown:
		return nil
	case StatusBlocked:
		if actor.ID != one {
			return fmt.Errorf("relationship is blocked: %w", errs.ErrNotAllowed)
		}
	}

	if err := s.repo.Delete(ctx, one, two); err != nil {
		return err
	}
	if status == StatusFriends {
		s.adjustFriendCounters(ctx, one, two, false)
	}

	return nil
}

// IsBlocked reports whether either party blocked the other.
func (s *relationshipService) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	status, _, _, err := s.GetRelationship(ctx, a, b)
	if err != nil {
		return false, err
	}
	return status == StatusBlocked, nil
}

func (s *relationshipService) ListFriends(ctx context.Context, user string) ([]*Relationship, error) {
	return s.repo.ListByStatus(ctx, user, StatusFriends)
}

// GetFriendsCount reads the counter key, priming from a row count.
func (s *relationshipService) GetFriendsCount(ctx context.Context, user string) (int64, error) {
	key := keys.FriendsCount(user)

	if cached, ok := s.cache.Get(ctx, key); ok {
		if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return count, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt counter", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	count, err := s.repo.CountFriends(ctx, user)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10)); err != nil {
		slog.Warn("failed to prime counter", slog.String("key", key), slog.String("error", err.Error()))
	}

	return count, nil
}

func (s *relationshipService) adjustFriendCounters(ctx context.Context, one, two string, up bool) {
	apply := s.cache.Decr
	if up {
		apply = s.cache.Incr
	}
	for _, id := range []string{one, two} {
		if err := apply(ctx, keys.FriendsCount(id)); err != nil {
			slog.Warn("failed to adjust friends count", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
}
