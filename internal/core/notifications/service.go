package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/core/profiles"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

type notificationService struct {
	repo   Repository
	cache  cache.Cache
	groups groups.Service
}

// NewService creates the notification service.
func NewService(repo Repository, c cache.Cache, g groups.Service) Service {
	return &notificationService{repo: repo, cache: c, groups: g}
}

// CreateNotification stores the notification and bumps the per-user
// counter. The incr happens after the insert succeeds, in the same task,
// so a cancelled request never leaves a phantom count.
func (s *notificationService) CreateNotification(ctx context.Context, input Create) (*Notification, error) {
	notification := &Notification{
		ID:        idgen.NewID(),
		Title:     input.Title,
		Content:   input.Content,
		Address:   input.Address,
		TS:        profiles.NowMs(),
		Recipient: input.Recipient,
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}

	if !notification.IsBroadcast() {
		if err := s.cache.Incr(ctx, keys.NotificationCount(notification.Recipient)); err != nil {
			slog.Warn("failed to incr notification count",
				slog.String("recipient", notification.Recipient),
				slog.String("error", err.Error()))
		}
	}

	return notification, nil
}

// GetNotification reads a notification cache-aside.
func (s *notificationService) GetNotification(ctx context.Context, id string) (*Notification, error) {
	key := keys.Notification(id)

	if cached, ok := s.cache.Get(ctx, key); ok {
		notification := &Notification{}
		if err := json.Unmarshal([]byte(cached), notification); err == nil {
			return notification, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt notification", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	notification, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(notification); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache notification", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return notification, nil
}

func (s *notificationService) ListNotifications(ctx context.Context, recipient string) ([]*Notification, error) {
	return s.repo.ListByRecipient(ctx, recipient)
}

// ListBroadcasts reads the entries fanned out to every staff member,
// the audit log included.
func (s *notificationService) ListBroadcasts(ctx context.Context, selector string, actor *profiles.Profile) ([]*Notification, error) {
	if selector != RecipientStaff && selector != RecipientAudit {
		return nil, fmt.Errorf("unknown broadcast selector %q: %w", selector, errs.ErrValue)
	}

	helper, err := s.isHelper(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !helper {
		return nil, fmt.Errorf("only staff may read broadcasts: %w", errs.ErrNotAllowed)
	}

	return s.repo.ListByRecipient(ctx, selector)
}

// DeleteNotification removes a notification. Only the recipient or a
// Helper may delete.
func (s *notificationService) DeleteNotification(ctx context.Context, id string, actor *profiles.Profile) error {
	notification, err := s.GetNotification(ctx, id)
	if err != nil {
		return err
	}

	if notification.Recipient != actor.ID {
		helper, err := s.isHelper(ctx, actor)
		if err != nil {
			return err
		}
		if !helper {
			return fmt.Errorf("only the recipient may delete a notification: %w", errs.ErrNotAllowed)
		}
	}

	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return err
	}

	if err := s.cache.Remove(ctx, keys.Notification(id)); err != nil {
		slog.Warn("failed to evict notification", slog.String("id", id), slog.String("error", err.Error()))
	}
	if !notification.IsBroadcast() {
		if err := s.cache.Decr(ctx, keys.NotificationCount(notification.Recipient)); err != nil {
			slog.Warn("failed to decr notification count",
				slog.String("recipient", notification.Recipient),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

// ClearNotifications removes every notification addressed to the actor.
func (s *notificationService) ClearNotifications(ctx context.Context, actor *profiles.Profile) error {
	listed, err := s.repo.ListByRecipient(ctx, actor.ID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAllByRecipient(ctx, actor.ID); err != nil {
		return err
	}

	for _, notification := range listed {
		if err := s.cache.Remove(ctx, keys.Notification(notification.ID)); err != nil {
			slog.Warn("failed to evict notification", slog.String("id", notification.ID), slog.String("error", err.Error()))
		}
	}
	if err := s.cache.Remove(ctx, keys.NotificationCount(actor.ID)); err != nil {
		slog.Warn("failed to reset notification count", slog.String("recipient", actor.ID), slog.String("error", err.Error()))
	}

	return nil
}

// GetNotificationCount returns the counter, priming it on a miss by
// counting rows. Counter keys are advisory; a recount is always possible.
func (s *notificationService) GetNotificationCount(ctx context.Context, recipient string) (int64, error) {
	key := keys.NotificationCount(recipient)

	if cached, ok := s.cache.Get(ctx, key); ok {
		if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return count, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt counter", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	count, err := s.repo.CountByRecipient(ctx, recipient)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10)); err != nil {
		slog.Warn("failed to prime counter", slog.String("key", key), slog.String("error", err.Error()))
	}

	return count, nil
}

// CreateWarning issues an account warning and notifies the recipient.
func (s *notificationService) CreateWarning(ctx context.Context, input WarningCreate, moderator *profiles.Profile) (*Warning, error) {
	helper, err := s.isHelper(ctx, moderator)
	if err != nil {
		return nil, err
	}
	if !helper {
		return nil, fmt.Errorf("only staff may create warnings: %w", errs.ErrNotAllowed)
	}

	warning := &Warning{
		ID:          idgen.NewID(),
		Content:     input.Content,
		TS:          profiles.NowMs(),
		Recipient:   input.Recipient,
		ModeratorID: moderator.ID,
	}

	if err := s.repo.CreateWarning(ctx, warning); err != nil {
		return nil, err
	}

	if _, err := s.CreateNotification(ctx, Create{
		Title:     "You have received an account warning!",
		Content:   warning.Content,
		Recipient: warning.Recipient,
	}); err != nil {
		// The warning row exists; a lost side-effect notification is
		// tolerated.
		slog.Error("failed to notify warning recipient",
			slog.String("warning", warning.ID),
			slog.String("error", err.Error()))
	}

	return warning, nil
}

func (s *notificationService) GetWarning(ctx context.Context, id string) (*Warning, error) {
	key := keys.Warning(id)

	if cached, ok := s.cache.Get(ctx, key); ok {
		warning := &Warning{}
		if err := json.Unmarshal([]byte(cached), warning); err == nil {
			return warning, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt warning", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	warning, err := s.repo.GetWarning(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(warning); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache warning", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return warning, nil
}

// ListWarnings shows a user's warnings to the user or to staff.
func (s *notificationService) ListWarnings(ctx context.Context, recipient string, actor *profiles.Profile) ([]*Warning, error) {
	if recipient != actor.ID {
		helper, err := s.isHelper(ctx, actor)
		if err != nil {
			return nil, err
		}
		if !helper {
			return nil, fmt.Errorf("only staff may list other users' warnings: %w", errs.ErrNotAllowed)
		}
	}
	return s.repo.ListWarningsByRecipient(ctx, recipient)
}

func (s *notificationService) DeleteWarning(ctx context.Context, id string, actor *profiles.Profile) error {
	helper, err := s.isHelper(ctx, actor)
	if err != nil {
		return err
	}
	if !helper {
		return fmt.Errorf("only staff may delete warnings: %w", errs.ErrNotAllowed)
	}

	if err := s.repo.DeleteWarning(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Remove(ctx, keys.Warning(id)); err != nil {
		slog.Warn("failed to evict warning", slog.String("id", id), slog.String("error", err.Error()))
	}
	return nil
}

// Audit appends one entry to the audit stream.
func (s *notificationService) Audit(ctx context.Context, moderator *profiles.Profile, content string) error {
	_, err := s.CreateNotification(ctx, Create{
		Title:     "Moderation action",
		Content:   fmt.Sprintf("[@%s] %s", moderator.Username, content),
		Recipient: RecipientAudit,
	})
	return err
}

func (s *notificationService) isHelper(ctx context.Context, actor *profiles.Profile) (bool, error) {
	group, err := s.groups.GetGroup(ctx, actor.GroupID)
	if err != nil {
		return false, err
	}
	return group.Has(groups.PermHelper) || group.Has(groups.PermManager), nil
}
