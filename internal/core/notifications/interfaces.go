package notifications

import (
	"context"

	"rbeam/internal/core/profiles"
)

// Repository persists notifications and warnings.
type Repository interface {
	CreateNotification(ctx context.Context, notification *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipient string) ([]*Notification, error)
	DeleteNotification(ctx context.Context, id string) error
	DeleteAllByRecipient(ctx context.Context, recipient string) error
	CountByRecipient(ctx context.Context, recipient string) (int64, error)

	CreateWarning(ctx context.Context, warning *Warning) error
	GetWarning(ctx context.Context, id string) (*Warning, error)
	ListWarningsByRecipient(ctx context.Context, recipient string) ([]*Warning, error)
	DeleteWarning(ctx context.Context, id string) error
}

// Service is the notification pipeline used by every domain component.
type Service interface {
	// CreateNotification stores the notification and bumps the
	// recipient's counter (broadcasts are not counted).
	CreateNotification(ctx context.Context, input Create) (*Notification, error)

	GetNotification(ctx context.Context, id string) (*Notification, error)
	ListNotifications(ctx context.Context, recipient string) ([]*Notification, error)

	// ListBroadcasts lists the staff stream or the moderation audit
	// log. Helper-only.
	ListBroadcasts(ctx context.Context, selector string, actor *profiles.Profile) ([]*Notification, error)

	// DeleteNotification requires the actor to be the recipient or a
	// Helper.
	DeleteNotification(ctx context.Context, id string, actor *profiles.Profile) error

	// ClearNotifications removes every notification addressed to the
	// actor and resets the counter.
	ClearNotifications(ctx context.Context, actor *profiles.Profile) error

	// GetNotificationCount reads the counter key, priming it from a row
	// count on a miss.
	GetNotificationCount(ctx context.Context, recipient string) (int64, error)

	// CreateWarning is moderator-only; it also notifies the recipient.
	CreateWarning(ctx context.Context, input WarningCreate, moderator *profiles.Profile) (*Warning, error)

	GetWarning(ctx context.Context, id string) (*Warning, error)
	ListWarnings(ctx context.Context, recipient string, actor *profiles.Profile) ([]*Warning, error)
	DeleteWarning(ctx context.Context, id string, actor *profiles.Profile) error

	// Audit appends an entry to the moderation audit log. Every
	// privileged moderation mutation must call it.
	Audit(ctx context.Context, moderator *profiles.Profile, content string) error
}
