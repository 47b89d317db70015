// Package notifications implements per-user notifications, moderation
// warnings and the audit log stream.
package notifications

import "strings"

// Broadcast recipients. Anything else is a user id.
const (
	// RecipientStaff fans the notification out to all staff.
	RecipientStaff = "*"
	// RecipientAudit addresses the moderation audit log.
	RecipientAudit = "*(audit)"
)

// Notification is a single inbox entry. Recipient is a user id or one of
// the broadcast selectors.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Address   string `json:"address"`
	TS        uint64 `json:"timestamp"`
	Recipient string `json:"recipient"`
}

// IsBroadcast reports whether the recipient is a selector rather than a
// user id. Broadcast notifications do not touch per-user counters.
func (n Notification) IsBroadcast() bool {
	return strings.HasPrefix(n.Recipient, "*")
}

// Create is the input for creating a notification.
type Create struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Address   string `json:"address"`
	Recipient string `json:"recipient"`
}

// Warning is a moderator-issued account warning. Creating one always
// notifies the recipient.
type Warning struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	TS          uint64 `json:"timestamp"`
	Recipient   string `json:"recipient"`
	ModeratorID string `json:"moderator"`
}

// WarningCreate is the input for issuing a warning.
type WarningCreate struct {
	Content   string `json:"content"`
	Recipient string `json:"recipient"`
}
