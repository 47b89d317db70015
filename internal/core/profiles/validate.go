package profiles

import (
	"fmt"
	"regexp"
	"strings"

	"rbeam/internal/core/errs"
)

// Usernames are lowercase, 2-500 characters from a small safe alphabet,
// and may not collide with routing or system names.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.!]+$`)

var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"account":       {},
	"anonymous":     {},
	"login":         {},
	"sign_up":       {},
	"settings":      {},
	"api":           {},
	"intents":       {},
	"circles":       {},
	"chats":         {},
	"sites":         {},
	"responses":     {},
	"questions":     {},
	"comments":      {},
	"pages":         {},
	"inbox":         {},
	"system":        {},
	"market":        {},
	"search":        {},
	"notifications": {},
	"static":        {},
	"@":             {},
	"0":             {},
}

// ValidateUsername checks the username rules and returns the case-folded
// form. Failures are ErrValue.
func ValidateUsername(username string) (string, error) {
	folded := strings.ToLower(strings.TrimSpace(username))

	if len(folded) < 2 || len(folded) > 500 {
		return "", fmt.Errorf("username must be 2-500 characters: %w", errs.ErrValue)
	}
	if !usernameRegex.MatchString(folded) {
		return "", fmt.Errorf("username contains forbidden characters: %w", errs.ErrValue)
	}
	if _, reserved := reservedUsernames[folded]; reserved {
		return "", fmt.Errorf("username %q is reserved: %w", folded, errs.ErrValue)
	}

	return folded, nil
}

// Metadata kv values are capped per key; unknown keys are dropped silently.
const (
	metadataValueCap  = 64 * 64
	customCSSValueCap = 64 * 128
)

var allowedMetadataKeys = map[string]struct{}{
	"sparkler:display_name":           {},
	"sparkler:status_note":            {},
	"sparkler:status_emoji":           {},
	"sparkler:biography":              {},
	"sparkler:sidebar":                {},
	"sparkler:avatar_url":             {},
	"sparkler:banner_url":             {},
	"sparkler:website_theme":          {},
	"sparkler:layout":                 {},
	"sparkler:custom_css":             {},
	"sparkler:anonymous_username":     {},
	"sparkler:anonymous_avatar":       {},
	"sparkler:pinned":                 {},
	"sparkler:profile_theme":          {},
	"sparkler:motivational_header":    {},
	"sparkler:warning":                {},
	"sparkler:mail_signature":         {},
	KeyLimitedFriendRequests:          {},
	KeyDisableMailbox:                 {},
	"sparkler:private_profile":        {},
	"sparkler:disallow_anonymous":     {},
	"sparkler:require_account":        {},
	"sparkler:hide_social_followers":  {},
	"sparkler:hide_social_following":  {},
	"sparkler:hide_social_friends":    {},
	"rbeam:market_theme_template":     {},
	KeyTOTPSecret:                     {},
}

// FilterMetadataKV drops unknown keys and enforces per-key value caps.
// Over-cap values are ErrTooLong.
func FilterMetadataKV(kv map[string]string) (map[string]string, error) {
	filtered := make(map[string]string, len(kv))
	for key, value := range kv {
		if _, allowed := allowedMetadataKeys[key]; !allowed {
			continue
		}

		limit := metadataValueCap
		if key == "sparkler:custom_css" {
			limit = customCSSValueCap
		}
		if len(value) > limit {
			return nil, fmt.Errorf("metadata value for %q exceeds %d bytes: %w", key, limit, errs.ErrTooLong)
		}

		filtered[key] = value
	}
	return filtered, nil
}
