// Package profiles implements the identity core: profiles, credentials,
// session tokens with scoped permissions, and the deletion cascade.
package profiles

import (
	"strings"
	"time"
)

// Permission scopes what a session token may do.
type Permission string

const (
	PermManageAssets   Permission = "ManageAssets"
	PermManageProfile  Permission = "ManageProfile"
	PermManageAccount  Permission = "ManageAccount"
	PermModerator      Permission = "Moderator"
	PermGenerateTokens Permission = "GenerateTokens"
	PermSendMail       Permission = "SendMail"
)

// TokenContext is the metadata attached to one session token.
// A nil Permissions slice means unrestricted (legacy root session);
// an empty non-nil slice means no permissions at all.
type TokenContext struct {
	App         string        `json:"app,omitempty"`
	Permissions *[]Permission `json:"permissions,omitempty"`
	IssuedMs    uint64        `json:"timestamp"`
}

// CanDo reports whether the context grants the permission.
func (c TokenContext) CanDo(p Permission) bool {
	if c.Permissions == nil {
		return true
	}
	for _, held := range *c.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether every permission of c is held by parent.
// An unrestricted parent admits anything; an unrestricted child is only
// admitted by an unrestricted parent.
func (c TokenContext) IsSubsetOf(parent TokenContext) bool {
	if parent.Permissions == nil {
		return true
	}
	if c.Permissions == nil {
		return false
	}
	for _, p := range *c.Permissions {
		if !parent.CanDo(p) {
			return false
		}
	}
	return true
}

// Badge is a small decorated label displayed on a profile.
type Badge struct {
	Label      string `json:"label"`
	Background string `json:"bg"`
	Foreground string `json:"fg"`
}

// Metadata carries account options and the free-form key/value settings.
type Metadata struct {
	Email         string            `json:"email"`
	PolicyConsent bool              `json:"policy_consent"`
	KV            map[string]string `json:"kv"`
}

// IsTrue reports whether a kv option is set to a truthy value.
func (m Metadata) IsTrue(key string) bool {
	value, ok := m.KV[key]
	if !ok {
		return false
	}
	value = strings.ToLower(strings.TrimSpace(value))
	return value == "true" || value == "yes" || value == "on" || value == "1"
}

// Profile is an account row. Tokens, IPs and TokenContexts are parallel
// arrays; every persistence call must keep their lengths equal.
type Profile struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	PasswordHash  string         `json:"password"`
	Salt          string         `json:"salt"`
	Tokens        []string       `json:"tokens"`
	IPs           []string       `json:"ips"`
	TokenContexts []TokenContext `json:"token_context"`
	Metadata      Metadata       `json:"metadata"`
	Badges        []Badge        `json:"badges"`
	GroupID       int32          `json:"group"`
	JoinedMs      uint64         `json:"joined"`
	Tier          int32          `json:"tier"`
	Labels        []string       `json:"labels"`
	Coins         int32          `json:"coins"`
}

// Session is the façade over one slot of the parallel arrays.
type Session struct {
	TokenHash string
	IP        string
	Context   TokenContext
}

// SyncSessionArrays pads IPs and TokenContexts with defaults until they
// match Tokens in length. Rows written before contexts existed come back
// short; readers repair them on the fly.
func (p *Profile) SyncSessionArrays() {
	for len(p.IPs) < len(p.Tokens) {
		p.IPs = append(p.IPs, "")
	}
	for len(p.TokenContexts) < len(p.Tokens) {
		p.TokenContexts = append(p.TokenContexts, TokenContext{})
	}
	p.IPs = p.IPs[:len(p.Tokens)]
	p.TokenContexts = p.TokenContexts[:len(p.Tokens)]
}

// Sessions returns the parallel arrays as one slice.
func (p *Profile) Sessions() []Session {
	p.SyncSessionArrays()
	sessions := make([]Session, len(p.Tokens))
	for i, hash := range p.Tokens {
		sessions[i] = Session{TokenHash: hash, IP: p.IPs[i], Context: p.TokenContexts[i]}
	}
	return sessions
}

// SessionIndex returns the slot of a hashed token, or -1.
func (p *Profile) SessionIndex(tokenHash string) int {
	for i, hash := range p.Tokens {
		if hash == tokenHash {
			return i
		}
	}
	return -1
}

// ContextFor returns the token context for a hashed token. Missing slots
// default to an unrestricted context.
func (p *Profile) ContextFor(tokenHash string) TokenContext {
	i := p.SessionIndex(tokenHash)
	if i < 0 || i >= len(p.TokenContexts) {
		return TokenContext{}
	}
	return p.TokenContexts[i]
}

// Clean returns a copy safe for API output: credentials and session
// material are stripped.
func (p *Profile) Clean() *Profile {
	cleaned := *p
	cleaned.PasswordHash = ""
	cleaned.Salt = ""
	cleaned.Tokens = nil
	cleaned.IPs = nil
	cleaned.TokenContexts = nil
	if cleaned.Metadata.KV != nil {
		kv := make(map[string]string, len(cleaned.Metadata.KV))
		for k, v := range cleaned.Metadata.KV {
			kv[k] = v
		}
		delete(kv, KeyTOTPSecret)
		cleaned.Metadata.KV = kv
	}
	return &cleaned
}

// NowMs is the timestamp for new rows, milliseconds since epoch.
func NowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Metadata kv keys the core itself reads.
const (
	// KeyLimitedFriendRequests restricts friend requests to followed users.
	KeyLimitedFriendRequests = "sparkler:limited_friend_requests"
	// KeyDisableMailbox opts the account out of receiving mail.
	KeyDisableMailbox = "sparkler:disable_mailbox"
	// KeyTOTPSecret holds the TOTP secret when two-factor login is enabled.
	KeyTOTPSecret = "rbeam:totp_secret"
)

// Virtual profile ids. These never touch the store.
const (
	GlobalID = "@"
	SystemID = "0"
)

// Global returns the virtual profile addressing everyone.
func Global() *Profile {
	return &Profile{ID: GlobalID, Username: GlobalID}
}

// System returns the virtual profile used for system actions and charges.
func System() *Profile {
	return &Profile{ID: SystemID, Username: "system"}
}

// Anonymous returns the virtual profile for an anonymous posting session.
// The tag identifies the session without revealing the user.
func Anonymous(tag string) *Profile {
	return &Profile{ID: tag, Username: "anonymous"}
}

// IsVirtual reports whether an id resolves to a virtual profile.
func IsVirtual(id string) bool {
	return id == GlobalID || id == SystemID || id == "system" ||
		id == "anonymous" || strings.HasPrefix(id, "anonymous#")
}
