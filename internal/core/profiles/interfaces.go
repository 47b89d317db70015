package profiles

import "context"

// Repository persists profile rows. Implementations translate driver
// errors into the shared taxonomy (ErrNotFound, ErrMustBeUnique, ErrOther).
type Repository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)

	// GetByTokenHash finds the profile whose tokens array contains the
	// hash. This substring match over the serialized array is the
	// authoritative auth path.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Profile, error)

	// UpdateSessions rewrites the three parallel arrays in one statement.
	UpdateSessions(ctx context.Context, id string, tokens, ips []string, contexts []TokenContext) error

	UpdatePassword(ctx context.Context, id, passwordHash, salt string) error
	UpdateUsername(ctx context.Context, id, username string) error
	UpdateMetadata(ctx context.Context, id string, metadata Metadata) error
	UpdateBadges(ctx context.Context, id string, badges []Badge) error
	UpdateLabels(ctx context.Context, id string, labels []string) error
	UpdateGroup(ctx context.Context, id string, groupID int32) error
	UpdateTier(ctx context.Context, id string, tier int32) error

	// AdjustCoins applies a signed delta to the balance in a single
	// row update.
	AdjustCoins(ctx context.Context, id string, delta int32) error

	// DeleteCascade removes the profile row and every row referencing
	// the profile across all referencing tables, in one transaction.
	DeleteCascade(ctx context.Context, id string) error
}

// CreateRequest is the input for registration.
type CreateRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	PolicyConsent bool   `json:"policy_consent"`
	CaptchaToken  string `json:"token"`
}

// LoginRequest is the input for authentication.
type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	CaptchaToken string `json:"token"`
	TOTP         string `json:"totp,omitempty"`
}

// CaptchaVerifier validates a captcha response token. The HTTP surface
// owns the provider integration; the core only needs pass/fail.
type CaptchaVerifier interface {
	Verify(ctx context.Context, responseToken, remoteIP string) error
}

// BanChecker reports whether a source IP is globally banned.
type BanChecker interface {
	IsBanned(ctx context.Context, ip string) (bool, error)
}

// RemoteResolver fetches a profile from a federated peer. Implemented by
// the remote component; profiles only consumes it.
type RemoteResolver interface {
	GetRemoteProfile(ctx context.Context, server, localID string) (*Profile, error)
}

// Service is the identity core.
type Service interface {
	// CreateProfile registers an account and returns the unhashed
	// session token. Only the hash is persisted.
	CreateProfile(ctx context.Context, req CreateRequest, ip string) (string, error)

	// Login authenticates and appends a fresh session, returning the
	// unhashed token.
	Login(ctx context.Context, req LoginRequest, ip string) (string, error)

	// GetProfile resolves any id form: virtual ids, citrus server@id
	// federation references, %-truncated circle tags, plain ids and
	// usernames.
	GetProfile(ctx context.Context, id string) (*Profile, error)

	GetProfileByID(ctx context.Context, id string) (*Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*Profile, error)

	// GetProfileByUnhashedToken is the authentication lookup.
	GetProfileByUnhashedToken(ctx context.Context, token string) (*Profile, error)

	// GenerateTokenFor mints a scoped token for an app. The requested
	// permission set must be a subset of the calling token's set.
	GenerateTokenFor(ctx context.Context, profile *Profile, callingToken string, tokenContext TokenContext) (string, error)

	// UpdateProfileTokens revokes every session not in the submitted
	// set of hashed tokens.
	UpdateProfileTokens(ctx context.Context, profile *Profile, remainingHashes []string) error

	UpdateMetadataKV(ctx context.Context, id string, kv map[string]string) error

	// UpdateLabels replaces the profile's assigned label list. Callers
	// are responsible for authorization.
	UpdateLabels(ctx context.Context, id string, labels []string) error

	// AdjustCoins applies a signed delta to the balance and evicts the
	// profile's cache keys. The single-row update is the serialization
	// point for concurrent transactions.
	AdjustCoins(ctx context.Context, id string, delta int32) error

	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	ChangeUsername(ctx context.Context, id, currentPassword, newUsername string) error

	// DeleteProfile is the self-service path; it verifies the password
	// and refuses targets whose group holds Manager.
	DeleteProfile(ctx context.Context, id, password string) error

	// DeleteProfileUnchecked runs the cascade without the password
	// check; used by moderation after its own authorization.
	DeleteProfileUnchecked(ctx context.Context, id string) error
}
