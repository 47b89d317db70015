package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pquerna/otp/totp"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

// Options carries the configuration slice the identity core needs.
type Options struct {
	RegistrationEnabled bool
	CitrusID            string
	MediaDir            string
}

type profileService struct {
	repo    Repository
	cache   cache.Cache
	groups  groups.Service
	captcha CaptchaVerifier
	bans    BanChecker
	remote  RemoteResolver
	opts    Options
}

// NewService creates the identity service.
func NewService(repo Repository, c cache.Cache, g groups.Service, captcha CaptchaVerifier, bans BanChecker, remote RemoteResolver, opts Options) Service {
	return &profileService{
		repo:    repo,
		cache:   c,
		groups:  g,
		captcha: captcha,
		bans:    bans,
		remote:  remote,
		opts:    opts,
	}
}

// defaultCoins is the starting balance for new accounts.
const defaultCoins = 100

// CreateProfile registers a new account and returns the unhashed session token.
func (s *profileService) CreateProfile(ctx context.Context, req CreateRequest, ip string) (string, error) {
	if !s.opts.RegistrationEnabled {
		return "", fmt.Errorf("registration is disabled: %w", errs.ErrNotAllowed)
	}
	if !req.PolicyConsent {
		return "", fmt.Errorf("policies were not consented to: %w", errs.ErrNotAllowed)
	}
	if err := s.captcha.Verify(ctx, req.CaptchaToken, ip); err != nil {
		return "", fmt.Errorf("captcha verification failed: %w", errs.ErrNotAllowed)
	}
	if err := s.checkIPBan(ctx, ip); err != nil {
		return "", err
	}

	username, err := ValidateUsername(req.Username)
	if err != nil {
		return "", err
	}

	if _, err := s.GetProfileByUsername(ctx, username); err == nil {
		return "", fmt.Errorf("username %q is taken: %w", username, errs.ErrMustBeUnique)
	}

	salt := idgen.NewSalt()
	token := idgen.NewID()

	profile := &Profile{
		ID:           idgen.NewID(),
		Username:     username,
		PasswordHash: idgen.HashPassword(req.Password, salt),
		Salt:         salt,
		Tokens:       []string{idgen.HashToken(token)},
		IPs:          []string{ip},
		TokenContexts: []TokenContext{
			{IssuedMs: NowMs()},
		},
		Metadata: Metadata{PolicyConsent: true, KV: map[string]string{}},
		JoinedMs: NowMs(),
		Coins:    defaultCoins,
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return "", err
	}

	slog.Info("profile created", slog.String("id", profile.ID), slog.String("username", username))
	return token, nil
}

// Login authenticates and appends one fresh session triple.
func (s *profileService) Login(ctx context.Context, req LoginRequest, ip string) (string, error) {
	if err := s.captcha.Verify(ctx, req.CaptchaToken, ip); err != nil {
		return "", fmt.Errorf("captcha verification failed: %w", errs.ErrNotAllowed)
	}
	if err := s.checkIPBan(ctx, ip); err != nil {
		return "", err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	profile, err := s.GetProfileByUsername(ctx, username)
	if err != nil {
		// Wrong username and wrong password are indistinguishable.
		return "", fmt.Errorf("invalid credentials: %w", errs.ErrNotAllowed)
	}

	if !idgen.VerifyPassword(req.Password, profile.Salt, profile.PasswordHash) {
		return "", fmt.Errorf("invalid credentials: %w", errs.ErrNotAllowed)
	}

	if secret := profile.Metadata.KV[KeyTOTPSecret]; secret != "" {
		if !totp.Validate(req.TOTP, secret) {
			return "", fmt.Errorf("invalid TOTP code: %w", errs.ErrNotAllowed)
		}
	}

	token := idgen.NewID()
	profile.SyncSessionArrays()
	tokens := append(profile.Tokens, idgen.HashToken(token))
	ips := append(profile.IPs, ip)
	contexts := append(profile.TokenContexts, TokenContext{IssuedMs: NowMs()})

	if err := s.repo.UpdateSessions(ctx, profile.ID, tokens, ips, contexts); err != nil {
		return "", err
	}
	s.evictProfile(ctx, profile)

	return token, nil
}

// GetProfile resolves any id form a caller may hold.
func (s *profileService) GetProfile(ctx context.Context, id string) (*Profile, error) {
	// Legacy circle tags are appended after a percent sign.
	if i := strings.Index(id, "%"); i >= 0 {
		id = id[:i]
	}

	switch {
	case id == GlobalID:
		return Global(), nil
	case id == SystemID || id == "system":
		return System(), nil
	case id == "anonymous":
		return Anonymous("anonymous"), nil
	case strings.HasPrefix(id, "anonymous#"):
		return Anonymous(strings.TrimPrefix(id, "anonymous#")), nil
	}

	// Citrus ids are server@local-id; a foreign server part delegates
	// to the federation client.
	if server, local, ok := strings.Cut(id, "@"); ok && server != "" {
		if server != s.opts.CitrusID {
			if s.remote == nil {
				return nil, fmt.Errorf("no federation client configured: %w", errs.ErrOther)
			}
			return s.remote.GetRemoteProfile(ctx, server, local)
		}
		id = local
	}

	// Short identifiers are usernames first; a 32-char hex id that is
	// nobody's username falls through to the id lookup.
	if len(id) <= 32 {
		if profile, err := s.GetProfileByUsername(ctx, id); err == nil {
			return profile, nil
		}
	}

	return s.GetProfileByID(ctx, id)
}

// GetProfileByID reads a profile cache-aside under its id key.
func (s *profileService) GetProfileByID(ctx context.Context, id string) (*Profile, error) {
	if IsVirtual(id) {
		return s.GetProfile(ctx, id)
	}
	return s.cachedProfile(ctx, keys.Profile(id), func() (*Profile, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// GetProfileByUsername reads a profile cache-aside under its username key.
func (s *profileService) GetProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	return s.cachedProfile(ctx, keys.ProfileUsername(username), func() (*Profile, error) {
		return s.repo.GetByUsername(ctx, username)
	})
}

// GetProfileByUnhashedToken is the authoritative auth lookup.
func (s *profileService) GetProfileByUnhashedToken(ctx context.Context, token string) (*Profile, error) {
	profile, err := s.repo.GetByTokenHash(ctx, idgen.HashToken(token))
	if err != nil {
		return nil, err
	}
	profile.SyncSessionArrays()
	return profile, nil
}

// GenerateTokenFor mints a scoped app token. The requested permissions
// must be a subset of the calling token's; the new session's IP is blank.
func (s *profileService) GenerateTokenFor(ctx context.Context, profile *Profile, callingToken string, tokenContext TokenContext) (string, error) {
	calling := profile.ContextFor(idgen.HashToken(callingToken))
	if !tokenContext.IsSubsetOf(calling) {
		return "", fmt.Errorf("requested permissions exceed the calling token: %w", errs.ErrOutOfScope)
	}

	token := idgen.NewID()
	tokenContext.IssuedMs = NowMs()

	profile.SyncSessionArrays()
	tokens := append(profile.Tokens, idgen.HashToken(token))
	ips := append(profile.IPs, "")
	contexts := append(profile.TokenContexts, tokenContext)

	if err := s.repo.UpdateSessions(ctx, profile.ID, tokens, ips, contexts); err != nil {
		return "", err
	}
	s.evictProfile(ctx, profile)

	return token, nil
}

// UpdateProfileTokens keeps only the submitted hashed tokens, deleting the
// set difference from all three parallel arrays.
func (s *profileService) UpdateProfileTokens(ctx context.Context, profile *Profile, remainingHashes []string) error {
	keep := make(map[string]struct{}, len(remainingHashes))
	for _, hash := range remainingHashes {
		keep[hash] = struct{}{}
	}

	profile.SyncSessionArrays()
	tokens := make([]string, 0, len(profile.Tokens))
	ips := make([]string, 0, len(profile.IPs))
	contexts := make([]TokenContext, 0, len(profile.TokenContexts))

	for i, hash := range profile.Tokens {
		if _, ok := keep[hash]; !ok {
			continue
		}
		tokens = append(tokens, hash)
		ips = append(ips, profile.IPs[i])
		contexts = append(contexts, profile.TokenContexts[i])
	}

	if err := s.repo.UpdateSessions(ctx, profile.ID, tokens, ips, contexts); err != nil {
		return err
	}
	s.evictProfile(ctx, profile)
	return nil
}

// UpdateMetadataKV replaces the profile's kv settings with the filtered
// allow-listed set.
func (s *profileService) UpdateMetadataKV(ctx context.Context, id string, kv map[string]string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	filtered, err := FilterMetadataKV(kv)
	if err != nil {
		return err
	}

	metadata := profile.Metadata
	metadata.KV = filtered

	if err := s.repo.UpdateMetadata(ctx, id, metadata); err != nil {
		return err
	}
	s.evictProfile(ctx, profile)
	return nil
}

// UpdateLabels replaces the assigned label list.
func (s *profileService) UpdateLabels(ctx context.Context, id string, labels []string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateLabels(ctx, id, labels); err != nil {
		return err
	}
	s.evictProfile(ctx, profile)
	return nil
}

// AdjustCoins applies a signed delta to the balance.
func (s *profileService) AdjustCoins(ctx context.Context, id string, delta int32) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.AdjustCoins(ctx, id, delta); err != nil {
		return err
	}
	s.evictProfile(ctx, profile)
	return nil
}

// ChangePassword re-salts after verifying the current password.
func (s *profileService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	if !idgen.VerifyPassword(currentPassword, profile.Salt, profile.PasswordHash) {
		return fmt.Errorf("password does not match: %w", errs.ErrNotAllowed)
	}

	salt := idgen.NewSalt()
	if err := s.repo.UpdatePassword(ctx, id, idgen.HashPassword(newPassword, salt), salt); err != nil {
		return err
	}
	s.evictProfile(ctx, profile)
	return nil
}

// ChangeUsername renames the account after verifying the password.
func (s *profileService) ChangeUsername(ctx context.Context, id, currentPassword, newUsername string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	if !idgen.VerifyPassword(currentPassword, profile.Salt, profile.PasswordHash) {
		return fmt.Errorf("password does not match: %w", errs.ErrNotAllowed)
	}

	username, err := ValidateUsername(newUsername)
	if err != nil {
		return err
	}
	if _, err := s.GetProfileByUsername(ctx, username); err == nil {
		return fmt.Errorf("username %q is taken: %w", username, errs.ErrMustBeUnique)
	}

	if err := s.repo.UpdateUsername(ctx, id, username); err != nil {
		return err
	}
	// The old username key must go too.
	s.evictProfile(ctx, profile)
	return nil
}

func (s *profileService) checkIPBan(ctx context.Context, ip string) error {
	if ip == "" || s.bans == nil {
		return nil
	}
	banned, err := s.bans.IsBanned(ctx, ip)
	if err != nil {
		return err
	}
	if banned {
		return fmt.Errorf("source address is banned: %w", errs.ErrNotAllowed)
	}
	return nil
}

// cachedProfile is the shared cache-aside read path.
func (s *profileService) cachedProfile(ctx context.Context, key string, load func() (*Profile, error)) (*Profile, error) {
	if cached, ok := s.cache.Get(ctx, key); ok {
		profile := &Profile{}
		if err := json.Unmarshal([]byte(cached), profile); err == nil {
			profile.SyncSessionArrays()
			return profile, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt profile entry", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	profile, err := load()
	if err != nil {
		return nil, err
	}
	profile.SyncSessionArrays()

	if encoded, err := json.Marshal(profile); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache profile", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return profile, nil
}

// evictProfile removes both the id and username cache keys after a write.
func (s *profileService) evictProfile(ctx context.Context, profile *Profile) {
	for _, key := range []string{keys.Profile(profile.ID), keys.ProfileUsername(profile.Username)} {
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict profile", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}
