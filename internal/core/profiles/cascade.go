package profiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

// DeleteProfile is the self-service deletion path. The password must match
// and the target's group must not hold Manager.
func (s *profileService) DeleteProfile(ctx context.Context, id, password string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}

	if !idgen.VerifyPassword(password, profile.Salt, profile.PasswordHash) {
		return fmt.Errorf("password does not match: %w", errs.ErrNotAllowed)
	}

	group, err := s.groups.GetGroup(ctx, profile.GroupID)
	if err != nil {
		return err
	}
	if group.Has(groups.PermManager) {
		return fmt.Errorf("manager accounts cannot be deleted: %w", errs.ErrNotAllowed)
	}

	return s.cascade(ctx, profile)
}

// DeleteProfileUnchecked runs the cascade without credential checks.
// Callers are responsible for authorization.
func (s *profileService) DeleteProfileUnchecked(ctx context.Context, id string) error {
	profile, err := s.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}
	return s.cascade(ctx, profile)
}

// cascade deletes the profile row and every dependent row, sweeps every
// cache key the profile participates in, then removes uploaded media.
// The table deletes run in one transaction inside the repository; the
// cache and filesystem steps are idempotent so a retry after a partial
// failure is safe.
func (s *profileService) cascade(ctx context.Context, profile *Profile) error {
	if err := s.repo.DeleteCascade(ctx, profile.ID); err != nil {
		return err
	}

	sweep := []string{
		keys.Profile(profile.ID),
		keys.ProfileUsername(profile.Username),
		keys.FollowersCount(profile.ID),
		keys.FollowingCount(profile.ID),
		keys.NotificationCount(profile.ID),
		keys.FriendsCount(profile.ID),
		keys.ResponseCount(profile.ID),
		keys.GlobalQuestionCount(profile.ID),
	}
	for _, key := range sweep {
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to sweep cache key", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	if err := s.removeMedia(profile.ID); err != nil {
		return err
	}

	slog.Info("profile deleted", slog.String("id", profile.ID), slog.String("username", profile.Username))
	return nil
}

// removeMedia deletes the profile's avatar and banner. A media directory
// that does not exist means there is nothing to remove.
func (s *profileService) removeMedia(id string) error {
	if s.opts.MediaDir == "" {
		return nil
	}
	if _, err := os.Stat(s.opts.MediaDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	for _, path := range []string{
		filepath.Join(s.opts.MediaDir, "avatars", id+".avif"),
		filepath.Join(s.opts.MediaDir, "banners", id+".avif"),
	} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, errs.ErrOther)
		}
	}
	return nil
}
