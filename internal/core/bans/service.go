package bans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/groups"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

type banService struct {
	repo   Repository
	cache  cache.Cache
	groups groups.Service
	notify notifications.Service
}

// NewService creates the ban/block service.
func NewService(repo Repository, c cache.Cache, g groups.Service, notify notifications.Service) Service {
	return &banService{repo: repo, cache: c, groups: g, notify: notify}
}

// IsBanned checks for a global ban on the address. An empty address can
// never be banned (no trusted real-ip header configured).
func (s *banService) IsBanned(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}

	_, err := s.repo.GetBanByIP(ctx, ip)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateBan adds a global IP ban. Helper-only, unique per IP, audited.
func (s *banService) CreateBan(ctx context.Context, input BanCreate, moderator *profiles.Profile) (*IpBan, error) {
	if err := s.requireHelper(ctx, moderator); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBanByIP(ctx, input.IP); err == nil {
		return nil, fmt.Errorf("address is already banned: %w", errs.ErrMustBeUnique)
	}

	ban := &IpBan{
		ID:          idgen.NewID(),
		IP:          input.IP,
		Reason:      input.Reason,
		ModeratorID: moderator.ID,
		TS:          profiles.NowMs(),
	}

	if err := s.repo.CreateBan(ctx, ban); err != nil {
		return nil, err
	}

	if err := s.notify.Audit(ctx, moderator, fmt.Sprintf("Banned IP %s: %s", ban.IP, ban.Reason)); err != nil {
		slog.Error("failed to audit ipban create", slog.String("id", ban.ID), slog.String("error", err.Error()))
	}

	return ban, nil
}

// GetBan reads one ban cache-aside. Helper-only.
func (s *banService) GetBan(ctx context.Context, id string, actor *profiles.Profile) (*IpBan, error) {
	if err := s.requireHelper(ctx, actor); err != nil {
		return nil, err
	}

	key := keys.IpBan(id)
	if cached, ok := s.cache.Get(ctx, key); ok {
		ban := &IpBan{}
		if err := json.Unmarshal([]byte(cached), ban); err == nil {
			return ban, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt ipban", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	ban, err := s.repo.GetBan(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(ban); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache ipban", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return ban, nil
}

func (s *banService) ListBans(ctx context.Context, actor *profiles.Profile) ([]*IpBan, error) {
	if err := s.requireHelper(ctx, actor); err != nil {
		return nil, err
	}
	return s.repo.ListBans(ctx)
}

// DeleteBan removes a ban. Another moderator's ban needs Manager.
func (s *banService) DeleteBan(ctx context.Context, id string, actor *profiles.Profile) error {
	if err := s.requireHelper(ctx, actor); err != nil {
		return err
	}

	ban, err := s.repo.GetBan(ctx, id)
	if err != nil {
		return err
	}

	if ban.ModeratorID != actor.ID {
		group, err := s.groups.GetGroup(ctx, actor.GroupID)
		if err != nil {
			return err
		}
		if !group.Has(groups.PermManager) {
			return fmt.Errorf("only managers may remove another moderator's ban: %w", errs.ErrNotAllowed)
		}
	}

	if err := s.repo.DeleteBan(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Remove(ctx, keys.IpBan(id)); err != nil {
		slog.Warn("failed to evict ipban", slog.String("id", id), slog.String("error", err.Error()))
	}

	if err := s.notify.Audit(ctx, actor, fmt.Sprintf("Unbanned IP %s", ban.IP)); err != nil {
		slog.Error("failed to audit ipban delete", slog.String("id", id), slog.String("error", err.Error()))
	}

	return nil
}

// CreateBlock adds a personal IP block, unique per (user, ip).
func (s *banService) CreateBlock(ctx context.Context, input BlockCreate, actor *profiles.Profile) (*IpBlock, error) {
	if _, err := s.repo.GetBlockByUserIP(ctx, actor.ID, input.IP); err == nil {
		return nil, fmt.Errorf("address is already blocked: %w", errs.ErrMustBeUnique)
	}

	block := &IpBlock{
		ID:     idgen.NewID(),
		IP:     input.IP,
		UserID: actor.ID,
		TS:     profiles.NowMs(),
	}

	if err := s.repo.CreateBlock(ctx, block); err != nil {
		return nil, err
	}

	return block, nil
}

func (s *banService) ListBlocks(ctx context.Context, actor *profiles.Profile) ([]*IpBlock, error) {
	return s.repo.ListBlocksByUser(ctx, actor.ID)
}

// DeleteBlock removes a block; another user's block needs Manager and is
// audited.
func (s *banService) DeleteBlock(ctx context.Context, id string, actor *profiles.Profile) error {
	block, err := s.repo.GetBlock(ctx, id)
	if err != nil {
		return err
	}

	if block.UserID != actor.ID {
		group, err := s.groups.GetGroup(ctx, actor.GroupID)
		if err != nil {
			return err
		}
		if !group.Has(groups.PermManager) {
			return fmt.Errorf("only managers may remove another user's block: %w", errs.ErrNotAllowed)
		}

		if err := s.notify.Audit(ctx, actor, fmt.Sprintf("Removed IP block %s", id)); err != nil {
			slog.Error("failed to audit ipblock delete", slog.String("id", id), slog.String("error", err.Error()))
		}
	}

	if err := s.repo.DeleteBlock(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Remove(ctx, keys.IpBlock(id)); err != nil {
		slog.Warn("failed to evict ipblock", slog.String("id", id), slog.String("error", err.Error()))
	}

	return nil
}

func (s *banService) requireHelper(ctx context.Context, actor *profiles.Profile) error {
	group, err := s.groups.GetGroup(ctx, actor.GroupID)
	if err != nil {
		return err
	}
	if !group.Has(groups.PermHelper) && !group.Has(groups.PermManager) {
		return fmt.Errorf("staff permissions required: %w", errs.ErrNotAllowed)
	}
	return nil
}
