package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"rbeam/internal/cache"
	"rbeam/internal/core/errs"
	"rbeam/internal/core/notifications"
	"rbeam/internal/core/profiles"
	"rbeam/internal/idgen"
	"rbeam/internal/keys"
)

const (
	titleMin   = 2
	titleMax   = 256
	contentMin = 2
	contentMax = 512
)

type mailService struct {
	repo     Repository
	cache    cache.Cache
	notify   notifications.Service
	resolver ProfileResolver
	blocks   BlockChecker
	staff    StaffChecker
	remote   RemoteMailer
	citrusID string
}

// NewService creates the mail service. remote may be nil when federation
// is disabled.
func NewService(repo Repository, c cache.Cache, notify notifications.Service, resolver ProfileResolver, blocks BlockChecker, staff StaffChecker, remote RemoteMailer, citrusID string) Service {
	return &mailService{
		repo:     repo,
		cache:    c,
		notify:   notify,
		resolver: resolver,
		blocks:   blocks,
		staff:    staff,
		remote:   remote,
		citrusID: citrusID,
	}
}

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// renderedNonEmpty reports whether the markdown renders to visible text.
func renderedNonEmpty(content string) bool {
	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(content), &rendered); err != nil {
		return false
	}
	text := htmlTagRegex.ReplaceAllString(rendered.String(), "")
	return strings.TrimSpace(text) != ""
}

// CreateMail validates, filters the recipient list, stores one row and
// fans out notifications and remote copies.
func (s *mailService) CreateMail(ctx context.Context, input Create, author *profiles.Profile) (*Mail, error) {
	if len(input.Title) < titleMin {
		return nil, fmt.Errorf("title must be at least %d characters: %w", titleMin, errs.ErrValue)
	}
	if len(input.Title) > titleMax {
		return nil, fmt.Errorf("title exceeds %d characters: %w", titleMax, errs.ErrTooLong)
	}
	if len(input.Content) < contentMin {
		return nil, fmt.Errorf("content must be at least %d characters: %w", contentMin, errs.ErrValue)
	}
	if len(input.Content) > contentMax {
		return nil, fmt.Errorf("content exceeds %d characters: %w", contentMax, errs.ErrTooLong)
	}
	if !renderedNonEmpty(input.Content) {
		return nil, fmt.Errorf("content renders to nothing: %w", errs.ErrValue)
	}

	// Filter the recipient list: a disabled mailbox or a blocked pair
	// silently drops the recipient, it is not an error.
	recipients := make([]string, 0, len(input.Recipients))
	local := make([]*profiles.Profile, 0, len(input.Recipients))
	remoteServers := make(map[string]struct{})

	for _, raw := range input.Recipients {
		if server, _, ok := strings.Cut(raw, "@"); ok && server != "" && server != s.citrusID {
			// Federated recipient: delivery happens per unique server.
			recipients = append(recipients, raw)
			remoteServers[server] = struct{}{}
			continue
		}

		recipient, err := s.resolver.GetProfile(ctx, raw)
		if err != nil {
			return nil, err
		}
		if recipient.Metadata.IsTrue(profiles.KeyDisableMailbox) {
			continue
		}

		blocked, err := s.blocks.IsBlocked(ctx, author.ID, recipient.ID)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}

		recipients = append(recipients, recipient.ID)
		local = append(local, recipient)
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("no deliverable recipients: %w", errs.ErrValue)
	}

	letter := &Mail{
		ID:         idgen.NewID(),
		Title:      input.Title,
		Content:    input.Content,
		TS:         profiles.NowMs(),
		State:      StateUnread,
		AuthorID:   author.ID,
		Recipients: recipients,
	}

	if err := s.repo.Create(ctx, letter); err != nil {
		return nil, err
	}

	for _, recipient := range local {
		if _, err := s.notify.CreateNotification(ctx, notifications.Create{
			Title:     fmt.Sprintf("@%s sent you new mail!", author.Username),
			Content:   letter.Title,
			Address:   fmt.Sprintf("/inbox/mail/letter/%s", letter.ID),
			Recipient: recipient.ID,
		}); err != nil {
			slog.Error("failed to notify mail recipient",
				slog.String("mail", letter.ID),
				slog.String("recipient", recipient.ID),
				slog.String("error", err.Error()))
		}
	}

	// Remote delivery has no retry queue; a failed peer loses the copy
	// for that server (known limitation).
	for server := range remoteServers {
		if s.remote == nil {
			return nil, fmt.Errorf("no federation client configured: %w", errs.ErrOther)
		}
		if err := s.remote.SendRemoteMail(ctx, server, letter); err != nil {
			return nil, err
		}
	}

	return letter, nil
}

// ReceiveRemote accepts a letter forwarded by a peer. Recipients are
// narrowed to resolvable local mailboxes; the letter gets a fresh local
// id so peer ids can never collide with ours.
func (s *mailService) ReceiveRemote(ctx context.Context, letter *Mail) (*Mail, error) {
	if !strings.Contains(letter.AuthorID, "@") {
		return nil, fmt.Errorf("remote author must be qualified: %w", errs.ErrValue)
	}
	if len(letter.Title) < titleMin || len(letter.Title) > titleMax {
		return nil, fmt.Errorf("invalid title length: %w", errs.ErrValue)
	}
	if len(letter.Content) < contentMin || len(letter.Content) > contentMax {
		return nil, fmt.Errorf("invalid content length: %w", errs.ErrValue)
	}
	if !renderedNonEmpty(letter.Content) {
		return nil, fmt.Errorf("content renders to nothing: %w", errs.ErrValue)
	}

	recipients := make([]string, 0, len(letter.Recipients))
	local := make([]*profiles.Profile, 0, len(letter.Recipients))
	for _, raw := range letter.Recipients {
		recipient, err := s.resolver.GetProfile(ctx, raw)
		if err != nil {
			continue
		}
		if recipient.Metadata.IsTrue(profiles.KeyDisableMailbox) {
			continue
		}
		recipients = append(recipients, recipient.ID)
		local = append(local, recipient)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no deliverable recipients: %w", errs.ErrValue)
	}

	stored := &Mail{
		ID:         idgen.NewID(),
		Title:      letter.Title,
		Content:    letter.Content,
		TS:         profiles.NowMs(),
		State:      StateUnread,
		AuthorID:   letter.AuthorID,
		Recipients: recipients,
	}
	if err := s.repo.Create(ctx, stored); err != nil {
		return nil, err
	}

	for _, recipient := range local {
		if _, err := s.notify.CreateNotification(ctx, notifications.Create{
			Title:     fmt.Sprintf("@%s sent you new mail!", stored.AuthorID),
			Content:   stored.Title,
			Address:   fmt.Sprintf("/inbox/mail/letter/%s", stored.ID),
			Recipient: recipient.ID,
		}); err != nil {
			slog.Error("failed to notify mail recipient",
				slog.String("mail", stored.ID),
				slog.String("recipient", recipient.ID),
				slog.String("error", err.Error()))
		}
	}

	return stored, nil
}

// GetMail reads a letter cache-aside for a participant or Helper.
func (s *mailService) GetMail(ctx context.Context, id string, actor *profiles.Profile) (*Mail, error) {
	letter, err := s.getMail(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireParticipant(ctx, letter, actor); err != nil {
		return nil, err
	}
	return letter, nil
}

func (s *mailService) GetInbox(ctx context.Context, actor *profiles.Profile) ([]*Mail, error) {
	return s.repo.ListByRecipient(ctx, actor.ID)
}

func (s *mailService) GetOutbox(ctx context.Context, actor *profiles.Profile) ([]*Mail, error) {
	return s.repo.ListByAuthor(ctx, actor.ID)
}

// UpdateMailState transitions the read state. The author, any recipient,
// or a Helper may transition.
func (s *mailService) UpdateMailState(ctx context.Context, id string, input SetState, actor *profiles.Profile) error {
	switch input.State {
	case StateUnread, StateRead:
	default:
		return fmt.Errorf("unknown mail state %q: %w", input.State, errs.ErrValue)
	}

	letter, err := s.getMail(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireParticipant(ctx, letter, actor); err != nil {
		return err
	}

	if err := s.repo.UpdateState(ctx, id, input.State); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// DeleteMail removes a letter for a participant or Helper.
func (s *mailService) DeleteMail(ctx context.Context, id string, actor *profiles.Profile) error {
	letter, err := s.getMail(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireParticipant(ctx, letter, actor); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *mailService) getMail(ctx context.Context, id string) (*Mail, error) {
	key := keys.Mail(id)

	if cached, ok := s.cache.Get(ctx, key); ok {
		letter := &Mail{}
		if err := json.Unmarshal([]byte(cached), letter); err == nil {
			return letter, nil
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			slog.Warn("failed to evict corrupt mail", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	letter, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(letter); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded)); err != nil {
			slog.Warn("failed to cache mail", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return letter, nil
}

func (s *mailService) requireParticipant(ctx context.Context, letter *Mail, actor *profiles.Profile) error {
	if letter.AuthorID == actor.ID {
		return nil
	}
	for _, recipient := range letter.Recipients {
		if recipient == actor.ID {
			return nil
		}
	}

	helper, err := s.staff.IsHelper(ctx, actor)
	if err != nil {
		return err
	}
	if !helper {
		// Non-participants learn nothing, not even existence.
		return fmt.Errorf("mail: %w", errs.ErrNotFound)
	}
	return nil
}

func (s *mailService) evict(ctx context.Context, id string) {
	if err := s.cache.Remove(ctx, keys.Mail(id)); err != nil {
		slog.Warn("failed to evict mail", slog.String("id", id), slog.String("error", err.Error()))
	}
}
