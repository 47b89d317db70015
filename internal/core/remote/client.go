package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"rbeam/internal/core/errs"
	"rbeam/internal/core/mail"
	"rbeam/internal/core/profiles"
)

// Client talks to federated peers. Every failure surfaces as ErrOther;
// peers are untrusted and their errors carry no taxonomy.
type Client struct {
	http         *http.Client
	breaker      *gobreaker.CircuitBreaker
	citrusID     string
	secure       bool
	blockedHosts []string
}

// NewClient creates a federation client. citrusID identifies this server
// in outbound author ids; secure selects https for peer URLs;
// blockedHosts are refused outright.
func NewClient(citrusID string, secure bool, blockedHosts []string) *Client {
	return &Client{
		http: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "federation",
			Timeout: 30 * time.Second,
		}),
		citrusID:     citrusID,
		secure:       secure,
		blockedHosts: blockedHosts,
	}
}

func (c *Client) baseURL(server string) string {
	proto := "http"
	if c.secure {
		proto = "https"
	}
	return fmt.Sprintf("%s://%s", proto, server)
}

func (c *Client) hostBlocked(server string) bool {
	for _, host := range c.blockedHosts {
		if strings.EqualFold(host, server) {
			return true
		}
	}
	return false
}

// Discover fetches the peer descriptor.
func (c *Client) Discover(ctx context.Context, server string) (*Descriptor, error) {
	if c.hostBlocked(server) {
		return nil, fmt.Errorf("host %q is blocked: %w", server, errs.ErrOther)
	}

	var envelope Envelope[Descriptor]
	if err := c.get(ctx, c.baseURL(server)+"/api/v0/citrus", &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success || envelope.Payload == nil {
		return nil, fmt.Errorf("peer %q rejected discovery: %w", server, errs.ErrOther)
	}

	return envelope.Payload, nil
}

// GetRemoteProfile fetches a profile from a peer that advertises the
// Profile schema.
func (c *Client) GetRemoteProfile(ctx context.Context, server, localID string) (*profiles.Profile, error) {
	descriptor, err := c.Discover(ctx, server)
	if err != nil {
		return nil, err
	}
	if !descriptor.Supports(SchemaProfile) {
		return nil, fmt.Errorf("peer %q does not serve profiles: %w", server, errs.ErrOther)
	}

	var envelope Envelope[profiles.Profile]
	if err := c.get(ctx, c.baseURL(server)+"/api/v0/auth/profile/"+localID, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success || envelope.Payload == nil {
		return nil, fmt.Errorf("peer %q: %s: %w", server, envelope.Message, errs.ErrOther)
	}

	return envelope.Payload, nil
}

// SendRemoteMail delivers a copy of the letter to one peer. Recipients
// are narrowed to the peer's own local ids. There is no retry: a failed
// peer loses the copy.
func (c *Client) SendRemoteMail(ctx context.Context, server string, letter *mail.Mail) error {
	descriptor, err := c.Discover(ctx, server)
	if err != nil {
		return err
	}
	if !descriptor.Supports(SchemaMail) {
		return fmt.Errorf("peer %q does not accept mail: %w", server, errs.ErrOther)
	}

	copyFor := *letter
	// The peer cannot resolve our plain ids; qualify the author.
	if c.citrusID != "" && !strings.Contains(copyFor.AuthorID, "@") {
		copyFor.AuthorID = c.citrusID + "@" + copyFor.AuthorID
	}
	copyFor.Recipients = nil
	for _, recipient := range letter.Recipients {
		if host, local, ok := strings.Cut(recipient, "@"); ok && strings.EqualFold(host, server) {
			copyFor.Recipients = append(copyFor.Recipients, local)
		}
	}
	if len(copyFor.Recipients) == 0 {
		return nil
	}

	body, err := json.Marshal(copyFor)
	if err != nil {
		return fmt.Errorf("failed to encode mail: %w", errs.ErrOther)
	}

	var envelope Envelope[mail.Mail]
	if err := c.post(ctx, c.baseURL(server)+"/api/v0/auth/mail", body, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return fmt.Errorf("peer %q refused mail: %s: %w", server, envelope.Message, errs.ErrOther)
	}

	slog.Info("delivered remote mail",
		slog.String("server", server),
		slog.String("mail", letter.ID),
		slog.Int("recipients", len(copyFor.Recipients)))
	return nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) post(ctx context.Context, url string, body []byte, out any) error {
	return c.do(ctx, http.MethodPost, url, body, out)
}

// do runs one request through the circuit breaker and decodes the
// envelope response.
func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				slog.Warn("failed to close response body", slog.String("error", closeErr.Error()))
			}
		}()

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("peer returned %d", resp.StatusCode)
		}

		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		return fmt.Errorf("%s %s failed: %v: %w", method, url, err, errs.ErrOther)
	}
	return nil
}
