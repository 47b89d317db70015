// Package captcha verifies captcha response tokens against the provider.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const verifyURL = "https://hcaptcha.com/siteverify"

// Verifier validates captcha response tokens. An empty secret disables
// verification (local development).
type Verifier struct {
	secret string
	http   *http.Client
}

// NewVerifier creates a captcha verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify checks one response token. Any failure is an error; callers map
// it into the taxonomy.
func (v *Verifier) Verify(ctx context.Context, responseToken, remoteIP string) error {
	if v.secret == "" {
		return nil
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {responseToken},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("captcha provider unreachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close captcha response body", slog.String("error", closeErr.Error()))
		}
	}()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode captcha response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("captcha rejected")
	}

	return nil
}
