package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClerkVerifier verifies session tokens against the Clerk backend API.
type ClerkVerifier struct {
	apiURL    string
	secretKey string
	http      *http.Client
}

// NewClerkVerifier creates a verifier calling {apiURL}/sessions/{token}/verify.
func NewClerkVerifier(apiURL, secretKey string, timeout time.Duration) *ClerkVerifier {
	return &ClerkVerifier{
		apiURL:    apiURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

type clerkSession struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Verify maps a 200 response to an identity. Transport failures and 5xx
// responses wrap ErrAuthorityUnavailable; any other status is a rejection.
func (v *ClerkVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, rejected(fmt.Errorf("empty token"))
	}

	endpoint := fmt.Sprintf("%s/sessions/%s/verify", v.apiURL, url.PathEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Identity{}, rejected(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+v.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return Identity{}, unavailable(fmt.Errorf("failed to reach session authority: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Identity{}, unavailable(fmt.Errorf("session authority error (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Identity{}, rejected(fmt.Errorf("invalid session token (status %d)", resp.StatusCode))
	}

	var session clerkSession
	if err := json.Unmarshal(body, &session); err != nil {
		return Identity{}, rejected(fmt.Errorf("failed to parse session: %w", err))
	}
	if session.UserID == "" {
		return Identity{}, rejected(fmt.Errorf("session has no user"))
	}
	return Identity{Subject: session.UserID, Email: session.Email}, nil
}
