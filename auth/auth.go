package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aditya-GrowAI/civicvoice3/metrics"

	"github.com/apex/log"
)

var (
	// ErrUnauthenticated is returned for missing, invalid or rejected credentials.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAuthorityUnavailable marks failures to reach the session authority.
	// It always wraps ErrUnauthenticated.
	ErrAuthorityUnavailable = errors.New("session authority unavailable")
)

// Identity is the verified user behind a session.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// DevIdentity is returned by the development fallback.
var DevIdentity = Identity{Subject: "dev_user", Email: "dev@example.com"}

// Verifier exchanges a bearer token for an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Unconfigured rejects every token. It stands in when no verification
// secret or key is set.
type Unconfigured struct{}

func (Unconfigured) Verify(ctx context.Context, token string) (Identity, error) {
	return Identity{}, fmt.Errorf("%w: %w: session verification is not configured", ErrUnauthenticated, ErrAuthorityUnavailable)
}

// DevFallback wraps a verifier and substitutes DevIdentity when the
// authority is unavailable or unconfigured. Explicit rejections still fail.
// It is not safe for production and is only installed when AUTH_DEV_FALLBACK=true.
type DevFallback struct {
	Next Verifier
}

func (d DevFallback) Verify(ctx context.Context, token string) (Identity, error) {
	id, err := d.Next.Verify(ctx, token)
	if err == nil {
		metrics.AuthResultsTotal.WithLabelValues("ok").Inc()
		return id, nil
	}
	if errors.Is(err, ErrAuthorityUnavailable) {
		log.Warnf("Session verification unavailable (%v), using development identity", err)
		metrics.AuthResultsTotal.WithLabelValues("dev_fallback").Inc()
		return DevIdentity, nil
	}
	metrics.AuthResultsTotal.WithLabelValues("rejected").Inc()
	return Identity{}, err
}

// Counted records verification outcomes for verifiers used without a fallback.
type Counted struct {
	Next Verifier
}

func (c Counted) Verify(ctx context.Context, token string) (Identity, error) {
	id, err := c.Next.Verify(ctx, token)
	if err != nil {
		metrics.AuthResultsTotal.WithLabelValues("rejected").Inc()
		return Identity{}, err
	}
	metrics.AuthResultsTotal.WithLabelValues("ok").Inc()
	return id, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w: %v", ErrUnauthenticated, ErrAuthorityUnavailable, err)
}

func rejected(err error) error {
	return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
}
