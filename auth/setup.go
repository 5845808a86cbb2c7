package auth

import (
	"github.com/Aditya-GrowAI/civicvoice3/config"

	"github.com/apex/log"
)

// NewVerifier picks the verification mode from configuration: a local JWT
// check when a public key is set, otherwise the Clerk API when a secret key
// is set, otherwise none. The development fallback is layered on top only
// when explicitly enabled.
func NewVerifier(cfg *config.Config) (Verifier, error) {
	var v Verifier
	switch {
	case cfg.ClerkJWTPublicKey != "":
		jv, err := NewJWTVerifier(cfg.ClerkJWTPublicKey, cfg.ClerkIssuerURL)
		if err != nil {
			return nil, err
		}
		log.Infof("Session verification: local JWT (issuer %q)", cfg.ClerkIssuerURL)
		v = jv
	case cfg.ClerkSecretKey != "":
		log.Infof("Session verification: Clerk API at %s", cfg.ClerkAPIURL)
		v = NewClerkVerifier(cfg.ClerkAPIURL, cfg.ClerkSecretKey, cfg.AuthTimeout)
	default:
		log.Errorf("Configuration error: neither CLERK_JWT_PUBLIC_KEY nor CLERK_SECRET_KEY is set; protected routes will reject every request")
		v = Unconfigured{}
	}

	if cfg.AuthDevFallback {
		log.Warnf("AUTH_DEV_FALLBACK is enabled: unverifiable sessions are accepted as %s. Do not use in production.", DevIdentity.Subject)
		return DevFallback{Next: v}, nil
	}
	return Counted{Next: v}, nil
}
