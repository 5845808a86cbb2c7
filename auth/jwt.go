package auth

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier checks Clerk session JWTs locally with the instance's public
// key, without a network call.
type JWTVerifier struct {
	key    *rsa.PublicKey
	issuer string
}

// NewJWTVerifier parses a PEM encoded RSA public key. An empty issuer skips
// the iss check.
func NewJWTVerifier(publicKeyPEM, issuer string) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session public key: %w", err)
	}
	return &JWTVerifier{key: key, issuer: issuer}, nil
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return Identity{}, rejected(fmt.Errorf("invalid session token: %w", err))
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, rejected(fmt.Errorf("session token has no subject"))
	}
	email, _ := claims["email"].(string)
	return Identity{Subject: sub, Email: email}, nil
}
