package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClerkVerifier(t *testing.T) {
	var gotPath, gotAuth string
	status := http.StatusOK
	body := `{"user_id":"user_123","email":"a@example.com","status":"active"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	v := NewClerkVerifier(srv.URL, "sk_test", time.Second)

	id, err := v.Verify(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "user_123", Email: "a@example.com"}, id)
	assert.Equal(t, "/sessions/sess_abc/verify", gotPath)
	assert.Equal(t, "Bearer sk_test", gotAuth)

	status, body = http.StatusUnauthorized, `{"errors":[]}`
	_, err = v.Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, errors.Is(err, ErrAuthorityUnavailable))

	status, body = http.StatusBadGateway, ``
	_, err = v.Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, ErrAuthorityUnavailable)

	status, body = http.StatusOK, `{"status":"active"}`
	_, err = v.Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, errors.Is(err, ErrAuthorityUnavailable))

	status, body = http.StatusOK, `<html>captive portal</html>`
	_, err = v.Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.False(t, errors.Is(err, ErrAuthorityUnavailable))

	_, err = DevFallback{Next: v}.Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrUnauthenticated, "garbled session body must not fall back to the dev identity")
}

func TestClerkVerifierUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClerkVerifier(url, "sk_test", time.Second).Verify(context.Background(), "sess_abc")
	assert.ErrorIs(t, err, ErrAuthorityUnavailable)
}

func TestClerkVerifierEmptyToken(t *testing.T) {
	_, err := NewClerkVerifier("http://127.0.0.1:1", "sk", time.Second).Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func newKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	key, pub := newKeyPair(t)
	otherKey, _ := newKeyPair(t)
	issuer := "https://clerk.example.com"

	v, err := NewJWTVerifier(pub, issuer)
	require.NoError(t, err)

	valid := jwt.MapClaims{"sub": "user_1", "email": "u@example.com", "iss": issuer, "exp": time.Now().Add(time.Hour).Unix()}
	id, err := v.Verify(context.Background(), signToken(t, key, valid))
	require.NoError(t, err)
	assert.Equal(t, Identity{Subject: "user_1", Email: "u@example.com"}, id)

	testCases := map[string]string{
		"wrong issuer": signToken(t, key, jwt.MapClaims{"sub": "user_1", "iss": "https://evil.example.com", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      signToken(t, key, jwt.MapClaims{"sub": "user_1", "iss": issuer, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no expiry":    signToken(t, key, jwt.MapClaims{"sub": "user_1", "iss": issuer}),
		"no subject":   signToken(t, key, jwt.MapClaims{"iss": issuer, "exp": time.Now().Add(time.Hour).Unix()}),
		"wrong key":    signToken(t, otherKey, valid),
		"garbage":      "not.a.jwt",
	}
	for name, token := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
			assert.False(t, errors.Is(err, ErrAuthorityUnavailable))
		})
	}
}

func TestNewJWTVerifierBadKey(t *testing.T) {
	_, err := NewJWTVerifier("not a pem", "")
	assert.Error(t, err)
}

type stubVerifier struct {
	id  Identity
	err error
}

func (s stubVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	return s.id, s.err
}

func TestDevFallback(t *testing.T) {
	verified := Identity{Subject: "user_9"}

	id, err := DevFallback{Next: stubVerifier{id: verified}}.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, verified, id)

	id, err = DevFallback{Next: Unconfigured{}}.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, DevIdentity, id)

	id, err = DevFallback{Next: stubVerifier{err: unavailable(errors.New("dial tcp: refused"))}}.Verify(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, DevIdentity, id)

	_, err = DevFallback{Next: stubVerifier{err: rejected(errors.New("bad token"))}}.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUnconfiguredRejects(t *testing.T) {
	_, err := Counted{Next: Unconfigured{}}.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewVerifierModes(t *testing.T) {
	_, pub := newKeyPair(t)

	v, err := NewVerifier(&config.Config{ClerkJWTPublicKey: pub})
	require.NoError(t, err)
	require.IsType(t, Counted{}, v)
	assert.IsType(t, &JWTVerifier{}, v.(Counted).Next)

	v, err = NewVerifier(&config.Config{ClerkSecretKey: "sk", ClerkAPIURL: "https://api.clerk.com/v1"})
	require.NoError(t, err)
	assert.IsType(t, &ClerkVerifier{}, v.(Counted).Next)

	v, err = NewVerifier(&config.Config{})
	require.NoError(t, err)
	assert.IsType(t, Unconfigured{}, v.(Counted).Next)

	v, err = NewVerifier(&config.Config{AuthDevFallback: true})
	require.NoError(t, err)
	assert.IsType(t, DevFallback{}, v)

	_, err = NewVerifier(&config.Config{ClerkJWTPublicKey: "junk"})
	assert.Error(t, err)
}
