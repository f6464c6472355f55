package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerHS256(t *testing.T) {
	m, err := NewJWTManager(config.JWTConf{Algorithm: "HS256", Secret: "s3cret", TTL: time.Hour})
	require.NoError(t, err)

	tok, err := m.Generate("user-1")
	require.NoError(t, err)

	id, err := m.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", id)

	other, err := NewJWTManager(config.JWTConf{Algorithm: "HS256", Secret: "different"})
	require.NoError(t, err)
	_, err = other.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManagerExpiry(t *testing.T) {
	m, err := NewJWTManager(config.JWTConf{Secret: "s3cret", TTL: time.Hour})
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = m.Parse(signed)
	require.ErrorIs(t, err, ErrTokenExpired)

	forever, err := NewJWTManager(config.JWTConf{Secret: "s3cret"})
	require.NoError(t, err)
	tok, err := forever.Generate("user-2")
	require.NoError(t, err)
	id, err := forever.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "user-2", id)
}

func TestJWTManagerRejectsGarbage(t *testing.T) {
	m, err := NewJWTManager(config.JWTConf{Secret: "s3cret"})
	require.NoError(t, err)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Parse(tok)
		require.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestJWTManagerRS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o600))

	m, err := NewJWTManager(config.JWTConf{Algorithm: "RS256", PrivateKeyPath: privPath, PublicKeyPath: pubPath, TTL: time.Hour})
	require.NoError(t, err)

	tok, err := m.Generate("user-3")
	require.NoError(t, err)
	id, err := m.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "user-3", id)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", hash)
	require.True(t, CheckPassword(hash, "hunter22"))
	require.False(t, CheckPassword(hash, "hunter23"))
}

func TestValidationMessage(t *testing.T) {
	type req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	err := ValidateStruct(req{Email: "nope", Password: "123"})
	require.Error(t, err)

	errs := FormatValidationErrors(err)
	require.Len(t, errs, 2)
	require.Equal(t, "email", errs[0].Field)
	require.Equal(t, "password must be at least 6 characters long", errs[1].Message)
	require.Contains(t, ValidationMessage(err), "email must be a valid email address")

	require.NoError(t, ValidateStruct(req{Email: "a@b.co", Password: "123456"}))
}

func TestSanitizeText(t *testing.T) {
	require.Equal(t, "hello", SanitizeText("  <b>hello</b> "))
	require.Equal(t, "", SanitizeText("<script>alert(1)</script>"))
	require.Equal(t, "fish & chips", SanitizeText("fish & chips"))
	require.Equal(t, "a < b", SanitizeText("a < b"))

	for _, encoded := range []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
		"&#60;img src=x onerror=alert(1)&#62;",
	} {
		t.Run(encoded, func(t *testing.T) {
			out := SanitizeText(encoded)
			require.NotContains(t, out, "<img")
			require.NotContains(t, out, "<script")
			require.Equal(t, out, SanitizeText(out))
		})
	}
}
