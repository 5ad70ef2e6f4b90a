package jwt_test

import (
	"encoding/base64"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/token/jwt"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secretStr))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	t.Run("signed token", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{"uid": "1", "sub": "alice", "scope": "ROLE_ADMIN"})
		claims := jwt.Decode(raw)
		require.NotNil(t, claims)
		require.Equal(t, "1", claims["uid"])
		require.Equal(t, "alice", claims["sub"])
		require.Equal(t, "ROLE_ADMIN", claims["scope"])
	})

	t.Run("opaque header and signature", func(t *testing.T) {
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"uid":"1","sub":"a","scope":"ROLE_ADMIN"}`))
		claims := jwt.Decode("h." + payload + ".s")
		require.Equal(t, "a", claims["sub"])
	})

	t.Run("padded payload", func(t *testing.T) {
		payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"ab"}`))
		claims := jwt.Decode("h." + payload + ".s")
		require.Equal(t, "ab", claims["sub"])
	})

	t.Run("failures yield no claims", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"not-a-token",
			"a.b",
			"a.b.c.d",
			"h.!!!.s",
			"h." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".s",
			"h." + base64.RawURLEncoding.EncodeToString([]byte(`["array"]`)) + ".s",
			"h." + base64.RawURLEncoding.EncodeToString([]byte(`null`)) + ".s",
		} {
			require.Nil(t, jwt.Decode(raw), raw)
		}
	})
}

func TestDecodeStrict(t *testing.T) {
	_, err := jwt.DecodeStrict("a.b")
	require.ErrorIs(t, err, apperrors.ErrMalformedToken)
	require.Contains(t, err.Error(), "expected 3 segments")
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	raw := signedToken(t, jwtlib.MapClaims{"sub": "a", "exp": now.Add(time.Hour).Unix()})
	claims := jwt.Decode(raw)
	require.Equal(t, now.Add(time.Hour).Unix(), jwt.Expiry(claims).Unix())

	past := jwt.Decode(signedToken(t, jwtlib.MapClaims{"sub": "a", "exp": now.Add(-time.Minute).Unix()}))
	require.Equal(t, now.Add(-time.Minute).Unix(), jwt.Expiry(past).Unix())

	require.True(t, jwt.Expiry(jwtlib.MapClaims{"sub": "a"}).IsZero())
	require.True(t, jwt.Expiry(nil).IsZero())
}
