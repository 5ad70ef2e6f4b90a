package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-inventory-admin/auth"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateCredentials(t *testing.T) {
	v := auth.NewValidator()

	tests := []struct {
		name    string
		creds   oauthmodel.Credentials
		wantErr error
	}{
		{"valid", oauthmodel.Credentials{Email: "a@x.com", Password: "p"}, nil},
		{"surrounding spaces", oauthmodel.Credentials{Email: " a@x.com ", Password: "p"}, nil},
		{"missing email", oauthmodel.Credentials{Password: "p"}, auth.InvalidEmailErr},
		{"malformed email", oauthmodel.Credentials{Email: "not-an-email", Password: "p"}, auth.InvalidEmailErr},
		{"missing password", oauthmodel.Credentials{Email: "a@x.com"}, auth.MissingPasswordErr},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateCredentials(tc.creds)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		})
	}
}

func TestValidator_ValidateAccessToken(t *testing.T) {
	v := auth.NewValidator()

	require.NoError(t, v.ValidateAccessToken("h.p.s"))
	require.ErrorIs(t, v.ValidateAccessToken(""), auth.InvalidAccessTokenErr)
	require.ErrorIs(t, v.ValidateAccessToken("only.two"), auth.InvalidAccessTokenErr)
	require.ErrorIs(t, v.ValidateAccessToken("h..s"), auth.InvalidAccessTokenErr)
}

func TestValidator_ValidateTokenPair(t *testing.T) {
	v := auth.NewValidator()

	require.NoError(t, v.ValidateTokenPair(oauthmodel.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.ErrorIs(t, v.ValidateTokenPair(oauthmodel.TokenPair{AccessToken: "a"}), auth.IncompleteTokenPairErr)
	require.ErrorIs(t, v.ValidateTokenPair(oauthmodel.TokenPair{RefreshToken: "r"}), auth.IncompleteTokenPairErr)
	require.ErrorIs(t, v.ValidateRefreshToken(" "), auth.InvalidRefreshTokenErr)
}
