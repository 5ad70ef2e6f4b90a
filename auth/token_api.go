package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-inventory-admin/apiclient"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/jrsteele09/go-inventory-admin/token/jwt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Requester sends a JSON request to the backend. *apiclient.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// TokenAPI performs the login, refresh and logout exchanges against the
// backend's /auth/tokens endpoints.
//
// It must be given a client without a session attached: a 401 from these
// endpoints is an answer, not a cue to refresh.
type TokenAPI struct {
	client    Requester
	validator *Validator
	logger    zerolog.Logger
}

type TokenAPIOption func(*TokenAPI)

func WithLogger(logger zerolog.Logger) TokenAPIOption {
	return func(a *TokenAPI) {
		a.logger = logger
	}
}

func NewTokenAPI(client Requester, opts ...TokenAPIOption) *TokenAPI {
	a := &TokenAPI{
		client:    client,
		validator: NewValidator(),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Issue exchanges credentials for a token pair.
func (a *TokenAPI) Issue(ctx context.Context, creds oauthmodel.Credentials) (*oauth2.Token, error) {
	if err := a.validator.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	var resp oauthmodel.Envelope[oauthmodel.TokenPair]
	if err := a.client.Do(ctx, http.MethodPost, apiclient.RouteTokens, creds, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	return a.toToken(resp.Data)
}

// Refresh exchanges a refresh token for a new pair. The backend rotates the
// refresh token, so both values of the result replace the old ones.
func (a *TokenAPI) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if err := a.validator.ValidateRefreshToken(refreshToken); err != nil {
		return nil, err
	}

	var resp oauthmodel.Envelope[oauthmodel.TokenPair]
	body := oauthmodel.RefreshRequest{RefreshToken: refreshToken}
	if err := a.client.Do(apiclient.NoRefresh(ctx), http.MethodPost, apiclient.RouteTokensRefresh, body, &resp); err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return a.toToken(resp.Data)
}

// Revoke invalidates the session on the backend. The bearer is pinned so a
// rejected revoke can never start a refresh of its own.
func (a *TokenAPI) Revoke(ctx context.Context, accessToken string) error {
	ctx = apiclient.NoRefresh(apiclient.WithBearer(ctx, accessToken))
	if err := a.client.Do(ctx, http.MethodDelete, apiclient.RouteTokens, nil, nil); err != nil {
		return fmt.Errorf("token revoke failed: %w", err)
	}
	return nil
}

func (a *TokenAPI) toToken(pair oauthmodel.TokenPair) (*oauth2.Token, error) {
	if err := a.validator.ValidateTokenPair(pair); err != nil {
		return nil, err
	}
	if err := a.validator.ValidateAccessToken(pair.AccessToken); err != nil {
		// Not fatal here; the session decides whether the claims are usable.
		a.logger.Debug().Err(err).Msg("Access token is not a JWT")
	}
	return &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       jwt.Expiry(jwt.Decode(pair.AccessToken)),
	}, nil
}
