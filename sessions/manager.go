package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/jrsteele09/go-inventory-admin/router"
	"github.com/jrsteele09/go-inventory-admin/token/jwt"
	"github.com/jrsteele09/go-inventory-admin/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const loginFailedMsg = "Login failed"

var errSessionChanged = errors.New("session changed during token refresh")

// Manager owns the authentication state of one running client: the decoded
// user, the access/refresh token pair and the transient login status. State is
// mirrored into a Repo so it survives restarts.
type Manager struct {
	repo      Repo
	tokens    TokenExchanger
	navigator Navigator
	logger    zerolog.Logger

	landingRoute string
	loginRoute   string

	// commitMu orders writes of the in-memory state together with storage;
	// mu guards the fields themselves.
	commitMu     sync.Mutex
	mu           sync.RWMutex
	user         *users.User
	accessToken  string
	refreshToken string
	status       Status

	refreshGroup singleflight.Group
}

type ManagerOption func(*Manager)

func WithNavigator(navigator Navigator) ManagerOption {
	return func(m *Manager) {
		if navigator != nil {
			m.navigator = navigator
		}
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty session. Call Initialize to rehydrate a
// previously persisted session.
func NewManager(repo Repo, tokens TokenExchanger, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:         repo,
		tokens:       tokens,
		navigator:    noopNavigator{},
		logger:       log.Logger,
		landingRoute: router.RouteDashboard,
		loginRoute:   router.RouteLogin,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

func (m *Manager) RefreshTokenValue() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

func (m *Manager) IsAdmin() bool {
	return m.Snapshot().IsAdmin()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var u *users.User
	if m.user != nil {
		copied := *m.user
		u = &copied
	}
	return Snapshot{
		User:         u,
		AccessToken:  m.accessToken,
		RefreshToken: m.refreshToken,
		Status:       m.status,
	}
}

// Initialize loads a persisted session. Only a complete triple is accepted;
// anything partial or unreadable is torn down with a full Logout.
func (m *Manager) Initialize(ctx context.Context) error {
	stored, err := m.repo.Load(ctx, PersistedKeys...)
	if err != nil {
		return fmt.Errorf("failed to load persisted session: %w", err)
	}

	accessToken := stored[KeyAccessToken]
	refreshToken := stored[KeyRefreshToken]
	userJSON := stored[KeyUser]
	if accessToken == "" || refreshToken == "" || userJSON == "" {
		m.logger.Debug().Msg("Persisted session incomplete, clearing")
		return m.Logout(ctx)
	}

	var user users.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.logger.Warn().Err(err).Msg("Persisted user record unreadable, clearing session")
		return m.Logout(ctx)
	}
	if user.ID == "" && user.Username == "" {
		m.logger.Warn().Msg("Persisted user record empty, clearing session")
		return m.Logout(ctx)
	}

	m.commitMu.Lock()
	m.mu.Lock()
	m.accessToken = accessToken
	m.refreshToken = refreshToken
	m.user = &user
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.logger.Debug().Str("user", user.Username).Msg("Session restored")
	return nil
}

// HasUnloadedState reports whether persisted storage holds a value for a
// field that is still empty in memory.
func (m *Manager) HasUnloadedState(ctx context.Context) (bool, error) {
	snapshot := m.Snapshot()
	if snapshot.AccessToken != "" && snapshot.RefreshToken != "" && snapshot.User != nil {
		return false, nil
	}

	stored, err := m.repo.Load(ctx, PersistedKeys...)
	if err != nil {
		return false, fmt.Errorf("failed to inspect persisted session: %w", err)
	}

	switch {
	case snapshot.AccessToken == "" && stored[KeyAccessToken] != "":
		return true, nil
	case snapshot.User == nil && stored[KeyUser] != "":
		return true, nil
	case snapshot.RefreshToken == "" && stored[KeyRefreshToken] != "":
		return true, nil
	}
	return false, nil
}

// Login exchanges credentials for a token pair, derives the user from the
// access token and persists the session. On failure the previous session is
// left untouched and Status().LastError describes the problem.
func (m *Manager) Login(ctx context.Context, creds oauthmodel.Credentials) error {
	m.setStatus(Status{InProgress: true})

	token, err := m.tokens.Issue(ctx, creds)
	if err != nil {
		return m.loginFailed(err, apperrors.Message(err, loginFailedMsg))
	}

	claims := jwt.Decode(token.AccessToken)
	if claims == nil {
		return m.loginFailed(apperrors.ErrInvalidToken, loginFailedMsg)
	}
	user := users.FromClaims(claims)

	userJSON, err := json.Marshal(user)
	if err != nil {
		return m.loginFailed(fmt.Errorf("failed to encode user: %w", err), loginFailedMsg)
	}

	m.commitMu.Lock()
	if err := m.repo.Store(ctx, map[string]string{
		KeyAccessToken:  token.AccessToken,
		KeyRefreshToken: token.RefreshToken,
		KeyUser:         string(userJSON),
	}); err != nil {
		m.commitMu.Unlock()
		return m.loginFailed(fmt.Errorf("failed to persist session: %w", err), loginFailedMsg)
	}
	m.mu.Lock()
	m.accessToken = token.AccessToken
	m.refreshToken = token.RefreshToken
	m.user = user
	m.status = Status{}
	m.mu.Unlock()
	m.commitMu.Unlock()

	m.logger.Info().Str("user", user.Username).Bool("admin", user.IsAdmin()).Msg("Logged in")
	m.navigate(ctx, m.landingRoute)
	return nil
}

func (m *Manager) loginFailed(err error, message string) error {
	m.setStatus(Status{LastError: message})
	m.logger.Warn().Err(err).Msg("Login failed")
	return fmt.Errorf("login: %w", err)
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers share
// a single in-flight exchange. Any failure ends the session and returns an
// error matching errors.ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	_, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	if shared {
		m.logger.Debug().Msg("Joined in-flight token refresh")
	}
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	sent := m.RefreshTokenValue()
	if sent == "" {
		return m.expire(ctx, sent, apperrors.ErrNotLoggedIn)
	}

	token, err := m.tokens.Refresh(ctx, sent)
	if err != nil {
		return m.expire(ctx, sent, err)
	}
	if token.AccessToken == "" || token.RefreshToken == "" {
		return m.expire(ctx, sent, apperrors.ErrInvalidToken)
	}

	if err := m.commitRefresh(ctx, sent, token); err != nil {
		if !errors.Is(err, errSessionChanged) {
			return m.expire(ctx, sent, fmt.Errorf("failed to persist refreshed tokens: %w", err))
		}
		// nobody will use the pair just issued
		if err := m.tokens.Revoke(ctx, token.AccessToken); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to revoke discarded access token")
		}
		return m.expire(ctx, sent, err)
	}

	m.logger.Debug().Time("expiry", token.Expiry).Msg("Access token refreshed")
	return nil
}

// commitRefresh stores a refreshed pair, provided the session still holds the
// refresh token that was exchanged for it.
func (m *Manager) commitRefresh(ctx context.Context, sent string, token *oauth2.Token) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if m.RefreshTokenValue() != sent {
		return errSessionChanged
	}
	if err := m.repo.Store(ctx, map[string]string{
		KeyAccessToken:  token.AccessToken,
		KeyRefreshToken: token.RefreshToken,
	}); err != nil {
		return err
	}

	m.mu.Lock()
	m.accessToken = token.AccessToken
	m.refreshToken = token.RefreshToken
	m.mu.Unlock()
	return nil
}

// expire ends the session that sent the failed refresh. When a newer login has
// taken over in the meantime it is left alone and nil is returned.
func (m *Manager) expire(ctx context.Context, sent string, cause error) error {
	err := m.endSession(ctx, &sent)
	switch {
	case errors.Is(err, errSessionChanged) && m.AccessToken() != "":
		m.logger.Debug().Err(cause).Msg("Session replaced during token refresh")
		return nil
	case errors.Is(err, errSessionChanged):
	case err != nil:
		m.logger.Err(err).Msg("Failed to clear expired session")
	}
	m.logger.Warn().Err(cause).Msg("Token refresh failed, session ended")
	return fmt.Errorf("%w (%v)", apperrors.ErrSessionExpired, cause)
}

// Logout tells the backend to invalidate the session when a token is held,
// then clears memory and storage regardless of the outcome and navigates to
// the login route.
func (m *Manager) Logout(ctx context.Context) error {
	return m.endSession(ctx, nil)
}

// endSession implements Logout. With expected set it only acts while the
// session holds that refresh token, and returns errSessionChanged otherwise.
func (m *Manager) endSession(ctx context.Context, expected *string) error {
	snapshot := m.Snapshot()
	if expected != nil && snapshot.RefreshToken != *expected {
		return errSessionChanged
	}
	if snapshot.AccessToken != "" {
		if err := m.tokens.Revoke(ctx, snapshot.AccessToken); err != nil {
			m.logger.Err(err).Msg("Logout API call failed, clearing session locally")
		}
	}

	m.commitMu.Lock()
	if expected != nil && m.RefreshTokenValue() != *expected {
		m.commitMu.Unlock()
		return errSessionChanged
	}
	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.mu.Unlock()
	err := m.repo.Delete(ctx, PersistedKeys...)
	m.commitMu.Unlock()

	if err != nil {
		m.logger.Err(err).Msg("Failed to clear persisted session")
		err = fmt.Errorf("failed to clear persisted session: %w", err)
	}

	m.navigate(ctx, m.loginRoute)
	return err
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *Manager) navigate(ctx context.Context, route string) {
	m.mu.RLock()
	navigator := m.navigator
	m.mu.RUnlock()

	if err := navigator.Push(ctx, route); err != nil {
		m.logger.Debug().Err(err).Str("route", route).Msg("Navigation did not complete")
	}
}

// Token returns the current pair as an oauth2 token, or nil when logged out.
func (m *Manager) Token() *oauth2.Token {
	snapshot := m.Snapshot()
	if !snapshot.IsAuthenticated() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  snapshot.AccessToken,
		RefreshToken: snapshot.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       jwt.Expiry(jwt.Decode(snapshot.AccessToken)),
	}
}
