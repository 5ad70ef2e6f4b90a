package sessions

import (
	"context"

	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/jrsteele09/go-inventory-admin/users"
	"golang.org/x/oauth2"
)

// Status tracks an active login attempt. It is never persisted.
type Status struct {
	InProgress bool   // A login exchange is in flight
	LastError  string // Message of the last failed login, empty after success
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	User         *users.User
	AccessToken  string
	RefreshToken string
	Status       Status
}

// IsAuthenticated is true exactly when an access token is held.
func (s Snapshot) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// IsAdmin is true when a token is held and the decoded user holds the admin role.
func (s Snapshot) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// TokenExchanger performs the server side token exchanges.
type TokenExchanger interface {
	Issue(ctx context.Context, creds oauthmodel.Credentials) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Navigator moves the client to a named route.
type Navigator interface {
	Push(ctx context.Context, routeName string) error
}

type noopNavigator struct{}

func (noopNavigator) Push(context.Context, string) error { return nil }
