package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// SessionState is the view of the session the auth guard needs.
type SessionState interface {
	IsAuthenticated() bool
	IsAdmin() bool
	HasUnloadedState(ctx context.Context) (bool, error)
	Initialize(ctx context.Context) error
}

// AuthGuard enforces the requiresAuth and requiresAdmin flags. Unauthenticated
// users are sent to the login route; authenticated users lacking the admin
// capability are sent to the dashboard. A persisted session that has not been
// loaded yet is rehydrated first.
func AuthGuard(session SessionState) Guard {
	return func(ctx context.Context, to, _ Location) (Decision, error) {
		unloaded, err := session.HasUnloadedState(ctx)
		if err != nil {
			return Decision{}, err
		}
		if unloaded {
			if err := session.Initialize(ctx); err != nil {
				return Decision{}, fmt.Errorf("failed to restore session: %w", err)
			}
		}

		switch {
		case to.RequiresAuth() && !session.IsAuthenticated():
			log.Debug().Str("to", to.Path).Msg("Authentication required")
			return RedirectTo(RouteLogin), nil
		case to.RequiresAdmin() && !session.IsAdmin():
			log.Debug().Str("to", to.Path).Msg("Admin capability required")
			return RedirectTo(RouteDashboard), nil
		}
		return Allow(), nil
	}
}
