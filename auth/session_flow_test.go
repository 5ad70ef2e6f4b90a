package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-inventory-admin/apiclient"
	"github.com/jrsteele09/go-inventory-admin/auth"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/jrsteele09/go-inventory-admin/router"
	"github.com/jrsteele09/go-inventory-admin/sessions"
	fakesessionrepo "github.com/jrsteele09/go-inventory-admin/sessions/repofakes"
	"github.com/stretchr/testify/require"
)

type app struct {
	backend *fakeBackend
	repo    *fakesessionrepo.FakeSessionRepo
	session *sessions.Manager
	router  *router.Router
	api     *apiclient.Client
}

// newApp wires the pieces the way the CLI does.
func newApp(t *testing.T, b *fakeBackend, repo *fakesessionrepo.FakeSessionRepo) *app {
	t.Helper()

	plain, err := apiclient.New(b.URL())
	require.NoError(t, err)

	r, err := router.New(router.DefaultRoutes())
	require.NoError(t, err)

	mgr := sessions.NewManager(repo, auth.NewTokenAPI(plain), sessions.WithNavigator(r))
	r.BeforeEach(router.AuthGuard(mgr))

	api, err := apiclient.New(b.URL(), apiclient.WithSession(mgr))
	require.NoError(t, err)

	return &app{backend: b, repo: repo, session: mgr, router: r, api: api}
}

func (a *app) login(t *testing.T) {
	t.Helper()
	require.NoError(t, a.session.Login(context.Background(), oauthmodel.Credentials{Email: testEmail, Password: testPassword}))
}

type productsPage = oauthmodel.Envelope[oauthmodel.ItemsPage[map[string]any]]

func TestSessionFlow_LoginLandsOnDashboard(t *testing.T) {
	a := newApp(t, newFakeBackend(t, "ROLE_ADMIN"), fakesessionrepo.NewFakeSessionRepo())
	a.login(t)

	require.Equal(t, router.RouteDashboard, a.router.Current().Name)
	require.True(t, a.session.IsAdmin())
	require.Equal(t, "a", a.session.User().Username)

	var page productsPage
	require.NoError(t, a.api.Get(context.Background(), "/products", &page))
	require.Len(t, page.Data.Items, 1)
}

func TestSessionFlow_AdminRouteAsUser(t *testing.T) {
	a := newApp(t, newFakeBackend(t, "ROLE_USER"), fakesessionrepo.NewFakeSessionRepo())
	a.login(t)

	require.NoError(t, a.router.Push(context.Background(), router.RouteStatistics))
	require.Equal(t, router.RouteDashboard, a.router.Current().Name)

	require.NoError(t, a.router.PushPath(context.Background(), "/products"))
	require.Equal(t, router.RouteProducts, a.router.Current().Name)
}

func TestSessionFlow_ProtectedRouteWhileLoggedOut(t *testing.T) {
	a := newApp(t, newFakeBackend(t, "ROLE_ADMIN"), fakesessionrepo.NewFakeSessionRepo())

	require.NoError(t, a.router.PushPath(context.Background(), "/"))
	require.Equal(t, router.RouteLogin, a.router.Current().Name)
}

func TestSessionFlow_RestartRestoresSession(t *testing.T) {
	b := newFakeBackend(t, "ROLE_ADMIN")
	repo := fakesessionrepo.NewFakeSessionRepo()
	first := newApp(t, b, repo)
	first.login(t)

	// fresh process over the same storage; the guard rehydrates lazily
	second := newApp(t, b, repo)
	require.False(t, second.session.IsAuthenticated())
	require.NoError(t, second.router.Push(context.Background(), router.RouteStatistics))
	require.Equal(t, router.RouteStatistics, second.router.Current().Name)
	require.Equal(t, first.session.Snapshot().AccessToken, second.session.AccessToken())
}

func TestSessionFlow_ExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	b := newFakeBackend(t, "ROLE_USER")
	a := newApp(t, b, fakesessionrepo.NewFakeSessionRepo())
	a.login(t)
	before := a.session.Snapshot()

	b.mu.Lock()
	b.refreshDelay = 50 * time.Millisecond
	b.mu.Unlock()
	b.expireAccess()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var page productsPage
			errs[i] = a.api.Get(context.Background(), "/products", &page)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	_, refreshes, _ := b.counts()
	require.Equal(t, 1, refreshes, "concurrent 401s share one refresh")

	after := a.session.Snapshot()
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.Equal(t, "refresh-2", after.RefreshToken)
	require.Equal(t, before.User, after.User)

	stored, _ := a.repo.Get(sessions.KeyRefreshToken)
	require.Equal(t, "refresh-2", stored)
}

func TestSessionFlow_RefreshRejectedEndsSession(t *testing.T) {
	b := newFakeBackend(t, "ROLE_USER")
	a := newApp(t, b, fakesessionrepo.NewFakeSessionRepo())
	a.login(t)

	b.mu.Lock()
	b.failRefresh = true
	b.mu.Unlock()
	b.expireAccess()

	err := a.api.Get(context.Background(), "/products", nil)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, "session expired, please log in again", apperrors.ErrSessionExpired.Error())

	require.False(t, a.session.IsAuthenticated())
	require.Zero(t, a.repo.Len())
	require.Equal(t, router.RouteLogin, a.router.Current().Name)

	// the revoke sent during logout was rejected but did not loop
	_, refreshes, revokes := b.counts()
	require.Equal(t, 1, refreshes)
	require.Equal(t, 1, revokes)
}

func TestSessionFlow_Logout(t *testing.T) {
	b := newFakeBackend(t, "ROLE_ADMIN")
	a := newApp(t, b, fakesessionrepo.NewFakeSessionRepo())
	a.login(t)
	token := a.session.AccessToken()

	require.NoError(t, a.session.Logout(context.Background()))
	require.NoError(t, a.session.Logout(context.Background()))

	require.False(t, a.session.IsAuthenticated())
	require.Zero(t, a.repo.Len())
	require.Equal(t, router.RouteLogin, a.router.Current().Name)

	_, _, revokes := b.counts()
	require.Equal(t, 1, revokes, "second logout holds no token to revoke")
	require.Equal(t, []string{token}, b.revokedTokens())
}
