package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-inventory-admin/apiclient"
	"github.com/jrsteele09/go-inventory-admin/auth"
	"github.com/jrsteele09/go-inventory-admin/internal/config"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/router"
	"github.com/jrsteele09/go-inventory-admin/sessions"
	"github.com/jrsteele09/go-inventory-admin/sessions/filerepo"
	"github.com/jrsteele09/go-inventory-admin/sessions/redisrepo"
	fakesessionrepo "github.com/jrsteele09/go-inventory-admin/sessions/repofakes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the wired client: session, router and the session-aware API client.
type App struct {
	cfg      config.Config
	session  *sessions.Manager
	router   *router.Router
	api      *apiclient.Client
	registry *prometheus.Registry
	closers  []io.Closer
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.New(), nil
	}
	return config.Load(path)
}

func setupLogging(cfg config.EnvConfig, stderr io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil || cfg.GetLogLevel() == "" {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr})
		return
	}
	log.Logger = zerolog.New(stderr).With().Timestamp().Logger()
}

// NewApp wires the components in dependency order: the plain client for the
// token endpoints, the router, the session with the router as navigator, the
// auth guard, then the session-aware client.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg, registry: prometheus.NewRegistry()}

	clientOpts := []apiclient.Option{
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithUserAgent(cfg.GetUserAgent()),
		apiclient.WithMetrics(a.registry),
	}
	plain, err := apiclient.New(cfg.GetBaseURL(), clientOpts...)
	if err != nil {
		return nil, err
	}

	repo, err := a.newRepo(ctx, plain.Origin())
	if err != nil {
		return nil, err
	}

	r, err := router.New(router.DefaultRoutes())
	if err != nil {
		return nil, err
	}

	a.session = sessions.NewManager(repo, auth.NewTokenAPI(plain), sessions.WithNavigator(r))
	r.BeforeEach(router.AuthGuard(a.session))
	a.router = r

	a.api, err = apiclient.New(cfg.GetBaseURL(), append(clientOpts, apiclient.WithSession(a.session))...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) newRepo(ctx context.Context, origin string) (sessions.Repo, error) {
	switch backend := a.cfg.GetStoreBackend(); backend {
	case config.StoreMemory:
		return fakesessionrepo.NewFakeSessionRepo(), nil

	case config.StoreRedis:
		client, err := redisrepo.Connect(ctx, a.cfg.GetRedisURL())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		return redisrepo.New(client, origin, redisrepo.WithTTL(a.cfg.GetSessionTTL())), nil

	case config.StoreFile, "":
		var opts []filerepo.Option
		if hexKey := a.cfg.GetSessionKey(); hexKey != "" {
			key, err := filerepo.ParseKey(hexKey)
			if err != nil {
				return nil, err
			}
			opts = append(opts, filerepo.WithEncryptionKey(key))
		}
		return filerepo.New(a.cfg.GetDataFolder(), origin, opts...)

	default:
		return nil, fmt.Errorf("unknown session store %q", backend)
	}
}

// Open navigates to routeName and fails when the guard sends the user
// elsewhere.
func (a *App) Open(ctx context.Context, routeName string) error {
	if err := a.router.Push(ctx, routeName); err != nil {
		return err
	}
	switch landed := a.router.Current().Name; landed {
	case routeName:
		return nil
	case router.RouteLogin:
		return fmt.Errorf("%w: run \"login\" first", apperrors.ErrNotLoggedIn)
	default:
		return fmt.Errorf("%w: redirected to %s", apperrors.ErrForbidden, landed)
	}
}

func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

func readPassword(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("INVADMIN_PASSWORD")
}
