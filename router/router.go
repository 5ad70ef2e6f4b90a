package router

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultMaxRedirects = 10

// Meta holds the capability flags a route declares. Flags are inherited by
// every descendant route.
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
}

// Route is one record of the route table.
type Route struct {
	Name     string  // Unique name, empty for layout-only records
	Path     string  // Relative to the parent unless it starts with "/"; "*" matches anything
	Meta     Meta    // Capability flags
	Redirect string  // Absolute path to redirect to
	Children []Route // Nested routes
}

// Location is a resolved navigation target.
type Location struct {
	Name    string
	Path    string
	Matched []Route // Matched records, root first
}

// RequiresAuth is true when the target or any ancestor requires authentication.
func (l Location) RequiresAuth() bool {
	for _, r := range l.Matched {
		if r.Meta.RequiresAuth {
			return true
		}
	}
	return false
}

// RequiresAdmin is true when the target or any ancestor requires the admin capability.
func (l Location) RequiresAdmin() bool {
	for _, r := range l.Matched {
		if r.Meta.RequiresAdmin {
			return true
		}
	}
	return false
}

// Decision is a guard's verdict on a navigation.
type Decision struct {
	Redirect string // Route name to go to instead; empty allows the navigation
}

func Allow() Decision { return Decision{} }

func RedirectTo(routeName string) Decision { return Decision{Redirect: routeName} }

func (d Decision) Allowed() bool { return d.Redirect == "" }

// Guard is evaluated before every navigation.
type Guard func(ctx context.Context, to, from Location) (Decision, error)

// Router resolves named or path navigations and runs guards before committing them.
type Router struct {
	byName    map[string]Location
	byPath    map[string]Location
	redirects map[string]string
	catchAll  *Location

	logger       zerolog.Logger
	maxRedirects int

	mu      sync.Mutex
	guards  []Guard
	current Location
	seq     uint64
}

type Option func(*Router)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		r.maxRedirects = n
	}
}

// New builds a router over routes. Names must be unique.
func New(routes []Route, opts ...Option) (*Router, error) {
	r := &Router{
		byName:       make(map[string]Location),
		byPath:       make(map[string]Location),
		redirects:    make(map[string]string),
		logger:       log.Logger,
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.register(routes, "/", nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) register(routes []Route, parentPath string, parents []Route) error {
	for _, route := range routes {
		matched := append(append([]Route(nil), parents...), route)

		if route.Path == PathCatchAll {
			loc := Location{Name: route.Name, Path: route.Path, Matched: matched}
			r.catchAll = &loc
			if route.Name != "" {
				r.byName[route.Name] = loc
			}
			continue
		}

		fullPath := joinPath(parentPath, route.Path)
		if len(route.Children) > 0 {
			if err := r.register(route.Children, fullPath, matched); err != nil {
				return err
			}
			continue
		}

		if route.Redirect != "" {
			r.redirects[fullPath] = route.Redirect
			continue
		}

		loc := Location{Name: route.Name, Path: fullPath, Matched: matched}
		if route.Name != "" {
			if _, exists := r.byName[route.Name]; exists {
				return fmt.Errorf("duplicate route name %q", route.Name)
			}
			r.byName[route.Name] = loc
		}
		r.byPath[fullPath] = loc
	}
	return nil
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") {
		return path.Clean(child)
	}
	return path.Join("/", parent, child)
}

// BeforeEach registers a guard. Guards run in registration order.
func (r *Router) BeforeEach(guard Guard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, guard)
}

// Current returns the location of the last committed navigation.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolve returns the location registered under routeName.
func (r *Router) Resolve(routeName string) (Location, error) {
	loc, ok := r.byName[routeName]
	if !ok {
		return Location{}, fmt.Errorf("%w: %s", apperrors.ErrRouteNotFound, routeName)
	}
	return loc, nil
}

// ResolvePath maps a path to a location, following redirect records and
// falling back to the catch-all route.
func (r *Router) ResolvePath(p string) (Location, error) {
	p = path.Join("/", p)
	for i := 0; i <= r.maxRedirects; i++ {
		if target, ok := r.redirects[p]; ok {
			p = path.Join("/", target)
			continue
		}
		if loc, ok := r.byPath[p]; ok {
			return loc, nil
		}
		if r.catchAll != nil {
			loc := *r.catchAll
			loc.Path = p
			return loc, nil
		}
		return Location{}, fmt.Errorf("%w: %s", apperrors.ErrRouteNotFound, p)
	}
	return Location{}, fmt.Errorf("%w: %s", apperrors.ErrTooManyRedirects, p)
}

// Push navigates to a named route.
func (r *Router) Push(ctx context.Context, routeName string) error {
	to, err := r.Resolve(routeName)
	if err != nil {
		return err
	}
	return r.navigate(ctx, to, 0)
}

// PushPath navigates to a path.
func (r *Router) PushPath(ctx context.Context, p string) error {
	to, err := r.ResolvePath(p)
	if err != nil {
		return err
	}
	return r.navigate(ctx, to, 0)
}

func (r *Router) navigate(ctx context.Context, to Location, redirects int) error {
	if redirects > r.maxRedirects {
		return fmt.Errorf("%w: last target %s", apperrors.ErrTooManyRedirects, to.Name)
	}

	r.mu.Lock()
	r.seq++
	id := r.seq
	from := r.current
	guards := append([]Guard(nil), r.guards...)
	r.mu.Unlock()

	for _, guard := range guards {
		decision, err := guard(ctx, to, from)
		if err != nil {
			return fmt.Errorf("navigation to %s: %w", to.Path, err)
		}
		if !decision.Allowed() {
			r.logger.Debug().Str("to", to.Path).Str("redirect", decision.Redirect).Msg("Navigation redirected")
			target, err := r.Resolve(decision.Redirect)
			if err != nil {
				return err
			}
			return r.navigate(ctx, target, redirects+1)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id != r.seq {
		return fmt.Errorf("%w: %s superseded", apperrors.ErrNavigationCancelled, to.Path)
	}
	r.current = to
	r.logger.Debug().Str("from", from.Path).Str("to", to.Path).Msg("Navigated")
	return nil
}
