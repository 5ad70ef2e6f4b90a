package crud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Requester sends a JSON request to the backend. *apiclient.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// KeyFunc returns the identifier an item is addressed by, its entityId.
type KeyFunc[T any] func(T) string

// Resource is a cached view of one REST collection such as /products.
// Every operation records its failure in Err; the last FetchAll result is
// kept in Items.
type Resource[T any] struct {
	client   Requester
	endpoint string
	key      KeyFunc[T]
	logger   zerolog.Logger

	mu       sync.RWMutex
	items    []T
	inFlight int
	lastErr  string
}

type Option func(*options)

type options struct {
	logger *zerolog.Logger
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// New creates a resource for endpoint. key may be nil for read-only
// collections that are never updated or removed.
func New[T any](client Requester, endpoint string, key KeyFunc[T], opts ...Option) *Resource[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}
	return &Resource[T]{
		client:   client,
		endpoint: "/" + strings.Trim(endpoint, "/"),
		key:      key,
		logger:   logger.With().Str("resource", endpoint).Logger(),
	}
}

func (r *Resource[T]) Endpoint() string {
	return r.endpoint
}

// Items returns a copy of the cached items.
func (r *Resource[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]T(nil), r.items...)
}

// Loading reports whether an operation is in flight.
func (r *Resource[T]) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inFlight > 0
}

// Err returns the message of the last failure, or "".
func (r *Resource[T]) Err() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// FetchAll replaces the cached items with GET {endpoint} -> data.items.
func (r *Resource[T]) FetchAll(ctx context.Context) ([]T, error) {
	r.begin(true)
	defer r.end()

	var resp oauthmodel.Envelope[oauthmodel.ItemsPage[T]]
	if err := r.client.Do(ctx, http.MethodGet, r.endpoint, nil, &resp); err != nil {
		return nil, r.fail(err, "Failed to fetch from %s")
	}

	r.mu.Lock()
	r.items = resp.Data.Items
	r.mu.Unlock()
	return r.Items(), nil
}

// Create posts item and returns the created entity. The cache is left as is;
// call FetchAll to see the new item in Items.
func (r *Resource[T]) Create(ctx context.Context, item any) (T, error) {
	r.begin(false)
	defer r.end()

	var resp oauthmodel.Envelope[T]
	if err := r.client.Do(ctx, http.MethodPost, r.endpoint, item, &resp); err != nil {
		var zero T
		return zero, r.fail(err, "Failed to create item at %s")
	}
	return resp.Data, nil
}

// Update sends patch to PUT {endpoint}/{id} and merges it into the cached item
// with the same key. Fields absent from patch keep their cached values.
func (r *Resource[T]) Update(ctx context.Context, id string, patch map[string]any) error {
	r.begin(false)
	defer r.end()

	if err := r.client.Do(ctx, http.MethodPut, r.itemPath(id), patch, nil); err != nil {
		return r.fail(err, "Failed to update item at %s")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return nil
	}
	merged, err := merge(r.items[idx], patch)
	if err != nil {
		// the server accepted the change; only the cached copy is stale
		r.logger.Warn().Err(err).Str("id", id).Msg("Failed to merge update into cached item")
		return nil
	}
	r.items[idx] = merged
	return nil
}

// Remove sends DELETE {endpoint}/{id} and drops the cached item.
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	r.begin(false)
	defer r.end()

	if err := r.client.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil); err != nil {
		return r.fail(err, "Failed to delete item at %s")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx := r.indexOf(id); idx >= 0 {
		r.items = append(r.items[:idx], r.items[idx+1:]...)
	}
	return nil
}

func (r *Resource[T]) itemPath(id string) string {
	return r.endpoint + "/" + url.PathEscape(id)
}

// indexOf must be called with mu held.
func (r *Resource[T]) indexOf(id string) int {
	if r.key == nil {
		return -1
	}
	for i, item := range r.items {
		if r.key(item) == id {
			return i
		}
	}
	return -1
}

func (r *Resource[T]) begin(clearErr bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight++
	if clearErr {
		r.lastErr = ""
	}
}

func (r *Resource[T]) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
}

func (r *Resource[T]) fail(err error, fallbackFormat string) error {
	msg := apperrors.Message(err, fmt.Sprintf(fallbackFormat, r.endpoint))
	r.mu.Lock()
	r.lastErr = msg
	r.mu.Unlock()
	r.logger.Err(err).Msg(msg)
	return err
}

// merge overlays patch onto item through their JSON representations.
func merge[T any](item T, patch map[string]any) (T, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return item, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	if data, err = json.Marshal(fields); err != nil {
		return item, err
	}
	var merged T
	if err := json.Unmarshal(data, &merged); err != nil {
		return item, err
	}
	return merged, nil
}
