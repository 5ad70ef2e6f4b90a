package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend auth endpoints, relative to the base URL
const (
	RouteTokens        = "/auth/tokens"
	RouteTokensRefresh = "/auth/tokens/refresh"
)

const maxErrorBody = 64 << 10

// Session supplies the bearer credential and recovers it when rejected.
type Session interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// Client talks JSON to the REST backend. Every request passes through the
// stage pipeline built in New.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
	metrics    *metrics
}

type config struct {
	httpClient *http.Client
	session    Session
	logger     zerolog.Logger
	registerer prometheus.Registerer
	timeout    time.Duration
	userAgent  string
}

type Option func(*config)

// WithHTTPClient sets the client whose transport ends the pipeline.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = c
	}
}

// WithSession enables bearer credentials and refresh-on-401.
func WithSession(s Session) Option {
	return func(cfg *config) {
		cfg.session = s
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithMetrics registers the client's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.registerer = reg
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(cfg *config) {
		cfg.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	cfg := config{logger: log.Logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	base := http.DefaultTransport
	if cfg.httpClient != nil && cfg.httpClient.Transport != nil {
		base = cfg.httpClient.Transport
	}

	registerer := cfg.registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m := newMetrics(registerer)

	httpClient := &http.Client{Timeout: cfg.timeout}
	if cfg.httpClient != nil {
		copied := *cfg.httpClient
		httpClient = &copied
		if cfg.timeout > 0 {
			httpClient.Timeout = cfg.timeout
		}
	}
	httpClient.Transport = chain(base,
		requestIDStage(cfg.logger, m),
		refreshStage(cfg.session, cfg.logger, m),
		attachCredentialStage(cfg.session),
	)

	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		userAgent:  cfg.userAgent,
		logger:     cfg.logger,
		metrics:    m,
	}, nil
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Origin returns scheme://host[:port] of the API root.
func (c *Client) Origin() string {
	return c.baseURL.Scheme + "://" + c.baseURL.Host
}

// Do sends body as JSON to path and decodes the JSON response into out. Both
// body and out may be nil. Non-2xx responses are returned as *errors.APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp, path)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func decodeError(resp *http.Response, path string) error {
	apiErr := &apperrors.APIError{Status: resp.StatusCode, Path: path}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		var body oauthmodel.ErrorBody
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Message
			if apiErr.Message == "" {
				apiErr.Message = body.Error
			}
		}
	}
	return apiErr
}
