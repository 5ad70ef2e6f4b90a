package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-Id"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRequestID pins the request id instead of generating one
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyBearer pins the bearer token instead of the session's
	ContextKeyBearer ContextKey = "bearer"
	// ContextKeyNoRefresh disables refresh-on-401 for the request
	ContextKeyNoRefresh ContextKey = "no_refresh"
	// ContextKeyRetried marks a request that has already been retried once
	ContextKeyRetried ContextKey = "retried"

	// contextKeySessionToken carries the session token read by the refresh
	// stage, so the credential sent is the one the 401 is compared against.
	contextKeySessionToken ContextKey = "session_token"
)

var errBodyNotRewindable = errors.New("request body cannot be replayed")

// WithRequestID pins the X-Request-Id of requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// WithBearer pins the bearer token of requests made with ctx.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyBearer, token)
}

// NoRefresh returns a context whose requests surface a 401 as-is.
func NoRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextKeyNoRefresh, true)
}

// Retried reports whether ctx belongs to a request that was already retried.
func Retried(ctx context.Context) bool {
	retried, _ := ctx.Value(ContextKeyRetried).(bool)
	return retried
}

func bearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(ContextKeyBearer).(string)
	return token
}

func sessionTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKeySessionToken).(string)
	return token, ok
}

func noRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(ContextKeyNoRefresh).(bool)
	return v
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type stage func(next http.RoundTripper) http.RoundTripper

// chain wraps base with stages; the first stage is the outermost.
func chain(base http.RoundTripper, stages ...stage) http.RoundTripper {
	rt := base
	for i := len(stages) - 1; i >= 0; i-- {
		rt = stages[i](rt)
	}
	return rt
}

// requestIDStage tags each request with an id and records its outcome.
func requestIDStage(logger zerolog.Logger, m *metrics) stage {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := req.Header.Get(HeaderRequestID)
			if rid == "" {
				rid, _ = req.Context().Value(ContextKeyRequestID).(string)
				if rid == "" {
					rid = uuid.NewString()
				}
				req = req.Clone(req.Context())
				req.Header.Set(HeaderRequestID, rid)
			}

			resp, err := next.RoundTrip(req)

			code := "error"
			if resp != nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			m.requests.WithLabelValues(req.Method, code).Inc()

			event := logger.Debug()
			if err != nil {
				event = logger.Warn().Err(err)
			}
			event.Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("code", code).
				Dur("dur", time.Since(start)).
				Msg("http")
			return resp, err
		})
	}
}

// refreshStage turns a first 401 into one refresh and one retry of the same
// request. The retry mark is carried on the retried request's context.
func refreshStage(session Session, logger zerolog.Logger, m *metrics) stage {
	return func(next http.RoundTripper) http.RoundTripper {
		if session == nil {
			return next
		}
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			sentToken := session.AccessToken()

			resp, err := next.RoundTrip(req.WithContext(context.WithValue(ctx, contextKeySessionToken, sentToken)))
			if err != nil || resp.StatusCode != http.StatusUnauthorized || !retryable(req) {
				return resp, err
			}
			drainAndClose(resp)

			current := session.AccessToken()
			switch {
			case current == "":
				// another request's refresh failed and ended the session
				m.refreshes.WithLabelValues(outcomeFailed).Inc()
				return nil, fmt.Errorf("%w (session ended while %s %s was in flight)", apperrors.ErrSessionExpired, req.Method, req.URL.Path)
			case current == sentToken:
				if err := session.Refresh(ctx); err != nil {
					m.refreshes.WithLabelValues(outcomeFailed).Inc()
					return nil, err
				}
				m.refreshes.WithLabelValues(outcomeRefreshed).Inc()
				if current = session.AccessToken(); current == "" {
					return nil, fmt.Errorf("%w (no token after refresh)", apperrors.ErrSessionExpired)
				}
			default:
				m.refreshes.WithLabelValues(outcomeReused).Inc()
			}

			retryCtx := context.WithValue(context.WithValue(ctx, ContextKeyRetried, true), contextKeySessionToken, current)
			retry, err := rewind(retryCtx, req)
			if err != nil {
				return nil, err
			}
			m.retries.Inc()
			logger.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("Retrying request with refreshed token")
			return next.RoundTrip(retry)
		})
	}
}

func retryable(req *http.Request) bool {
	ctx := req.Context()
	switch {
	case Retried(ctx), noRefresh(ctx), bearerFrom(ctx) != "":
		return false
	case strings.HasSuffix(strings.TrimRight(req.URL.Path, "/"), RouteTokensRefresh):
		return false
	case req.Body != nil && req.Body != http.NoBody && req.GetBody == nil:
		return false
	}
	return true
}

func rewind(ctx context.Context, req *http.Request) (*http.Request, error) {
	retry := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotRewindable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

// attachCredentialStage sets the Authorization header from the pinned bearer
// or the session's current access token.
func attachCredentialStage(session Session) stage {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			token := bearerFrom(req.Context())
			if token == "" && session != nil {
				var pinned bool
				if token, pinned = sessionTokenFrom(req.Context()); !pinned {
					token = session.AccessToken()
				}
			}
			if token == "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
			return next.RoundTrip(req)
		})
	}
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
