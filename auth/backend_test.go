package auth_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@x.com"
	testPassword = "secret"
)

// fakeBackend mimics the inventory API's token endpoints and one protected
// collection.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	scope      string
	generation int
	access     string
	refresh    string
	issued     int
	refreshes  int
	revokes    int
	revokedBy  []string
	// refreshDelay holds refresh responses so concurrent callers overlap
	refreshDelay time.Duration
	failRefresh  bool
}

func newFakeBackend(t *testing.T, scope string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, scope: scope}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/tokens", b.handleIssue)
	mux.HandleFunc("POST /api/auth/tokens/refresh", b.handleRefresh)
	mux.HandleFunc("DELETE /api/auth/tokens", b.handleRevoke)
	mux.HandleFunc("GET /api/products", b.handleProducts)

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string {
	return b.server.URL + "/api"
}

func mintToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

// rotate issues a fresh pair. Callers hold b.mu.
func (b *fakeBackend) rotate() oauthmodel.TokenPair {
	b.generation++
	b.access = mintToken(b.t, jwtlib.MapClaims{
		"uid":   "1",
		"sub":   "a",
		"scope": b.scope,
		"gen":   b.generation,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	b.refresh = fmt.Sprintf("refresh-%d", b.generation)
	return oauthmodel.TokenPair{AccessToken: b.access, RefreshToken: b.refresh}
}

// expireAccess makes the server reject the access token the client holds.
func (b *fakeBackend) expireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired"
}

func (b *fakeBackend) counts() (issued, refreshes, revokes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issued, b.refreshes, b.revokes
}

func (b *fakeBackend) revokedTokens() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.revokedBy...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handleIssue(w http.ResponseWriter, r *http.Request) {
	var creds oauthmodel.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, oauthmodel.ErrorBody{Message: "bad request"})
		return
	}
	if creds.Email != testEmail || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, oauthmodel.ErrorBody{Message: "Bad credentials"})
		return
	}

	b.mu.Lock()
	b.issued++
	pair := b.rotate()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, oauthmodel.Envelope[oauthmodel.TokenPair]{Data: pair})
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req oauthmodel.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	delay := b.refreshDelay
	b.refreshes++
	b.mu.Unlock()
	time.Sleep(delay)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRefresh || req.RefreshToken != b.refresh {
		writeJSON(w, http.StatusUnauthorized, oauthmodel.ErrorBody{Message: "refresh token rejected"})
		return
	}
	writeJSON(w, http.StatusOK, oauthmodel.Envelope[oauthmodel.TokenPair]{Data: b.rotate()})
}

func (b *fakeBackend) handleRevoke(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revokes++
	b.revokedBy = append(b.revokedBy, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if r.Header.Get("Authorization") != "Bearer "+b.access {
		writeJSON(w, http.StatusUnauthorized, oauthmodel.ErrorBody{Message: "not logged in"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) handleProducts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	valid := b.access != "" && r.Header.Get("Authorization") == "Bearer "+b.access
	b.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, oauthmodel.ErrorBody{Message: "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"items": []map[string]any{{"entityId": 1, "name": "Milk"}}},
	})
}
