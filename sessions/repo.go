package sessions

import "context"

// Persisted keys. All three are written and cleared together.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// PersistedKeys lists every key owned by the session lifecycle.
var PersistedKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Repo is the durable key/value store backing a session. One Repo instance is
// scoped to a single backend origin, so a reload of the client sees the
// session left by the previous run.
type Repo interface {
	// Load returns the values stored for keys. Absent keys are omitted from the map.
	Load(ctx context.Context, keys ...string) (map[string]string, error)

	// Store writes all values or none of them
	Store(ctx context.Context, values map[string]string) error

	// Delete removes keys; deleting an absent key is not an error
	Delete(ctx context.Context, keys ...string) error
}
