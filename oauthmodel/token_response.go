package oauthmodel

// Envelope wraps every JSON body returned by the backend.
// Example: {"data": {...}, "message": "ok"}
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// ItemsPage is the payload of a collection endpoint (GET /{resource}).
type ItemsPage[T any] struct {
	Items []T `json:"items"`
}

// TokenPair is the payload returned by the login and refresh endpoints.
type TokenPair struct {
	// AccessToken is the JWT used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <accessToken>"
	// Lifespan: Short-lived
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged for a new pair once the access token is rejected.
	// Lifespan: Long-lived
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// ErrorBody is the JSON body of a non-2xx response.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
