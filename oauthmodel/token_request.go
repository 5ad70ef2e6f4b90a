package oauthmodel

// Credentials is the request body sent to POST /auth/tokens.
type Credentials struct {
	// Email identifies the back-office user.
	// Required: Yes
	// Example: "a@x.com"
	Email string `json:"email" validate:"required,email"`

	// Password is the user's secret.
	// Required: Yes
	// Security: Never log or persist this value
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the request body sent to POST /auth/tokens/refresh.
type RefreshRequest struct {
	// RefreshToken is the long-lived token from the previous exchange.
	// Required: Yes
	// Behavior: Rotated - the response carries a new refresh token
	RefreshToken string `json:"refreshToken"`
}
