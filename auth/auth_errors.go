package auth

import "errors"

var (
	InvalidEmailErr        = errors.New("a valid email is required")
	MissingPasswordErr     = errors.New("password is required")
	InvalidAccessTokenErr  = errors.New("invalid access token")
	InvalidRefreshTokenErr = errors.New("invalid refresh token")
	IncompleteTokenPairErr = errors.New("token response is missing a token")
)
