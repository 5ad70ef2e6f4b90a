package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
)

// Validator checks requests before they are sent to the token endpoints.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator instance
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateCredentials validates login credentials. The error matches
// errors.ErrInvalidCredentials and names the first offending field.
func (v *Validator) ValidateCredentials(creds oauthmodel.Credentials) error {
	creds.Email = strings.TrimSpace(creds.Email)
	err := v.validate.Struct(creds)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidCredentials, err)
	}
	switch fieldErrs[0].Field() {
	case "Email":
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, InvalidEmailErr)
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidCredentials, MissingPasswordErr)
	}
}

// ValidateAccessToken checks the token has the three non-empty JWT segments
func (v *Validator) ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is empty", InvalidAccessTokenErr)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: must be a valid JWT", InvalidAccessTokenErr)
	}
	for i, part := range parts {
		if len(part) == 0 {
			return fmt.Errorf("%w: part %d is empty", InvalidAccessTokenErr, i+1)
		}
	}
	return nil
}

func (v *Validator) ValidateRefreshToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is empty", InvalidRefreshTokenErr)
	}
	return nil
}

// ValidateTokenPair rejects a token response that lacks either token.
func (v *Validator) ValidateTokenPair(pair oauthmodel.TokenPair) error {
	if !pair.Complete() {
		return IncompleteTokenPairErr
	}
	return nil
}
