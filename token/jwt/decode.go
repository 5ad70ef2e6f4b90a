package jwt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

var segmentParser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// Decode extracts the payload claims of a bearer token without verifying it.
// Failures are logged and reported as nil claims, never as an error.
func Decode(rawToken string) jwtlib.MapClaims {
	claims, err := DecodeStrict(rawToken)
	if err != nil {
		log.Err(err).Msg("Failed to decode token claims")
		return nil
	}
	return claims
}

// DecodeStrict is Decode with the failure reason. Only the payload segment is
// interpreted; the header and signature segments are left alone.
func DecodeStrict(rawToken string) (jwtlib.MapClaims, error) {
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", apperrors.ErrMalformedToken, len(parts))
	}

	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", apperrors.ErrMalformedToken, err)
	}

	var claims jwtlib.MapClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", apperrors.ErrMalformedToken, err)
	}
	if claims == nil {
		return nil, fmt.Errorf("%w: empty payload", apperrors.ErrMalformedToken)
	}
	return claims, nil
}

// Expiry returns the exp claim, or the zero time when it is absent or unreadable.
func Expiry(claims jwtlib.MapClaims) time.Time {
	if claims == nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
