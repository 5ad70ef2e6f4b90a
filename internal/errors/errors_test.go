package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Is(t *testing.T) {
	t.Run("401 matches unauthorized", func(t *testing.T) {
		err := fmt.Errorf("get products: %w", &apperrors.APIError{Status: http.StatusUnauthorized, Path: "/products"})
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.NotErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("404 matches not found", func(t *testing.T) {
		err := &apperrors.APIError{Status: http.StatusNotFound}
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("500 matches nothing", func(t *testing.T) {
		err := &apperrors.APIError{Status: http.StatusInternalServerError}
		require.NotErrorIs(t, err, apperrors.ErrUnauthorized)
		require.NotErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMessage(t *testing.T) {
	withMessage := apperrors.Wrapf(&apperrors.APIError{Status: 401, Message: "Bad credentials"}, "login")
	require.Equal(t, "Bad credentials", apperrors.Message(withMessage, "Login failed"))

	withoutMessage := &apperrors.APIError{Status: 502}
	require.Equal(t, "Login failed", apperrors.Message(withoutMessage, "Login failed"))

	require.Equal(t, "Login failed", apperrors.Message(fmt.Errorf("dial tcp: refused"), "Login failed"))
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, 403, apperrors.StatusCode(apperrors.Wrapf(&apperrors.APIError{Status: 403}, "delete")))
	require.Equal(t, 0, apperrors.StatusCode(apperrors.ErrInternal))
	require.Nil(t, apperrors.Wrapf(nil, "nothing"))
}
