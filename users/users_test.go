package users_test

import (
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-inventory-admin/users"
	"github.com/stretchr/testify/require"
)

func TestFromClaims(t *testing.T) {
	t.Run("string claims", func(t *testing.T) {
		u := users.FromClaims(jwtlib.MapClaims{"uid": "1", "sub": "a", "scope": "ROLE_ADMIN"})
		require.Equal(t, &users.User{ID: "1", Username: "a", Roles: "ROLE_ADMIN"}, u)
		require.True(t, u.IsAdmin())
	})

	t.Run("numeric id and scope list", func(t *testing.T) {
		u := users.FromClaims(jwtlib.MapClaims{"uid": float64(17), "sub": "bob", "scope": []any{"ROLE_USER", "ROLE_ADMIN"}})
		require.Equal(t, "17", u.ID)
		require.Equal(t, "ROLE_USER ROLE_ADMIN", u.Roles)
		require.True(t, u.IsAdmin())
	})

	t.Run("missing scope", func(t *testing.T) {
		u := users.FromClaims(jwtlib.MapClaims{"uid": "2", "sub": "carol"})
		require.Equal(t, "", u.Roles)
		require.False(t, u.IsAdmin())
	})

	t.Run("nil claims", func(t *testing.T) {
		require.Nil(t, users.FromClaims(nil))
	})
}

func TestUser_HasRole(t *testing.T) {
	u := &users.User{Roles: "ROLE_USER,ROLE_ADMINISTRATOR_VIEW"}
	require.True(t, u.HasRole(users.RoleUser))
	require.False(t, u.IsAdmin())
	require.Equal(t, []users.RoleType{"ROLE_USER", "ROLE_ADMINISTRATOR_VIEW"}, u.RoleList())

	var nilUser *users.User
	require.False(t, nilUser.IsAdmin())
	require.Nil(t, nilUser.RoleList())
}
