package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoleJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleAdmin})
	require.NoError(t, err)
	require.JSONEq(t, `{"role":"admin"}`, string(b))

	var got struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"student"}`), &got))
	require.Equal(t, RoleStudent, got.Role)

	require.Error(t, json.Unmarshal([]byte(`{"role":"superuser"}`), &got))

	_, err = json.Marshal(Role(0))
	require.Error(t, err)
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUserVerified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"admin without status", User{Role: RoleAdmin}, true},
		{"pending student", User{Role: RoleStudent, Status: StatusPending}, false},
		{"verified student", User{Role: RoleStudent, Status: StatusVerified}, true},
		{"unknown role", User{Status: StatusVerified}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.user.Verified())
		})
	}
}

func TestPublicDropsHash(t *testing.T) {
	t.Parallel()

	u := User{ID: "x", Role: RoleStudent, PasswordHash: "secret"}
	b, err := json.Marshal(u.Public())
	require.NoError(t, err)
	require.NotContains(t, string(b), "passwordHash")
	require.Equal(t, "secret", u.PasswordHash)
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("signup: %w", Duplicate("Email already registered"))
	require.ErrorIs(t, err, ErrDuplicate)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, KindDuplicate, KindOf(err))
	require.Equal(t, "Email already registered", Message(err, "fallback"))

	cause := errors.New("disk full")
	serr := Storage("save users", cause)
	require.ErrorIs(t, serr, ErrStorage)
	require.ErrorIs(t, serr, cause)
	require.Equal(t, "fallback", Message(errors.New("plain"), "fallback"))
	require.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestNewUserID(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000123)
	id := NewUserID(RoleStudent, now)
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	require.Equal(t, "student", parts[0])
	require.Equal(t, "1700000000123", parts[1])
	require.Len(t, parts[2], 9)
	require.NotEqual(t, id, NewUserID(RoleStudent, now))
}

func TestEventStatusToggle(t *testing.T) {
	t.Parallel()

	require.Equal(t, EventCompleted, EventActive.Toggled())
	require.Equal(t, EventActive, EventCompleted.Toggled())
}

func TestRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attended, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{4, 4, 100},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Rate(tt.attended, tt.total), "%d/%d", tt.attended, tt.total)
	}
}
