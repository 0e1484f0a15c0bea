package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUser() User {
	return User{
		ID:        uuid.New(),
		Login:     "ann42",
		Name:      "Ann",
		Password:  "correct-horse",
		Email:     "ann@svc.local",
		IsActive:  true,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserRoundTrip(t *testing.T) {
	original := validUser()

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := UserFromJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUserFromJSONListsEveryInvalidField(t *testing.T) {
	raw := []byte(`{
		"id": "` + uuid.NewString() + `",
		"login": "ab",
		"name": "",
		"password": "short",
		"email": "not-an-email",
		"created_at": "2026-08-01T12:00:00Z"
	}`)

	_, err := UserFromJSON(raw)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	fields := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"Login", "Name", "Password", "Email"}, fields)
}

func TestUserFromJSONMalformed(t *testing.T) {
	_, err := UserFromJSON([]byte(`{"login": `))
	require.Error(t, err)

	var ve *ValidationError
	assert.False(t, errors.As(err, &ve), "malformed JSON is not a validation error")
}

func TestNewUser(t *testing.T) {
	u, err := NewUser("ann42", "Ann", "correct-horse", "ann@svc.local")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.True(t, u.IsActive)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Nil(t, u.UpdatedAt)
}

func TestNewUserInvalid(t *testing.T) {
	_, err := NewUser("", "", "short", "nope")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 4)
}

func TestValidateRequests(t *testing.T) {
	t.Run("create user ok", func(t *testing.T) {
		req := CreateUserRequest{Login: "ann42", Name: "Ann", Password: "correct-horse", Email: "ann@svc.local"}
		assert.NoError(t, Validate(req))
	})

	t.Run("create user invalid", func(t *testing.T) {
		err := Validate(CreateUserRequest{Login: "ann42"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Fields, 3)
	})

	t.Run("get user needs id or login", func(t *testing.T) {
		assert.NoError(t, Validate(GetUserRequest{ID: "42"}))
		assert.NoError(t, Validate(GetUserRequest{Login: "ann42"}))
		assert.Error(t, Validate(GetUserRequest{}))
	})

	t.Run("token pair", func(t *testing.T) {
		assert.NoError(t, Validate(TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}))
		assert.Error(t, Validate(TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "Basic"}))
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := Validate(LoginRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field Login is required")
	assert.Contains(t, err.Error(), "field Password is required")
}
