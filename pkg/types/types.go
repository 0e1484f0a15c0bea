// Package types holds the data models exchanged between OpenVerse
// services. Keeping them in one place means the client, the services
// and their tests all agree on one canonical shape for each record.
//
// Every model carries validate tags checked by go-playground/validator;
// construction helpers fail with a *ValidationError listing every
// invalid field rather than the first one encountered.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User is the canonical user record shared between the users and
// authentication services.
type User struct {
	ID        uuid.UUID  `json:"id" validate:"required"`
	Login     string     `json:"login" validate:"required,min=3"`
	Name      string     `json:"name" validate:"required"`
	Password  string     `json:"password" validate:"required,min=8"`
	Email     string     `json:"email" validate:"required,email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at" validate:"required"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewUser builds a valid active user with a fresh ID and creation
// timestamp, or fails with a *ValidationError.
func NewUser(login, name, password, email string) (User, error) {
	u := User{
		ID:        uuid.New(),
		Login:     login,
		Name:      name,
		Password:  password,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := Validate(u); err != nil {
		return User{}, err
	}
	return u, nil
}

// UserFromJSON decodes and validates a user record. Invalid input never
// yields a partially valid User.
func UserFromJSON(data []byte) (User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, err
	}
	if err := Validate(u); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateUserRequest is the payload for the users service create route.
type CreateUserRequest struct {
	Login    string `json:"login" validate:"required,min=3"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"required,email"`
}

// GetUserRequest selects a user by ID or by login.
type GetUserRequest struct {
	ID    string `json:"id,omitempty" validate:"required_without=Login"`
	Login string `json:"login,omitempty" validate:"required_without=ID"`
}

// LoginRequest is the payload for the log-in route.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is the authentication service's token response.
type TokenPair struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	TokenType    string `json:"token_type" validate:"required,eq=Bearer"`
}
