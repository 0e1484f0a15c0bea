// Package auth issues and verifies the JWT pairs exchanged between the
// authentication service and its callers. Signing parameters come from
// the shared Settings; only the HMAC family is supported.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/openverse/toolkit/pkg/config"
	"github.com/openverse/toolkit/pkg/types"
)

// TokenTypeBearer is the token_type value carried in a TokenPair.
const TokenTypeBearer = "Bearer"

var signingMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// Claims is the validated payload of a parsed token.
type Claims struct {
	Subject   string
	Scopes    []string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the wire-level claims layout.
type tokenClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// Manager signs and parses tokens. It is immutable after construction
// and safe for concurrent use.
type Manager struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option adjusts a Manager.
type Option func(*Manager)

// WithAccessTTL overrides the access token lifetime (default: the
// settings' session TTL).
func WithAccessTTL(d time.Duration) Option {
	return func(m *Manager) { m.accessTTL = d }
}

// WithRefreshTTL overrides the refresh token lifetime (default: 24x the
// access lifetime).
func WithRefreshTTL(d time.Duration) Option {
	return func(m *Manager) { m.refreshTTL = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a token manager from the shared settings.
func NewManager(s *config.Settings, opts ...Option) (*Manager, error) {
	if s == nil {
		return nil, errors.New("auth: settings must not be nil")
	}
	method, ok := signingMethods[s.JWT.Algorithm]
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", s.JWT.Algorithm)
	}
	if s.JWT.SecretKey == "" {
		return nil, errors.New("auth: signing secret is empty")
	}

	m := &Manager{
		secret:    []byte(s.JWT.SecretKey),
		method:    method,
		issuer:    s.ProjectName,
		accessTTL: s.SessionTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.accessTTL <= 0 {
		m.accessTTL = time.Hour
	}
	if m.refreshTTL <= 0 {
		m.refreshTTL = 24 * m.accessTTL
	}
	return m, nil
}

// Issue signs an access/refresh pair for the subject. Scopes are
// carried on the access token only.
func (m *Manager) Issue(subject string, scopes []string) (types.TokenPair, error) {
	if subject == "" {
		return types.TokenPair{}, errors.New("auth: subject must not be empty")
	}

	access, err := m.sign(subject, scopes, m.accessTTL)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("auth: sign access token: %w", err)
	}
	refresh, err := m.sign(subject, nil, m.refreshTTL)
	if err != nil {
		return types.TokenPair{}, fmt.Errorf("auth: sign refresh token: %w", err)
	}

	return types.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}

func (m *Manager) sign(subject string, scopes []string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
}

// Parse verifies the token's signature and expiry and returns its
// claims.
func (m *Manager) Parse(token string) (*Claims, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("auth: token is not valid")
	}

	out := &Claims{
		Subject: claims.Subject,
		Scopes:  claims.Scopes,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
