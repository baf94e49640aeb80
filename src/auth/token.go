// Package auth issues and verifies the bearer tokens handed out by the
// identity endpoints. Tokens are HS256 JWTs; the subject is the user id and
// the "ver" claim carries the user's token version so a global sign-out can
// invalidate every token issued before it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker-server/src/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenUse string

const (
	UseAccess  TokenUse = "access"
	UseID      TokenUse = "id"
	UseRefresh TokenUse = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrWrongUse     = errors.New("token not valid for this use")
)

type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	TokenUse TokenUse `json:"token_use"`
	Version  int      `json:"ver"`
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueTokens returns a full access/id/refresh token set for user.
func (m *Manager) IssueTokens(user *models.User) (*models.AuthResult, error) {
	result, err := m.IssueSession(user)
	if err != nil {
		return nil, err
	}
	result.RefreshToken, err = m.sign(user, UseRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IssueSession returns access and id tokens only, as used on refresh.
func (m *Manager) IssueSession(user *models.User) (*models.AuthResult, error) {
	access, err := m.sign(user, UseAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	id, err := m.sign(user, UseID, m.accessTTL)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{
		AccessToken: access,
		IDToken:     id,
		TokenType:   "Bearer",
		ExpiresIn:   int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *Manager) sign(user *models.User, use TokenUse, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: user.Username,
		TokenUse: use,
		Version:  user.TokenVersion,
	}
	if use == UseID {
		claims.Email = user.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", use, err)
	}
	return signed, nil
}

// Parse verifies tokenString and checks it was issued for use.
func (m *Manager) Parse(tokenString string, use TokenUse) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenUse != use {
		return nil, ErrWrongUse
	}
	return claims, nil
}
