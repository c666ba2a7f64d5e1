// Package auth owns the credential surface of the realtime service: JWT
// issue/validate, the identity resolver consulted at connection time, and
// password hashing for the account endpoints.
package auth

import (
	"time"

	"market-live/domain"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the tokens the websocket handshake and
// the login endpoint exchange. The signing key comes from configuration, a
// secret manager in production.
type TokenManager struct {
	key      []byte
	issuer   string
	duration time.Duration
}

func NewTokenManager(key []byte, issuer string, duration time.Duration) *TokenManager {
	return &TokenManager{key: key, issuer: issuer, duration: duration}
}

// GenerateToken creates a signed JWT for a specific user.
func (t *TokenManager) GenerateToken(userID string, roles []string) (string, error) {
	expirationTime := time.Now().Add(t.duration)

	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    t.issuer,
		},
	}

	// HS256 (HMAC with SHA256), symmetric key.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// ValidateToken parses and validates the signature and expiration of a JWT
// string.
func (t *TokenManager) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// Resolve implements the identity resolver consumed by the transport: a
// missing or invalid token yields ok=false, never an error, because an
// unauthenticated connection is a valid state.
func (t *TokenManager) Resolve(tokenString string) (domain.UserID, bool) {
	if tokenString == "" {
		return "", false
	}
	claims, err := t.ValidateToken(tokenString)
	if err != nil || claims.UserID == "" {
		return "", false
	}
	return domain.UserID(claims.UserID), true
}
