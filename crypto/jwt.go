package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/PRobi23/doodlekong/domain"
	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims carries the client id behind the session cookie.
type sessionClaims struct {
	ClientID string `json:"clientId"`
	Nonce    string `json:"nonce,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) MaxAge() time.Duration {
	return m.maxAge
}

// Generate signs clientID together with a nonce so two sessions for the
// same id never share a token.
func (m *JWTManager) Generate(clientID, nonce string, now time.Time) (string, error) {
	claims := sessionClaims{
		ClientID: clientID,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secretKey)

	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}

	return signedToken, nil
}

func (m *JWTManager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSigningAlg
		}
		return m.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSigningAlg):
			return "", err
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", domain.ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return "", domain.ErrInvalidTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
			return "", domain.ErrCorruptedToken
		default:
			return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
		}
	}

	if claims, ok := token.Claims.(*sessionClaims); ok && token.Valid && claims.ClientID != "" {
		return claims.ClientID, nil
	}

	return "", domain.ErrCorruptedToken
}
