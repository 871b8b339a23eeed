package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mabletask/tracker/models"
)

// The sessionId handed to the client is a signed token carrying the session
// UUID, so /track/events and /track/submit can validate it without a
// database round trip.
type SessionClaims struct {
	SessionID      string `json:"session_id"`
	ProjectID      int    `json:"project_id"`
	ExternalUserID string `json:"external_user_id"`
	jwt.RegisteredClaims
}

var sessionSecret = []byte(os.Getenv("SESSION_TOKEN_SECRET"))

// GenerateSessionToken signs a session token for a freshly created session.
func GenerateSessionToken(session *models.Session) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)

	claims := &SessionClaims{
		SessionID:      session.ID,
		ProjectID:      session.ProjectID,
		ExternalUserID: session.ExternalUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "mabletask-tracker",
			Subject:   session.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(sessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken parses and validates a session token string.
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sessionSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("session token is not valid")
	}

	return claims, nil
}
