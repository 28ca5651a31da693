package websocket

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Handshake rejection signals. The names travel to the client verbatim so
// it can distinguish "log in again" from "attach a token at all".
var (
	ErrTokenMissing = errors.New("AUTH_TOKEN_MISSING")
	ErrTokenInvalid = errors.New("AUTH_TOKEN_INVALID")
)

// TokenClaims is the identity a verified handshake resolves to.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// VerifyToken checks signature and expiry against the shared HMAC secret
// and extracts the embedded identity. Runs once per connection attempt,
// before the upgrade completes; no socket is admitted without it.
func VerifyToken(secret, tokenStr string) (*TokenClaims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	email, _ := claims["email"].(string)

	return &TokenClaims{UserID: userID, Email: email}, nil
}
