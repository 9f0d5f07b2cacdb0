package gateway

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the handshake credential is missing, malformed,
// expired or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal bound to a connection.
type Identity struct {
	UserID int64
	Admin  bool
}

// TokenVerifier is the credential-verification collaborator.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier validates HMAC-signed bearer tokens. Issuance lives elsewhere;
// this side only checks the signature and extracts the identity claims.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for the given shared secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, returning the identity it carries.
func (v *JWTVerifier) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := subjectID(claims["sub"])
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	admin, _ := claims["admin"].(bool)
	return Identity{UserID: userID, Admin: admin}, nil
}

// subjectID accepts the sub claim as either a JSON number or a string.
func subjectID(v interface{}) (int64, error) {
	switch sub := v.(type) {
	case float64:
		return int64(sub), nil
	case string:
		return strconv.ParseInt(sub, 10, 64)
	default:
		return 0, fmt.Errorf("missing sub claim")
	}
}
