package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the structure of the data stored inside the JWT.
// The relay only cares about the identity claim.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier validates signed credentials against a shared secret.
// Only HS256 is accepted; tokens signed with any other algorithm are
// rejected before the signature is even checked.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier around the externally supplied secret.
// The secret comes from configuration, never from a source-code constant.
func NewVerifier(secret []byte) Verifier {
	return Verifier{secret: secret}
}

// Verify parses and validates the signature, algorithm and expiration
// of a JWT string, and returns the claims it carries. It has no side
// effects and is deterministic given (token, secret, current time).
func (v Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// GenerateToken creates a signed JWT for a specific username.
// Used by the tokengen tool and by tests; the server itself only verifies.
func GenerateToken(secret []byte, username string, duration time.Duration) (string, error) {
	expirationTime := time.Now().Add(duration)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-relay",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}
