package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer and Audience are fixed for every token this service signs.
	Issuer   = "authfront"
	Audience = "authfront-web"

	// TTL is the session lifetime.
	TTL = 7 * 24 * time.Hour
)

// ErrInvalidSession is the uniform verification failure. Bad signature, wrong
// issuer, wrong audience and expiry are all collapsed into it so callers
// cannot leak the reason to clients.
var ErrInvalidSession = errors.New("invalid session")

// User is the identity carried by a session token.
type User struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"email_verified"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Issue signs a session token for the user with the shared secret.
func Issue(secret string, u User) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			Subject:   u.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
		Email:         u.Email,
		Name:          u.Name,
		Picture:       u.Picture,
		EmailVerified: u.EmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify validates signature, issuer, audience and expiry together and
// returns the embedded user. Every failure mode returns ErrInvalidSession.
func Verify(secret, tokenString string) (*User, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	return &User{
		Sub:           claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}
