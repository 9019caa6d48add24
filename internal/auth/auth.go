package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrUnauthenticated = errors.New("credential missing or invalid")

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the verified identity behind a request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Guard turns an opaque credential into an Actor. The core calls it before
// every mutating operation and treats everything else about credentials
// (issuance, rotation, revocation) as someone else's problem.
type Guard interface {
	Verify(credential string) (Actor, error)
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type JWTGuard struct {
	secret []byte
}

func NewJWTGuard(secret string) *JWTGuard {
	return &JWTGuard{secret: []byte(secret)}
}

func (g *JWTGuard) Verify(credential string) (Actor, error) {
	tok, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthenticated
		}
		return g.secret, nil
	})
	if err != nil {
		return Actor{}, ErrUnauthenticated
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return Actor{}, ErrUnauthenticated
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, ErrUnauthenticated
	}

	role := Role(claims.Role)
	if !role.Valid() {
		return Actor{}, ErrUnauthenticated
	}

	return Actor{ID: id, Role: role}, nil
}

// MintToken signs a short-lived token for the given actor. Used by the seed
// tool and tests; real deployments mint tokens in the identity service.
func (g *JWTGuard) MintToken(actor Actor, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}
