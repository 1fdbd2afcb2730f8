package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medbook/backend/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload carried by every API call. The subject holds
// the actor id; Role distinguishes the patient and doctor surfaces.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// Tokens issues and verifies HMAC-signed bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl %s is not positive", ttl)
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for the given actor.
func (t *Tokens) Issue(actor domain.Actor) (string, error) {
	if actor.ID == uuid.Nil || !actor.Role.Valid() {
		return "", fmt.Errorf("cannot issue token for actor %+v", actor)
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: actor.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a token and returns the actor it encodes.
func (t *Tokens) Verify(token string) (domain.Actor, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Actor{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{ID: id, Role: claims.Role}, nil
}
