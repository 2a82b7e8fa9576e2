// Package auth verifies bearer tokens and carries the caller identity in context.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/timekeeper/internal/errs"
)

// Verification failures. All of them match errs.ErrUnauthorized.
var (
	ErrMalformedHeader = fmt.Errorf("%w: malformed authorization header", errs.ErrUnauthorized)
	ErrInvalidToken    = fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	ErrInvalidSubject  = fmt.Errorf("%w: invalid subject", errs.ErrUnauthorized)
)

const defaultLeeway = 30 * time.Second

// Verifier checks HS256 tokens signed with a pre-shared key.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	key    []byte
	leeway time.Duration
}

// NewVerifier constructs a Verifier for the given signing key.
func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key, leeway: defaultLeeway}
}

// Verify extracts "Bearer <JWT>" from the raw header value, verifies HS256, and returns sub as UUID.
func (v *Verifier) Verify(header string) (uuid.UUID, error) {
	tok, err := bearerToken(header)
	if err != nil {
		return uuid.Nil, err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	},
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return id, nil
}

func bearerToken(header string) (string, error) {
	h := strings.TrimSpace(header)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", ErrMalformedHeader
	}
	t := strings.TrimSpace(h[7:])
	if t == "" || strings.ContainsAny(t, " \t") {
		return "", ErrMalformedHeader
	}
	return t, nil
}
