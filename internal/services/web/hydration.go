package web

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/marketplace/internal/experiment/state"
	apperrors "github.com/louisbranch/marketplace/internal/platform/errors"
)

const (
	hydrationIssuer = "marketplace-web"
	// hydrationTTL bounds how long after the server render the client pass
	// may still adopt pending variants.
	hydrationTTL = 15 * time.Minute
)

// hydrationClaims carry the pending variants from the server render to the
// client pass.
type hydrationClaims struct {
	jwt.RegisteredClaims
	Pending state.State `json:"pending,omitempty"`
}

// hydrationSigner signs and verifies pending-state tokens with HMAC-SHA256.
type hydrationSigner struct {
	key []byte
	now func() time.Time
}

func newHydrationSigner(key []byte, now func() time.Time) (*hydrationSigner, error) {
	if len(key) < 32 {
		return nil, errors.New("hydration key must be at least 32 bytes")
	}
	if now == nil {
		now = time.Now
	}
	return &hydrationSigner{key: append([]byte(nil), key...), now: now}, nil
}

func (s *hydrationSigner) Sign(pending state.State) (string, error) {
	now := s.now().UTC()
	claims := hydrationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    hydrationIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(hydrationTTL)),
		},
		Pending: pending,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse returns the pending state inside token. An empty token is an empty
// state, not an error.
func (s *hydrationSigner) Parse(token string) (state.State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return state.State{}, nil
	}
	var claims hydrationClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(hydrationIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return state.State{}, apperrors.Wrap(apperrors.CodeHydrationTokenExpired, "hydration token is expired", err)
		}
		return state.State{}, apperrors.Wrap(apperrors.CodeHydrationTokenInvalid, "hydration token is invalid", err)
	}
	if claims.Pending == nil {
		return state.State{}, nil
	}
	return claims.Pending, nil
}
