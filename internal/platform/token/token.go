package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid participant token")

// Issuer mints and verifies signed participant tokens. External participants
// invited to a decision authenticate with one of these instead of a platform
// account; the actor id travels in the subject claim.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

// Issue signs a token for an external actor scoped to one decision.
func (i *Issuer) Issue(actorID string, decisionID string, now time.Time) (string, error) {
	if !i.Enabled() {
		return "", ErrInvalidToken
	}
	claims := jwt.MapClaims{
		"sub":         strings.TrimSpace(actorID),
		"decision_id": strings.TrimSpace(decisionID),
		"iat":         now.Unix(),
		"exp":         now.Add(i.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify checks the signature and expiry and returns the actor id and the
// decision the token is scoped to.
func (i *Issuer) Verify(raw string) (actorID string, decisionID string, err error) {
	if !i.Enabled() {
		return "", "", ErrInvalidToken
	}
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	actorID, _ = claims["sub"].(string)
	decisionID, _ = claims["decision_id"].(string)
	if strings.TrimSpace(actorID) == "" {
		return "", "", ErrInvalidToken
	}
	return actorID, decisionID, nil
}
