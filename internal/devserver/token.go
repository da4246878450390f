package devserver

import (
	"context"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenIssuer signs HS256 access tokens the JWT middleware accepts.
type TokenIssuer struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

func (t *TokenIssuer) Issue(userID string) (string, error) {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": t.Issuer,
		"aud": t.Audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	observability.GetLogger(context.Background()).Debug("generating_jwt", zap.String("user_id", userID), zap.String("iss", t.Issuer))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.Secret))
}
