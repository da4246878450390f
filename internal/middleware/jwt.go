package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/transport"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token format")
	errInvalidToken = errors.New("invalid token")
)

func JWT(secret, issuer, audience string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			sub, err := verifyToken(tokenString, secret, issuer, audience)
			if err != nil {
				observability.GetLogger(r.Context()).Debug("jwt_rejected",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Error(err),
				)
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", errInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(InjectUserID(r.Context(), sub)))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errTokenFormat
	}
	return token, nil
}

func verifyToken(tokenString, secret, issuer, audience string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}
