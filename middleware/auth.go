package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	jwt_service "friday/JWT"
	"friday/logger"
)

var ErrMissingToken = errors.New("authorization header required")

// TokenParser verifies operator tokens.
type TokenParser interface {
	ParseJWT(token string) (*jwt_service.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// RequireOperator rejects requests without a valid operator token and stores
// the claims in the request context.
func RequireOperator(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			claims, err := tokens.ParseJWT(token)
			if err != nil {
				logger.WithRequestID(logger.Logger, GetRequestID(r.Context())).
					WithError(err).Debug("rejected operator token")
				unauthorized(w, "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), OperatorKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func OperatorFromContext(ctx context.Context) (*jwt_service.Claims, bool) {
	c, ok := ctx.Value(OperatorKey).(*jwt_service.Claims)
	return c, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
