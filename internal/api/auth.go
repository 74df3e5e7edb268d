package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const callerContextKey = contextKey("caller")

// AuthMiddleware validates HS256 bearer tokens and stores the `sub` claim as
// the calling principal.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				respondError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				respondError(w, http.StatusUnauthorized, "principal not found in token")
				return
			}

			ctx := context.WithValue(r.Context(), callerContextKey, domain.Principal(sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the principal set by AuthMiddleware.
func CallerFromContext(ctx context.Context) (domain.Principal, bool) {
	caller, ok := ctx.Value(callerContextKey).(domain.Principal)
	return caller, ok
}

// RateLimiter decides whether caller may perform another mutation.
type RateLimiter interface {
	Allow(ctx context.Context, caller domain.Principal, limit int) bool
}

// RateLimitMiddleware rejects callers over limit requests per second. It must
// run after AuthMiddleware. A nil limiter disables it.
func RateLimitMiddleware(limiter RateLimiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := CallerFromContext(r.Context())
			if !limiter.Allow(r.Context(), caller, limit) {
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
