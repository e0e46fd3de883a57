package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/dgrijalva/jwt-go"

	"github.com/tradewind-erp/tradewind/internal/platform/httpx"
)

// Middleware wires token authentication and permission checks.
type Middleware struct {
	Secret []byte
	Logger *slog.Logger
}

// Authenticate parses the bearer token into a Principal and stores it in the
// request context. Requests without a valid token are rejected.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpx.Fail(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.Secret, nil
		})
		if err != nil || !token.Valid {
			if m.Logger != nil {
				m.Logger.Info("token rejected", slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		principal, err := principalFromClaims(claims)
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, "invalid token claims", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

func principalFromClaims(claims jwt.MapClaims) (*Principal, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("auth: sub claim missing")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("auth: sub claim not numeric: %w", err)
	}
	p := &Principal{UserID: userID}
	if name, ok := claims["name"].(string); ok {
		p.Name = name
	}
	if role, ok := claims["role"].(string); ok {
		p.Role = role
	}
	if perms, ok := claims["perms"].([]interface{}); ok {
		for _, raw := range perms {
			if perm, ok := raw.(string); ok {
				p.Permissions = append(p.Permissions, perm)
			}
		}
	}
	return p, nil
}

// RequireAny ensures the principal holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p := PrincipalFromContext(r.Context())
			for _, perm := range perms {
				if p.Has(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Fail(w, http.StatusForbidden, "insufficient permissions", nil)
		})
	}
}

// RequireAll ensures the principal holds every listed permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			for _, perm := range perms {
				if !p.Has(perm) {
					httpx.Fail(w, http.StatusForbidden, "insufficient permissions", nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
