package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/wwellington85/gym-membership-app-sub000/internal/http/response"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT validates the bearer token and stashes its claims on the
// request context.
func RequireJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization header", response.CodeUnauthorized)
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization token", response.CodeInvalidToken)
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff rejects member tokens. Must sit inside RequireJWT.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r)
		if claims == nil || claims.Role == "member" {
			response.WriteError(w, http.StatusForbidden, "staff access required", response.CodeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMember rejects staff tokens. Must sit inside RequireJWT.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r)
		if claims == nil || claims.Role != "member" {
			response.WriteError(w, http.StatusForbidden, "member access required", response.CodeForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
