package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"timetable-backend/auth"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// AuthMiddleware validates the bearer token and stores its claims on the request context.
func (am *AuthMiddleware) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || IsPublicRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Printf("❌ No authorization header for %s %s", r.Method, r.URL.Path)
			http.Error(w, `{"error": "Authorization header required"}`, http.StatusUnauthorized)
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
			log.Printf("❌ Invalid authorization format for %s %s", r.Method, r.URL.Path)
			http.Error(w, `{"error": "Invalid authorization format"}`, http.StatusUnauthorized)
			return
		}

		claims, err := am.jwtService.ValidateToken(bearerToken[1])
		if err != nil {
			log.Printf("❌ Invalid token for %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		r = r.WithContext(SetUserClaims(r.Context(), claims))
		next.ServeHTTP(w, r)
	})
}

// RequirePermission lets the request through when the caller holds any of perms.
func RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserClaims(r.Context())
			if claims == nil {
				http.Error(w, `{"error": "User not authenticated"}`, http.StatusUnauthorized)
				return
			}
			for _, p := range perms {
				if claims.Can(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Printf("❌ Permission denied for %s (role: %s) on %s %s", claims.Email, claims.Role, r.Method, r.URL.Path)
			http.Error(w, `{"error": "Insufficient permissions"}`, http.StatusForbidden)
		})
	}
}

type contextKey string

const (
	userClaimsKey contextKey = "userClaims"
	requestIDKey  contextKey = "requestID"
)

func SetUserClaims(ctx context.Context, claims *auth.JWTClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *auth.JWTClaims {
	if claims, ok := ctx.Value(userClaimsKey).(*auth.JWTClaims); ok {
		return claims
	}
	return nil
}
