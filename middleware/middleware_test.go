package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"timetable-backend/auth"
	"timetable-backend/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestIsPublicRoute(t *testing.T) {
	cases := map[string]bool{
		"/":                  true,
		"/health":            true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
		"/api/auth/me":       false,
		"/api/rooms":         false,
	}
	for path, want := range cases {
		if got := IsPublicRoute(path); got != want {
			t.Errorf("IsPublicRoute(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService("secret", 1)
	token, err := jwtService.GenerateToken(&models.User{ID: 7, Email: "hod@uni.edu", Role: models.RoleHOD})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var seen *auth.JWTClaims
	h := NewAuthMiddleware(jwtService).AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"public", "/health", "", http.StatusOK},
		{"missing header", "/api/rooms", "", http.StatusUnauthorized},
		{"bad format", "/api/rooms", "Token " + token, http.StatusUnauthorized},
		{"bad token", "/api/rooms", "Bearer nope", http.StatusUnauthorized},
		{"valid", "/api/rooms", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if seen == nil || seen.UserID != 7 || seen.Role != models.RoleHOD {
		t.Errorf("claims not propagated: %+v", seen)
	}
}

func TestRequirePermission(t *testing.T) {
	h := RequirePermission(auth.PermCreateTimetables)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/timetable/generate", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", rec.Code)
	}

	for role, want := range map[string]int{
		models.RoleAdmin:       http.StatusNoContent,
		models.RoleCoordinator: http.StatusNoContent,
		models.RoleStudent:     http.StatusForbidden,
	} {
		ctx := SetUserClaims(context.Background(), &auth.JWTClaims{Email: role + "@uni.edu", Role: role})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("incoming id not kept: ctx=%q header=%q", got, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(got) != 36 || rec.Header().Get(RequestIDHeader) != got {
		t.Errorf("expected generated uuid, got %q", got)
	}
}

func TestLoggingCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/rooms", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
}

type countingLimiter struct {
	hits map[string]int
	err  error
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, int, error) {
	if c.err != nil {
		return true, limit, c.err
	}
	c.hits[key]++
	n := c.hits[key]
	rem := limit - n
	if rem < 0 {
		rem = 0
	}
	return n <= limit, rem, nil
}

func TestLoginRateLimiter(t *testing.T) {
	l := &countingLimiter{hits: map[string]int{}}
	h := LoginRateLimiter(l, 2, time.Minute)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes %v", codes)
	}
	if l.hits["ratelimit:login:10.0.0.1"] != 3 {
		t.Errorf("unexpected keys %v", l.hits)
	}

	l.err = errors.New("redis down")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("limiter error should pass through, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	if ip := ClientIP(req); ip != "203.0.113.9" {
		t.Errorf("ClientIP = %q", ip)
	}
}
