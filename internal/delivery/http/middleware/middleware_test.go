package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zone-coverage-backend/config"
	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAndAdminMiddleware(t *testing.T) {
	utils.SetSecret("test-secret")
	var seen *domain.Principal
	handler := AuthMiddleware(AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(domain.PrincipalContextKey).(*domain.Principal)
		w.WriteHeader(http.StatusOK)
	})))

	call := func(t *testing.T, prepare func(r *http.Request)) int {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/coverage", nil)
		prepare(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	token := func(t *testing.T, role string) string {
		t.Helper()
		tok, err := utils.GenerateJWT("user-1", "ops@example.com", role, time.Minute)
		require.NoError(t, err)
		return tok
	}

	t.Run("Admin Bearer Token", func(t *testing.T) {
		tok := token(t, domain.RoleAdmin)
		code := call(t, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
		assert.Equal(t, http.StatusOK, code)
		require.NotNil(t, seen)
		assert.Equal(t, "ops@example.com", seen.Email)
	})

	t.Run("Admin Cookie", func(t *testing.T) {
		tok := token(t, domain.RoleAdmin)
		code := call(t, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: utils.AccessTokenCookie, Value: tok}) })
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("Customer Is Forbidden", func(t *testing.T) {
		tok := token(t, domain.RoleCustomer)
		code := call(t, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("Missing Token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(t, func(*http.Request) {}))
	})

	t.Run("Expired Token", func(t *testing.T) {
		tok, err := utils.GenerateJWT("user-1", "ops@example.com", domain.RoleAdmin, -time.Minute)
		require.NoError(t, err)
		code := call(t, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		tok := token(t, domain.RoleAdmin)
		utils.SetSecret("rotated")
		defer utils.SetSecret("test-secret")
		code := call(t, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestAdminMiddlewareWithoutPrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	AdminMiddleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware(&config.Config{AllowedOrigin: "https://ops.example.com, https://admin.example.com"})(okHandler())

	t.Run("Listed Origin Is Echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://admin.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("Unknown Origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Preflight", func(t *testing.T) {
		called := false
		h := NewCORSMiddleware(&config.Config{AllowedOrigin: "*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.False(t, called)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(context.Background(), rate.Limit(0.5), 1, time.Minute, time.Minute)
	defer rl.Shutdown()
	handler := rl.Middleware()(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "2", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests"}`, limited.Body.String())

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "buckets are per client")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Generates ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("Keeps Incoming ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "edge-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "edge-42", rec.Header().Get("X-Request-ID"))
	})
}
