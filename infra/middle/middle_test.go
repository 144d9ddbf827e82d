package middle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware("test-api-key")(okHandler())

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "valid_api_key", authHeader: "Bearer test-api-key", expectedStatus: http.StatusOK},
		{name: "invalid_api_key", authHeader: "Bearer wrong-key", expectedStatus: http.StatusUnauthorized},
		{name: "missing_header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "invalid_format", authHeader: "Basic test-api-key", expectedStatus: http.StatusUnauthorized},
		{name: "empty_bearer_token", authHeader: "Bearer ", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/gateway", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestAuthMiddleware_NoKeyConfigured(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/gateway", nil)
	req.Header.Set("Authorization", "Bearer anything")

	AuthMiddleware("")(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")

	now = now.Add(2 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "window resets")

	now = now.Add(3 * time.Second)
	rl.evict()
	assert.Empty(t, rl.visitors)
}

func TestNewRateLimiter_FromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx)
	assert.Equal(t, 5, rl.rate)
	assert.Equal(t, time.Minute, rl.window)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	handler := RateLimitMiddleware(rl)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/gateway", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{name: "forwarded_for_first", headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, remoteAddr: "10.0.0.2:80", expected: "203.0.113.1"},
		{name: "real_ip", headers: map[string]string{"X-Real-IP": " 203.0.113.2 "}, remoteAddr: "10.0.0.2:80", expected: "203.0.113.2"},
		{name: "remote_addr", remoteAddr: "198.51.100.7:5555", expected: "198.51.100.7"},
		{name: "ipv6_localhost", remoteAddr: "[::1]:5555", expected: "127.0.0.1"},
		{name: "no_port", remoteAddr: "198.51.100.8", expected: "198.51.100.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetClientIP(req))
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeadersMiddleware()(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	expected := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}
	for header, value := range expected {
		assert.Equal(t, value, rr.Header().Get(header), header)
	}
}

func TestRequestValidationMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		expectedStatus int
	}{
		{name: "json_post", method: http.MethodPost, contentType: "application/json", body: `{}`, expectedStatus: http.StatusOK},
		{name: "json_with_charset", method: http.MethodPost, contentType: "application/json; charset=utf-8", body: `{}`, expectedStatus: http.StatusOK},
		{name: "form_post", method: http.MethodPost, contentType: "application/x-www-form-urlencoded", body: "a=b", expectedStatus: http.StatusUnsupportedMediaType},
		{name: "bodiless_post", method: http.MethodPost, expectedStatus: http.StatusOK},
		{name: "get_without_content_type", method: http.MethodGet, expectedStatus: http.StatusOK},
		{name: "too_large", method: http.MethodPost, contentType: "application/json", body: strings.Repeat("a", maxBodyBytes+1), expectedStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, "/v1/configure", strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, "/v1/configure", nil)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rr := httptest.NewRecorder()
			RequestValidationMiddleware()(okHandler()).ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
	}{
		{
			name:           "no_panic",
			handler:        okHandler().ServeHTTP,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "panic_with_string",
			handler:        func(w http.ResponseWriter, r *http.Request) { panic("test panic") },
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "panic_with_error",
			handler:        func(w http.ResponseWriter, r *http.Request) { panic(context.Canceled) },
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			require.NotPanics(t, func() {
				PanicRecoveryMiddleware()(tt.handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			})
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.Contains(t, rr.Body.String(), "an unexpected error occurred")
			}
		})
	}
}

func TestPanicRecoveryMiddleware_AbortHandlerPropagates(t *testing.T) {
	handler := PanicRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestLoggingMiddleware(t *testing.T) {
	var seen string
	handler := RequestLoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	t.Run("generates_id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("keeps_incoming_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
	})
}
