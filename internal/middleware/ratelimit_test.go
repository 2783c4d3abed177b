package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.Handler, path string, ip string) int {
	req := httptest.NewRequest("GET", path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_GeneralBucket(t *testing.T) {
	handler := NewRateLimitMiddleware(3, 10).Handler(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/feed", "10.0.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/feed", "10.0.0.1"))

	// A different client keeps its own budget.
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/feed", "10.0.0.2"))
}

func TestRateLimit_AuthBucketIsStricter(t *testing.T) {
	handler := NewRateLimitMiddleware(100, 2).Handler(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/auth/login", "10.0.0.1"))

	// The general bucket is untouched by auth traffic.
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/feed", "10.0.0.1"))
}

func TestRateLimit_MediaRoutesExempt(t *testing.T) {
	handler := NewRateLimitMiddleware(1, 1).Handler(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/feed", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/feed", "10.0.0.1"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/users/1/avatar", "10.0.0.1"))
		assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/microposts/1/image", "10.0.0.1"))
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.5:9999", nil, "192.168.1.5"},
		{"forwarded for wins", "192.168.1.5:9999", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", "192.168.1.5:9999", map[string]string{"X-Real-IP": "203.0.113.8"}, "203.0.113.8"},
		{"empty", "", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIP(req))
		})
	}
}
