package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{"chrome-extension://*", "http://localhost:3000"}

	assert.True(t, isAllowedOrigin("chrome-extension://abcdef", allowed))
	assert.True(t, isAllowedOrigin("http://localhost:3000", allowed))
	assert.False(t, isAllowedOrigin("http://localhost:3001", allowed))
	assert.False(t, isAllowedOrigin("https://evil.example.com", allowed))
	assert.False(t, isAllowedOrigin("", nil))
}

func TestHTTPHandlerCORS(t *testing.T) {
	router, _ := setupTestRouter(Handler{})
	h := NewHTTPHandler(router, []string{"chrome-extension://*"}, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/matches", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "chrome-extension://abcdef", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPHandlerRateLimit(t *testing.T) {
	router, _ := setupTestRouter(Handler{})
	h := NewHTTPHandler(router, nil, 1)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}
