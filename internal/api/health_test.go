package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveHealth(cachePing func() error, target string) *httptest.ResponseRecorder {
	r := gin.New()
	NewHealthHandler(cachePing).Register(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthz(t *testing.T) {
	if w := serveHealth(nil, "/healthz"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name      string
		cachePing func() error
		want      int
	}{
		{"no cache configured", nil, http.StatusOK},
		{"cache reachable", func() error { return nil }, http.StatusOK},
		{"cache down", func() error { return errors.New("sqlite locked") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := serveHealth(tt.cachePing, "/readyz"); w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
