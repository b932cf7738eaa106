package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/middleware"
)

func TestNewCORS(t *testing.T) {
	const origin = "https://app.example.com"

	r := chi.NewRouter()
	r.Use(middleware.NewCORS([]string{origin}).Handler)
	r.Post("/api/admin/deposits", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	preflight := func(method, headers string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/admin/deposits", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", method)
		if headers != "" {
			req.Header.Set("Access-Control-Request-Headers", headers)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("preflight allows the operator auth headers", func(t *testing.T) {
		w := preflight(http.MethodPost, "X-API-Key, X-Time-Token")

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("Expected allowed origin %q, got %q", origin, got)
		}
		allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
		for _, h := range []string{"x-api-key", "x-time-token"} {
			if !strings.Contains(allowed, h) {
				t.Errorf("Expected %s in allowed headers, got %q", h, allowed)
			}
		}
	})

	t.Run("preflight refuses DELETE", func(t *testing.T) {
		w := preflight(http.MethodDelete, "")

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no CORS grant for DELETE, got origin %q", got)
		}
	})

	t.Run("unknown origin is not granted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/deposits", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no allowed origin, got %q", got)
		}
	})
}
