package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/middleware"
)

func TestValidateUUIDMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/investments/{uuid}", func(r chi.Router) {
		r.Use(middleware.ValidateUUIDMiddleware)
		r.Get("/grants", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})
	r.Route("/api/admin/withdrawals/{uuid}", func(r chi.Router) {
		r.Use(middleware.ValidateUUIDMiddleware)
		r.Post("/approve", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"grant history of an investment", http.MethodGet, "/api/investments/550e8400-e29b-41d4-a716-446655440000/grants", http.StatusOK},
		{"approving a withdrawal", http.MethodPost, "/api/admin/withdrawals/6ba7b810-9dad-11d1-80b4-00c04fd430c8/approve", http.StatusOK},
		{"investment id that is not a UUID", http.MethodGet, "/api/investments/inv-42/grants", http.StatusBadRequest},
		{"truncated withdrawal id", http.MethodPost, "/api/admin/withdrawals/6ba7b810-9dad/approve", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestValidateUUIDMiddleware_MissingParam(t *testing.T) {
	reached := false
	mw := middleware.ValidateUUIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		reached = true
	}))

	w := httptest.NewRecorder()
	mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/investments", nil))

	if reached {
		t.Error("Expected next handler NOT to be called")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestValidateAccountMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api/accounts/{account}", func(r chi.Router) {
		r.Use(middleware.ValidateAccountMiddleware)
		r.Get("/balance", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	tests := []struct {
		name    string
		account string
		want    int
	}{
		{"plain account", "acct-1", http.StatusOK},
		{"email style account", "user@example.com", http.StatusOK},
		{"encoded whitespace", "acct%201", http.StatusBadRequest},
		{"too long", strings.Repeat("a", 65), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/accounts/"+tt.account+"/balance", nil))

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}
