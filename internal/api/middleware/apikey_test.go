package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/investment-ledger/internal/api/middleware"
)

func TestRequireAPIKey(t *testing.T) {
	const operatorKey = "ledger-operator-key"

	// adminRouter mounts the middleware the way the ledger router guards /api/admin.
	adminRouter := func(key string, reached *bool) http.Handler {
		r := chi.NewRouter()
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(key))
			r.Post("/deposits", func(w http.ResponseWriter, _ *http.Request) {
				*reached = true
				w.WriteHeader(http.StatusCreated)
			})
			r.Post("/accrual/run", func(w http.ResponseWriter, _ *http.Request) {
				*reached = true
				w.WriteHeader(http.StatusOK)
			})
		})
		return r
	}

	tests := []struct {
		name        string
		configured  string
		path        string
		apiKey      string
		timeToken   func() string
		wantStatus  int
		wantDetails string
	}{
		{
			name:        "deposit without API key",
			configured:  operatorKey,
			path:        "/api/admin/deposits",
			wantStatus:  http.StatusUnauthorized,
			wantDetails: "Missing API key",
		},
		{
			name:        "deposit with another key",
			configured:  operatorKey,
			path:        "/api/admin/deposits",
			apiKey:      "someone-elses-key",
			wantStatus:  http.StatusUnauthorized,
			wantDetails: "Invalid API key",
		},
		{
			name:        "accrual run without time token",
			configured:  operatorKey,
			path:        "/api/admin/accrual/run",
			apiKey:      operatorKey,
			wantStatus:  http.StatusUnauthorized,
			wantDetails: "Missing Time token",
		},
		{
			name:        "accrual run with forged time token",
			configured:  operatorKey,
			path:        "/api/admin/accrual/run",
			apiKey:      operatorKey,
			timeToken:   func() string { return "0000" },
			wantStatus:  http.StatusUnauthorized,
			wantDetails: "Time token is invalid or expired",
		},
		{
			name:        "token signed with another key",
			configured:  operatorKey,
			path:        "/api/admin/deposits",
			apiKey:      operatorKey,
			timeToken:   func() string { return middleware.GenerateTimeToken("someone-elses-key") },
			wantStatus:  http.StatusUnauthorized,
			wantDetails: "Time token is invalid or expired",
		},
		{
			name:       "deposit with key and fresh token",
			configured: operatorKey,
			path:       "/api/admin/deposits",
			apiKey:     operatorKey,
			timeToken:  func() string { return middleware.GenerateTimeToken(operatorKey) },
			wantStatus: http.StatusCreated,
		},
		{
			name:        "operator key not configured",
			path:        "/api/admin/accrual/run",
			apiKey:      operatorKey,
			timeToken:   func() string { return middleware.GenerateTimeToken(operatorKey) },
			wantStatus:  http.StatusInternalServerError,
			wantDetails: "Authentication not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.timeToken != nil {
				req.Header.Set("X-Time-Token", tt.timeToken())
			}

			w := httptest.NewRecorder()
			adminRouter(tt.configured, &reached).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if wantReached := tt.wantDetails == ""; reached != wantReached {
				t.Errorf("Handler reached = %v, want %v", reached, wantReached)
			}
			if tt.wantDetails == "" {
				return
			}

			var body map[string]string
			//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
			json.NewDecoder(w.Body).Decode(&body)
			if body["details"] != tt.wantDetails {
				t.Errorf("Expected details %q, got %q", tt.wantDetails, body["details"])
			}
		})
	}
}
