package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// NewCORS returns the CORS policy of the ledger API for the given origins.
//
// Operator routes authenticate with X-API-Key and X-Time-Token, so both are
// allowed in preflight. The ledger exposes no DELETE routes; completed rows
// are only ever corrected by new entries.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-API-Key",
			"X-Time-Token",
			"X-Request-Id",
		},
		ExposedHeaders:   []string{"Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
