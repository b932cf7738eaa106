// Package handlers adapts HTTP requests to the ledger services.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds request bodies. Every payload of the API is a handful of fields.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// parseJSON decodes the request body into T. Unknown fields and trailing
// data are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, errEmptyBody
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errEmptyBody
		}
		return req, err
	}
	if dec.More() {
		return req, fmt.Errorf("unexpected data after JSON body")
	}
	return req, nil
}
