package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/investment-ledger/internal/model"
)

// Default and maximum page sizes for history queries.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

// ParseTransactionFilter extracts and validates a history filter from query parameters.
//
// Parameters are expected as comma-separated strings (for kinds and statuses)
// or single values (for other fields). All parameters are optional.
//
// Validation rules:
//   - kind: Must be valid transaction kinds (credit_deposit, debit_purchase, ...)
//   - status: Must be valid statuses (pending, completed, failed, cancelled)
//   - from/to: YYYY-MM-DD or RFC3339; from is inclusive, to is exclusive
//   - limit: Must be between 1 and 500 (defaults to 100)
//
// Returns an error if any parameter fails validation.
func ParseTransactionFilter(kindsParam, statusesParam, fromParam, toParam, limitParam string) (model.TransactionFilter, error) {
	var filter model.TransactionFilter

	if kindsParam != "" {
		for _, kind := range strings.Split(kindsParam, ",") {
			k := model.TransactionKind(strings.TrimSpace(strings.ToLower(kind)))
			if !k.Valid() {
				return model.TransactionFilter{}, fmt.Errorf("invalid kind: %s", kind)
			}
			filter.Kinds = append(filter.Kinds, k)
		}
	}

	if statusesParam != "" {
		for _, status := range strings.Split(statusesParam, ",") {
			s := model.TransactionStatus(strings.TrimSpace(strings.ToLower(status)))
			if !s.Valid() {
				return model.TransactionFilter{}, fmt.Errorf("invalid status: %s", status)
			}
			filter.Statuses = append(filter.Statuses, s)
		}
	}

	if fromParam != "" {
		from, err := parseFilterTime(fromParam)
		if err != nil {
			return model.TransactionFilter{}, fmt.Errorf("invalid from format: %w", err)
		}
		filter.From = from
	}

	if toParam != "" {
		to, err := parseFilterTime(toParam)
		if err != nil {
			return model.TransactionFilter{}, fmt.Errorf("invalid to format: %w", err)
		}
		filter.To = to
	}

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return model.TransactionFilter{}, fmt.Errorf("invalid date range: to is before from")
	}

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return model.TransactionFilter{}, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > MaxHistoryLimit {
			return model.TransactionFilter{}, fmt.Errorf("invalid limit: must be between 1 and %d", MaxHistoryLimit)
		}
		filter.Limit = limit
	} else {
		filter.Limit = DefaultHistoryLimit
	}

	return filter, nil
}

// parseFilterTime accepts YYYY-MM-DD and RFC3339 formats.
func parseFilterTime(str string) (time.Time, error) {
	for _, layout := range []string{model.DateLayout, time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
