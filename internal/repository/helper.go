package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/model"
)

// timestampLayout is fixed-width so that string ordering in SQL matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ParseTime parses a date string in "2006-01-02", the storage timestamp layout, or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse(model.DateLayout, str)
	if err != nil {
		returnTime, err = time.Parse(timestampLayout, str)
		if err != nil {
			returnTime, err = time.Parse(time.RFC3339Nano, str)
			if err != nil {
				return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
			}
		}
	}
	return returnTime.UTC(), nil
}

// ParseDate parses a stored calendar date.
func ParseDate(str string) (time.Time, error) {
	d, err := ParseTime(str)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", str, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatTimestamp renders t in the storage layout, always UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// FormatDate renders the calendar date of t as it reads in its own location.
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

func parseAmount(str string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", str, err)
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(str string) (map[string]string, error) {
	if str == "" || str == "{}" {
		return nil, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal([]byte(str), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}

func placeholders(n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = "?"
	}
	return strings.Join(p, ",")
}

type rowScanner interface {
	Scan(dest ...any) error
}
