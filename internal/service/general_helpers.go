package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places monetary values are rounded to.
const MoneyPlaces = 2

// idNamespace seeds deterministic ids derived from business keys.
var idNamespace = uuid.MustParse("8f5b0f52-4c1e-4b53-9a6e-3d2f4f6a1c07")

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// roundMoney rounds a decimal value to MoneyPlaces using half-away-from-zero.
//
// Example:
//
//	roundMoney(decimal.RequireFromString("90.005"))  // 90.01
//	roundMoney(decimal.RequireFromString("89.994"))  // 89.99
func roundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(MoneyPlaces)
}

// formatMoney renders value with exactly MoneyPlaces decimals for user messages.
func formatMoney(value decimal.Decimal) string {
	return value.StringFixed(MoneyPlaces)
}

// deterministicID derives a stable UUID from a business key, so that retries
// of the same logical operation produce the same row id.
func deterministicID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, ":"))).String()
}

// newID returns key when the caller supplied one, a random UUID otherwise.
func newID(key string) string {
	if key != "" {
		return key
	}
	return uuid.New().String()
}
