package validation

import (
	"maps"
	"slices"
	"strings"
)

// Error collects the rejected fields of a request body, keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

// fieldError returns an *Error carrying a single rejected field.
func fieldError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// reject records msg for field; the first message for a field wins.
func (e *Error) reject(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// orNil returns e when at least one field was rejected.
func (e *Error) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error lists the rejected fields in name order so the message is stable across calls.
func (e *Error) Error() string {
	var b strings.Builder
	for i, field := range slices.Sorted(maps.Keys(e.Fields)) {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(e.Fields[field])
	}
	return b.String()
}
