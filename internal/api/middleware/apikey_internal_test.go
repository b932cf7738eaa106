package middleware

import (
	"testing"
	"time"
)

func TestValidTimeToken(t *testing.T) {
	key := "test-api-key-12345"
	issued := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	token := timeToken(key, issued)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"same window", issued.Add(4 * time.Minute), true},
		{"next window", issued.Add(TimeTokenWindow + time.Minute), true},
		{"two windows later", issued.Add(2*TimeTokenWindow + time.Second), false},
		{"before issue window", issued.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validTimeToken(key, token, tt.now); got != tt.want {
				t.Errorf("validTimeToken() = %v, want %v", got, tt.want)
			}
		})
	}

	if validTimeToken("other-key", token, issued) {
		t.Error("Expected token signed with a different key to be rejected")
	}
}
