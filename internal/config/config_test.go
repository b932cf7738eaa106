package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Server.Addr != "localhost:5001" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "localhost:5001")
	}
	if cfg.Platform.Location.String() != "Asia/Kolkata" {
		t.Errorf("Platform.Location = %q, want %q", cfg.Platform.Location, "Asia/Kolkata")
	}
	if !cfg.Withdrawal.TaxRate.Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("Withdrawal.TaxRate = %s, want 0.15", cfg.Withdrawal.TaxRate)
	}
	if !cfg.Withdrawal.DailyLimit.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Withdrawal.DailyLimit = %s, want 1000", cfg.Withdrawal.DailyLimit)
	}
	if len(cfg.Withdrawal.BlockedDays) != 2 {
		t.Errorf("Withdrawal.BlockedDays = %v, want Saturday and Sunday", cfg.Withdrawal.BlockedDays)
	}
	if cfg.Accrual.Workers != 4 {
		t.Errorf("Accrual.Workers = %d, want 4", cfg.Accrual.Workers)
	}
	if cfg.Cache.BalanceTTL != 30*time.Second {
		t.Errorf("Cache.BalanceTTL = %s, want 30s", cfg.Cache.BalanceTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLATFORM_TIMEZONE", "UTC")
	t.Setenv("WITHDRAW_TAX_RATE", "0.1")
	t.Setenv("WITHDRAW_BLOCKED_DAYS", "sun")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Platform.Location != time.UTC {
		t.Errorf("Platform.Location = %v, want UTC", cfg.Platform.Location)
	}
	if len(cfg.Withdrawal.BlockedDays) != 1 || cfg.Withdrawal.BlockedDays[0] != time.Sunday {
		t.Errorf("Withdrawal.BlockedDays = %v, want [Sunday]", cfg.Withdrawal.BlockedDays)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Events.KafkaBrokers = %v", cfg.Events.KafkaBrokers)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timezone", "PLATFORM_TIMEZONE", "Mars/Olympus"},
		{"bad decimal", "WITHDRAW_MIN_AMOUNT", "ten"},
		{"tax rate of one", "WITHDRAW_TAX_RATE", "1"},
		{"inverted window", "WITHDRAW_OPEN_HOUR", "18"},
		{"bad weekday", "WITHDRAW_BLOCKED_DAYS", "Caturday"},
		{"zero workers", "ACCRUAL_WORKERS", "0"},
		{"bad ttl", "BALANCE_CACHE_TTL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q returned nil error", tt.key, tt.value)
			}
		})
	}
}
