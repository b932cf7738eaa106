package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/model"
)

func TestValidateAccount(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"plain", "acct-1", false},
		{"email like", "user@example.com", false},
		{"empty", "", true},
		{"whitespace", "acct 1", true},
		{"newline", "acct\n1", true},
		{"too long", strings.Repeat("a", MaxAccountLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccount(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccount(%q) error = %v, wantErr %v", tt.account, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAccount) {
				t.Errorf("Expected ErrInvalidAccount, got %v", err)
			}
		})
	}
}

func TestValidateRecordDeposit(t *testing.T) {
	valid := request.RecordDepositRequest{
		ID:          "dep-1",
		Account:     "acct-1",
		Amount:      decimal.RequireFromString("1000.50"),
		ExternalRef: "pg_123",
	}

	t.Run("valid request", func(t *testing.T) {
		if err := ValidateRecordDeposit(valid); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("collects every invalid field", func(t *testing.T) {
		err := ValidateRecordDeposit(request.RecordDepositRequest{Amount: decimal.RequireFromString("-5")})

		var verr *Error
		if !errors.As(err, &verr) {
			t.Fatalf("Expected *Error, got %v", err)
		}
		for _, field := range []string{"id", "account", "amount", "externalRef"} {
			if _, ok := verr.Fields[field]; !ok {
				t.Errorf("Expected error for field %s", field)
			}
		}
	})

	t.Run("rejects sub-paisa precision", func(t *testing.T) {
		req := valid
		req.Amount = decimal.RequireFromString("10.005")

		err := ValidateRecordDeposit(req)

		var verr *Error
		if !errors.As(err, &verr) || verr.Fields["amount"] == "" {
			t.Errorf("Expected amount error, got %v", err)
		}
	})
}

func TestValidateTransitionStatus(t *testing.T) {
	for _, in := range []string{"completed", "FAILED", " cancelled "} {
		t.Run(in, func(t *testing.T) {
			status, err := ValidateTransitionStatus(request.TransitionStatusRequest{Status: in})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !status.Valid() {
				t.Errorf("Expected a valid status, got %q", status)
			}
		})
	}

	for _, in := range []string{"", "pending", "settled"} {
		t.Run("rejects "+in, func(t *testing.T) {
			if _, err := ValidateTransitionStatus(request.TransitionStatusRequest{Status: in}); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestValidatePurchase(t *testing.T) {
	if err := ValidatePurchase(request.PurchaseRequest{ProductID: "plan-90", IdempotencyKey: "k1"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	err := ValidatePurchase(request.PurchaseRequest{})
	var verr *Error
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Errorf("Expected two field errors, got %v", err)
	}
}

func TestValidateRunAccrual(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata not available")
	}

	t.Run("empty date means today", func(t *testing.T) {
		date, err := ValidateRunAccrual(request.RunAccrualRequest{}, loc)
		if err != nil || !date.IsZero() {
			t.Errorf("Expected zero time, got %v %v", date, err)
		}
	})

	t.Run("parses in the platform location", func(t *testing.T) {
		date, err := ValidateRunAccrual(request.RunAccrualRequest{Date: "2024-03-07"}, loc)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if date.Location() != loc || date.Format(model.DateLayout) != "2024-03-07" {
			t.Errorf("Unexpected date %v", date)
		}
	})

	t.Run("rejects bad date", func(t *testing.T) {
		if _, err := ValidateRunAccrual(request.RunAccrualRequest{Date: "07-03-2024"}, loc); err == nil {
			t.Error("Expected error, got nil")
		}
	})
}
