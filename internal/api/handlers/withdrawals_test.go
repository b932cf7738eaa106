package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/api/response"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/testutil"
)

func TestWithdrawalHandler_Submit(t *testing.T) {
	setupHandler := func(t *testing.T) (*WithdrawalHandler, *testutil.Services) {
		t.Helper()
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		return NewWithdrawalHandler(s.Withdrawals, s.Credentials, s.Payouts), s
	}

	submit := func(handler *WithdrawalHandler, account string, body request.SubmitWithdrawalRequest) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.Submit(w, testutil.NewJSONRequest(
			http.MethodPost, "/api/accounts/"+account+"/withdrawals", body, map[string]string{"account": account},
		))
		return w
	}

	t.Run("accepts a valid request", func(t *testing.T) {
		handler, s := setupHandler(t)
		account := testutil.MakeAccount("acct")
		testutil.Deposit(t, s, account, "1000")
		methodID := testutil.PrepareWithdrawer(t, s, account)

		w := submit(handler, account, request.SubmitWithdrawalRequest{
			Amount: decimal.RequireFromString("333.33"), PIN: testutil.TestPIN, PayoutMethodID: methodID,
		})

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		var response model.WithdrawalRequest
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if !response.Tax.Equal(decimal.RequireFromString("50")) || !response.NetAmount.Equal(decimal.RequireFromString("283.33")) {
			t.Errorf("Unexpected tax/net %s/%s", response.Tax, response.NetAmount)
		}
		if response.Status != model.WithdrawalPending {
			t.Errorf("Expected pending, got %s", response.Status)
		}
	})

	tests := []struct {
		name   string
		amount string
		pin    string
		at     time.Time
		rule   string
	}{
		{"wrong pin", "200", "9999", testutil.WeekdayNoon, "InvalidCredential"},
		{"weekend", "200", testutil.TestPIN, time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), "WindowClosed"},
		{"below minimum", "99.99", testutil.TestPIN, testutil.WeekdayNoon, "BelowMinimum"},
		{"over daily cap", "1000.01", testutil.TestPIN, testutil.WeekdayNoon, "DailyLimitExceeded"},
		{"over balance", "600", testutil.TestPIN, testutil.WeekdayNoon, "InsufficientBalance"},
	}
	for _, tt := range tests {
		t.Run("refuses "+tt.name, func(t *testing.T) {
			handler, s := setupHandler(t)
			account := testutil.MakeAccount("acct")
			testutil.Deposit(t, s, account, "500")
			methodID := testutil.PrepareWithdrawer(t, s, account)
			s.Clock.Set(tt.at)

			w := submit(handler, account, request.SubmitWithdrawalRequest{
				Amount: decimal.RequireFromString(tt.amount), PIN: tt.pin, PayoutMethodID: methodID,
			})

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
			}

			var body response.PolicyErrorResponse
			//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
			json.NewDecoder(w.Body).Decode(&body)

			if body.Rule != tt.rule {
				t.Errorf("Expected rule %s, got %s (%s)", tt.rule, body.Rule, body.Details)
			}
		})
	}

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.Submit(w, testutil.NewJSONRequest(http.MethodPost, "/", `{"amount":"lots"}`, map[string]string{"account": "acct-a"}))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestWithdrawalHandler_Settlement(t *testing.T) {
	setupHandler := func(t *testing.T) (*WithdrawalHandler, *testutil.Services, model.WithdrawalRequest) {
		t.Helper()
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		account := testutil.MakeAccount("acct")
		testutil.Deposit(t, s, account, "1000")
		methodID := testutil.PrepareWithdrawer(t, s, account)

		wr, err := s.Withdrawals.Submit(t.Context(), testutil.SubmitRequest(account, "400", methodID))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		return NewWithdrawalHandler(s.Withdrawals, s.Credentials, s.Payouts), s, wr
	}

	settle := func(fn http.HandlerFunc, id string, body any) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		fn(w, testutil.NewJSONRequest(http.MethodPost, "/", body, map[string]string{"uuid": id}))
		return w
	}

	t.Run("reject refunds the reserved amount", func(t *testing.T) {
		handler, s, wr := setupHandler(t)

		w := settle(handler.Reject, wr.ID, request.RejectWithdrawalRequest{Reason: "name mismatch"})

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		balance, _ := s.Ledger.BalanceOf(t.Context(), wr.Account)
		if !balance.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("Expected refund to 1000, got %s", balance)
		}

		w = settle(handler.Approve, wr.ID, request.ApproveWithdrawalRequest{ExternalRef: "utr"})
		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409 approving a rejected request, got %d", w.Code)
		}
	})

	t.Run("complete requires approval", func(t *testing.T) {
		handler, _, wr := setupHandler(t)

		w := settle(handler.Complete, wr.ID, nil)

		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", w.Code)
		}
	})

	t.Run("unknown request returns 404", func(t *testing.T) {
		handler, _, _ := setupHandler(t)

		w := settle(handler.Approve, testutil.MakeID(), request.ApproveWithdrawalRequest{ExternalRef: "utr"})

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("pending queue and allowance", func(t *testing.T) {
		handler, _, wr := setupHandler(t)

		w := httptest.NewRecorder()
		handler.ListPending(w, httptest.NewRequest(http.MethodGet, "/", nil))

		var pending []model.WithdrawalRequest
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&pending)
		if len(pending) != 1 || pending[0].ID != wr.ID {
			t.Errorf("Expected the submitted request in the queue, got %+v", pending)
		}

		w = httptest.NewRecorder()
		handler.Allowance(w, testutil.NewRequestWithURLParams(http.MethodGet, "/", map[string]string{"account": wr.Account}))

		var allowance model.WithdrawalAllowance
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&allowance)
		if !allowance.Remaining.Equal(decimal.NewFromInt(600)) {
			t.Errorf("Expected 600 remaining, got %s", allowance.Remaining)
		}
	})
}

func TestWithdrawalHandler_Setup(t *testing.T) {
	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
	handler := NewWithdrawalHandler(s.Withdrawals, s.Credentials, s.Payouts)
	params := map[string]string{"account": "acct-a"}

	t.Run("rejects a weak PIN", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.SetCredential(w, testutil.NewJSONRequest(http.MethodPut, "/", request.SetCredentialRequest{PIN: "12"}, params))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("rejects an unknown payout type", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.AddPayoutMethod(w, testutil.NewJSONRequest(http.MethodPost, "/",
			request.AddPayoutMethodRequest{Type: "paypal", Destination: "a@b.c"}, params))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("registers a bank account", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.AddPayoutMethod(w, testutil.NewJSONRequest(http.MethodPost, "/",
			request.AddPayoutMethodRequest{Type: "bank", Destination: "SBIN0000001:12345"}, params))

		if w.Code != http.StatusCreated {
			t.Errorf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
	})
}
