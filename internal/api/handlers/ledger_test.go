package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/api/request"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/testutil"
)

func TestLedgerHandler_Balance(t *testing.T) {
	setupHandler := func(t *testing.T) (*LedgerHandler, *testutil.Services) {
		t.Helper()
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		return NewLedgerHandler(s.Ledger), s
	}

	t.Run("returns the derived balance", func(t *testing.T) {
		handler, s := setupHandler(t)
		account := testutil.MakeAccount("acct")
		testutil.Deposit(t, s, account, "750")
		testutil.NewLedgerEntry(account).WithAmount("300").Pending().Build(t, s.DB)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/accounts/"+account+"/balance", map[string]string{"account": account})
		w := httptest.NewRecorder()

		handler.Balance(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response model.Balance
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if !response.Balance.Equal(decimal.NewFromInt(750)) {
			t.Errorf("Expected balance 750, got %s", response.Balance)
		}
	})

	t.Run("unknown account has zero balance", func(t *testing.T) {
		handler, _ := setupHandler(t)

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/accounts/nobody/balance", map[string]string{"account": "nobody"})
		w := httptest.NewRecorder()

		handler.Balance(w, req)

		var response model.Balance
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if w.Code != http.StatusOK || !response.Balance.IsZero() {
			t.Errorf("Expected 200 with zero balance, got %d %s", w.Code, response.Balance)
		}
	})

	t.Run("returns 500 when the database is closed", func(t *testing.T) {
		handler, s := setupHandler(t)
		s.DB.Close()

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/accounts/acct/balance", map[string]string{"account": "acct"})
		w := httptest.NewRecorder()

		handler.Balance(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", w.Code)
		}
	})
}

func TestLedgerHandler_History(t *testing.T) {
	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
	handler := NewLedgerHandler(s.Ledger)
	account := testutil.MakeAccount("acct")
	testutil.Deposit(t, s, account, "100")
	testutil.NewLedgerEntry(account).WithAmount("40").WithKind(model.KindDebitPurchase).Build(t, s.DB)

	history := func(query map[string]string) *httptest.ResponseRecorder {
		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/accounts/"+account+"/transactions", query)
		req = testutil.NewRequestWithURLParams(http.MethodGet, req.URL.String(), map[string]string{"account": account})
		w := httptest.NewRecorder()
		handler.History(w, req)
		return w
	}

	t.Run("filters by kind", func(t *testing.T) {
		w := history(map[string]string{"kind": "debit_purchase"})

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		var response []model.Transaction
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if len(response) != 1 || response[0].Kind != model.KindDebitPurchase {
			t.Errorf("Expected only the purchase, got %+v", response)
		}
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		w := history(map[string]string{"status": "settled"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestLedgerHandler_GetTransaction(t *testing.T) {
	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
	handler := NewLedgerHandler(s.Ledger)
	tx := testutil.NewLedgerEntry(testutil.MakeAccount("acct")).Build(t, s.DB)

	t.Run("returns the transaction", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transactions/"+tx.ID, map[string]string{"id": tx.ID})
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transactions/missing", map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestLedgerHandler_RecordDeposit(t *testing.T) {
	setupHandler := func(t *testing.T) (*LedgerHandler, *testutil.Services) {
		t.Helper()
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		return NewLedgerHandler(s.Ledger), s
	}

	t.Run("records a pending deposit and completes it", func(t *testing.T) {
		handler, s := setupHandler(t)
		account := testutil.MakeAccount("acct")
		body := request.RecordDepositRequest{
			ID: "dep-1", Account: account, Amount: decimal.RequireFromString("250.50"), ExternalRef: "pg_1",
		}

		w := httptest.NewRecorder()
		handler.RecordDeposit(w, testutil.NewJSONRequest(http.MethodPost, "/api/admin/deposits", body, nil))

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}

		w = httptest.NewRecorder()
		handler.TransitionStatus(w, testutil.NewJSONRequest(
			http.MethodPost,
			"/api/admin/transactions/dep-1/status",
			request.TransitionStatusRequest{Status: "completed"},
			map[string]string{"id": "dep-1"},
		))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		balance, err := s.Ledger.BalanceOf(t.Context(), account)
		if err != nil {
			t.Fatalf("BalanceOf: %v", err)
		}
		if !balance.Equal(decimal.RequireFromString("250.50")) {
			t.Errorf("Expected 250.50, got %s", balance)
		}
	})

	t.Run("returns 409 when the id is reused for another deposit", func(t *testing.T) {
		handler, _ := setupHandler(t)
		first := request.RecordDepositRequest{ID: "dep-2", Account: "acct-a", Amount: decimal.NewFromInt(100), ExternalRef: "pg_2"}
		second := first
		second.Amount = decimal.NewFromInt(900)

		handler.RecordDeposit(httptest.NewRecorder(), testutil.NewJSONRequest(http.MethodPost, "/", first, nil))
		w := httptest.NewRecorder()
		handler.RecordDeposit(w, testutil.NewJSONRequest(http.MethodPost, "/", second, nil))

		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 400 on validation failure", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.RecordDeposit(w, testutil.NewJSONRequest(http.MethodPost, "/", request.RecordDepositRequest{Account: "acct-a"}, nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("returns 400 on malformed JSON", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.RecordDeposit(w, testutil.NewJSONRequest(http.MethodPost, "/", `{"id":`, nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("refuses to transition to pending", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.TransitionStatus(w, testutil.NewJSONRequest(
			http.MethodPost, "/", request.TransitionStatusRequest{Status: "pending"}, map[string]string{"id": "x"},
		))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
