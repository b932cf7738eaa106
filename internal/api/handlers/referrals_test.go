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

func TestReferralHandler(t *testing.T) {
	setupHandler := func(t *testing.T) (*ReferralHandler, *testutil.Services) {
		t.Helper()
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		return NewReferralHandler(s.Referrals), s
	}

	register := func(handler *ReferralHandler, account, referrer string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.RegisterReferral(w, testutil.NewJSONRequest(
			http.MethodPost, "/", request.RegisterReferralRequest{ReferrerAccount: referrer}, map[string]string{"account": account},
		))
		return w
	}

	t.Run("registers a referrer once", func(t *testing.T) {
		handler, _ := setupHandler(t)

		if w := register(handler, "acct-b", "acct-a"); w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if w := register(handler, "acct-b", "acct-a"); w.Code != http.StatusCreated {
			t.Errorf("Expected re-registering the same referrer to succeed, got %d", w.Code)
		}
		if w := register(handler, "acct-b", "acct-c"); w.Code != http.StatusConflict {
			t.Errorf("Expected 409 for a different referrer, got %d", w.Code)
		}
	})

	t.Run("refuses a referrer after the first purchase", func(t *testing.T) {
		handler, s := setupHandler(t)
		testutil.Deposit(t, s, "acct-b", "500")
		if _, err := s.Investments.Purchase(t.Context(), "acct-b", testutil.Plan90.ID, ""); err != nil {
			t.Fatalf("Purchase: %v", err)
		}

		if w := register(handler, "acct-b", "acct-a"); w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("refuses self referral", func(t *testing.T) {
		handler, _ := setupHandler(t)

		if w := register(handler, "acct-a", "acct-a"); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("lists rewards and marks them withdrawn", func(t *testing.T) {
		handler, s := setupHandler(t)
		referrer := testutil.MakeAccount("ref")
		referred := testutil.MakeAccount("new")
		register(handler, referred, referrer)
		testutil.Deposit(t, s, referred, "500")
		if _, err := s.Investments.Purchase(t.Context(), referred, testutil.Plan90.ID, "buy-1"); err != nil {
			t.Fatalf("Purchase: %v", err)
		}

		w := httptest.NewRecorder()
		handler.ListRewards(w, testutil.NewRequestWithURLParams(http.MethodGet, "/", map[string]string{"account": referrer}))

		var rewards []model.ReferralReward
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&rewards)
		if len(rewards) != 1 {
			t.Fatalf("Expected one reward, got %+v", rewards)
		}

		w = httptest.NewRecorder()
		handler.MarkWithdrawn(w, testutil.NewRequestWithURLParams(http.MethodPost, "/", map[string]string{"uuid": rewards[0].ID}))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		w = httptest.NewRecorder()
		handler.Totals(w, testutil.NewRequestWithURLParams(http.MethodGet, "/", map[string]string{"account": referrer}))

		var totals model.ReferralTotals
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&totals)
		if !totals.Withdrawn.Equal(testutil.ReferralReward) || !totals.Completed.Equal(decimal.Zero) {
			t.Errorf("Unexpected totals %+v", totals)
		}

		balance, _ := s.Ledger.BalanceOf(t.Context(), referrer)
		if !balance.Equal(testutil.ReferralReward) {
			t.Errorf("Marking withdrawn must not touch the ledger, balance %s", balance)
		}
	})

	t.Run("mark withdrawn on unknown reward returns 404", func(t *testing.T) {
		handler, _ := setupHandler(t)

		w := httptest.NewRecorder()
		handler.MarkWithdrawn(w, testutil.NewRequestWithURLParams(http.MethodPost, "/", map[string]string{"uuid": testutil.MakeID()}))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
