package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
	"github.com/ndewijer/investment-ledger/internal/testutil"
)

func referralCredits(t *testing.T, s *testutil.Services, account string) []model.Transaction {
	t.Helper()
	txs, err := s.Ledger.History(context.Background(), account, model.TransactionFilter{
		Kinds: []model.TransactionKind{model.KindCreditReferral},
	})
	require.NoError(t, err)
	return txs
}

// TestReferralService_Scenario tests the one-time referral reward.
//
// WHY: The referrer is paid for the referred account's first completed
// purchase and never again, however many purchases follow.
func TestReferralService_Scenario(t *testing.T) {
	ctx := context.Background()

	// Setup
	db := testutil.SetupTestDB(t)
	s := testutil.NewTestServices(t, db)
	_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
	require.NoError(t, err)
	testutil.Deposit(t, s, "acc-b", "2000")

	// Execute: first purchase
	first, err := s.Investments.Purchase(ctx, "acc-b", testutil.Plan90.ID, "")
	require.NoError(t, err)

	// Assert
	credits := referralCredits(t, s, "acc-r")
	require.Len(t, credits, 1)
	assert.True(t, credits[0].Amount.Equal(testutil.ReferralReward))
	assert.Equal(t, model.StatusCompleted, credits[0].Status)
	assert.Equal(t, "acc-b", credits[0].Metadata[model.MetaReferredAccount])
	assert.Equal(t, first.FundingTransactionID, credits[0].Metadata[model.MetaTriggeringTxID])

	// Second purchase: no further reward.
	_, err = s.Investments.Purchase(ctx, "acc-b", testutil.PlanShort.ID, "")
	require.NoError(t, err)
	assert.Len(t, referralCredits(t, s, "acc-r"), 1)

	balance, err := s.Ledger.BalanceOf(ctx, "acc-r")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("50")))

	rewards, err := s.Referrals.ListRewards(ctx, "acc-r")
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, credits[0].ID, rewards[0].RewardTransactionID)
}

// TestReferralService_OnlyFirstPurchaseQualifies tests that a purchase made
// before the referral link existed still counts as the first purchase.
func TestReferralService_OnlyFirstPurchaseQualifies(t *testing.T) {
	ctx := context.Background()

	t.Run("link refused after a completed purchase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		s := testutil.NewTestServices(t, db)
		testutil.Deposit(t, s, "acc-b", "2000")
		_, err := s.Investments.Purchase(ctx, "acc-b", testutil.Plan90.ID, "")
		require.NoError(t, err)

		_, err = s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		assert.ErrorIs(t, err, apperrors.ErrAlreadyPurchased)
		testutil.AssertRowCount(t, db, "referral_link", 0)

		_, err = s.Investments.Purchase(ctx, "acc-b", testutil.PlanShort.ID, "")
		require.NoError(t, err)
		assert.Empty(t, referralCredits(t, s, "acc-r"))
		testutil.AssertRowCount(t, db, "referral_reward", 0)
	})

	t.Run("pending purchase does not block the link", func(t *testing.T) {
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		_, _, err := s.Ledger.Append(ctx, model.Transaction{
			Account: "acc-b",
			Kind:    model.KindDebitPurchase,
			Amount:  dec("100"),
		})
		require.NoError(t, err)

		_, err = s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		assert.NoError(t, err)
	})

	t.Run("existing link is not rewarded for a later purchase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		s := testutil.NewTestServices(t, db)
		testutil.NewLedgerEntry("acc-b").WithKind(model.KindDebitPurchase).Build(t, db)
		require.NoError(t, repository.NewReferralRepository(db).InsertLink(ctx, model.ReferralLink{
			Account:         "acc-b",
			ReferrerAccount: "acc-r",
			CreatedAt:       testutil.WeekdayNoon,
		}))
		second := testutil.NewLedgerEntry("acc-b").WithKind(model.KindDebitPurchase).Build(t, db)

		reward, err := s.Referrals.OnPurchaseCompleted(ctx, "acc-b", second.ID, second.Amount)
		require.NoError(t, err)
		assert.Nil(t, reward)
		testutil.AssertRowCount(t, db, "referral_reward", 0)
	})
}

// TestReferralService_ExactlyOnceUnderConcurrency tests concurrent first purchases.
func TestReferralService_ExactlyOnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	s := testutil.NewTestServices(t, db)
	_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
	require.NoError(t, err)
	testutil.Deposit(t, s, "acc-b", "1000")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Investments.Purchase(ctx, "acc-b", testutil.PlanShort.ID, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, referralCredits(t, s, "acc-r"), 1)
	testutil.AssertRowCount(t, db, "referral_reward", 1)
}

// TestReferralService_Triggers tests the ways a purchase can complete.
func TestReferralService_Triggers(t *testing.T) {
	ctx := context.Background()

	t.Run("pending purchase pays when it completes", func(t *testing.T) {
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		require.NoError(t, err)

		purchase, _, err := s.Ledger.Append(ctx, model.Transaction{
			Account: "acc-b",
			Kind:    model.KindDebitPurchase,
			Amount:  dec("100"),
			Status:  model.StatusPending,
		})
		require.NoError(t, err)
		assert.Empty(t, referralCredits(t, s, "acc-r"))

		_, err = s.Ledger.TransitionStatus(ctx, purchase.ID, model.StatusCompleted)
		require.NoError(t, err)
		assert.Len(t, referralCredits(t, s, "acc-r"), 1)
	})

	t.Run("failed purchase pays nothing", func(t *testing.T) {
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		require.NoError(t, err)

		purchase, _, err := s.Ledger.Append(ctx, model.Transaction{
			Account: "acc-b",
			Kind:    model.KindDebitPurchase,
			Amount:  dec("100"),
		})
		require.NoError(t, err)
		_, err = s.Ledger.TransitionStatus(ctx, purchase.ID, model.StatusFailed)
		require.NoError(t, err)

		assert.Empty(t, referralCredits(t, s, "acc-r"))
	})

	t.Run("account without referrer", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		s := testutil.NewTestServices(t, db)
		purchase := testutil.NewLedgerEntry("acc-b").WithKind(model.KindDebitPurchase).Build(t, db)

		reward, err := s.Referrals.OnPurchaseCompleted(ctx, "acc-b", purchase.ID, purchase.Amount)
		require.NoError(t, err)
		assert.Nil(t, reward)
		testutil.AssertRowCount(t, db, "referral_reward", 0)
	})

	t.Run("direct trigger after the hook already paid", func(t *testing.T) {
		s := testutil.NewTestServices(t, testutil.SetupTestDB(t))
		_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		require.NoError(t, err)
		testutil.Deposit(t, s, "acc-b", "1000")
		inv, err := s.Investments.Purchase(ctx, "acc-b", testutil.PlanShort.ID, "")
		require.NoError(t, err)

		reward, err := s.Referrals.OnPurchaseCompleted(ctx, "acc-b", inv.FundingTransactionID, testutil.PlanShort.Price)
		require.NoError(t, err)
		assert.Nil(t, reward)
		assert.Len(t, referralCredits(t, s, "acc-r"), 1)
	})

	t.Run("zero amount is not a purchase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		s := testutil.NewTestServices(t, db)
		_, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
		require.NoError(t, err)
		purchase := testutil.NewLedgerEntry("acc-b").WithKind(model.KindDebitPurchase).Build(t, db)

		reward, err := s.Referrals.OnPurchaseCompleted(ctx, "acc-b", purchase.ID, dec("0"))
		require.NoError(t, err)
		assert.Nil(t, reward)
	})
}

// TestReferralService_RegisterReferral tests referral link rules.
func TestReferralService_RegisterReferral(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))

	link, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
	require.NoError(t, err)
	assert.Equal(t, "acc-r", link.ReferrerAccount)

	again, err := s.Referrals.RegisterReferral(ctx, "acc-b", "acc-r")
	require.NoError(t, err)
	assert.Equal(t, link.CreatedAt, again.CreatedAt)

	_, err = s.Referrals.RegisterReferral(ctx, "acc-b", "acc-x")
	assert.ErrorIs(t, err, apperrors.ErrReferrerAlreadySet)

	_, err = s.Referrals.RegisterReferral(ctx, "acc-c", "acc-c")
	assert.ErrorIs(t, err, apperrors.ErrSelfReferral)

	_, err = s.Referrals.RegisterReferral(ctx, "", "acc-r")
	assert.ErrorIs(t, err, apperrors.ErrEmptyAccount)
}

// TestReferralService_Totals tests reward bookkeeping.
func TestReferralService_Totals(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestServices(t, testutil.SetupTestDB(t))

	for _, referred := range []string{"acc-b", "acc-c"} {
		_, err := s.Referrals.RegisterReferral(ctx, referred, "acc-r")
		require.NoError(t, err)
		testutil.Deposit(t, s, referred, "100")
		_, err = s.Investments.Purchase(ctx, referred, testutil.PlanShort.ID, "")
		require.NoError(t, err)
	}

	rewards, err := s.Referrals.ListRewards(ctx, "acc-r")
	require.NoError(t, err)
	require.Len(t, rewards, 2)

	marked, err := s.Referrals.MarkWithdrawn(ctx, rewards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.RewardWithdrawn, marked.Status)

	_, err = s.Referrals.MarkWithdrawn(ctx, rewards[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	totals, err := s.Referrals.Totals(ctx, "acc-r")
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Count)
	assert.True(t, totals.Completed.Equal(dec("50")))
	assert.True(t, totals.Withdrawn.Equal(dec("50")))

	// Bookkeeping only: the referrer keeps both credits.
	balance, err := s.Ledger.BalanceOf(ctx, "acc-r")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("100")))

	_, err = s.Referrals.MarkWithdrawn(ctx, testutil.MakeID())
	assert.ErrorIs(t, err, apperrors.ErrReferralRewardNotFound)
}
