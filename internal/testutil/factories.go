package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/repository"
	"github.com/ndewijer/investment-ledger/internal/service"
)

// TransactionBuilder provides a fluent interface for writing ledger rows
// directly, bypassing the services.
//
// Example usage:
//
//	// Completed deposit of 100
//	tx := testutil.NewLedgerEntry("acc-a").Build(t, db)
//
//	// Pending withdrawal debit
//	tx := testutil.NewLedgerEntry("acc-a").
//	    WithKind(model.KindDebitWithdrawal).
//	    WithAmount("250").
//	    Pending().
//	    Build(t, db)
type TransactionBuilder struct {
	ID        string
	Account   string
	Kind      model.TransactionKind
	Amount    decimal.Decimal
	Status    model.TransactionStatus
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewLedgerEntry creates a TransactionBuilder for a Completed deposit of 100.
func NewLedgerEntry(account string) *TransactionBuilder {
	return &TransactionBuilder{
		ID:        MakeID(),
		Account:   account,
		Kind:      model.KindCreditDeposit,
		Amount:    decimal.NewFromInt(100),
		Status:    model.StatusCompleted,
		Metadata:  map[string]string{model.MetaSource: model.SourceRecharge},
		CreatedAt: WeekdayNoon,
	}
}

// WithID sets a custom ID.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	b.ID = id
	return b
}

// WithKind sets the transaction kind.
func (b *TransactionBuilder) WithKind(kind model.TransactionKind) *TransactionBuilder {
	b.Kind = kind
	return b
}

// WithAmount sets the amount from a decimal string.
func (b *TransactionBuilder) WithAmount(amount string) *TransactionBuilder {
	b.Amount = decimal.RequireFromString(amount)
	return b
}

// WithStatus sets the status.
func (b *TransactionBuilder) WithStatus(status model.TransactionStatus) *TransactionBuilder {
	b.Status = status
	return b
}

// Pending marks the transaction as Pending.
func (b *TransactionBuilder) Pending() *TransactionBuilder {
	b.Status = model.StatusPending
	return b
}

// At sets the creation time.
func (b *TransactionBuilder) At(at time.Time) *TransactionBuilder {
	b.CreatedAt = at
	return b
}

// Build writes the transaction and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx := model.Transaction{
		ID:        b.ID,
		Account:   b.Account,
		Kind:      b.Kind,
		Amount:    b.Amount,
		Status:    b.Status,
		Metadata:  b.Metadata,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.CreatedAt,
	}
	created, err := repository.NewTransactionRepository(db).Insert(context.Background(), tx)
	if err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}
	if !created {
		t.Fatalf("Test transaction %s already exists", b.ID)
	}
	return tx
}

// InvestmentBuilder writes an investment and its funding debit directly.
//
// Example usage:
//
//	inv := testutil.NewInvestment("acc-a", testutil.Plan90).
//	    PurchasedOn(testutil.WeekdayNoon.AddDate(0, 0, -10)).
//	    Build(t, db)
type InvestmentBuilder struct {
	ID           string
	Account      string
	Product      model.Product
	PurchaseDate time.Time
}

// NewInvestment creates an InvestmentBuilder purchased on WeekdayNoon.
func NewInvestment(account string, product model.Product) *InvestmentBuilder {
	return &InvestmentBuilder{
		ID:           MakeID(),
		Account:      account,
		Product:      product,
		PurchaseDate: WeekdayNoon,
	}
}

// PurchasedOn sets the purchase day.
func (b *InvestmentBuilder) PurchasedOn(day time.Time) *InvestmentBuilder {
	b.PurchaseDate = day
	return b
}

// Build writes the funding debit and the investment and returns the investment.
func (b *InvestmentBuilder) Build(t *testing.T, db *sql.DB) model.Investment {
	t.Helper()

	funding := NewLedgerEntry(b.Account).
		WithKind(model.KindDebitPurchase).
		WithAmount(b.Product.Price.String()).
		At(b.PurchaseDate).
		Build(t, db)

	inv := model.Investment{
		ID:                   b.ID,
		Account:              b.Account,
		ProductID:            b.Product.ID,
		PurchasePrice:        b.Product.Price,
		PurchaseDate:         model.CalendarDate(b.PurchaseDate, time.UTC),
		FundingTransactionID: funding.ID,
		CreatedAt:            b.PurchaseDate,
	}
	if err := repository.NewInvestmentRepository(db).Insert(context.Background(), inv); err != nil {
		t.Fatalf("Failed to create test investment: %v", err)
	}
	return inv
}

// Convenience functions

// Deposit appends a Completed deposit of amount to account through the ledger service.
//
// Example usage:
//
//	testutil.Deposit(t, s, "acc-a", "1000")
func Deposit(t *testing.T, s *Services, account, amount string) model.Transaction {
	t.Helper()

	tx, _, err := s.Ledger.Append(context.Background(), model.Transaction{
		Account:  account,
		Kind:     model.KindCreditDeposit,
		Amount:   decimal.RequireFromString(amount),
		Status:   model.StatusCompleted,
		Metadata: map[string]string{model.MetaSource: model.SourceRecharge},
	})
	if err != nil {
		t.Fatalf("Failed to deposit: %v", err)
	}
	return tx
}

// TestPIN is the withdrawal PIN provisioned by PrepareWithdrawer.
const TestPIN = "2468"

// PrepareWithdrawer provisions TestPIN and a bank payout method for account
// and returns the payout method id.
func PrepareWithdrawer(t *testing.T, s *Services, account string) string {
	t.Helper()

	ctx := context.Background()
	if err := s.Credentials.SetCredential(ctx, account, TestPIN); err != nil {
		t.Fatalf("Failed to set credential: %v", err)
	}
	method, err := s.Payouts.AddPayoutMethod(ctx, account, model.PayoutBank, "HDFC0001234:50100012345678")
	if err != nil {
		t.Fatalf("Failed to add payout method: %v", err)
	}
	return method.ID
}

// SubmitRequest builds a withdrawal submission authenticated with TestPIN.
func SubmitRequest(account, amount, payoutMethodID string) service.SubmitWithdrawal {
	return service.SubmitWithdrawal{
		Account:        account,
		Amount:         decimal.RequireFromString(amount),
		Secret:         TestPIN,
		PayoutMethodID: payoutMethodID,
	}
}
