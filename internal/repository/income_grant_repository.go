package repository

import (
	"context"
	"fmt"

	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/model"
)

// IncomeGrantRepository provides data access methods for the income_grant table,
// the idempotency gate of the accrual engine.
type IncomeGrantRepository struct {
	db database.DBTX
}

// NewIncomeGrantRepository creates a new IncomeGrantRepository with the provided database connection.
func NewIncomeGrantRepository(db database.DBTX) *IncomeGrantRepository {
	return &IncomeGrantRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (s *IncomeGrantRepository) WithTx(tx database.DBTX) *IncomeGrantRepository {
	return &IncomeGrantRepository{db: tx}
}

const incomeGrantColumns = `id, account, investment_id, grant_date, day_number, amount, transaction_id, created_at`

// Insert claims the (investment, grant date) slot.
// Returns false without error when the slot is already taken: the grant
// was made by an earlier or concurrent run.
func (s *IncomeGrantRepository) Insert(ctx context.Context, g model.IncomeGrant) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO income_grant (`+incomeGrantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		g.ID,
		g.Account,
		g.InvestmentID,
		FormatDate(g.GrantDate),
		g.DayNumber,
		g.Amount.String(),
		g.TransactionID,
		FormatTimestamp(g.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert income grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}

// ListByInvestment returns the grants paid for an investment, by grant date.
func (s *IncomeGrantRepository) ListByInvestment(ctx context.Context, investmentID string) ([]model.IncomeGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+incomeGrantColumns+`
		FROM income_grant
		WHERE investment_id = ?
		ORDER BY grant_date ASC
	`, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income_grant table: %w", err)
	}
	defer rows.Close()

	grants := []model.IncomeGrant{}
	for rows.Next() {
		var (
			g                             model.IncomeGrant
			dateStr, amountStr, createdStr string
		)
		if err := rows.Scan(&g.ID, &g.Account, &g.InvestmentID, &dateStr, &g.DayNumber, &amountStr, &g.TransactionID, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan income_grant table results: %w", err)
		}
		if g.GrantDate, err = ParseDate(dateStr); err != nil {
			return nil, err
		}
		if g.Amount, err = parseAmount(amountStr); err != nil {
			return nil, err
		}
		if g.CreatedAt, err = ParseTime(createdStr); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income_grant table: %w", err)
	}
	return grants, nil
}

// GrantedDates returns the set of grant dates (model.DateLayout) already
// paid for an investment.
func (s *IncomeGrantRepository) GrantedDates(ctx context.Context, investmentID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grant_date FROM income_grant WHERE investment_id = ?`, investmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income_grant table: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan income_grant table results: %w", err)
		}
		dates[date] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income_grant table: %w", err)
	}
	return dates, nil
}

// CountByAccount returns the number of grants per investment for account.
func (s *IncomeGrantRepository) CountByAccount(ctx context.Context, account string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT investment_id, COUNT(*)
		FROM income_grant
		WHERE account = ?
		GROUP BY investment_id
	`, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query income_grant table: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan income_grant table results: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income_grant table: %w", err)
	}
	return counts, nil
}
