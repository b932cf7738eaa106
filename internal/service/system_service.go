package service

import (
	"context"
	"database/sql"

	"github.com/ndewijer/investment-ledger/internal/database"
	"github.com/ndewijer/investment-ledger/internal/model"
	"github.com/ndewijer/investment-ledger/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db       *sql.DB
	features map[string]bool
}

// NewSystemService creates a new SystemService. features reports which
// optional integrations (balance cache, event stream) are enabled.
func NewSystemService(db *sql.DB, features map[string]bool) *SystemService {
	if features == nil {
		features = map[string]bool{}
	}
	return &SystemService{
		db:       db,
		features: features,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version, the applied schema version
// and whether migrations are pending.
func (s *SystemService) CheckVersion(ctx context.Context) (model.SchemaStatus, error) {
	current, pending, err := database.SchemaStatus(ctx, s.db)
	if err != nil {
		return model.SchemaStatus{}, err
	}
	return model.SchemaStatus{
		AppVersion:    version.Version,
		SchemaVersion: current,
		Pending:       pending,
		Features:      s.features,
	}, nil
}
