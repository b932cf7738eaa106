package model

import "fmt"

// SchemaStatus compares the running build with the migrations applied to the ledger database.
type SchemaStatus struct {
	AppVersion    string
	SchemaVersion int64
	// Pending is set when the binary embeds migrations newer than SchemaVersion.
	Pending bool
	// Features lists the optional integrations (balance cache, event stream) and whether they are on.
	Features map[string]bool
}

// MigrationHint returns the operator instruction for a pending schema, or nil when the schema is current.
func (s SchemaStatus) MigrationHint() *string {
	if !s.Pending {
		return nil
	}
	msg := fmt.Sprintf("database schema is at version %d; run 'ledgerd migrate'", s.SchemaVersion)
	return &msg
}
