package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the spreadsheet mirror of the ledger.
type (
	// LedgerMirror receives ledger changes one at a time.
	LedgerMirror interface {
		AppendRow(ctx context.Context, t core.Transaction) error
		// Clear removes every data row and keeps the header.
		Clear(ctx context.Context) error
	}

	// Resyncer rewrites the whole mirror from an authoritative list.
	Resyncer interface {
		ReplaceAll(ctx context.Context, items []core.Transaction) error
	}

	// Mirror is a LedgerMirror that can also be rebuilt from scratch.
	Mirror interface {
		LedgerMirror
		Resyncer
	}
)

// Row renders t in ledger column order: date, amount, category, description.
func Row(t core.Transaction) []string {
	return []string{t.Date, core.FormatAmount(t.Amount), t.Category, t.Description}
}
