package sheets

import (
	"context"

	"budget/internal/core"
)

// LedgerWriter mirrors the transaction ledger into an external spreadsheet.
type LedgerWriter interface {
	// WriteLedger replaces the sheet contents with txs and returns the number
	// of rows written, header included.
	WriteLedger(ctx context.Context, txs []core.Transaction) (int, error)
}
