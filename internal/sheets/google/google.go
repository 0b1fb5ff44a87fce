package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
	"budget/internal/log"
	ports "budget/internal/sheets"
)

// Header is the first row written to the ledger sheet.
var Header = []any{"ID", "Date", "Description", "Amount", "Category", "Pass-Through", "Projects"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account key.
// Extra options are appended after the credentials.
func New(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Ledger"
	}

	base := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if len(credentialsJSON) > 0 {
		base = append(base, goption.WithCredentialsJSON(credentialsJSON))
	}
	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID, "sheet", sheetName)

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// WriteLedger clears the sheet and writes the header followed by one row per
// transaction.
func (c *Client) WriteLedger(ctx context.Context, txs []core.Transaction) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	clearRange := sheetRange(c.sheetName, "A:G")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := ledgerRows(txs)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(c.sheetName, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("update sheet %s: %w", c.sheetName, err)
	}
	if resp.UpdatedRows > 0 {
		return int(resp.UpdatedRows), nil
	}
	return len(rows), nil
}

// ledgerRows renders the header and one row per transaction. Amounts are plain
// decimals so the sheet parses them as numbers.
func ledgerRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, t := range txs {
		pass := ""
		if t.PassThrough {
			pass = "yes"
		}
		ids := make([]string, len(t.ProjectIDs))
		for i, id := range t.ProjectIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		rows = append(rows, []any{
			t.ID,
			t.Date.String(),
			t.Description,
			t.Amount.String(),
			t.Category,
			pass,
			strings.Join(ids, ","),
		})
	}
	return rows
}

// sheetRange builds an A1 range, quoting the sheet name when needed.
func sheetRange(sheet, cells string) string {
	if strings.ContainsAny(sheet, " '!") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return fmt.Sprintf("%s!%s", sheet, cells)
}
