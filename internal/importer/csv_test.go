package importer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
)

var importToday = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

func TestScan(t *testing.T) {
	input := "Date,Desc,Amount,Balance\n" +
		"2025-01-03,Coffee,-4.50,100\n" +
		"2025-01-04,Missing amount,,95\n" +
		",No date,12,90\n" +
		"01/05/2025,  Client payment  ,\"$1,200.00\",1290\n" +
		"bad date,Still staged,abc\n"

	got, err := Scan(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Candidate{
		{Date: "2025-01-03", Description: "Coffee", Amount: "-4.50"},
		{Date: "01/05/2025", Description: "  Client payment  ", Amount: "$1,200.00"},
		{Date: "bad date", Description: "Still staged", Amount: "abc"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestScanHeaderVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"lowercase", "date,description,amount\n2025-01-01,a,1\n", 1},
		{"bom and spaces", "\ufeff Date , Description , AMOUNT \n2025-01-01,a,1\n", 1},
		{"no amount column", "Date,Description\n2025-01-01,a\n", 0},
		{"short row", "Date,Description,Amount\n2025-01-01,a\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Scan(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d candidates, want %d", len(got), tt.want)
			}
		})
	}
}

func TestScanEmpty(t *testing.T) {
	if _, err := Scan(strings.NewReader("")); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want core.Date
	}{
		{"2025-01-03", core.NewDate(2025, 1, 3)},
		{"01/05/2025", core.NewDate(2025, 1, 5)},
		{"1/5/2025", core.NewDate(2025, 1, 5)},
		{"01/05/25", core.NewDate(2025, 1, 5)},
		{"2025/01/05", core.NewDate(2025, 1, 5)},
		{"Jan 5, 2025", core.NewDate(2025, 1, 5)},
		{"05-Jan-2025", core.NewDate(2025, 1, 5)},
		{"yesterday", core.NewDate(2025, 4, 2)},
		{"", core.NewDate(2025, 4, 2)},
	}
	for _, tt := range tests {
		if got := ParseDate(tt.in, importToday); got != tt.want {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveAll(t *testing.T) {
	cands := []Candidate{
		{Date: "2025-01-03", Description: "Coffee", Amount: "-4.50"},
		{Date: "garbage", Description: "Refund", Amount: "10"},
		{Date: "2025-01-03", Description: "Broken", Amount: "ten"},
	}
	txs, errs := ResolveAll(cands, importToday, "Imported")
	if len(txs) != 2 || len(errs) != 1 {
		t.Fatalf("got %d txs and %d errors", len(txs), len(errs))
	}
	if txs[0].Amount.Cents != -450 || txs[0].Category != "Imported" {
		t.Fatalf("unexpected first tx %+v", txs[0])
	}
	if txs[1].Date != core.NewDate(2025, 4, 2) {
		t.Fatalf("date fallback not applied: %v", txs[1].Date)
	}
	if errs[0].Row != 3 || !errors.Is(errs[0], core.ErrInvalidAmount) {
		t.Fatalf("unexpected row error %v", errs[0])
	}
}

func TestResolveAllDefaultCategory(t *testing.T) {
	txs, _ := ResolveAll([]Candidate{{Date: "2025-01-03", Description: "Fee", Amount: "-1"}}, importToday, "  ")
	if len(txs) != 1 || txs[0].Category != DefaultCategory {
		t.Fatalf("expected default category, got %+v", txs)
	}
}
