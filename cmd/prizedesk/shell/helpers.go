package shell

import (
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"prizedesk/internal/export"
	"prizedesk/internal/types"
)

// Package-level hooks so tests can stub side effects.
var (
	clipboardWriteAll = clipboard.WriteAll
	exportToFile      = export.ToFile
)

func joinWorkspace(ws, name string) string {
	if ws == "" {
		return name
	}
	return filepath.Join(ws, name)
}

// truncate cuts s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func check(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

// prizeCell shows the amount for trading prizes and the percentage for
// deposit prizes.
func prizeCell(r types.Record) string {
	if r.PrizeType.IsDeposit() {
		return r.DepositBonusPercentage.String() + "%"
	}
	return r.PrizeAmount.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
