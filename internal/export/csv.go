package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"prizedesk/internal/types"
)

// utf8BOM marks the file as UTF-8 for spreadsheet apps.
const utf8BOM = "\ufeff"

// WriteCSV writes a BOM, the header row and one row per record.
func WriteCSV(w io.Writer, records []types.Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := Row(r)
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = formatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
