package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"prizedesk/internal/types"
)

// XLSXOptions configures the workbook layout.
type XLSXOptions struct {
	SheetName    string
	RightToLeft  bool
	FreezeHeader bool
	AutoFilter   bool
	AutoWidth    bool
}

// DefaultXLSXOptions returns the layout used for exports.
func DefaultXLSXOptions() XLSXOptions {
	return XLSXOptions{
		SheetName:    "الفائزين",
		RightToLeft:  true,
		FreezeHeader: true,
		AutoFilter:   true,
		AutoWidth:    true,
	}
}

// WriteXLSX writes records as a single-sheet workbook.
func WriteXLSX(w io.Writer, records []types.Record, opts XLSXOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if opts.RightToLeft {
		rtl := true
		if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return fmt.Errorf("failed to set sheet view: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := Headers()
	widths := make([]int, len(headers))
	hdr := make([]any, len(headers))
	for i, h := range headers {
		hdr[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		row := Row(r)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
		for c, v := range row {
			if n := utf8.RuneCountInString(formatValue(v)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	if opts.FreezeHeader {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}
	if opts.AutoFilter {
		lastCell, _ := excelize.CoordinatesToCellName(len(headers), max(len(records)+1, 1))
		if err := f.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}
	if opts.AutoWidth {
		for i, wdt := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			// Min width 10, max width 50
			if err := f.SetColWidth(sheet, col, col, float64(min(max(wdt+2, 10), 50))); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
