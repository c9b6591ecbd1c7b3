// Package export writes verification records to CSV or XLSX files.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"prizedesk/internal/api"
	"prizedesk/internal/listing"
	"prizedesk/internal/logging"
	"prizedesk/internal/types"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export extension %q (want .csv or .xlsx)", filepath.Ext(path))
}

// Column is one exported column.
type Column struct {
	Header string
	Value  func(r types.Record) any
}

// Columns are the exported columns in sheet order.
var Columns = buildColumns()

func buildColumns() []Column {
	cols := []Column{{Header: "المعرف", Value: func(r types.Record) any { return r.ID }}}
	for _, f := range types.EditableFields {
		switch f {
		case types.FieldPrizeAmount:
			cols = append(cols, Column{Header: f.Label(), Value: func(r types.Record) any { return float64(r.PrizeAmount) }})
		case types.FieldDepositBonusPercentage:
			cols = append(cols, Column{Header: f.Label(), Value: func(r types.Record) any { return float64(r.DepositBonusPercentage) }})
		default:
			if f.IsBool() {
				cols = append(cols, Column{Header: f.Label(), Value: func(r types.Record) any { return yesNo(r.Get(f) == "true") }})
				continue
			}
			cols = append(cols, Column{Header: f.Label(), Value: func(r types.Record) any { return r.Get(f) }})
		}
	}
	return append(cols,
		Column{Header: "الحالة", Value: func(r types.Record) any { return string(r.Status) }},
		Column{Header: "منشور في الجروب", Value: func(r types.Record) any { return yesNo(r.PrizePublishedOnGroup) }},
		Column{Header: "تاريخ الإنشاء", Value: func(r types.Record) any { return r.CreatedAt }},
		Column{Header: "آخر تحديث", Value: func(r types.Record) any { return r.UpdatedAt }},
	)
}

func yesNo(b bool) string {
	if b {
		return "نعم"
	}
	return "لا"
}

// Headers returns the header row.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// Row returns r's cells in column order.
func Row(r types.Record) []any {
	out := make([]any, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(r)
	}
	return out
}

// DefaultBatch is the page size used when walking a result set.
const DefaultBatch = 50

// Collect walks every page of the query p and returns the full result set.
func Collect(ctx context.Context, client listing.VerificationLister, p api.ListParams, batch int) ([]types.Record, error) {
	if batch <= 0 {
		batch = DefaultBatch
	}
	p.Limit = batch
	var all []types.Record
	for page := 1; ; page++ {
		p.Page = page
		res, err := client.ListVerifications(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		for _, r := range res.Records {
			all = append(all, r.WithDefaults())
		}
		if len(res.Records) == 0 || len(all) >= res.TotalCount {
			return all, nil
		}
	}
}

// Write encodes records to w in format.
func Write(w io.Writer, format Format, records []types.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records, DefaultXLSXOptions())
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ToFile collects the query's full result set and writes it to path, picking
// the format from the extension. It returns the number of records written.
func ToFile(ctx context.Context, client listing.VerificationLister, p api.ListParams, path string) (int, error) {
	timer := logging.StartTimer(logging.CategoryExport, "export "+path)
	defer timer.Stop()

	format, err := FormatFromPath(path)
	if err != nil {
		return 0, err
	}
	records, err := Collect(ctx, client, p, DefaultBatch)
	if err != nil {
		return 0, err
	}

	err = writeFile(path, format, records)
	logging.Audit("").Log(logging.AuditEvent{
		EventType: logging.AuditExport,
		Target:    path,
		Success:   err == nil,
		Error:     errString(err),
		Fields:    map[string]interface{}{"count": len(records), "format": string(format)},
	})
	if err != nil {
		return 0, err
	}
	logging.Get(logging.CategoryExport).Info("exported %d records to %s", len(records), path)
	return len(records), nil
}

func writeFile(path string, format Format, records []types.Record) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return Write(f, format, records)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
