package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prizedesk/internal/api"
	"prizedesk/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered verification records to CSV or XLSX",
	Long: `Writes every record matching the filters to a file. The format follows the
file extension (.csv or .xlsx).

Examples:
  prizedesk export --out winners.xlsx --status completed
  prizedesk export --out week.csv --due 2026-10-19`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringP("out", "o", "verifications.xlsx", "Output file (.csv or .xlsx)")
	f.StringP("query", "q", "", "Free-text search")
	f.StringSlice("fields", nil, "Fields searched by --query")
	f.String("status", "all", "all, in-progress or completed")
	f.String("published", "any", "any, yes or no")
	f.String("due", "", "Prize due date (YYYY-MM-DD)")
	f.String("sort", "", "Sort column")
	f.Bool("desc", false, "Sort descending")
}

func runExport(cmd *cobra.Command, args []string) error {
	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	if _, err := export.FormatFromPath(out); err != nil {
		return err
	}

	p := criteria.Params()
	if sortBy, _ := cmd.Flags().GetString("sort"); sortBy != "" {
		p.SortBy = sortBy
		p.SortDirection = api.Asc
		if desc, _ := cmd.Flags().GetBool("desc"); desc {
			p.SortDirection = api.Desc
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	n, err := export.ToFile(ctx, newClient(), p, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, out)
	return nil
}
