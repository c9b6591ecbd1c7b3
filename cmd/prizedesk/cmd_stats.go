package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	RunE:  showStats,
}

func showStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	stats, err := newClient().DashboardStats(ctx)
	if err != nil {
		return err
	}
	renderStats(cmd.OutOrStdout(), stats)
	return nil
}

func renderStats(w io.Writer, s types.DashboardStats) {
	table := ui.NewTable("الإحصائيات", []string{"المؤشر", "القيمة", "النسبة"})
	table.AddRow("قيد المعالجة", fmt.Sprint(s.InProgressCount), percent(s.InProgressTrend))
	table.AddRow("مكتمل اليوم", fmt.Sprint(s.CompletedTodayCount), percent(s.DailyCompletionRate))
	table.AddRow("تم النشر", fmt.Sprint(s.PrizePublishedCount), percent(s.PublishRate))
	table.AddRow("إجمالي السجلات", fmt.Sprint(s.TotalRecords), "")
	fmt.Fprint(w, table.View(plainStyles(), ""))

	if len(s.DueDateAlerts) > 0 {
		alerts := ui.NewTable("تنبيهات الاستحقاق", []string{"المعرف", "اسم العميل", "الاستحقاق"})
		for _, a := range s.DueDateAlerts {
			alerts.AddRow(a.ID, a.ClientName, a.PrizeDueDate)
		}
		fmt.Fprint(w, alerts.View(plainStyles(), ""))
	}
	for _, p := range s.WeeklyCompletionChart {
		fmt.Fprintf(w, "%-12s %s %d\n", p.Label, bar(p.Count), p.Count)
	}
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func bar(n int) string {
	if n > 40 {
		n = 40
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = '█'
	}
	return string(out)
}
