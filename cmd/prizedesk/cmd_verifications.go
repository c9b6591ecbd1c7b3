package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/clock"
	"prizedesk/internal/dashboard"
	"prizedesk/internal/filter"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
	"prizedesk/internal/verification"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

var verificationsCmd = &cobra.Command{
	Use:     "verifications",
	Aliases: []string{"v", "records"},
	Short:   "List, create, inspect and publish verification records",
}

var verificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List verification records, paged on the server",
	Long: `Lists verification records with the same search, filters, sorting and paging
as the dashboard.

Examples:
  prizedesk verifications list --status completed --published no
  prizedesk verifications list -q 4521 --fields agency_id --limit 25 --page 2
  prizedesk verifications list --sort prize_due_date --desc`,
	RunE: listVerifications,
}

var verificationsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new verification and fill fields",
	Long: `Creates a draft verification and applies --set field=value pairs.

Example:
  prizedesk verifications new --set client_name="أحمد محمود" --set agency_id=4521`,
	RunE: newVerification,
}

var verificationsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change fields of an existing verification",
	Args:  cobra.ExactArgs(1),
	RunE:  editVerification,
}

var verificationsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one verification and what blocks publishing",
	Args:  cobra.ExactArgs(1),
	RunE:  showVerification,
}

var verificationsDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete verification records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  deleteVerifications,
}

var verificationsPublishCmd = &cobra.Command{
	Use:   "publish [id]",
	Short: "Finish a verification: mark it completed and published",
	Args:  cobra.ExactArgs(1),
	RunE:  publishVerification,
}

var verificationsToggleCmd = &cobra.Command{
	Use:   "toggle-publish [id]",
	Short: "Flip the published flag of a completed verification",
	Args:  cobra.ExactArgs(1),
	RunE:  togglePublish,
}

var verificationsKlishaCmd = &cobra.Command{
	Use:   "klisha [id]",
	Short: "Generate the winner announcement message",
	Args:  cobra.ExactArgs(1),
	RunE:  generateKlisha,
}

func init() {
	f := verificationsListCmd.Flags()
	f.StringP("query", "q", "", "Free-text search")
	f.StringSlice("fields", nil, "Fields searched by --query (client_name,email,account_number,agency_id)")
	f.String("status", "all", "all, in-progress or completed")
	f.String("published", "any", "any, yes or no")
	f.String("due", "", "Prize due date (YYYY-MM-DD)")
	f.Int("page", 1, "Page number")
	f.Int("limit", 10, "Rows per page (5, 10, 25 or 50)")
	f.String("sort", "", "Sort column, e.g. client_name or prize_due_date")
	f.Bool("desc", false, "Sort descending")

	verificationsNewCmd.Flags().StringArray("set", nil, "field=value to apply (repeatable)")
	verificationsEditCmd.Flags().StringArray("set", nil, "field=value to apply (repeatable)")
	verificationsDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	verificationsKlishaCmd.Flags().Bool("copy", false, "Copy the message to the clipboard")

	verificationsCmd.AddCommand(verificationsListCmd)
	verificationsCmd.AddCommand(verificationsNewCmd)
	verificationsCmd.AddCommand(verificationsEditCmd)
	verificationsCmd.AddCommand(verificationsShowCmd)
	verificationsCmd.AddCommand(verificationsDeleteCmd)
	verificationsCmd.AddCommand(verificationsPublishCmd)
	verificationsCmd.AddCommand(verificationsToggleCmd)
	verificationsCmd.AddCommand(verificationsKlishaCmd)
}

// criteriaFromFlags builds filter criteria from list/export flags.
func criteriaFromFlags(cmd *cobra.Command) (filter.Criteria, error) {
	c := filter.Default()
	c.Query, _ = cmd.Flags().GetString("query")
	if fields, _ := cmd.Flags().GetStringSlice("fields"); len(fields) > 0 {
		c.SearchFields = nil
		for _, name := range fields {
			c = c.WithSearchField(types.Field(strings.TrimSpace(name)), true)
		}
	}
	var err error
	status, _ := cmd.Flags().GetString("status")
	if c.Status, err = parseStatus(status); err != nil {
		return c, err
	}
	published, _ := cmd.Flags().GetString("published")
	if c.Published, err = parsePublished(published); err != nil {
		return c, err
	}
	c.DueDate, _ = cmd.Flags().GetString("due")
	return c, c.Validate()
}

func listVerifications(cmd *cobra.Command, args []string) error {
	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	sortBy, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")

	ctx, cancel := commandContext()
	defer cancel()

	store := filter.NewStore()
	store.Dispatch(filter.Apply{Criteria: criteria})
	d := dashboard.New(newClient(), dashboard.Options{Filters: store, PageSize: limit, PageSizes: cfg.UI.PageSizes})
	defer d.Close()
	if err := d.List.SetPageSize(limit); err != nil {
		return err
	}
	if sortBy != "" {
		d.List.ToggleSort(sortBy)
		if desc {
			d.List.ToggleSort(sortBy)
		}
	}

	logger.Debug("listing verifications", zap.Any("params", criteria.Params()), zap.Int("page", page))
	if err := d.List.Load(ctx); err != nil {
		return err
	}
	if page > 1 {
		d.List.SetPage(page)
		if err := d.List.Load(ctx); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	renderRecords(w, d.List.Items(), time.Now())
	from, to, total := d.List.Range()
	fmt.Fprintf(w, "عرض %d-%d من %d (صفحة %d/%d)\n", from, to, total, d.List.Page(), d.List.PageCount())
	return nil
}

func renderRecords(w io.Writer, records []types.Record, today time.Time) {
	table := ui.NewTable("", []string{"المعرف", "اسم العميل", "رقم الوكالة", "الجائزة", "الاستحقاق", "الحالة", "منشور"})
	for i, r := range records {
		prize := r.PrizeAmount.String()
		if r.PrizeType.IsDeposit() {
			prize = r.DepositBonusPercentage.String() + "%"
		}
		act := dashboard.Actions(r, today)
		due := r.PrizeDueDate
		if act.Overdue {
			due += " !"
			table.Alert[i] = true
		}
		table.AddRow(r.ID, r.ClientName, r.AgencyID, prize, due, string(r.Status), yesNo(r.PrizePublishedOnGroup))
	}
	fmt.Fprint(w, table.View(plainStyles(), "لا توجد سجلات مطابقة."))
}

func newEditor() *verification.Editor {
	return verification.NewEditor(newClient(), verification.Options{
		Debounce:    cfg.GetAutosaveDebounce(),
		SaveTimeout: cfg.GetAPITimeout(),
		Notify:      notify.NewQueue(clock.Real(), cfg.UI.GetNotificationTTL()),
		Audit:       logging.Audit(operator()),
	})
}

func newVerification(cmd *cobra.Command, args []string) error {
	return applyEdits(cmd, "")
}

func editVerification(cmd *cobra.Command, args []string) error {
	return applyEdits(cmd, args[0])
}

func applyEdits(cmd *cobra.Command, id string) error {
	sets, _ := cmd.Flags().GetStringArray("set")
	edits, err := parseSets(sets)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	e := newEditor()
	defer func() {
		e.Close()
		e.Wait()
	}()
	if err := e.Open(ctx, id); err != nil {
		return err
	}
	for _, ed := range edits {
		if err := e.Set(ed.field, ed.value); err != nil {
			return err
		}
	}
	if err := e.Save(ctx); err != nil {
		printNotes(cmd.ErrOrStderr(), e.Notifications())
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", e.Record().ID)
	for _, f := range types.EditableFields {
		if msg, ok := e.FieldErrors()[f]; ok {
			fmt.Fprintf(w, "  %s: %s\n", f.Label(), msg)
		}
	}
	return nil
}

type edit struct {
	field types.Field
	value any
}

// parseSets turns field=value pairs into typed edits.
func parseSets(sets []string) ([]edit, error) {
	known := make(map[types.Field]bool, len(types.EditableFields))
	for _, f := range types.EditableFields {
		known[f] = true
	}
	out := make([]edit, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want field=value", s)
		}
		f := types.Field(strings.TrimSpace(name))
		if !known[f] {
			return nil, fmt.Errorf("--set %q: unknown field %q", s, name)
		}
		if f.IsBool() {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("--set %q: %s expects true or false", s, f)
			}
			out = append(out, edit{f, b})
			continue
		}
		out = append(out, edit{f, value})
	}
	return out, nil
}

func showVerification(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	rec, err := newClient().GetVerification(ctx, args[0])
	if err != nil {
		return err
	}
	rec = rec.WithDefaults()

	w := cmd.OutOrStdout()
	table := ui.NewTable(rec.ID, []string{"الحقل", "القيمة"})
	for _, f := range types.EditableFields {
		table.AddRow(f.Label(), rec.Get(f))
	}
	table.AddRow("الحالة", string(rec.Status))
	table.AddRow("منشور في الجروب", yesNo(rec.PrizePublishedOnGroup))
	table.AddRow("آخر تحديث", rec.UpdatedAt)
	fmt.Fprint(w, table.View(plainStyles(), ""))

	rd := verification.Check(rec)
	if rd.Ready() {
		fmt.Fprintln(w, "جاهز للنشر.")
		return nil
	}
	for _, f := range types.EditableFields {
		if msg, ok := rd.Errors[f]; ok {
			fmt.Fprintf(w, "  %s: %s\n", f.Label(), msg)
		}
	}
	for _, m := range rd.Missing {
		fmt.Fprintf(w, "  - %s\n", m)
	}
	return nil
}

func deleteVerifications(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd, dashboard.DeleteConfirmMessage(len(args))) {
		return errors.New("aborted")
	}

	ctx, cancel := commandContext()
	defer cancel()

	d := dashboard.New(newClient(), dashboard.Options{Audit: logging.Audit(operator())})
	defer d.Close()
	for _, id := range args {
		d.List.Toggle(id)
	}
	n, err := d.BulkDelete(ctx)
	printNotes(cmd.ErrOrStderr(), d.Notifications())
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
	return err
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "نعم":
		return true
	}
	return false
}

func publishVerification(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	e := newEditor()
	defer func() {
		e.Close()
		e.Wait()
	}()
	if err := e.Open(ctx, args[0]); err != nil {
		return err
	}
	err := e.ConfirmPublish(ctx)
	printNotes(cmd.ErrOrStderr(), e.Notifications())
	return err
}

func togglePublish(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client := newClient()
	rec, err := client.GetVerification(ctx, args[0])
	if err != nil {
		return err
	}
	d := dashboard.New(client, dashboard.Options{Audit: logging.Audit(operator())})
	defer d.Close()
	err = d.TogglePublish(ctx, rec.WithDefaults())
	printNotes(cmd.ErrOrStderr(), d.Notifications())
	return err
}

func generateKlisha(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	e := newEditor()
	defer func() {
		e.Close()
		e.Wait()
	}()
	if err := e.Open(ctx, args[0]); err != nil {
		return err
	}
	msg, err := e.GenerateMessage(ctx)
	if err != nil {
		printNotes(cmd.ErrOrStderr(), e.Notifications())
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)

	if copyIt, _ := cmd.Flags().GetBool("copy"); copyIt {
		if err := clipboardWriteAll(msg); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "تم نسخ الكليشة.")
	}
	return nil
}
