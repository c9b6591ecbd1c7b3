package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/clock"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/pending"
	"prizedesk/internal/types"
)

var pendingCmd = &cobra.Command{
	Use:     "pending",
	Aliases: []string{"issues"},
	Short:   "Manage pending issues handed over between shifts",
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending issues",
	RunE:  listPending,
}

var pendingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new pending issue",
	Long: `Records a new pending issue. All three fields are required.

Example:
  prizedesk pending add --name "سارة" --telegram @sara --desc "تأخر تحويل الجائزة"`,
	RunE: addPending,
}

var pendingResolveCmd = &cobra.Command{
	Use:   "resolve [id]",
	Short: "Mark a pending issue as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  resolvePending,
}

var pendingDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete pending issues",
	Args:  cobra.MinimumNArgs(1),
	RunE:  deletePending,
}

var pendingDigestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build the group message of every issue not yet sent",
	Long: `Prints the digest of every issue not yet sent to the group. With --confirm the
captured issues are marked as sent afterwards.`,
	RunE: pendingDigest,
}

func init() {
	pendingListCmd.Flags().String("status", "open", "open, resolved or all")
	pendingAddCmd.Flags().String("name", "", "Client or agent name")
	pendingAddCmd.Flags().String("telegram", "", "Telegram handle")
	pendingAddCmd.Flags().String("desc", "", "Issue description")
	pendingResolveCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	pendingDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	pendingDigestCmd.Flags().String("status", "open", "Issues considered: open, resolved or all")
	pendingDigestCmd.Flags().Bool("confirm", false, "Mark the listed issues as sent")
	pendingDigestCmd.Flags().Bool("copy", false, "Copy the digest to the clipboard")

	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingAddCmd)
	pendingCmd.AddCommand(pendingResolveCmd)
	pendingCmd.AddCommand(pendingDeleteCmd)
	pendingCmd.AddCommand(pendingDigestCmd)
}

func newBoard() *pending.Board {
	c := clock.Real()
	return pending.New(newClient(), pending.Options{
		Clock:     c,
		Notify:    notify.NewQueue(c, cfg.UI.GetNotificationTTL()),
		PageSize:  50,
		PageSizes: []int{50},
		Audit:     logging.Audit(operator()),
	})
}

func listPending(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	wire, err := parseIssueStatus(status)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	b := newBoard()
	defer b.Close()
	b.SetStatusFilter(wire)
	if err := b.Fetch(ctx); err != nil {
		printNotes(cmd.ErrOrStderr(), b.Notifications())
		return err
	}
	renderIssues(cmd.OutOrStdout(), b.Issues())
	return nil
}

func renderIssues(w io.Writer, issues []types.PendingIssue) {
	table := ui.NewTable("", []string{"المعرف", "اسم العميل", "التلجرام", "الوصف", "الحالة", "أُرسلت"})
	for i, is := range issues {
		if is.Status == types.IssueOpen && !is.IsSentToGroup {
			table.Alert[i] = true
		}
		table.AddRow(is.ID, is.ClientName, is.ClientID, is.Description, string(is.Status), yesNo(is.IsSentToGroup))
	}
	fmt.Fprint(w, table.View(plainStyles(), "لا توجد معلقات."))
}

func addPending(cmd *cobra.Command, args []string) error {
	var in types.NewIssue
	in.ClientName, _ = cmd.Flags().GetString("name")
	in.ClientID, _ = cmd.Flags().GetString("telegram")
	in.Description, _ = cmd.Flags().GetString("desc")

	ctx, cancel := commandContext()
	defer cancel()

	b := newBoard()
	defer b.Close()
	created, err := b.Add(ctx, in)
	printNotes(cmd.ErrOrStderr(), b.Notifications())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.ID)
	return nil
}

func resolvePending(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd, pending.ResolveConfirmMessage) {
		return errors.New("aborted")
	}

	ctx, cancel := commandContext()
	defer cancel()

	b := newBoard()
	defer b.Close()
	err := b.Resolve(ctx, args[0])
	printNotes(cmd.ErrOrStderr(), b.Notifications())
	return err
}

func deletePending(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(cmd, pending.DeleteConfirmMessage) {
		return errors.New("aborted")
	}

	ctx, cancel := commandContext()
	defer cancel()

	b := newBoard()
	defer b.Close()
	for _, id := range args {
		b.List.Toggle(id)
	}
	n, err := b.BulkDelete(ctx)
	printNotes(cmd.ErrOrStderr(), b.Notifications())
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d\n", n, len(args))
	return err
}

func pendingDigest(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	wire, err := parseIssueStatus(status)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	b := newBoard()
	defer b.Close()
	b.SetStatusFilter(wire)
	if err := b.Fetch(ctx); err != nil {
		printNotes(cmd.ErrOrStderr(), b.Notifications())
		return err
	}

	d, err := b.GenerateDigest()
	if errors.Is(err, pending.ErrNothingToSend) {
		printNotes(cmd.ErrOrStderr(), b.Notifications())
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), d.Text)

	if copyIt, _ := cmd.Flags().GetBool("copy"); copyIt {
		if err := clipboardWriteAll(d.Text); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	if confirmIt, _ := cmd.Flags().GetBool("confirm"); confirmIt {
		err = b.ConfirmDigestSent(ctx)
		printNotes(cmd.ErrOrStderr(), b.Notifications())
		return err
	}
	return nil
}
