package main

import (
	"fmt"
	"io"
	"strings"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/filter"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
)

// printNotes writes the queued notifications to w and clears the queue.
func printNotes(w io.Writer, q *notify.Queue) {
	if q == nil {
		return
	}
	for _, n := range q.Items() {
		fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
	}
	q.Clear()
}

func plainStyles() ui.Styles {
	if settingsMgr != nil {
		return ui.NewStyles(ui.ThemeByName(string(settingsMgr.Get().Theme)))
	}
	return ui.DefaultStyles()
}

// operator is the admin email recorded on audit events.
func operator() string {
	if settingsMgr == nil {
		return ""
	}
	return settingsMgr.Get().AdminEmail
}

func yesNo(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

// parseStatus maps a CLI status word to its wire value.
func parseStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", types.All:
		return types.All, nil
	case "in-progress", "progress", string(types.StatusInProgress):
		return string(types.StatusInProgress), nil
	case "completed", "done", string(types.StatusCompleted):
		return string(types.StatusCompleted), nil
	}
	return "", fmt.Errorf("unknown status %q (want all, in-progress or completed)", s)
}

// parsePublished maps a CLI published word to the filter value.
func parsePublished(s string) (filter.Published, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return filter.PublishedAny, nil
	case "yes", "true":
		return filter.PublishedYes, nil
	case "no", "false":
		return filter.PublishedNo, nil
	}
	return "", fmt.Errorf("unknown published value %q (want any, yes or no)", s)
}

// parseIssueStatus maps a CLI pending status word to its wire value.
func parseIssueStatus(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open", string(types.IssueOpen):
		return string(types.IssueOpen), nil
	case "resolved", string(types.IssueResolved):
		return string(types.IssueResolved), nil
	case "all", types.All:
		return types.All, nil
	}
	return "", fmt.Errorf("unknown pending status %q (want open, resolved or all)", s)
}
