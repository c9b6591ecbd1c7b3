package shell

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedesk/internal/api"
	"prizedesk/internal/apitest"
	"prizedesk/internal/clock"
	"prizedesk/internal/config"
	"prizedesk/internal/listing"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/settings"
	"prizedesk/internal/types"
	"prizedesk/internal/verification"
)

var start = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

type harness struct {
	backend *apitest.Backend
	clock   *clock.Fake
	m       Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := apitest.New()
	url := b.Start(t)
	ws := t.TempDir()

	mgr := settings.NewManager(filepath.Join(ws, ".prizedesk", "settings.yaml"))
	require.NoError(t, mgr.Load())

	fake := clock.NewFake(start)
	m := New(Deps{
		Client:    api.New(url, api.WithTimeout(5*time.Second)),
		Config:    config.DefaultConfig(),
		Settings:  mgr,
		Workspace: ws,
		Clock:     fake,
	})
	t.Cleanup(m.Close)

	h := &harness{backend: b, clock: fake, m: m}
	h.send(t, tea.WindowSizeMsg{Width: 140, Height: 40})
	return h
}

// send delivers msg and returns the resulting command.
func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

// press sends each key; names like "enter" map to special keys, anything
// else is typed as runes. It returns the last command.
func (h *harness) press(t *testing.T, keys ...string) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.send(t, keyMsg(k))
	}
	return cmd
}

// run executes cmd and feeds its message back into the model.
func (h *harness) run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		h.send(t, msg)
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("command did not finish")
		return nil
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func completeRecord() types.Record {
	return types.Record{
		ClientName:                "أحمد محمود",
		Email:                     "ahmed.trader@example.com",
		AccountNumber:             "778812",
		AgencyID:                  "4521",
		AgentName:                 "سامي",
		PrizeType:                 types.PrizeTrading,
		PrizeAmount:               150,
		PrizeDueDate:              "2025-03-10",
		NameVerified:              true,
		CRMAccountValid:           true,
		AgencyAffiliationVerified: true,
		MT5ScreenshotReceived:     true,
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func TestView_BeforeResize(t *testing.T) {
	h := newHarness(t)
	h.m.ready = false
	assert.Equal(t, "Initializing...", h.m.View())
}

func TestUpdate_WindowSize(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 140, h.m.width)
	assert.Equal(t, 40, h.m.height)

	h.send(t, tea.WindowSizeMsg{Width: -1, Height: -1})
	assert.Equal(t, 0, h.m.width)
	assert.True(t, h.m.layout.Collapsed, "narrow terminals collapse the sidebar")
}

func TestSidebarCollapse(t *testing.T) {
	h := newHarness(t)
	h.press(t, "b")
	assert.True(t, h.m.collapsed)
	assert.True(t, h.m.layout.Collapsed)
	h.press(t, "b")
	assert.False(t, h.m.collapsed)
}

func TestThemeToggle_Persists(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, settings.ThemeLight, h.m.deps.Settings.Get().Theme)

	h.press(t, "t")
	assert.Equal(t, settings.ThemeDark, h.m.deps.Settings.Get().Theme)
	assert.True(t, h.m.styles.Theme.IsDark)
}

func TestSettingsChangedOnDisk(t *testing.T) {
	h := newHarness(t)

	other := settings.NewManager(h.m.deps.Settings.Path())
	require.NoError(t, other.Load())
	s := other.Get()
	s.Theme = settings.ThemeDark
	require.NoError(t, other.Save(s))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-h.m.rt.events:
			if _, ok := ev.(settingsReloadedMsg); !ok {
				continue
			}
			require.NotNil(t, h.send(t, ev))
			assert.True(t, h.m.styles.Theme.IsDark)
			assert.Equal(t, settings.ThemeDark, h.m.settingsDraft.Theme)
			return
		case <-deadline:
			t.Fatal("reload never reached the shell")
		}
	}
}

func TestCtrlCQuits(t *testing.T) {
	h := newHarness(t)
	cmd := h.press(t, "ctrl+c")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_RefreshRendersRows(t *testing.T) {
	h := newHarness(t)
	h.backend.AddRecord(types.Record{ClientName: "سارة", Status: types.StatusCompleted})
	h.backend.AddRecord(types.Record{ClientName: "خالد"})

	h.run(t, h.m.refresh(PageDashboard))
	view := h.m.View()
	assert.Contains(t, view, "سارة")
	assert.Contains(t, view, "خالد")
	assert.Contains(t, view, "عرض 1-2 من 2")
	assert.False(t, h.m.busy())
}

func TestDashboard_FilterDialog(t *testing.T) {
	h := newHarness(t)
	h.backend.AddRecord(types.Record{ClientName: "سارة"})
	h.backend.AddRecord(types.Record{ClientName: "خالد"})

	h.press(t, "f")
	require.Equal(t, ModalFilter, h.m.modal)
	h.press(t, "سارة")
	cmd := h.press(t, "enter")
	assert.Equal(t, ModalNone, h.m.modal)
	assert.Equal(t, "سارة", h.m.filters.Get().Query)

	h.run(t, cmd)
	require.Len(t, h.m.dash.List.Items(), 1)
	assert.Equal(t, "سارة", h.m.dash.List.Items()[0].ClientName)

	h.press(t, "c")
	assert.True(t, h.m.filters.Get().IsDefault())
}

func TestDashboard_FilterDialogRejectsBadDate(t *testing.T) {
	h := newHarness(t)
	h.press(t, "f", "up")
	require.Equal(t, rowDueDate, h.m.dialogRow)
	h.press(t, "10/03/2025", "enter")

	assert.Equal(t, ModalFilter, h.m.modal)
	assert.NotEmpty(t, h.m.dialogErr)
	assert.Empty(t, h.m.filters.Get().DueDate)

	h.press(t, "esc")
	assert.Equal(t, ModalNone, h.m.modal)
}

func TestDashboard_DeleteAsksFirst(t *testing.T) {
	h := newHarness(t)
	h.backend.AddRecord(types.Record{ClientName: "سارة"})
	h.run(t, h.m.refresh(PageDashboard))

	h.press(t, "x")
	require.Equal(t, ModalConfirm, h.m.modal)
	h.press(t, "n")
	assert.Equal(t, ModalNone, h.m.modal)
	assert.Equal(t, 1, h.backend.RecordCount())

	h.press(t, "x")
	cmd := h.press(t, "y")
	msg := h.run(t, cmd)
	require.IsType(t, opDoneMsg{}, msg)
	assert.NoError(t, msg.(opDoneMsg).err)
	assert.Equal(t, 0, h.backend.RecordCount())
}

func TestDashboard_BulkDelete(t *testing.T) {
	h := newHarness(t)
	for _, n := range []string{"a", "b", "c"} {
		h.backend.AddRecord(types.Record{ClientName: n})
	}
	h.run(t, h.m.refresh(PageDashboard))

	h.press(t, "a")
	require.Len(t, h.m.dash.List.Selected(), 3)
	h.press(t, "D")
	require.Equal(t, ModalConfirm, h.m.modal)
	h.run(t, h.press(t, "y"))
	assert.Equal(t, 0, h.backend.RecordCount())
	assert.Empty(t, h.m.dash.List.Selected())
}

func TestDashboard_AutoRefreshCycles(t *testing.T) {
	h := newHarness(t)
	intervals := h.m.deps.Config.UI.GetRefreshIntervals()

	h.press(t, "A")
	assert.Equal(t, intervals[0], h.m.dash.AutoRefresh())
	for range intervals[1:] {
		h.press(t, "A")
	}
	h.press(t, "A")
	assert.Zero(t, h.m.dash.AutoRefresh())
}

func TestDashboard_Export(t *testing.T) {
	h := newHarness(t)
	var gotPath string
	orig := exportToFile
	exportToFile = func(ctx context.Context, client listing.VerificationLister, p api.ListParams, path string) (int, error) {
		gotPath = path
		return 7, nil
	}
	t.Cleanup(func() { exportToFile = orig })

	h.run(t, h.press(t, "e"))
	assert.Contains(t, gotPath, "verifications-2025-03-05")
	items := h.m.dash.Notifications().Items()
	require.NotEmpty(t, items)
	assert.Contains(t, items[len(items)-1].Message, "7")

	exportToFile = func(context.Context, listing.VerificationLister, api.ListParams, string) (int, error) {
		return 0, errors.New("disk full")
	}
	h.run(t, h.press(t, "e"))
	items = h.m.dash.Notifications().Items()
	assert.Equal(t, msgExportFailed, items[len(items)-1].Message)
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestEditor_NewEditLeave(t *testing.T) {
	h := newHarness(t)

	cmd := h.press(t, "n")
	assert.Equal(t, PageVerification, h.m.page)
	h.run(t, cmd)
	require.NotNil(t, h.m.editor)
	require.Equal(t, verification.Editing, h.m.editor.State())
	id := h.m.editor.Record().ID

	h.press(t, "enter")
	require.Equal(t, ModalEditField, h.m.modal)
	h.press(t, "سارة", "enter")
	assert.Equal(t, "سارة", h.m.editor.Record().ClientName)

	// Checklist rows toggle in place.
	for h.m.cursor[PageVerification] < 11 {
		h.press(t, "j")
	}
	require.Equal(t, types.FieldNameVerified, types.EditableFields[11])
	h.press(t, "enter")
	assert.True(t, h.m.editor.Record().NameVerified)

	h.run(t, h.press(t, "esc"))
	assert.Equal(t, PageDashboard, h.m.page)
	assert.Nil(t, h.m.editor)

	rec, ok := h.backend.Record(id)
	require.True(t, ok)
	assert.Equal(t, "سارة", rec.ClientName)
	assert.True(t, rec.NameVerified)
}

func TestEditor_KlishaAndPublishRedirects(t *testing.T) {
	h := newHarness(t)
	rec := h.backend.AddRecord(completeRecord())
	h.run(t, h.m.refresh(PageDashboard))

	h.run(t, h.press(t, "enter"))
	require.Equal(t, verification.Editing, h.m.editor.State())

	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWriteAll = orig })

	h.run(t, h.press(t, "g"))
	require.Equal(t, ModalMessage, h.m.modal)
	h.press(t, "c")
	assert.Contains(t, copied, "أحمد محمود")

	msg := h.run(t, h.press(t, "p"))
	require.NoError(t, msg.(opDoneMsg).err)
	assert.Equal(t, verification.Published, h.m.editor.State())
	stored, _ := h.backend.Record(rec.ID)
	assert.True(t, stored.PrizePublishedOnGroup)

	// The redirect callback blocks until the event loop takes it.
	go h.clock.Advance(h.m.deps.Config.UI.GetPublishRedirectDelay())
	deadline := time.After(2 * time.Second)
	for redirected := false; !redirected; {
		select {
		case ev := <-h.m.rt.events:
			_, redirected = ev.(redirectMsg)
		case <-deadline:
			t.Fatal("no redirect")
		}
	}
	cmd := h.send(t, redirectMsg{})
	require.NotNil(t, cmd)
	left := h.m.leaveEditor(PageDashboard)()
	require.IsType(t, editorLeftMsg{}, left)
	assert.NoError(t, left.(editorLeftMsg).err, "a published record has nothing left to save")
	h.send(t, left)
	assert.Equal(t, PageDashboard, h.m.page)
}

func TestEditor_LeaveReportsFailedSave(t *testing.T) {
	h := newHarness(t)
	h.run(t, h.press(t, "n"))
	require.Equal(t, verification.Editing, h.m.editor.State())

	h.press(t, "enter", "سارة", "enter")
	h.backend.FailNext(http.MethodPut, "/verifications", http.StatusInternalServerError, 1)

	msg := h.run(t, h.press(t, "esc"))
	require.IsType(t, editorLeftMsg{}, msg)
	assert.Error(t, msg.(editorLeftMsg).err)

	assert.Equal(t, PageDashboard, h.m.page)
	assert.Error(t, h.m.lastErr)
	var messages []string
	for _, n := range h.m.dash.Notifications().Items() {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, msgLeaveSaveFailed)
}

func TestApplySettingsFailureIsShown(t *testing.T) {
	logging.CloseAudit()
	t.Cleanup(logging.CloseAudit)

	dir := t.TempDir()
	mgr := settings.NewManager(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, mgr.Load())
	s := mgr.Get()
	s.SecurityLogging = true
	require.NoError(t, mgr.Save(s))

	// A file where the workspace directory should be makes the audit log
	// impossible to open.
	ws := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(ws, []byte("x"), 0644))

	b := apitest.New()
	m := New(Deps{
		Client:    api.New(b.Start(t)),
		Config:    config.DefaultConfig(),
		Settings:  mgr,
		Workspace: ws,
		Clock:     clock.NewFake(start),
	})
	t.Cleanup(m.Close)

	items := m.settingsQ.Items()
	require.NotEmpty(t, items)
	assert.Equal(t, notify.Error, items[len(items)-1].Severity)
	assert.Contains(t, items[len(items)-1].Message, "تعذر تطبيق الإعدادات")
	assert.False(t, logging.AuditEnabled())
}

// =============================================================================
// PENDING
// =============================================================================

func TestPending_AddIssueModal(t *testing.T) {
	h := newHarness(t)
	h.run(t, h.press(t, "3"))
	require.Equal(t, PagePending, h.m.page)

	h.press(t, "n")
	require.Equal(t, ModalAddIssue, h.m.modal)
	h.press(t, "سارة", "tab", "@sara", "tab", "تأخر التحويل")
	cmd := h.press(t, "ctrl+s")
	assert.Equal(t, ModalNone, h.m.modal)
	h.run(t, cmd)

	issues := h.backend.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "@sara", issues[0].ClientID)
	assert.Contains(t, h.m.View(), "سارة")
}

func TestPending_DigestModal(t *testing.T) {
	h := newHarness(t)
	h.backend.AddIssue(types.PendingIssue{ClientName: "سارة", ClientID: "@sara", Description: "x"})
	h.backend.AddIssue(types.PendingIssue{ClientName: "خالد", ClientID: "@khaled", Description: "y"})
	h.run(t, h.press(t, "3"))

	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWriteAll = orig })

	h.press(t, "g")
	require.Equal(t, ModalMessage, h.m.modal)
	require.Equal(t, messageDigest, h.m.messageKind)
	h.press(t, "c")
	assert.Contains(t, copied, "قائمة المعلقات")

	h.run(t, h.press(t, "y"))
	for _, is := range h.backend.Issues() {
		assert.True(t, is.IsSentToGroup)
	}
	_, pending := h.m.board.CurrentDigest()
	assert.False(t, pending)
}

func TestPending_ResolveAsksFirst(t *testing.T) {
	h := newHarness(t)
	is := h.backend.AddIssue(types.PendingIssue{ClientName: "سارة", ClientID: "@sara", Description: "x"})
	h.run(t, h.press(t, "3"))

	h.press(t, "enter")
	require.Equal(t, ModalConfirm, h.m.modal)
	h.run(t, h.press(t, "y"))

	for _, got := range h.backend.Issues() {
		if got.ID == is.ID {
			assert.Equal(t, types.IssueResolved, got.Status)
		}
	}
}

// =============================================================================
// SETTINGS AND HELP
// =============================================================================

func TestSettings_EditSaveAndValidate(t *testing.T) {
	h := newHarness(t)
	h.press(t, "4")
	require.Equal(t, PageSettings, h.m.page)

	h.press(t, "j", "j")
	require.Equal(t, "autosave_minutes", settings.Keys[h.m.cursor[PageSettings]])
	h.press(t, "enter")
	require.Equal(t, ModalEditField, h.m.modal)
	h.m.fieldInput.SetValue("9")
	h.press(t, "enter", "ctrl+s")
	assert.Equal(t, 9, h.m.deps.Settings.Get().AutosaveMinutes)

	h.press(t, "enter")
	h.m.fieldInput.SetValue("0")
	h.press(t, "enter", "ctrl+s")
	assert.Equal(t, 9, h.m.deps.Settings.Get().AutosaveMinutes)
	var messages []string
	for _, n := range h.m.settingsQ.Items() {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, settings.MsgSaveFailed)

	h.press(t, "R", "y")
	assert.Equal(t, settings.Defaults().AutosaveMinutes, h.m.deps.Settings.Get().AutosaveMinutes)
}

func TestHelpModal(t *testing.T) {
	h := newHarness(t)
	h.press(t, "?")
	require.Equal(t, ModalHelp, h.m.modal)
	assert.NotEmpty(t, h.m.View())
	h.press(t, "esc")
	assert.Equal(t, ModalNone, h.m.modal)
}

func TestNavigateCycles(t *testing.T) {
	assert.Equal(t, PagePublished, nextNav(PageDashboard))
	assert.Equal(t, PageDashboard, nextNav(PageSettings))
	assert.Equal(t, PageDashboard, nextNav(PageVerification))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "سا…", truncate("سارة محمد", 3))
}
