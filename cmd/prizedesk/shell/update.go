package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/dashboard"
	"prizedesk/internal/filter"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/pending"
	"prizedesk/internal/settings"
	"prizedesk/internal/types"
	"prizedesk/internal/verification"
)

const (
	msgExported        = "تم تصدير %d سجل إلى %s"
	msgExportFailed    = "فشل في تصدير البيانات."
	msgCopied          = "تم النسخ إلى الحافظة."
	msgCopyFailed      = "فشل في النسخ إلى الحافظة."
	msgThemeFailed     = "فشل في حفظ المظهر."
	msgLeaveSaveFailed = "فشل حفظ آخر التعديلات قبل مغادرة صفحة التحقق."
	msgApplyFailed     = "تعذر تطبيق الإعدادات: %v"
	publishConfirm     = "تأكيد نشر الجائزة وإكمال التحقق؟"
)

// Update routes messages to the active page or modal.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tick()

	case notesChangedMsg:
		return m, listen(m.rt)

	case settingsReloadedMsg:
		m.applyTheme()
		m.applySettings(msg.settings)
		if m.page != PageSettings {
			m.settingsDraft = msg.settings
		}
		return m, listen(m.rt)

	case redirectMsg:
		if m.page == PageVerification {
			return m, tea.Batch(listen(m.rt), m.leaveEditor(PageDashboard))
		}
		return m, listen(m.rt)

	case refreshedMsg:
		m.done(msg.err)
		m.clampCursor()
		return m, nil

	case opDoneMsg:
		m.done(msg.err)
		logging.UI("%s on page %d: err=%v", msg.op, msg.page, msg.err)
		m.clampCursor()
		return m, nil

	case editorOpenedMsg:
		m.done(msg.err)
		return m, nil

	case editorLeftMsg:
		m.dropEditor()
		m.page = msg.to
		m.clampCursor()
		if msg.err != nil {
			logging.Get(logging.CategoryVerification).Error("final save failed: %v", msg.err)
			m.lastErr = msg.err
			m.notes().Push(msgLeaveSaveFailed, notify.Error)
		}
		return m, m.async(m.refresh(msg.to))

	case klishaMsg:
		m.done(msg.err)
		if msg.err == nil {
			m.openMessage(messageKlisha, msg.text)
		}
		return m, nil

	case exportedMsg:
		m.done(msg.err)
		if msg.err != nil {
			m.dash.Notifications().Push(msgExportFailed, notify.Error)
		} else {
			m.dash.Notifications().Push(fmt.Sprintf(msgExported, msg.n, msg.path), notify.Success)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	m.width, m.height = w, h
	m.ready = true
	m.layout = ui.NewLayoutConfig(w, h, m.collapsed)

	mw := m.layout.ModalWidth() - 4
	mh := m.layout.ContentHeight() - 8
	if mw < 20 {
		mw = 20
	}
	if mh < 5 {
		mh = 5
	}
	m.message.Width, m.message.Height = mw, mh
	m.help.Width, m.help.Height = mw, mh
}

// async marks the shell busy until the command's result arrives.
func (m Model) async(cmd tea.Cmd) tea.Cmd {
	m.rt.busy.Add(1)
	return cmd
}

func (m *Model) done(err error) {
	if m.rt.busy.Add(-1) < 0 {
		m.rt.busy.Store(0)
	}
	m.lastErr = err
}

func (m Model) busy() bool { return m.rt.busy.Load() > 0 }

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.Close()
		return m, tea.Quit
	}
	if m.modal != ModalNone {
		return m.handleModalKey(msg)
	}

	switch key := msg.String(); key {
	case "q":
		m.Close()
		return m, tea.Quit
	case "?":
		m.openHelp()
		return m, nil
	case "b":
		m.collapsed = !m.collapsed
		m.layout = ui.NewLayoutConfig(m.width, m.height, m.collapsed)
		return m, nil
	case "t":
		if _, err := m.deps.Settings.ToggleTheme(); err != nil {
			m.notes().Push(msgThemeFailed, notify.Error)
		}
		m.settingsDraft.Theme = m.deps.Settings.Get().Theme
		m.applyTheme()
		return m, nil
	case "1", "2", "3", "4":
		return m.navigate(navPages[int(key[0]-'1')])
	case "tab":
		return m.navigate(nextNav(m.page))
	case "up", "k":
		m.cursor[m.page]--
		m.clampCursor()
		return m, nil
	case "down", "j":
		m.cursor[m.page]++
		m.clampCursor()
		return m, nil
	}

	switch m.page {
	case PageDashboard, PagePublished:
		return m.handleListKey(msg.String())
	case PageVerification:
		return m.handleEditorKey(msg.String())
	case PagePending:
		return m.handlePendingKey(msg.String())
	case PageSettings:
		return m.handleSettingsKey(msg.String())
	}
	return m, nil
}

func nextNav(cur Page) Page {
	for i, p := range navPages {
		if p == cur {
			return navPages[(i+1)%len(navPages)]
		}
	}
	return navPages[0]
}

// navigate switches pages, writing the editor's draft first when leaving it.
func (m Model) navigate(p Page) (tea.Model, tea.Cmd) {
	if m.page == p {
		return m, nil
	}
	if m.page == PageVerification {
		return m, m.leaveEditor(p)
	}
	m.page = p
	m.clampCursor()
	logging.UI("navigate to %s", p.Title())
	if p == PageSettings {
		m.settingsDraft = m.deps.Settings.Get()
		return m, nil
	}
	return m, m.async(m.refresh(p))
}

func (m *Model) confirm(text string, action func(*Model) tea.Cmd) {
	m.modal = ModalConfirm
	m.confirmText = text
	m.confirmAction = action
}

// handleListKey serves the dashboard and the published view.
func (m Model) handleListKey(key string) (tea.Model, tea.Cmd) {
	list := m.dash.List
	if m.page == PagePublished {
		list = m.published.List
	}
	reload := func() (tea.Model, tea.Cmd) { return m, m.async(m.refresh(m.page)) }

	switch key {
	case "enter":
		if r, ok := m.selectedRecord(); ok {
			cmd := m.openEditor(r.ID)
			return m, cmd
		}
	case "n":
		cmd := m.openEditor("")
		return m, cmd
	case "right", "l":
		list.Next()
		return reload()
	case "left", "h":
		list.Prev()
		return reload()
	case "home", "g":
		list.First()
		return reload()
	case "end", "G":
		list.Last()
		return reload()
	case "z":
		list.CyclePageSize()
		return reload()
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(sortColumns)
		list.ToggleSort(sortColumns[m.sortIdx])
		return reload()
	case "S":
		list.ToggleSort(sortColumns[m.sortIdx])
		return reload()
	case "r":
		return reload()
	case "f":
		m.openFilter()
		return m, nil
	case "/":
		m.modal = ModalSearch
		m.fieldInput.SetValue(m.filters.Get().Query)
		m.fieldInput.Placeholder = "بحث..."
		m.fieldInput.Focus()
		return m, nil
	case "c":
		if m.dash.Dispatch(filter.Reset{}) {
			m.published.List.ResetPage()
			return reload()
		}
	case "x", "delete":
		r, ok := m.selectedRecord()
		if !ok {
			return m, nil
		}
		if m.page == PagePublished {
			m.confirm(dashboard.DeleteConfirmMessage(1), func(m *Model) tea.Cmd {
				return m.async(m.run(PagePublished, "delete", func(ctx context.Context) error {
					return m.published.Delete(ctx, r.ID)
				}))
			})
			return m, nil
		}
		m.confirm(dashboard.DeleteConfirmMessage(1), func(m *Model) tea.Cmd {
			return m.async(m.run(PageDashboard, "delete", func(ctx context.Context) error {
				return m.dash.Delete(ctx, r.ID)
			}))
		})
		return m, nil
	}

	if m.page != PageDashboard {
		return m, nil
	}
	switch key {
	case " ":
		if r, ok := m.selectedRecord(); ok {
			list.Toggle(r.ID)
		}
	case "a":
		list.SelectAll()
	case "D":
		n := len(list.Selected())
		if n == 0 {
			return m, nil
		}
		m.confirm(dashboard.DeleteConfirmMessage(n), func(m *Model) tea.Cmd {
			return m.async(m.run(PageDashboard, "bulk delete", func(ctx context.Context) error {
				_, err := m.dash.BulkDelete(ctx)
				return err
			}))
		})
	case "p":
		r, ok := m.selectedRecord()
		if !ok {
			return m, nil
		}
		if !dashboard.Actions(r, m.deps.Clock.Now()).CanTogglePublish {
			return m, m.async(m.run(PageDashboard, "publish", func(ctx context.Context) error {
				return m.dash.TogglePublish(ctx, r)
			}))
		}
		m.confirm(dashboard.PublishConfirmMessage(r), func(m *Model) tea.Cmd {
			return m.async(m.run(PageDashboard, "publish", func(ctx context.Context) error {
				return m.dash.TogglePublish(ctx, r)
			}))
		})
	case "A":
		intervals := m.deps.Config.UI.GetRefreshIntervals()
		m.refreshIdx++
		if m.refreshIdx >= len(intervals) {
			m.refreshIdx = -1
			m.dash.SetAutoRefresh(0)
		} else {
			m.dash.SetAutoRefresh(intervals[m.refreshIdx])
		}
	case "e":
		return m, m.async(m.exportFile())
	}
	return m, nil
}

func (m Model) handleEditorKey(key string) (tea.Model, tea.Cmd) {
	e := m.editor
	if e == nil {
		return m, nil
	}
	switch key {
	case "esc":
		return m, m.leaveEditor(m.prev)
	case "r":
		if e.State() == verification.LoadFailed {
			cmd := m.openEditor(e.Record().ID)
			return m, cmd
		}
	case "ctrl+s":
		return m, m.async(m.run(PageVerification, "save", e.Save))
	case "g":
		return m, m.async(m.generateKlisha())
	case "p":
		m.confirm(publishConfirm, func(m *Model) tea.Cmd {
			return m.async(m.run(PageVerification, "publish", e.ConfirmPublish))
		})
	case "enter", " ":
		if e.State() != verification.Editing {
			return m, nil
		}
		f := types.EditableFields[m.cursor[PageVerification]]
		rec := e.Record()
		switch {
		case f.IsBool():
			_ = e.Set(f, rec.Get(f) != "true")
		case f == types.FieldPrizeType:
			next := types.PrizeDeposit
			if rec.PrizeType.IsDeposit() {
				next = types.PrizeTrading
			}
			_ = e.Set(f, string(next))
		default:
			m.openFieldEdit(string(f), rec.Get(f))
		}
	}
	return m, nil
}

func (m Model) handlePendingKey(key string) (tea.Model, tea.Cmd) {
	b := m.board
	reload := func() (tea.Model, tea.Cmd) { return m, m.async(m.refresh(PagePending)) }

	switch key {
	case "f":
		b.CycleStatusFilter()
		return reload()
	case "r":
		return reload()
	case "right", "l":
		b.List.Next()
		return reload()
	case "left", "h":
		b.List.Prev()
		return reload()
	case "z":
		b.List.CyclePageSize()
		return reload()
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(issueSortColumns)
		b.List.ToggleSort(issueSortColumns[m.sortIdx])
		return reload()
	case "S":
		b.List.ToggleSort(issueSortColumns[m.sortIdx%len(issueSortColumns)])
		return reload()
	case "n":
		m.openAddIssue()
	case " ":
		if is, ok := m.selectedIssue(); ok {
			b.List.Toggle(is.ID)
		}
	case "a":
		b.List.SelectAll()
	case "v", "enter":
		is, ok := m.selectedIssue()
		if !ok || is.Status == types.IssueResolved {
			return m, nil
		}
		m.confirm(pending.ResolveConfirmMessage, func(m *Model) tea.Cmd {
			return m.async(m.run(PagePending, "resolve", func(ctx context.Context) error {
				return b.Resolve(ctx, is.ID)
			}))
		})
	case "x", "delete":
		is, ok := m.selectedIssue()
		if !ok {
			return m, nil
		}
		m.confirm(pending.DeleteConfirmMessage, func(m *Model) tea.Cmd {
			return m.async(m.run(PagePending, "delete", func(ctx context.Context) error {
				return b.Delete(ctx, is.ID)
			}))
		})
	case "D":
		if len(b.List.Selected()) == 0 {
			return m, nil
		}
		m.confirm(pending.DeleteConfirmMessage, func(m *Model) tea.Cmd {
			return m.async(m.run(PagePending, "bulk delete", func(ctx context.Context) error {
				_, err := b.BulkDelete(ctx)
				return err
			}))
		})
	case "g":
		d, err := b.GenerateDigest()
		if err == nil {
			m.openMessage(messageDigest, d.Text)
		}
	}
	return m, nil
}

// issueSortColumns are the pending table's sortable columns.
var issueSortColumns = []string{"created_at", "client_name", "client_id", "status", "is_sent_to_group"}

func (m Model) handleSettingsKey(key string) (tea.Model, tea.Cmd) {
	k := settings.Keys[m.cursor[PageSettings]]
	switch key {
	case "enter", " ":
		d := &m.settingsDraft
		switch k {
		case "notifications_enabled":
			d.NotificationsEnabled = !d.NotificationsEnabled
		case "security_logging":
			d.SecurityLogging = !d.SecurityLogging
		case "theme":
			if d.Theme == settings.ThemeDark {
				d.Theme = settings.ThemeLight
			} else {
				d.Theme = settings.ThemeDark
			}
		case "language":
			if d.Language == settings.LanguageEnglish {
				d.Language = settings.LanguageArabic
			} else {
				d.Language = settings.LanguageEnglish
			}
		case "backup_frequency":
			d.BackupFrequency = nextBackup(d.BackupFrequency)
		default:
			v, _ := d.Get(k)
			m.openFieldEdit(k, v)
		}
	case "ctrl+s":
		m.saveSettings()
	case "R":
		m.confirm(settings.ResetConfirmMsg, func(m *Model) tea.Cmd {
			s, err := m.deps.Settings.Reset()
			if err != nil {
				m.settingsQ.Push(settings.MsgResetFailed, notify.Error)
				return nil
			}
			m.settingsDraft = s
			m.applyTheme()
			m.applySettings(s)
			m.settingsQ.Push(settings.MsgReset, notify.Success)
			return nil
		})
	case "esc":
		m.settingsDraft = m.deps.Settings.Get()
	}
	return m, nil
}

func nextBackup(cur settings.BackupFrequency) settings.BackupFrequency {
	for i, f := range settings.BackupFrequencies {
		if f == cur {
			return settings.BackupFrequencies[(i+1)%len(settings.BackupFrequencies)]
		}
	}
	return settings.BackupFrequencies[0]
}

func (m *Model) saveSettings() {
	if err := m.deps.Settings.Save(m.settingsDraft); err != nil {
		logging.Get(logging.CategorySettings).Warn("save failed: %v", err)
		m.settingsQ.Push(settings.MsgSaveFailed, notify.Error)
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				m.settingsQ.Push(e.Error(), notify.Warning)
			}
		}
		return
	}
	m.applyTheme()
	m.applySettings(m.settingsDraft)
	m.settingsQ.Push(settings.MsgSaved, notify.Success)
}
