// Package shell is the interactive bubbletea console: dashboard, verification
// editor, published winners, pending issues and settings.
package shell

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/clock"
	"prizedesk/internal/dashboard"
	"prizedesk/internal/filter"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/pending"
	"prizedesk/internal/settings"
	"prizedesk/internal/types"
	"prizedesk/internal/verification"
)

// sortColumns are the dashboard columns the operator can sort by, in cycle order.
var sortColumns = []string{"created_at", "client_name", "agency_id", "prize_due_date", "status"}

// runtime holds the parts of the shell shared by every copy of Model.
type runtime struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg
	busy   atomic.Int32
}

// Model is the root bubbletea model.
type Model struct {
	deps   Deps
	rt     *runtime
	styles ui.Styles
	layout ui.LayoutConfig

	width, height int
	ready         bool
	collapsed     bool

	page Page
	prev Page // page to return to from the verification editor

	filters   *filter.Store
	dash      *dashboard.Dashboard
	published *dashboard.PublishedView
	board     *pending.Board
	editor    *verification.Editor
	unwatch   context.CancelFunc // stops the editor's queue watcher
	settingsQ *notify.Queue

	cursor     map[Page]int
	sortIdx    int
	refreshIdx int // -1 is off
	lastErr    error

	// Modal state
	modal         Modal
	dialog        *filter.Dialog
	dialogRow     int
	dialogErr     string
	queryInput    textinput.Model
	dueInput      textinput.Model
	fieldInput    textinput.Model
	editField     string
	issueInputs   []textinput.Model
	issueFocus    int
	confirmText   string
	confirmAction func(*Model) tea.Cmd
	message       viewport.Model
	messageText   string
	messageKind   messageKind
	help          viewport.Model

	settingsDraft settings.Settings

	spinner spinner.Model
}

// New builds the shell. Call Close when the program exits.
func New(deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	rt := &runtime{ctx: ctx, cancel: cancel, events: make(chan tea.Msg, 16)}

	ttl := deps.Config.UI.GetNotificationTTL()
	pageSize := deps.Config.UI.PageSize
	sizes := deps.Config.UI.PageSizes

	filters := filter.NewStore()
	audit := logging.Audit(deps.Settings.Get().AdminEmail)

	dashQ := notify.NewQueue(deps.Clock, 5*time.Second)
	dashQ.SetSeverityTTL(notify.Error, 0)
	pubQ := notify.NewQueue(deps.Clock, ttl)
	boardQ := notify.NewQueue(deps.Clock, ttl)

	m := Model{
		deps:       deps,
		rt:         rt,
		page:       PageDashboard,
		filters:    filters,
		cursor:     map[Page]int{},
		refreshIdx: -1,
		dash: dashboard.New(deps.Client, dashboard.Options{
			Clock: deps.Clock, Notify: dashQ, Filters: filters,
			PageSize: pageSize, PageSizes: sizes, Audit: audit,
		}),
		published: dashboard.NewPublished(deps.Client, dashboard.Options{
			Clock: deps.Clock, Notify: pubQ, Filters: filters,
			PageSize: pageSize, PageSizes: sizes, Audit: audit,
		}),
		board: pending.New(deps.Client, pending.Options{
			Clock: deps.Clock, Notify: boardQ,
			PageSize: pageSize, PageSizes: sizes, Audit: audit,
		}),
		settingsQ:     notify.NewQueue(deps.Clock, ttl),
		settingsDraft: deps.Settings.Get(),
	}
	m.applyTheme()
	m.layout = ui.NewLayoutConfig(0, 0, false)

	m.queryInput = newInput("بحث...")
	m.dueInput = newInput("YYYY-MM-DD")
	m.fieldInput = newInput("")
	m.issueInputs = []textinput.Model{
		newInput("اسم العميل او الوكيل"),
		newInput("المعرف الخاص به علي التلجرام"),
		newInput("وصف المعلقة"),
	}
	m.message = viewport.New(60, 12)
	m.help = viewport.New(60, 16)

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = m.styles.Spinner

	m.applySettings(deps.Settings.Get())

	for _, q := range m.queues() {
		m.watch(rt.ctx, q)
	}
	if err := deps.Settings.Watch(rt.ctx, func(s settings.Settings) {
		m.emit(settingsReloadedMsg{settings: s})
	}); err != nil {
		logging.Get(logging.CategorySettings).Warn("settings changes on disk will not be picked up: %v", err)
	}
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 500
	return ti
}

// queues returns every notification queue of the shell, the editor's included.
func (m Model) queues() []*notify.Queue {
	qs := []*notify.Queue{
		m.dash.Notifications(),
		m.published.Notifications(),
		m.board.Notifications(),
		m.settingsQ,
	}
	if m.editor != nil {
		qs = append(qs, m.editor.Notifications())
	}
	return qs
}

// notes returns the queue of the visible page.
func (m Model) notes() *notify.Queue {
	switch m.page {
	case PageVerification:
		if m.editor != nil {
			return m.editor.Notifications()
		}
	case PagePublished:
		return m.published.Notifications()
	case PagePending:
		return m.board.Notifications()
	case PageSettings:
		return m.settingsQ
	}
	return m.dash.Notifications()
}

// watch forwards q's change signal to the event loop until ctx is done.
func (m Model) watch(ctx context.Context, q *notify.Queue) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.Changed():
				m.emit(notesChangedMsg{})
			}
		}
	}()
}

// emit queues msg for the event loop, dropping it when the loop is behind.
func (m Model) emit(msg tea.Msg) {
	select {
	case m.rt.events <- msg:
	default:
	}
}

func listen(rt *runtime) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-rt.ctx.Done():
			return nil
		case msg := <-rt.events:
			return msg
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the event loop and loads the dashboard.
func (m Model) Init() tea.Cmd {
	logging.UI("shell started")
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		listen(m.rt),
		tick(),
		m.refresh(PageDashboard),
	)
}

// Close stops background work. Safe to call more than once.
func (m Model) Close() {
	m.rt.cancel()
	m.dash.Close()
	m.published.Close()
	m.board.Close()
	if m.editor != nil {
		m.editor.Close()
		m.editor.Wait()
	}
}

// applySettings mutes the queues and switches the audit log; a failure is
// shown on the settings page.
func (m Model) applySettings(s settings.Settings) {
	if err := settings.Apply(s, m.deps.Workspace, m.queues()...); err != nil {
		logging.Get(logging.CategorySettings).Warn("apply settings: %v", err)
		m.settingsQ.Push(fmt.Sprintf(msgApplyFailed, err), notify.Error)
	}
}

func (m *Model) applyTheme() {
	m.styles = ui.NewStyles(ui.ThemeByName(string(m.deps.Settings.Get().Theme)))
}

func (m Model) timeout() time.Duration {
	return m.deps.Config.GetAPITimeout()
}

// =============================================================================
// COMMANDS
// =============================================================================

// refresh reloads the given page in the background.
func (m Model) refresh(p Page) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rt.ctx, m.timeout())
		defer cancel()
		var err error
		switch p {
		case PageDashboard:
			err = m.dash.Refresh(ctx)
		case PagePublished:
			err = m.published.Refresh(ctx)
		case PagePending:
			err = m.board.Fetch(ctx)
		}
		return refreshedMsg{page: p, err: err}
	}
}

// run executes a mutation with the API timeout.
func (m Model) run(p Page, op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rt.ctx, m.timeout())
		defer cancel()
		return opDoneMsg{page: p, op: op, err: fn(ctx)}
	}
}

// openEditor creates an editor for id, or a new record when id is empty.
func (m *Model) openEditor(id string) tea.Cmd {
	m.dropEditor()
	rt := m.rt
	e := verification.NewEditor(m.deps.Client, verification.Options{
		Clock:         m.deps.Clock,
		Notify:        notify.NewQueue(m.deps.Clock, m.deps.Config.UI.GetNotificationTTL()),
		Debounce:      m.deps.Config.GetAutosaveDebounce(),
		SaveTimeout:   m.timeout(),
		RedirectDelay: m.deps.Config.UI.GetPublishRedirectDelay(),
		OnRedirect: func() {
			select {
			case rt.events <- redirectMsg{}:
			case <-rt.ctx.Done():
			}
		},
		Audit: logging.Audit(m.deps.Settings.Get().AdminEmail),
	})
	e.Notifications().SetMuted(!m.deps.Settings.Get().NotificationsEnabled)
	ctx, cancel := context.WithCancel(m.rt.ctx)
	m.watch(ctx, e.Notifications())
	m.editor = e
	m.unwatch = cancel
	if m.page != PageVerification {
		m.prev = m.page
	}
	m.page = PageVerification
	m.cursor[PageVerification] = 0
	m.rt.busy.Add(1)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rt.ctx, m.timeout())
		defer cancel()
		return editorOpenedMsg{err: e.Open(ctx, id)}
	}
}

// dropEditor stops the current editor and its watcher.
func (m *Model) dropEditor() {
	if m.editor != nil {
		m.editor.Close()
		m.editor = nil
	}
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
}

// leaveEditor writes the draft and returns to the page the editor came from.
// A published or unloaded record has nothing left to write.
func (m Model) leaveEditor(to Page) tea.Cmd {
	e := m.editor
	return func() tea.Msg {
		var err error
		if e != nil {
			ctx, cancel := context.WithTimeout(m.rt.ctx, m.timeout())
			err = e.Save(ctx)
			cancel()
			e.Close()
			if errors.Is(err, verification.ErrNotEditing) {
				err = nil
			}
		}
		return editorLeftMsg{to: to, err: err}
	}
}

func (m Model) generateKlisha() tea.Cmd {
	e := m.editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rt.ctx, m.timeout())
		defer cancel()
		text, err := e.GenerateMessage(ctx)
		return klishaMsg{text: text, err: err}
	}
}

// exportFile writes the dashboard's current query to an XLSX file in the
// workspace.
func (m Model) exportFile() tea.Cmd {
	p := m.filters.Get().Params()
	p.SortBy, p.SortDirection = m.dash.List.Sort()
	name := "verifications-" + m.deps.Clock.Now().Format("2006-01-02-150405") + ".xlsx"
	path := joinWorkspace(m.deps.Workspace, name)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.rt.ctx, 4*m.timeout())
		defer cancel()
		n, err := exportToFile(ctx, m.deps.Client, p, path)
		return exportedMsg{path: path, n: n, err: err}
	}
}

// selectedRecord returns the record under the cursor of a record list.
func (m Model) selectedRecord() (types.Record, bool) {
	var items []types.Record
	switch m.page {
	case PageDashboard:
		items = m.dash.List.Items()
	case PagePublished:
		items = m.published.List.Items()
	default:
		return types.Record{}, false
	}
	i := m.cursor[m.page]
	if i < 0 || i >= len(items) {
		return types.Record{}, false
	}
	return items[i], true
}

func (m Model) selectedIssue() (types.PendingIssue, bool) {
	items := m.board.List.Items()
	i := m.cursor[PagePending]
	if i < 0 || i >= len(items) {
		return types.PendingIssue{}, false
	}
	return items[i], true
}

// rowCount is the number of rows on the visible page.
func (m Model) rowCount() int {
	switch m.page {
	case PageDashboard:
		return len(m.dash.List.Items())
	case PagePublished:
		return len(m.published.List.Items())
	case PagePending:
		return len(m.board.List.Items())
	case PageVerification:
		return len(types.EditableFields)
	case PageSettings:
		return len(settings.Keys)
	}
	return 0
}

func (m *Model) clampCursor() {
	n := m.rowCount()
	c := m.cursor[m.page]
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.cursor[m.page] = c
}
