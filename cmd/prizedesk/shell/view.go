package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"prizedesk/cmd/prizedesk/ui"
	"prizedesk/internal/autosave"
	"prizedesk/internal/dashboard"
	"prizedesk/internal/filter"
	"prizedesk/internal/listing"
	"prizedesk/internal/settings"
	"prizedesk/internal/types"
	"prizedesk/internal/verification"
)

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()

	var body string
	switch m.modal {
	case ModalNone:
		body = m.renderPage()
	default:
		body = lipgloss.Place(m.layout.ContentWidth(), m.layout.ContentHeight(),
			lipgloss.Center, lipgloss.Center, m.renderModal())
	}
	content := m.styles.Content.
		Width(m.layout.ContentWidth()).
		MaxHeight(m.layout.ContentHeight()).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content),
		m.renderNotes(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := m.deps.Settings.Get().SystemName + " · " + m.page.Title()
	if m.busy() {
		title += " " + m.spinner.View()
	}
	return m.styles.Header.Width(m.width).Render(title)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	for i, p := range navPages {
		label := fmt.Sprintf("%d %s", i+1, p.Title())
		if m.layout.Collapsed {
			label = fmt.Sprintf("%d", i+1)
		}
		active := p == m.page || (m.page == PageVerification && p == m.prev)
		if active {
			sb.WriteString(m.styles.NavActive.Render(label))
		} else {
			sb.WriteString(m.styles.NavItem.Render(label))
		}
		sb.WriteString("\n")
	}
	return m.styles.Sidebar.
		Width(m.layout.SidebarWidth()).
		Height(m.layout.ContentHeight()).
		Render(sb.String())
}

func (m Model) renderNotes() string {
	items := m.notes().Items()
	if len(items) > ui.NotificationLines {
		items = items[len(items)-ui.NotificationLines:]
	}
	lines := make([]string, 0, len(items))
	for _, n := range items {
		lines = append(lines, m.styles.Notification(n))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var hint string
	switch m.page {
	case PageDashboard:
		hint = "enter open · n new · f filter · / search · p publish · D delete · e export · ? help"
	case PagePublished:
		hint = "enter open · f filter · / search · x delete · ? help"
	case PageVerification:
		hint = "enter edit · g message · p publish · ctrl+s save · esc back"
	case PagePending:
		hint = "n add · enter resolve · f status · g digest · x delete · ? help"
	case PageSettings:
		hint = "enter edit · ctrl+s save · R reset · esc discard"
	}
	if m.lastErr != nil {
		hint = m.styles.Error.Render(truncate(oneLine(m.lastErr.Error()), 60)) + "  " + hint
	}
	return m.styles.Footer.Width(m.width).Render(hint)
}

func (m Model) renderPage() string {
	switch m.page {
	case PageDashboard:
		return m.renderDashboard()
	case PagePublished:
		return m.renderPublished()
	case PageVerification:
		return m.renderEditor()
	case PagePending:
		return m.renderPending()
	case PageSettings:
		return m.renderSettings()
	}
	return ""
}

// =============================================================================
// LIST PAGES
// =============================================================================

func (m Model) renderStats() string {
	s := m.dash.Stats()
	card := func(label string, n int, rate *float64) string {
		body := fmt.Sprintf("%s\n%d", label, n)
		if rate != nil {
			body += fmt.Sprintf("  %.1f%%", *rate)
		}
		return m.styles.Card.Render(body)
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("قيد المعالجة", s.InProgressCount, s.InProgressTrend),
		card("مكتمل اليوم", s.CompletedTodayCount, s.DailyCompletionRate),
		card("تم النشر", s.PrizePublishedCount, s.PublishRate),
		card("الإجمالي", s.TotalRecords, nil),
	)
	if len(s.DueDateAlerts) > 0 {
		names := make([]string, 0, len(s.DueDateAlerts))
		for _, a := range s.DueDateAlerts {
			names = append(names, a.ClientName+" ("+a.PrizeDueDate+")")
		}
		cards += "\n" + m.styles.Warning.Render("⚠ "+strings.Join(names, "، "))
	}
	return cards
}

func (m Model) renderDashboard() string {
	var sb strings.Builder
	sb.WriteString(m.renderStats())
	sb.WriteString("\n")
	sb.WriteString(m.renderFilterLine())
	sb.WriteString("\n")
	sb.WriteString(m.recordTable(m.dash.List, true))
	sb.WriteString(m.renderPager(m.dash.List))

	extra := []string{}
	if updated := m.dash.UpdatedAt(); !updated.IsZero() {
		extra = append(extra, "آخر تحديث "+updated.Format("15:04:05"))
	}
	if iv := m.dash.AutoRefresh(); iv > 0 {
		extra = append(extra, "تحديث تلقائي كل "+iv.String())
	}
	if n := len(m.dash.List.Selected()); n > 0 {
		extra = append(extra, fmt.Sprintf("%d محدد", n))
	}
	if len(extra) > 0 {
		sb.WriteString(m.styles.Muted.Render(strings.Join(extra, " · ")))
	}
	return sb.String()
}

func (m Model) renderPublished() string {
	var sb strings.Builder
	sb.WriteString(m.renderFilterLine())
	sb.WriteString("\n")
	sb.WriteString(m.recordTable(m.published.List, false))
	sb.WriteString(m.renderPager(m.published.List))
	return sb.String()
}

func (m Model) renderFilterLine() string {
	c := m.filters.Get()
	line := "الفلاتر"
	if n := c.ActiveCount(); n > 0 {
		line += " " + m.styles.Badge.Render(fmt.Sprint(n))
	}
	if c.Query != "" {
		line += "  «" + c.Query + "»"
	}
	if c.Status != types.All {
		line += "  " + c.Status
	}
	switch c.Published {
	case filter.PublishedYes:
		line += "  منشور"
	case filter.PublishedNo:
		line += "  غير منشور"
	}
	if c.DueDate != "" {
		line += "  " + c.DueDate
	}
	return m.styles.Muted.Render(line)
}

func (m Model) recordTable(list *listing.Controller[types.Record], selectable bool) string {
	if err := list.LoadErr(); err != nil && !list.Loaded() {
		return m.styles.Error.Render("تعذر تحميل السجلات.") + "\n"
	}
	sortBy, dir := list.Sort()
	headers := []string{"اسم العميل", "رقم الوكالة", "الجائزة", "المسابقة", "الاستحقاق", "الحالة", "منشور"}
	table := ui.NewTable("", headers)
	table.Selectable = selectable
	table.Cursor = m.cursor[m.page]
	today := m.deps.Clock.Now()
	for i, r := range list.Items() {
		act := dashboard.Actions(r, today)
		table.Alert[i] = act.Overdue
		table.Marked[i] = list.IsSelected(r.ID)
		status := string(r.Status)
		if act.Done {
			status += " ✓"
		}
		table.AddRow(
			truncate(r.ClientName, 24),
			r.AgencyID,
			prizeCell(r),
			truncate(r.CompetitionName, 18),
			r.PrizeDueDate,
			status,
			check(r.PrizePublishedOnGroup),
		)
	}
	out := table.View(m.styles, "لا توجد سجلات.")
	if sortBy != "" {
		out += m.styles.Muted.Render(fmt.Sprintf("ترتيب: %s %s", sortBy, dir)) + "\n"
	}
	return out
}

type pager interface {
	Range() (from, to, total int)
	Page() int
	PageCount() int
	PageSize() int
}

func (m Model) renderPager(p pager) string {
	from, to, total := p.Range()
	return m.styles.Muted.Render(fmt.Sprintf("عرض %d-%d من %d · صفحة %d/%d · %d لكل صفحة",
		from, to, total, p.Page(), p.PageCount(), p.PageSize())) + "\n"
}

// =============================================================================
// VERIFICATION
// =============================================================================

func (m Model) renderEditor() string {
	e := m.editor
	if e == nil {
		return ""
	}
	switch e.State() {
	case verification.Idle, verification.Loading:
		return m.spinner.View() + " جاري التحميل..."
	case verification.LoadFailed:
		return m.styles.Error.Render(e.PageError()) + "\n" + m.styles.Muted.Render("r إعادة المحاولة · esc رجوع")
	}

	rec := e.Record()
	errs := e.FieldErrors()
	var sb strings.Builder

	title := rec.ID
	if e.IsNew() {
		title += " (جديد)"
	}
	sb.WriteString(m.styles.Title.Render(title))
	sb.WriteString("  ")
	sb.WriteString(m.renderSaveState(e.SaveState()))
	sb.WriteString("\n")
	if pe := e.PageError(); pe != "" {
		sb.WriteString(m.styles.Error.Render(pe) + "\n")
	}
	if e.State() == verification.Published {
		sb.WriteString(m.styles.Success.Render("تم النشر ✓") + "\n")
	}

	for i, f := range types.EditableFields {
		value := rec.Get(f)
		if f.IsBool() {
			value = check(value == "true")
		}
		line := fmt.Sprintf("%-28s %s", f.Label(), value)
		style := m.styles.Body
		if unusedAmount(rec, f) {
			style = m.styles.Muted
		}
		if i == m.cursor[PageVerification] {
			style = m.styles.Cursor
		}
		sb.WriteString(style.Render(line))
		if msg, ok := errs[f]; ok {
			sb.WriteString("  " + m.styles.Error.Render(msg))
		}
		sb.WriteString("\n")
	}

	rd := verification.Check(rec)
	if len(rd.Missing) > 0 {
		sb.WriteString("\n" + m.styles.Warning.Render("متبقي: "+strings.Join(rd.Missing, "، ")) + "\n")
	}
	return sb.String()
}

// unusedAmount reports whether f is the amount field the prize type ignores.
func unusedAmount(rec types.Record, f types.Field) bool {
	switch f {
	case types.FieldPrizeAmount:
		return rec.PrizeType.IsDeposit()
	case types.FieldDepositBonusPercentage:
		return !rec.PrizeType.IsDeposit()
	}
	return false
}

func (m Model) renderSaveState(s autosave.State) string {
	switch s {
	case autosave.Dirty, autosave.Pending:
		return m.styles.Info.Render("جاري الحفظ...")
	case autosave.Failed:
		return m.styles.Error.Render("فشل الحفظ")
	}
	return m.styles.Muted.Render("محفوظ")
}

// =============================================================================
// PENDING
// =============================================================================

func (m Model) renderPending() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Muted.Render("الحالة: " + m.board.StatusFilter()))
	sb.WriteString("\n")

	list := m.board.List
	table := ui.NewTable("", []string{"اسم العميل", "التلجرام", "الوصف", "الحالة", "أُرسلت", "التاريخ"})
	table.Selectable = true
	table.Cursor = m.cursor[PagePending]
	for i, is := range list.Items() {
		table.Marked[i] = list.IsSelected(is.ID)
		table.AddRow(
			truncate(is.ClientName, 20),
			is.ClientID,
			truncate(oneLine(is.Description), 36),
			string(is.Status),
			check(is.IsSentToGroup),
			shortDate(is.CreatedAt),
		)
	}
	sb.WriteString(table.View(m.styles, "لا توجد معلقات."))
	sb.WriteString(m.renderPager(list))
	if d, ok := m.board.CurrentDigest(); ok {
		sb.WriteString(m.styles.Info.Render(fmt.Sprintf("رسالة جاهزة بـ %d معلقة", len(d.IDs))))
	}
	return sb.String()
}

func shortDate(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return ts
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m Model) renderSettings() string {
	saved := m.deps.Settings.Get()
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.page.Title()))
	sb.WriteString("\n")
	for i, k := range settings.Keys {
		v, _ := m.settingsDraft.Get(k)
		orig, _ := saved.Get(k)
		line := fmt.Sprintf("%-24s %s", k, v)
		if v != orig {
			line += " *"
		}
		style := m.styles.Body
		if i == m.cursor[PageSettings] {
			style = m.styles.Cursor
		}
		sb.WriteString(style.Render(line) + "\n")
	}
	sb.WriteString("\n" + m.styles.Muted.Render(m.deps.Settings.Path()))
	return sb.String()
}

// =============================================================================
// MODALS
// =============================================================================

func (m Model) renderModal() string {
	var body string
	switch m.modal {
	case ModalConfirm:
		body = m.confirmText + "\n\n" + m.styles.Muted.Render("y تأكيد · n إلغاء")
	case ModalFilter:
		body = m.renderFilterDialog()
	case ModalSearch:
		body = m.styles.Bold.Render("بحث") + "\n" + m.fieldInput.View()
	case ModalEditField:
		label := m.editField
		if m.page == PageVerification {
			label = types.Field(m.editField).Label()
		}
		body = m.styles.Bold.Render(label) + "\n" + m.fieldInput.View()
	case ModalAddIssue:
		parts := []string{m.styles.Bold.Render("إضافة معلقة")}
		for _, in := range m.issueInputs {
			parts = append(parts, in.View())
		}
		parts = append(parts, m.styles.Muted.Render("tab التالي · ctrl+s حفظ · esc إلغاء"))
		body = strings.Join(parts, "\n")
	case ModalMessage:
		hint := "c نسخ · p تأكيد النشر · esc إغلاق"
		if m.messageKind == messageDigest {
			hint = "c نسخ · y تم الإرسال · esc إغلاق"
		}
		body = m.message.View() + "\n" + m.styles.Muted.Render(hint)
	case ModalHelp:
		body = m.help.View()
	}
	return m.styles.Modal.Width(m.layout.ModalWidth()).Render(body)
}

func (m Model) renderFilterDialog() string {
	if m.dialog == nil {
		return ""
	}
	staged := m.dialog.Staged()
	row := func(i int, s string) string {
		if i == m.dialogRow {
			return m.styles.Cursor.Render("› " + s)
		}
		return "  " + s
	}
	lines := []string{
		m.styles.Bold.Render("الفلاتر"),
		row(rowQuery, "بحث: "+m.queryInput.View()),
	}
	for i, f := range filter.SearchableFields {
		lines = append(lines, row(rowQuery+1+i, check(staged.Searches(f))+" "+f.Label()))
	}
	published := "الكل"
	switch staged.Published {
	case filter.PublishedYes:
		published = "منشور"
	case filter.PublishedNo:
		published = "غير منشور"
	}
	lines = append(lines,
		row(rowStatus, "الحالة: "+staged.Status),
		row(rowPublished, "النشر: "+published),
		row(rowDueDate, "تاريخ الاستحقاق: "+m.dueInput.View()),
	)
	if m.dialogErr != "" {
		lines = append(lines, m.styles.Error.Render(m.dialogErr))
	}
	lines = append(lines, "", m.styles.Muted.Render("space تبديل · enter تطبيق · ctrl+r إعادة ضبط · esc إلغاء"))
	return strings.Join(lines, "\n")
}
