package shell

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"prizedesk/internal/filter"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
)

// Filter dialog rows: query, one per searchable field, status, published,
// due date.
const (
	rowQuery     = 0
	rowStatus    = 1 + 4
	rowPublished = rowStatus + 1
	rowDueDate   = rowPublished + 1
	filterRows   = rowDueDate + 1
)

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case ModalConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			action := m.confirmAction
			m.closeModal()
			if action == nil {
				return m, nil
			}
			cmd := action(&m)
			return m, cmd
		case "n", "N", "esc", "q":
			m.closeModal()
		}
		return m, nil

	case ModalFilter:
		return m.handleFilterKey(msg)

	case ModalSearch:
		switch msg.Type {
		case tea.KeyEsc:
			m.closeModal()
			return m, nil
		case tea.KeyEnter:
			q := m.fieldInput.Value()
			m.closeModal()
			if m.dash.Dispatch(filter.SetQuery{Query: q}) {
				m.published.List.ResetPage()
				return m, m.async(m.refresh(m.page))
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.fieldInput, cmd = m.fieldInput.Update(msg)
		return m, cmd

	case ModalEditField:
		switch msg.Type {
		case tea.KeyEsc:
			m.closeModal()
			return m, nil
		case tea.KeyEnter:
			m.commitFieldEdit()
			m.closeModal()
			return m, nil
		}
		var cmd tea.Cmd
		m.fieldInput, cmd = m.fieldInput.Update(msg)
		return m, cmd

	case ModalAddIssue:
		return m.handleAddIssueKey(msg)

	case ModalMessage:
		return m.handleMessageKey(msg)

	case ModalHelp:
		switch msg.String() {
		case "esc", "q", "?":
			m.closeModal()
			return m, nil
		}
		var cmd tea.Cmd
		m.help, cmd = m.help.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) closeModal() {
	m.modal = ModalNone
	m.confirmText = ""
	m.confirmAction = nil
	m.dialog = nil
	m.dialogErr = ""
	m.fieldInput.Blur()
	m.queryInput.Blur()
	m.dueInput.Blur()
	for i := range m.issueInputs {
		m.issueInputs[i].Blur()
	}
}

// =============================================================================
// FILTER DIALOG
// =============================================================================

func (m *Model) openFilter() {
	m.dialog = filter.OpenDialog(m.filters.Get())
	staged := m.dialog.Staged()
	m.queryInput.SetValue(staged.Query)
	m.dueInput.SetValue(staged.DueDate)
	m.dialogRow = rowQuery
	m.dialogErr = ""
	m.modal = ModalFilter
	m.focusFilterRow()
}

func (m *Model) focusFilterRow() {
	m.queryInput.Blur()
	m.dueInput.Blur()
	switch m.dialogRow {
	case rowQuery:
		m.queryInput.Focus()
	case rowDueDate:
		m.dueInput.Focus()
	}
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	switch msg.String() {
	case "esc":
		m.closeModal()
		return m, nil
	case "up", "shift+tab":
		m.dialogRow = (m.dialogRow + filterRows - 1) % filterRows
		m.focusFilterRow()
		return m, nil
	case "down", "tab":
		m.dialogRow = (m.dialogRow + 1) % filterRows
		m.focusFilterRow()
		return m, nil
	case "ctrl+r":
		d.Reset()
		m.queryInput.SetValue("")
		m.dueInput.SetValue("")
		m.dialogErr = ""
		return m, nil
	case "enter":
		d.SetQuery(m.queryInput.Value())
		d.SetDueDate(strings.TrimSpace(m.dueInput.Value()))
		action, err := d.Commit()
		if err != nil {
			m.dialogErr = err.Error()
			return m, nil
		}
		m.closeModal()
		if m.dash.Dispatch(action) {
			m.published.List.ResetPage()
			return m, m.async(m.refresh(m.page))
		}
		return m, nil
	case " ":
		switch {
		case m.dialogRow > rowQuery && m.dialogRow < rowStatus:
			d.ToggleField(filter.SearchableFields[m.dialogRow-1])
			return m, nil
		case m.dialogRow == rowStatus:
			d.CycleStatus()
			return m, nil
		case m.dialogRow == rowPublished:
			d.CyclePublished()
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.dialogRow {
	case rowQuery:
		m.queryInput, cmd = m.queryInput.Update(msg)
	case rowDueDate:
		m.dueInput, cmd = m.dueInput.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// FIELD EDIT
// =============================================================================

func (m *Model) openFieldEdit(name, value string) {
	m.editField = name
	m.fieldInput.Placeholder = name
	m.fieldInput.SetValue(value)
	m.fieldInput.CursorEnd()
	m.fieldInput.Focus()
	m.modal = ModalEditField
}

func (m *Model) commitFieldEdit() {
	value := m.fieldInput.Value()
	switch m.page {
	case PageVerification:
		if m.editor == nil {
			return
		}
		if err := m.editor.Set(types.Field(m.editField), value); err != nil {
			m.editor.Notifications().Push(err.Error(), notify.Warning)
		}
	case PageSettings:
		if err := m.settingsDraft.Set(m.editField, value); err != nil {
			m.settingsQ.Push(err.Error(), notify.Warning)
		}
	}
}

// =============================================================================
// ADD ISSUE
// =============================================================================

func (m *Model) openAddIssue() {
	for i := range m.issueInputs {
		m.issueInputs[i].SetValue("")
		m.issueInputs[i].Blur()
	}
	m.issueFocus = 0
	m.issueInputs[0].Focus()
	m.modal = ModalAddIssue
}

func (m Model) handleAddIssueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	move := func(delta int) {
		m.issueInputs[m.issueFocus].Blur()
		n := len(m.issueInputs)
		m.issueFocus = (m.issueFocus + delta + n) % n
		m.issueInputs[m.issueFocus].Focus()
	}
	switch msg.String() {
	case "esc":
		m.closeModal()
		return m, nil
	case "tab", "down":
		move(1)
		return m, nil
	case "shift+tab", "up":
		move(-1)
		return m, nil
	case "enter":
		if m.issueFocus < len(m.issueInputs)-1 {
			move(1)
			return m, nil
		}
		return m.submitIssue()
	case "ctrl+s":
		return m.submitIssue()
	}
	var cmd tea.Cmd
	m.issueInputs[m.issueFocus], cmd = m.issueInputs[m.issueFocus].Update(msg)
	return m, cmd
}

func (m Model) submitIssue() (tea.Model, tea.Cmd) {
	in := types.NewIssue{
		ClientName:  m.issueInputs[0].Value(),
		ClientID:    m.issueInputs[1].Value(),
		Description: m.issueInputs[2].Value(),
	}
	complete := strings.TrimSpace(in.ClientName) != "" &&
		strings.TrimSpace(in.ClientID) != "" &&
		strings.TrimSpace(in.Description) != ""
	if complete {
		m.closeModal()
	}
	b := m.board
	return m, m.async(m.run(PagePending, "add", func(ctx context.Context) error {
		_, err := b.Add(ctx, in)
		return err
	}))
}

// =============================================================================
// MESSAGE (klisha and digest)
// =============================================================================

func (m *Model) openMessage(kind messageKind, text string) {
	m.messageKind = kind
	m.messageText = text
	m.message.SetContent(text)
	m.message.GotoTop()
	m.modal = ModalMessage
}

func (m Model) handleMessageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.messageKind == messageKlisha && m.editor != nil {
			m.editor.DismissMessage()
		} else {
			m.board.DiscardDigest()
		}
		m.closeModal()
		return m, nil
	case "c":
		if err := clipboardWriteAll(m.messageText); err != nil {
			logging.Get(logging.CategoryUI).Warn("clipboard: %v", err)
			m.notes().Push(msgCopyFailed, notify.Error)
		} else {
			m.notes().Push(msgCopied, notify.Success)
		}
		return m, nil
	case "y":
		if m.messageKind != messageDigest {
			return m, nil
		}
		b := m.board
		m.closeModal()
		return m, m.async(m.run(PagePending, "confirm digest", b.ConfirmDigestSent))
	case "p":
		if m.messageKind != messageKlisha || m.editor == nil {
			return m, nil
		}
		e := m.editor
		m.closeModal()
		return m, m.async(m.run(PageVerification, "publish", e.ConfirmPublish))
	}
	var cmd tea.Cmd
	m.message, cmd = m.message.Update(msg)
	return m, cmd
}

// =============================================================================
// HELP
// =============================================================================

const helpMarkdown = `# prizedesk

## Everywhere
| key | action |
|-----|--------|
| 1-4, tab | switch page |
| b | collapse sidebar |
| t | toggle light/dark |
| ? | this help |
| q, ctrl+c | quit |

## Dashboard and published
| key | action |
|-----|--------|
| j/k | move |
| enter | open verification |
| n | new verification |
| h/l, g/G | previous/next, first/last page |
| z | page size |
| s / S | sort column / direction |
| f, / | filters, quick search |
| c | clear filters |
| space, a | select row, select page |
| D | delete selected |
| x | delete row |
| p | publish / unpublish |
| A | auto refresh interval |
| e | export to xlsx |

## Verification
| key | action |
|-----|--------|
| enter | edit field, toggle checklist |
| ctrl+s | save now |
| g | generate winner message |
| p | confirm publish |
| esc | back |

## Pending
| key | action |
|-----|--------|
| n | add issue |
| f | status filter |
| enter | resolve |
| x, D | delete, delete selected |
| g | build digest, then c copy, y mark sent |

## Settings
| key | action |
|-----|--------|
| enter | edit or toggle |
| ctrl+s | save |
| R | reset to defaults |
`

func (m *Model) openHelp() {
	content := helpMarkdown
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(glamourStyle(m.styles.Theme.IsDark)),
		glamour.WithWordWrap(m.help.Width),
	)
	if err == nil {
		if out, rerr := r.Render(helpMarkdown); rerr == nil {
			content = out
		}
	}
	m.help.SetContent(content)
	m.help.GotoTop()
	m.modal = ModalHelp
}

func glamourStyle(dark bool) string {
	if dark {
		return "dark"
	}
	return "light"
}
