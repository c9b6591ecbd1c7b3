package shell

import (
	"time"

	"prizedesk/internal/api"
	"prizedesk/internal/clock"
	"prizedesk/internal/config"
	"prizedesk/internal/settings"
)

// Deps wires the shell to the backend and the local configuration.
type Deps struct {
	Client    *api.Client
	Config    *config.Config
	Settings  *settings.Manager
	Workspace string
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// Page is one screen of the shell.
type Page int

const (
	PageDashboard Page = iota
	PageVerification
	PagePublished
	PagePending
	PageSettings
)

// navPages are the pages reachable from the sidebar, in order. The
// verification page is entered from a list row.
var navPages = []Page{PageDashboard, PagePublished, PagePending, PageSettings}

// Title is the sidebar and header label.
func (p Page) Title() string {
	switch p {
	case PageDashboard:
		return "لوحة التحكم"
	case PageVerification:
		return "التحقق من الفائز"
	case PagePublished:
		return "الفائزون المنشورون"
	case PagePending:
		return "المعلقات"
	case PageSettings:
		return "الإعدادات"
	}
	return ""
}

// Modal is the overlay currently capturing keys.
type Modal int

const (
	ModalNone Modal = iota
	ModalFilter
	ModalSearch
	ModalConfirm
	ModalMessage
	ModalAddIssue
	ModalEditField
	ModalHelp
)

// messageKind tells the message modal what its confirm key does.
type messageKind int

const (
	messageKlisha messageKind = iota
	messageDigest
)

// =============================================================================
// MESSAGES
// =============================================================================

// refreshedMsg reports a page reload.
type refreshedMsg struct {
	page Page
	err  error
}

// opDoneMsg reports a finished mutation. The view-model already pushed the
// notification; the shell only needs to redraw and maybe navigate.
type opDoneMsg struct {
	page Page
	op   string
	err  error
}

type editorOpenedMsg struct{ err error }

// editorLeftMsg reports the editor closed; err is the final save's failure.
type editorLeftMsg struct {
	to  Page
	err error
}

type klishaMsg struct {
	text string
	err  error
}

type exportedMsg struct {
	path string
	n    int
	err  error
}

// notesChangedMsg is forwarded from a notification queue.
type notesChangedMsg struct{}

// redirectMsg fires after a publish once the redirect delay has passed.
type redirectMsg struct{}

// settingsReloadedMsg carries settings changed on disk by another process.
type settingsReloadedMsg struct{ settings settings.Settings }

type tickMsg time.Time
