// Package pending manages cross-shift pending issues: listing them by status,
// adding, resolving and deleting, and producing the digest message that is
// posted to the team group.
package pending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"prizedesk/internal/api"
	"prizedesk/internal/clock"
	"prizedesk/internal/listing"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
)

var (
	// ErrNothingToSend is returned when no unsent issue exists.
	ErrNothingToSend = errors.New("no unsent pending issues")
	// ErrMissingFields is returned when a new issue lacks a required field.
	ErrMissingFields = errors.New("client name, client id and description are required")
)

// Confirmation prompts shown before destructive actions.
const (
	ResolveConfirmMessage = "هل أنت متأكد من أن هذه المعلقة قد تم حلها؟"
	DeleteConfirmMessage  = "هل أنت متأكد من رغبتك في حذف هذه المعلقة بشكل دائم؟"
)

const (
	msgLoadFailed     = "فشل في تحميل المعلقات. يرجى التأكد من أن الخادم يعمل بشكل صحيح."
	msgFillAll        = "يرجى ملء جميع الحقول لإضافة معلقة."
	msgAdded          = "تم إضافة المعلقة بنجاح."
	msgAddFailed      = "فشل في إضافة المعلقة. يرجى المحاولة مرة أخرى."
	msgResolved       = `تم تحديث حالة المعلقة إلى "تم الحل".`
	msgResolveFailed  = "فشل في تحديث حالة المعلقة."
	msgDeleted        = "تم حذف المعلقة بنجاح."
	msgDeleteFailed   = "فشل في حذف المعلقة."
	msgNoNewIssues    = "لا توجد معلقات جديدة لتوليد كليشة لها."
	msgNothingConfirm = "لا توجد معلقات لتأكيد إرسالها."
	msgSent           = "تم تأكيد إرسال المعلقات بنجاح!"
	msgAlreadySent    = "المعلقات المحددة مُعلَّمة كمرسلة مسبقاً."
	msgSendFailed     = "فشل في تأكيد إرسال المعلقات. يرجى المحاولة مرة أخرى."
)

// StatusFilters are the status filter choices, default first.
var StatusFilters = []string{string(types.IssueOpen), string(types.IssueResolved), types.All}

// Client is the part of the REST client the board uses.
type Client interface {
	ListPendingIssues(ctx context.Context, status string) ([]types.PendingIssue, error)
	CreatePendingIssue(ctx context.Context, in types.NewIssue) (types.PendingIssue, error)
	SetIssueStatus(ctx context.Context, id string, status types.IssueStatus) (types.PendingIssue, error)
	MarkIssuesSent(ctx context.Context, ids []string) error
	DeletePendingIssue(ctx context.Context, id string) error
}

// Options configures a Board.
type Options struct {
	Clock     clock.Clock
	Notify    *notify.Queue
	PageSize  int
	PageSizes []int
	Audit     *logging.AuditLogger
}

// Board is the pending issues page.
type Board struct {
	client Client
	opts   Options
	List   *listing.Controller[types.PendingIssue]

	mu     sync.Mutex
	status string
	issues []types.PendingIssue
	digest *Digest
}

// New creates a board filtered to open issues.
func New(client Client, opts Options) *Board {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Notify == nil {
		opts.Notify = notify.NewQueue(opts.Clock, 3*time.Second)
	}
	if opts.Audit == nil {
		opts.Audit = logging.Audit("")
	}
	b := &Board{client: client, opts: opts, status: string(types.IssueOpen)}
	b.List = listing.New(
		listing.Local(b.fetchAll, sortKey),
		func(is types.PendingIssue) string { return is.ID },
		listing.Options{PageSize: opts.PageSize, PageSizes: opts.PageSizes},
	)
	return b
}

func (b *Board) fetchAll(ctx context.Context) ([]types.PendingIssue, error) {
	issues, err := b.client.ListPendingIssues(ctx, b.StatusFilter())
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.issues = issues
	b.mu.Unlock()
	return issues, nil
}

func sortKey(is types.PendingIssue, column string) string {
	switch column {
	case "client_name":
		return is.ClientName
	case "client_id":
		return is.ClientID
	case "description":
		return is.Description
	case "status":
		return string(is.Status)
	case "is_sent_to_group":
		if is.IsSentToGroup {
			return "1"
		}
		return "0"
	default:
		return is.CreatedAt
	}
}

// StatusFilter returns the active status filter.
func (b *Board) StatusFilter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SetStatusFilter changes the status filter and returns to page 1. The
// caller fetches.
func (b *Board) SetStatusFilter(status string) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
	b.List.ResetPage()
}

// CycleStatusFilter steps through open, resolved and all.
func (b *Board) CycleStatusFilter() string {
	cur := b.StatusFilter()
	next := StatusFilters[0]
	for i, s := range StatusFilters {
		if s == cur {
			next = StatusFilters[(i+1)%len(StatusFilters)]
		}
	}
	b.SetStatusFilter(next)
	return next
}

// Fetch reloads the issues for the active filter.
func (b *Board) Fetch(ctx context.Context) error {
	if err := b.List.Load(ctx); err != nil {
		logging.Get(logging.CategoryPending).Error("fetch failed: %v", err)
		b.opts.Notify.Push(serverMessage(err, msgLoadFailed), notify.Error)
		return err
	}
	return nil
}

// Issues returns every issue of the last fetch, unpaged.
func (b *Board) Issues() []types.PendingIssue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.PendingIssue(nil), b.issues...)
}

// Add creates an issue. All three fields are required after trimming.
func (b *Board) Add(ctx context.Context, in types.NewIssue) (types.PendingIssue, error) {
	in = types.NewIssue{
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientID:    strings.TrimSpace(in.ClientID),
		Description: strings.TrimSpace(in.Description),
	}
	if in.ClientName == "" || in.ClientID == "" || in.Description == "" {
		b.opts.Notify.Push(msgFillAll, notify.Warning)
		return types.PendingIssue{}, ErrMissingFields
	}

	created, err := b.client.CreatePendingIssue(ctx, in)
	b.opts.Audit.Mutation(logging.AuditIssueCreate, created.ID, err)
	if err != nil {
		b.opts.Notify.Push(msgAddFailed, notify.Error)
		return types.PendingIssue{}, fmt.Errorf("add pending issue: %w", err)
	}
	logging.Pending("added issue %s", created.ID)
	b.opts.Notify.Push(msgAdded, notify.Success)
	return created, b.Fetch(ctx)
}

// Resolve marks an issue as resolved.
func (b *Board) Resolve(ctx context.Context, id string) error {
	_, err := b.client.SetIssueStatus(ctx, id, types.IssueResolved)
	b.opts.Audit.Mutation(logging.AuditIssueResolve, id, err)
	if err != nil {
		b.opts.Notify.Push(msgResolveFailed, notify.Error)
		return fmt.Errorf("resolve %s: %w", id, err)
	}
	b.opts.Notify.Push(msgResolved, notify.Success)
	return b.Fetch(ctx)
}

// Delete removes an issue.
func (b *Board) Delete(ctx context.Context, id string) error {
	err := b.client.DeletePendingIssue(ctx, id)
	b.opts.Audit.Mutation(logging.AuditIssueDelete, id, err)
	if err != nil {
		b.opts.Notify.Push(msgDeleteFailed, notify.Error)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	b.opts.Notify.Push(msgDeleted, notify.Success)
	return b.Fetch(ctx)
}

// BulkDelete deletes the selected issues sequentially, stopping at the first
// failure, then refetches.
func (b *Board) BulkDelete(ctx context.Context) (int, error) {
	n, err := b.List.BulkDelete(ctx, func(ctx context.Context, id string) error {
		err := b.client.DeletePendingIssue(ctx, id)
		b.opts.Audit.Mutation(logging.AuditIssueDelete, id, err)
		return err
	})
	if errors.Is(err, listing.ErrNothingSelected) {
		return 0, err
	}
	if err != nil {
		b.opts.Notify.Push(msgDeleteFailed, notify.Error)
	} else {
		b.opts.Notify.Push(msgDeleted, notify.Success)
	}
	if ferr := b.Fetch(ctx); err == nil {
		err = ferr
	}
	return n, err
}

// GenerateDigest builds the digest of every unsent issue from the last fetch
// and keeps it for ConfirmDigestSent.
func (b *Board) GenerateDigest() (Digest, error) {
	d := BuildDigest(b.Issues(), b.opts.Clock.Now())
	if d.Empty() {
		b.opts.Notify.Push(msgNoNewIssues, notify.Info)
		return Digest{}, ErrNothingToSend
	}
	b.mu.Lock()
	b.digest = &d
	b.mu.Unlock()
	logging.Pending("digest generated for %d issues", len(d.IDs))
	return d, nil
}

// CurrentDigest returns the digest awaiting confirmation, if any.
func (b *Board) CurrentDigest() (Digest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.digest == nil {
		return Digest{}, false
	}
	return *b.digest, true
}

// DiscardDigest drops the pending digest without marking anything.
func (b *Board) DiscardDigest() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.digest = nil
}

// ConfirmDigestSent marks exactly the issues captured in the digest as sent
// and refetches. Issues added after the digest was generated are untouched.
// A 404 means every captured issue was already marked and is not an error.
func (b *Board) ConfirmDigestSent(ctx context.Context) error {
	d, ok := b.CurrentDigest()
	if !ok || d.Empty() {
		b.opts.Notify.Push(msgNothingConfirm, notify.Info)
		return ErrNothingToSend
	}

	err := b.client.MarkIssuesSent(ctx, d.IDs)
	b.opts.Audit.Log(logging.AuditEvent{
		EventType: logging.AuditDigestSent,
		Target:    strings.Join(d.IDs, ","),
		Success:   err == nil,
		Error:     errString(err),
		Fields:    map[string]interface{}{"count": len(d.IDs)},
	})
	switch {
	case api.IsNotFound(err):
		b.opts.Notify.Push(msgAlreadySent, notify.Info)
	case err != nil:
		b.opts.Notify.Push(msgSendFailed, notify.Error)
		return fmt.Errorf("mark sent: %w", err)
	default:
		b.opts.Notify.Push(msgSent, notify.Success)
	}

	b.DiscardDigest()
	return b.Fetch(ctx)
}

// Notifications returns the board's notification queue.
func (b *Board) Notifications() *notify.Queue { return b.opts.Notify }

// Close clears notifications.
func (b *Board) Close() { b.opts.Notify.Clear() }

func serverMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
