// Package dashboard implements the verification dashboard and the published
// winners view on top of the generic list controller.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"prizedesk/internal/api"
	"prizedesk/internal/clock"
	"prizedesk/internal/filter"
	"prizedesk/internal/listing"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
)

// ErrNotCompleted is returned when publishing a record whose check is not done.
var ErrNotCompleted = errors.New("record is not completed")

const (
	msgListFailed       = "فشل في تحميل سجلات التحقق. يرجى التأكد من أن الخادم الخلفي (Backend) يعمل."
	msgStatsFailed      = "فشل في تحميل إحصائيات لوحة التحكم."
	msgNotCompleted     = "لا يمكن تغيير حالة النشر إلا بعد اكتمال الفحص."
	msgPublishToggled   = "تم تحديث حالة النشر بنجاح!"
	msgPublishToggleErr = "فشل في تحديث حالة النشر. يرجى المحاولة مرة أخرى."
	msgDeleted          = "تم حذف السجل بنجاح!"
	msgBulkDeleted      = "تم حذف %d سجل بنجاح!"
	msgDeleteFailed     = "فشل في حذف السجل."
)

func fmtCount(format string, n int) string { return fmt.Sprintf(format, n) }

// Client is the part of the REST client the dashboard uses.
type Client interface {
	listing.VerificationLister
	DashboardStats(ctx context.Context) (types.DashboardStats, error)
	SetPublished(ctx context.Context, id string, published bool) (types.Record, error)
	DeleteVerification(ctx context.Context, id string) error
}

// Options configures a Dashboard.
type Options struct {
	Clock     clock.Clock
	Notify    *notify.Queue
	Filters   *filter.Store
	PageSize  int
	PageSizes []int
	Audit     *logging.AuditLogger
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Notify == nil {
		o.Notify = notify.NewQueue(o.Clock, 5*time.Second)
		o.Notify.SetSeverityTTL(notify.Error, 0)
	}
	if o.Filters == nil {
		o.Filters = filter.NewStore()
	}
	if o.Audit == nil {
		o.Audit = logging.Audit("")
	}
}

// Dashboard is the main list of verification records with statistics.
type Dashboard struct {
	client Client
	opts   Options
	List   *listing.Controller[types.Record]

	mu       sync.Mutex
	stats    types.DashboardStats
	statsErr error
	updated  time.Time

	refresher *listing.AutoRefresher
}

// New creates a dashboard reading its criteria from opts.Filters.
func New(client Client, opts Options) *Dashboard {
	opts.defaults()
	d := &Dashboard{client: client, opts: opts}
	d.List = listing.New(
		listing.Verifications(client, opts.Filters.Get),
		func(r types.Record) string { return r.ID },
		listing.Options{PageSize: opts.PageSize, PageSizes: opts.PageSizes},
	)
	d.refresher = listing.NewAutoRefresher(opts.Clock, func() {
		_ = d.Refresh(context.Background())
	})
	return d
}

// Refresh reloads the current page and the statistics concurrently. Only a
// list failure is returned; a stats failure is reported through a
// notification and StatsErr.
func (d *Dashboard) Refresh(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryDashboard, "refresh")
	defer timer.Stop()

	var g errgroup.Group
	g.Go(func() error { return d.List.Load(ctx) })
	g.Go(func() error {
		stats, err := d.client.DashboardStats(ctx)
		d.mu.Lock()
		if err == nil {
			d.stats = stats
		}
		d.statsErr = err
		d.mu.Unlock()
		return nil
	})
	listErr := g.Wait()

	d.mu.Lock()
	d.updated = d.opts.Clock.Now()
	statsErr := d.statsErr
	d.mu.Unlock()

	if statsErr != nil {
		logging.Get(logging.CategoryDashboard).Warn("stats failed: %v", statsErr)
		d.opts.Notify.Push(msgStatsFailed, notify.Error)
	}
	if listErr != nil {
		logging.Get(logging.CategoryDashboard).Error("list failed: %v", listErr)
		d.opts.Notify.Push(msgListFailed, notify.Error)
		return listErr
	}
	return nil
}

// Stats returns the last loaded statistics.
func (d *Dashboard) Stats() types.DashboardStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// StatsErr returns the error of the last stats load, or nil.
func (d *Dashboard) StatsErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statsErr
}

// UpdatedAt returns when Refresh last completed.
func (d *Dashboard) UpdatedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updated
}

// Filters returns the shared criteria store.
func (d *Dashboard) Filters() *filter.Store { return d.opts.Filters }

// Notifications returns the dashboard's notification queue.
func (d *Dashboard) Notifications() *notify.Queue { return d.opts.Notify }

// Dispatch applies a filter change and returns to page 1 when it changed
// anything. The caller refreshes.
func (d *Dashboard) Dispatch(a filter.Action) bool {
	_, changed := d.opts.Filters.Dispatch(a)
	if changed {
		d.List.ResetPage()
	}
	return changed
}

// TogglePublish flips the publish flag of a completed record and refreshes.
func (d *Dashboard) TogglePublish(ctx context.Context, r types.Record) error {
	if !r.IsCompleted() {
		d.opts.Notify.Push(msgNotCompleted, notify.Warning)
		return ErrNotCompleted
	}
	_, err := d.client.SetPublished(ctx, r.ID, !r.PrizePublishedOnGroup)
	d.opts.Audit.Mutation(logging.AuditRecordPublish, r.ID, err)
	if err != nil {
		d.opts.Notify.Push(msgPublishToggleErr, notify.Error)
		return fmt.Errorf("toggle publish %s: %w", r.ID, err)
	}
	d.opts.Notify.Push(msgPublishToggled, notify.Success)
	return d.Refresh(ctx)
}

// Delete removes one record and refreshes.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	err := d.client.DeleteVerification(ctx, id)
	d.opts.Audit.Mutation(logging.AuditRecordDelete, id, err)
	if err != nil {
		d.opts.Notify.Push(msgDeleteFailed, notify.Error)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	d.opts.Notify.Push(msgDeleted, notify.Success)
	return d.Refresh(ctx)
}

// BulkDelete removes the selected records one by one, stopping at the first
// failure, then refreshes.
func (d *Dashboard) BulkDelete(ctx context.Context) (int, error) {
	n, err := d.List.BulkDelete(ctx, func(ctx context.Context, id string) error {
		err := d.client.DeleteVerification(ctx, id)
		d.opts.Audit.Mutation(logging.AuditRecordDelete, id, err)
		return err
	})
	if errors.Is(err, listing.ErrNothingSelected) {
		return 0, err
	}
	if err != nil {
		d.opts.Notify.Push(msgDeleteFailed, notify.Error)
	} else {
		d.opts.Notify.Push(fmtCount(msgBulkDeleted, n), notify.Success)
	}
	if rerr := d.Refresh(ctx); err == nil {
		err = rerr
	}
	return n, err
}

// SetAutoRefresh starts refreshing every interval, or stops when it is zero.
func (d *Dashboard) SetAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		d.refresher.Stop()
		return
	}
	d.refresher.Start(interval)
	logging.Dashboard("auto refresh every %v", interval)
}

// AutoRefresh returns the active auto-refresh interval, zero when off.
func (d *Dashboard) AutoRefresh() time.Duration { return d.refresher.Interval() }

// Close stops auto-refresh and clears notifications.
func (d *Dashboard) Close() {
	d.refresher.Stop()
	d.opts.Notify.Clear()
}

// =============================================================================
// PUBLISHED VIEW
// =============================================================================

const (
	msgPublishedListFailed = "فشل في تحميل قائمة العملاء المنشورين. يرجى التأكد من أن الخادم يعمل بشكل صحيح."
	msgClientDeleted       = "تم حذف العميل بنجاح."
	msgClientDeleteFailed  = "فشل في حذف العميل. يرجى المحاولة مرة أخرى."
)

// PublishedView lists published winners, paged and sorted on the server.
type PublishedView struct {
	client Client
	opts   Options
	List   *listing.Controller[types.Record]
}

// NewPublished creates the published view. It honours the shared criteria
// but always restricts to published records.
func NewPublished(client Client, opts Options) *PublishedView {
	opts.defaults()
	pinned := func(p *api.ListParams) { p.Published = "true" }
	return &PublishedView{
		client: client,
		opts:   opts,
		List: listing.New(
			listing.Verifications(client, opts.Filters.Get, pinned),
			func(r types.Record) string { return r.ID },
			listing.Options{PageSize: opts.PageSize, PageSizes: opts.PageSizes},
		),
	}
}

// Refresh reloads the current page. The backend's message is shown when it
// sent one.
func (v *PublishedView) Refresh(ctx context.Context) error {
	if err := v.List.Load(ctx); err != nil {
		v.opts.Notify.Push(serverMessage(err, msgPublishedListFailed), notify.Error)
		return err
	}
	return nil
}

// Delete removes one published record and refreshes.
func (v *PublishedView) Delete(ctx context.Context, id string) error {
	err := v.client.DeleteVerification(ctx, id)
	v.opts.Audit.Mutation(logging.AuditRecordDelete, id, err)
	if err != nil {
		v.opts.Notify.Push(serverMessage(err, msgClientDeleteFailed), notify.Error)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	v.opts.Notify.Push(msgClientDeleted, notify.Success)
	return v.Refresh(ctx)
}

// Notifications returns the view's notification queue.
func (v *PublishedView) Notifications() *notify.Queue { return v.opts.Notify }

// Close clears notifications.
func (v *PublishedView) Close() { v.opts.Notify.Clear() }

func serverMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
