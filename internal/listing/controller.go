// Package listing drives the paginated, sortable, selectable tables. One
// generic controller serves the dashboard and the published view (paged on
// the server) and the pending issues (paged locally).
package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"prizedesk/internal/api"
)

// DefaultPageSizes are the rows-per-page choices.
var DefaultPageSizes = []int{5, 10, 25, 50}

// Options configures a Controller.
type Options struct {
	PageSize      int
	PageSizes     []int
	SortBy        string
	SortDirection api.SortDirection
}

// Controller holds paging, sorting, selection and the loaded page of one table.
type Controller[T any] struct {
	src Source[T]
	id  func(T) string

	mu       sync.Mutex
	page     int
	limit    int
	sizes    []int
	sortBy   string
	dir      api.SortDirection
	items    []T
	total    int
	loaded   bool
	loadErr  error
	selected []string
}

// New creates a controller on page 1. id returns the identity used for
// selection.
func New[T any](src Source[T], id func(T) string, opts Options) *Controller[T] {
	sizes := opts.PageSizes
	if len(sizes) == 0 {
		sizes = DefaultPageSizes
	}
	limit := opts.PageSize
	if !slices.Contains(sizes, limit) {
		limit = sizes[0]
		if slices.Contains(sizes, 10) {
			limit = 10
		}
	}
	dir := opts.SortDirection
	if dir == "" {
		dir = api.Asc
	}
	return &Controller[T]{
		src:    src,
		id:     id,
		page:   1,
		limit:  limit,
		sizes:  slices.Clone(sizes),
		sortBy: opts.SortBy,
		dir:    dir,
	}
}

// Load fetches the current page. On failure the previous rows are dropped
// and LoadErr is set until the next successful load. When the page no longer
// exists (rows were deleted) it falls back to the last page.
func (c *Controller[T]) Load(ctx context.Context) error {
	req := c.request()
	res, err := c.src.Fetch(ctx, req)
	if err == nil && len(res.Items) == 0 && res.Total > 0 && req.Page > 1 {
		c.mu.Lock()
		c.page = pageCount(res.Total, c.limit)
		c.mu.Unlock()
		req = c.request()
		res, err = c.src.Fetch(ctx, req)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.items = nil
		c.total = 0
		c.loaded = false
		c.loadErr = err
		return fmt.Errorf("load page %d: %w", req.Page, err)
	}
	c.items = res.Items
	c.total = res.Total
	c.loaded = true
	c.loadErr = nil
	return nil
}

func (c *Controller[T]) request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Request{Page: c.page, Limit: c.limit, SortBy: c.sortBy, SortDirection: c.dir}
}

// Items returns the rows of the loaded page.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Total returns the size of the full result set.
func (c *Controller[T]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Loaded reports whether the last load succeeded.
func (c *Controller[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// LoadErr returns the error of the last load, or nil.
func (c *Controller[T]) LoadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// =============================================================================
// SORTING
// =============================================================================

// ToggleSort sorts by key. The same key flips the direction, a new key starts
// ascending. Either way paging restarts at page 1.
func (c *Controller[T]) ToggleSort(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sortBy == key && c.dir == api.Asc {
		c.dir = api.Desc
	} else {
		c.dir = api.Asc
	}
	c.sortBy = key
	c.page = 1
}

// Sort returns the current sort key and direction.
func (c *Controller[T]) Sort() (string, api.SortDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortBy, c.dir
}

// =============================================================================
// PAGINATION
// =============================================================================

func pageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

// Page returns the 1-based current page.
func (c *Controller[T]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// PageCount returns the number of pages, at least 1.
func (c *Controller[T]) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pageCount(c.total, c.limit)
}

// PageSize returns the rows per page.
func (c *Controller[T]) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// PageSizes returns the allowed page sizes.
func (c *Controller[T]) PageSizes() []int { return slices.Clone(c.sizes) }

// SetPageSize changes the rows per page and returns to page 1.
func (c *Controller[T]) SetPageSize(n int) error {
	if !slices.Contains(c.sizes, n) {
		return fmt.Errorf("page size %d is not one of %v", n, c.sizes)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit = n
	c.page = 1
	return nil
}

// CyclePageSize moves to the next allowed page size.
func (c *Controller[T]) CyclePageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.sizes, c.limit)
	c.limit = c.sizes[(i+1)%len(c.sizes)]
	c.page = 1
	return c.limit
}

// SetPage jumps to page n, clamped to the known range.
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = min(max(n, 1), pageCount(c.total, c.limit))
}

// ResetPage returns to page 1 (criteria changed).
func (c *Controller[T]) ResetPage() { c.SetPage(1) }

// First, Prev, Next and Last move between pages; they are no-ops at the edges.
func (c *Controller[T]) First() { c.SetPage(1) }
func (c *Controller[T]) Prev()  { c.SetPage(c.Page() - 1) }
func (c *Controller[T]) Next()  { c.SetPage(c.Page() + 1) }
func (c *Controller[T]) Last()  { c.SetPage(c.PageCount()) }

// CanPrev reports whether first/prev are enabled.
func (c *Controller[T]) CanPrev() bool { return c.Page() > 1 }

// CanNext reports whether next/last are enabled.
func (c *Controller[T]) CanNext() bool { return c.Page() < c.PageCount() }

// Range returns the 1-based span of rows on the current page and the total,
// e.g. 41, 47, 47. An empty result is 0, 0, 0.
func (c *Controller[T]) Range() (from, to, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 0, 0, 0
	}
	from = (c.page-1)*c.limit + 1
	to = min(c.page*c.limit, c.total)
	return from, to, c.total
}

// =============================================================================
// SELECTION
// =============================================================================

// Toggle selects or deselects one row.
func (c *Controller[T]) Toggle(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.selected, id); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
		return
	}
	c.selected = append(c.selected, id)
}

// SelectAll selects exactly the displayed rows, or clears the selection when
// they are all selected already.
func (c *Controller[T]) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = c.id(it)
	}
	if len(ids) > 0 && c.allSelectedLocked(ids) {
		c.selected = nil
		return
	}
	c.selected = ids
}

func (c *Controller[T]) allSelectedLocked(ids []string) bool {
	if len(c.selected) != len(ids) {
		return false
	}
	for _, id := range ids {
		if !slices.Contains(c.selected, id) {
			return false
		}
	}
	return true
}

// AllSelected reports whether every displayed row is selected.
func (c *Controller[T]) AllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return false
	}
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = c.id(it)
	}
	return c.allSelectedLocked(ids)
}

// IsSelected reports whether id is selected.
func (c *Controller[T]) IsSelected(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.selected, id)
}

// Selected returns the selected ids in selection order.
func (c *Controller[T]) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selected)
}

// ClearSelection deselects everything.
func (c *Controller[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// BulkVisible reports whether the bulk action bar is shown.
func (c *Controller[T]) BulkVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selected) > 0
}

// ErrNothingSelected is returned by BulkDelete with an empty selection.
var ErrNothingSelected = errors.New("nothing selected")

// BulkDelete deletes the selected rows one at a time in selection order and
// stops at the first failure. Deleted ids leave the selection; on full
// success the selection ends up empty. The caller reloads afterwards.
func (c *Controller[T]) BulkDelete(ctx context.Context, del func(ctx context.Context, id string) error) (int, error) {
	ids := c.Selected()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}
	for n, id := range ids {
		if err := del(ctx, id); err != nil {
			c.mu.Lock()
			c.selected = slices.Clone(ids[n:])
			c.mu.Unlock()
			return n, fmt.Errorf("delete %s: %w", id, err)
		}
	}
	c.ClearSelection()
	return len(ids), nil
}
