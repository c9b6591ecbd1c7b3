// Package filter holds the shared search and filter criteria of the
// verification lists. Criteria is an immutable value; every change goes
// through Reduce so the dashboard, the published view and the filter dialog
// always observe one consistent state.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"prizedesk/internal/api"
	"prizedesk/internal/types"
)

// Published filters on the publish flag.
type Published string

const (
	PublishedAny Published = types.All
	PublishedYes Published = "true"
	PublishedNo  Published = "false"
)

// SearchableFields are the fields free-text search can target, in dialog order.
var SearchableFields = []types.Field{
	types.FieldClientName,
	types.FieldEmail,
	types.FieldAccountNumber,
	types.FieldAgencyID,
}

// Criteria is the search and filter state. Treat it as a value: use the
// With* helpers or Reduce, which copy.
type Criteria struct {
	Query        string
	SearchFields []types.Field
	Status       string // types.All or a types.Status value
	Published    Published
	DueDate      string // YYYY-MM-DD, empty for any
}

// Default returns the reset state: no query, every field searched, no filters.
func Default() Criteria {
	return Criteria{
		SearchFields: slices.Clone(SearchableFields),
		Status:       types.All,
		Published:    PublishedAny,
	}
}

// IsDefault reports whether c filters nothing.
func (c Criteria) IsDefault() bool { return c.ActiveCount() == 0 }

// ActiveCount is the number of active filters, shown as a badge on the
// filter button.
func (c Criteria) ActiveCount() int {
	n := 0
	if strings.TrimSpace(c.Query) != "" {
		n++
	}
	if c.Status != "" && c.Status != types.All {
		n++
	}
	if c.Published != "" && c.Published != PublishedAny {
		n++
	}
	if c.DueDate != "" {
		n++
	}
	return n
}

// Searches reports whether field is among the searched fields.
func (c Criteria) Searches(field types.Field) bool {
	return slices.Contains(c.SearchFields, field)
}

// WithSearchField returns a copy with field switched on or off.
func (c Criteria) WithSearchField(field types.Field, on bool) Criteria {
	fields := make([]types.Field, 0, len(SearchableFields))
	for _, f := range SearchableFields {
		if (f == field && on) || (f != field && c.Searches(f)) {
			fields = append(fields, f)
		}
	}
	c.SearchFields = fields
	return c
}

// Validate checks every value against the choices the backend understands.
func (c Criteria) Validate() error {
	switch types.Status(c.Status) {
	case "", types.All, types.StatusInProgress, types.StatusCompleted:
	default:
		return fmt.Errorf("unknown status filter %q", c.Status)
	}
	switch c.Published {
	case "", PublishedAny, PublishedYes, PublishedNo:
	default:
		return fmt.Errorf("unknown published filter %q", c.Published)
	}
	for _, f := range c.SearchFields {
		if !slices.Contains(SearchableFields, f) {
			return fmt.Errorf("field %q is not searchable", f)
		}
	}
	if c.DueDate != "" {
		if _, err := time.Parse(types.DateLayout, c.DueDate); err != nil {
			return fmt.Errorf("invalid due date %q: %w", c.DueDate, err)
		}
	}
	return nil
}

// Params converts c to list parameters. Paging and sorting are left to the
// caller.
func (c Criteria) Params() api.ListParams {
	p := api.ListParams{
		Query:        strings.TrimSpace(c.Query),
		Status:       c.Status,
		Published:    string(c.Published),
		PrizeDueDate: c.DueDate,
	}
	if p.Query != "" {
		for _, f := range c.SearchFields {
			p.SearchFields = append(p.SearchFields, string(f))
		}
	}
	return p
}

func (c Criteria) clone() Criteria {
	c.SearchFields = slices.Clone(c.SearchFields)
	return c
}

func (c Criteria) equal(o Criteria) bool {
	return c.Query == o.Query && c.Status == o.Status && c.Published == o.Published &&
		c.DueDate == o.DueDate && slices.Equal(c.SearchFields, o.SearchFields)
}

// =============================================================================
// REDUCER
// =============================================================================

// Action is a change to the criteria.
type Action interface {
	apply(Criteria) Criteria
}

// SetQuery replaces the free-text query (the quick search box).
type SetQuery struct{ Query string }

// SetDueDate replaces the due date filter (the date picker on the dashboard).
type SetDueDate struct{ Date string }

// Apply replaces everything at once (the filter dialog's apply button).
type Apply struct{ Criteria Criteria }

// Reset restores Default.
type Reset struct{}

func (a SetQuery) apply(c Criteria) Criteria   { c.Query = a.Query; return c }
func (a SetDueDate) apply(c Criteria) Criteria { c.DueDate = a.Date; return c }
func (a Apply) apply(Criteria) Criteria        { return a.Criteria.clone() }
func (Reset) apply(Criteria) Criteria          { return Default() }

// Reduce returns the criteria after applying a. c is not modified.
func Reduce(c Criteria, a Action) Criteria {
	return a.apply(c.clone())
}

// Store owns the current criteria. It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	cur Criteria
}

// NewStore starts from Default.
func NewStore() *Store { return &Store{cur: Default()} }

// Get returns a copy of the current criteria.
func (s *Store) Get() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.clone()
}

// Dispatch applies a and reports whether anything changed. Lists reset to
// page 1 when it did.
func (s *Store) Dispatch(a Action) (Criteria, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Reduce(s.cur, a)
	changed := !next.equal(s.cur)
	s.cur = next
	return next.clone(), changed
}

// =============================================================================
// DIALOG
// =============================================================================

var statusCycle = []string{types.All, string(types.StatusInProgress), string(types.StatusCompleted)}

var publishedCycle = []Published{PublishedAny, PublishedYes, PublishedNo}

// Dialog stages edits to a copy of the criteria. Nothing reaches the store
// until Commit; Cancel just drops the copy.
type Dialog struct {
	staged Criteria
}

// OpenDialog starts a dialog from the current criteria.
func OpenDialog(current Criteria) *Dialog {
	return &Dialog{staged: current.clone()}
}

// Staged returns the edited criteria.
func (d *Dialog) Staged() Criteria { return d.staged.clone() }

// SetQuery edits the staged query.
func (d *Dialog) SetQuery(q string) { d.staged.Query = q }

// ToggleField flips one search field.
func (d *Dialog) ToggleField(f types.Field) {
	d.staged = d.staged.WithSearchField(f, !d.staged.Searches(f))
}

// CycleStatus steps through all, in progress and completed.
func (d *Dialog) CycleStatus() {
	d.staged.Status = next(statusCycle, d.staged.Status)
}

// CyclePublished steps through any, yes and no.
func (d *Dialog) CyclePublished() {
	d.staged.Published = next(publishedCycle, d.staged.Published)
}

// SetDueDate edits the staged due date.
func (d *Dialog) SetDueDate(date string) { d.staged.DueDate = date }

// Reset restores the defaults inside the dialog only.
func (d *Dialog) Reset() { d.staged = Default() }

// Commit validates the staged criteria and returns the action to dispatch.
func (d *Dialog) Commit() (Action, error) {
	if err := d.staged.Validate(); err != nil {
		return nil, err
	}
	return Apply{Criteria: d.staged.clone()}, nil
}

func next[T comparable](cycle []T, cur T) T {
	i := slices.Index(cycle, cur)
	return cycle[(i+1)%len(cycle)]
}
