package listing

import (
	"context"
	"sort"
	"strings"

	"prizedesk/internal/api"
	"prizedesk/internal/filter"
	"prizedesk/internal/types"
)

// Request is what a controller asks its source for.
type Request struct {
	Page          int
	Limit         int
	SortBy        string
	SortDirection api.SortDirection
}

// Page is one page of results plus the size of the full result set.
type Page[T any] struct {
	Items []T
	Total int
}

// Source produces pages for a Controller.
type Source[T any] interface {
	Fetch(ctx context.Context, req Request) (Page[T], error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, req Request) (Page[T], error)

// Fetch calls f.
func (f SourceFunc[T]) Fetch(ctx context.Context, req Request) (Page[T], error) {
	return f(ctx, req)
}

// VerificationLister is the part of the REST client a verification list needs.
type VerificationLister interface {
	ListVerifications(ctx context.Context, p api.ListParams) (types.Page, error)
}

// Verifications pages records on the server using the criteria current at
// fetch time. fixed adjusts the parameters after the criteria are applied,
// e.g. to pin the published view to published records.
func Verifications(client VerificationLister, criteria func() filter.Criteria, fixed ...func(*api.ListParams)) Source[types.Record] {
	return SourceFunc[types.Record](func(ctx context.Context, req Request) (Page[types.Record], error) {
		p := criteria().Params()
		p.Page = req.Page
		p.Limit = req.Limit
		p.SortBy = req.SortBy
		p.SortDirection = req.SortDirection
		for _, f := range fixed {
			f(&p)
		}

		res, err := client.ListVerifications(ctx, p)
		if err != nil {
			return Page[types.Record]{}, err
		}
		items := make([]types.Record, len(res.Records))
		for i, r := range res.Records {
			items[i] = r.WithDefaults()
		}
		return Page[types.Record]{Items: items, Total: res.TotalCount}, nil
	})
}

// Local sorts and pages an unpaged result set on the client. key returns the
// sortable text of an item for a column.
func Local[T any](all func(ctx context.Context) ([]T, error), key func(item T, column string) string) Source[T] {
	return SourceFunc[T](func(ctx context.Context, req Request) (Page[T], error) {
		items, err := all(ctx)
		if err != nil {
			return Page[T]{}, err
		}
		items = append([]T(nil), items...)

		if req.SortBy != "" {
			sort.SliceStable(items, func(i, j int) bool {
				c := strings.Compare(key(items[i], req.SortBy), key(items[j], req.SortBy))
				if req.SortDirection == api.Desc {
					return c > 0
				}
				return c < 0
			})
		}

		total := len(items)
		if req.Limit <= 0 {
			return Page[T]{Items: items, Total: total}, nil
		}
		start := (max(req.Page, 1) - 1) * req.Limit
		if start >= total {
			return Page[T]{Items: []T{}, Total: total}, nil
		}
		end := min(start+req.Limit, total)
		return Page[T]{Items: items[start:end], Total: total}, nil
	})
}
