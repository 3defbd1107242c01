// Package pagewalk walks page-numbered listing endpoints to exhaustion.
//
// Listing endpoints on the instance have no cursor; they take a 1-based page
// index and a fixed limit and return fewer than limit items once exhausted.
// Walk requests pages strictly in order because page N+1 is only known to
// exist after page N came back full.
package pagewalk

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPageSize is the per-page limit used against listing endpoints.
const DefaultPageSize = 50

// ErrInvalidPageSize is returned when Walk is called with a non-positive page size.
var ErrInvalidPageSize = errors.New("page size must be positive")

// FetchFunc returns the items of a single 1-based page.
type FetchFunc[T any] func(ctx context.Context, page int) ([]T, error)

// Page is one bounded-size response of a listing endpoint.
type Page[T any] struct {
	Index int
	Items []T
}

// Observer is notified after every successfully fetched page.
type Observer[T any] func(p Page[T], total int)

type options[T any] struct {
	maxPages int
	observe  Observer[T]
}

// Option configures a Walk.
type Option[T any] func(*options[T])

// WithMaxPages stops the walk after n pages even if the last one was full.
// n <= 0 means no limit.
func WithMaxPages[T any](n int) Option[T] {
	return func(o *options[T]) { o.maxPages = n }
}

// WithObserver registers a callback invoked after each page.
func WithObserver[T any](fn Observer[T]) Option[T] {
	return func(o *options[T]) { o.observe = fn }
}

// Walk fetches pages starting at 1 and returns the concatenation of all of
// them, unsorted and with duplicates intact.
//
// The walk stops when a page is empty or when the running total is no longer
// a multiple of pageSize. A listing that ends exactly on a multiple of
// pageSize therefore costs one extra, empty round-trip.
//
// A failure on any page fails the whole walk. Partial results are never
// returned because a caller cannot tell them apart from a truncated listing.
func Walk[T any](ctx context.Context, pageSize int, fetch FetchFunc[T], opts ...Option[T]) ([]T, error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}

	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}

	var all []T
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		if o.observe != nil {
			o.observe(Page[T]{Index: page, Items: items}, len(all))
		}

		if len(all)%pageSize != 0 {
			break
		}
		if o.maxPages > 0 && page >= o.maxPages {
			break
		}
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}
