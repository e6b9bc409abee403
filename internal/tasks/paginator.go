package tasks

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// PageFunc fetches the page at cursor. The empty cursor is the first page.
type PageFunc[T any] func(ctx context.Context, cursor string) (models.Page[T], error)

// Paginator walks cursor-paginated endpoints one page at a time, sleeping a fixed delay
// between pages (never before the first).
type Paginator struct {
	delay  time.Duration
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPaginator creates a paginator with the given politeness delay.
func NewPaginator(delay time.Duration, logger *log.Logger) *Paginator {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Paginator{delay: delay, logger: logger, sleep: sleepContext}
}

// WalkResult is the outcome of a complete walk.
//
// Err is the fetch error that ended the walk early; Items then holds every item from the
// pages before the failing one.
type WalkResult[T any] struct {
	Items []T
	Pages int
	Err   error
}

// Partial reports whether the walk stopped before the last page.
func (r WalkResult[T]) Partial() bool {
	return r.Err != nil
}

// Canceled reports whether the walk was stopped by context cancellation.
func (r WalkResult[T]) Canceled() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}

// Pages returns a lazy sequence of pages. Iteration ends after the page with an empty Next,
// or after yielding the first error.
func Pages[T any](ctx context.Context, p *Paginator, fetch PageFunc[T]) iter.Seq2[models.Page[T], error] {
	return func(yield func(models.Page[T], error) bool) {
		cursor := ""
		for n := 0; ; n++ {
			if n > 0 {
				if err := p.sleep(ctx, p.delay); err != nil {
					yield(models.Page[T]{}, err)
					return
				}
			}

			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(models.Page[T]{}, err)
				return
			}
			if !yield(page, nil) || page.Last() {
				return
			}
			cursor = page.Next
		}
	}
}

// Walk drains [Pages] into a flat slice in page order. A failing page ends the walk with the
// items gathered so far; the failure is logged and returned in [WalkResult.Err], never raised.
func Walk[T any](ctx context.Context, p *Paginator, fetch PageFunc[T]) WalkResult[T] {
	var result WalkResult[T]

	for page, err := range Pages(ctx, p, fetch) {
		if err != nil {
			result.Err = err
			p.logger.Warn("pagination stopped early, keeping partial results",
				"page", result.Pages+1, "items", len(result.Items), "err", err)
			break
		}

		result.Pages++
		result.Items = append(result.Items, page.Items...)
		p.logger.Debug("fetched page", "page", result.Pages, "items", len(page.Items), "next", page.Next)
	}

	return result
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
