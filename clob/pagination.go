package clob

import (
	"context"
	"iter"

	"github.com/soleret/polyclob/clob/types"
)

// PageFunc fetches one page of results at the given cursor. The paged
// client methods (OpenOrders, Trades, BuilderTrades) curry into one.
type PageFunc[T any] func(ctx context.Context, cursor string) (types.Page[T], error)

// Pages walks fetch from the first page to the terminal cursor, yielding
// each page's items. A fetch error is yielded once and ends the sequence.
func Pages[T any](ctx context.Context, fetch PageFunc[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		cursor := ""
		for {
			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page.Data, nil) {
				return
			}
			if page.NextCursor == "" || page.NextCursor == terminalCursor {
				return
			}
			cursor = page.NextCursor
		}
	}
}

// Collect drains every page into one slice.
func Collect[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	var out []T
	for items, err := range Pages(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
