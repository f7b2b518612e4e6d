package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ProductFetcher is the subset of Client used by Browser.
type ProductFetcher interface {
	FetchCategory(ctx context.Context, name string) ([]Product, error)
}

// Browser tracks the selected category and the products visible for it.
// A fetch that resolves after the selection has moved on is discarded.
type Browser struct {
	fetcher ProductFetcher
	log     *zap.Logger

	mu       sync.Mutex
	gen      uint64
	selected string
	products []Product
	err      error
}

// NewBrowser creates a Browser with nothing selected.
func NewBrowser(fetcher ProductFetcher, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Browser{fetcher: fetcher, log: log}
}

// Select makes category the current selection, fetches its products and
// publishes them if category is still selected when the fetch returns.
// applied is false when the result was stale and dropped. A fetch error for
// the current selection is recorded (see Err) and leaves an empty listing.
func (b *Browser) Select(ctx context.Context, category string) (applied bool, err error) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.selected = category
	b.mu.Unlock()

	products, err := b.fetcher.FetchCategory(ctx, category)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		b.log.Debug("discarding stale catalog response",
			zap.String("category", category),
			zap.String("selected", b.selected),
		)
		return false, nil
	}
	if err != nil {
		b.products = nil
		b.err = err
		return true, err
	}
	b.products = Available(products)
	b.err = nil
	return true, nil
}

// Selected returns the currently selected category title.
func (b *Browser) Selected() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Products returns the available products of the current selection.
func (b *Browser) Products() []Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Product, len(b.products))
	copy(out, b.products)
	return out
}

// Err returns the error of the last applied fetch, if any.
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
