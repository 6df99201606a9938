package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IvanBrykalov/gridview/cache"
	"github.com/IvanBrykalov/gridview/retry"
)

// DefaultPageSize is used when FeedOptions.PageSize is zero.
const DefaultPageSize = 60

// FeedOptions configures a Feed. Zero values are safe:
//   - PageSize <= 0    => 60
//   - TTL == 0         => cache.DefaultTTL (negative => pages never expire)
//   - SweepInterval    => passed to the page cache as is
//   - nil Retry        => retry.DefaultConfig()
//   - nil Logger       => slog.Default()
type FeedOptions struct {
	PageSize      int
	TTL           time.Duration
	SweepInterval time.Duration

	Retry *retry.Config

	CacheMetrics cache.Metrics
	Logger       *slog.Logger
}

// Feed pages through a PageSource. Each page is fetched under the retry
// executor and memoized in a TTL cache, so scrolling back over a page
// does not refetch it and concurrent requests for one page share a fetch.
type Feed struct {
	src   PageSource
	opt   FeedOptions
	pages *cache.TTL[PageKey, []Entry]

	mu     sync.Mutex
	cursor int
	done   bool
}

// NewFeed constructs a Feed over src.
func NewFeed(src PageSource, opt FeedOptions) *Feed {
	if opt.PageSize <= 0 {
		opt.PageSize = DefaultPageSize
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	f := &Feed{src: src, opt: opt}
	f.pages = cache.New(cache.Options[PageKey, []Entry]{
		DefaultTTL:    opt.TTL,
		SweepInterval: opt.SweepInterval,
		Loader:        f.fetch,
		Metrics:       opt.CacheMetrics,
		Logger:        opt.Logger,
	})
	return f
}

// Page returns entries [offset, offset+limit). The returned slice is
// shared with the cache and must not be modified.
func (f *Feed) Page(ctx context.Context, offset, limit int) ([]Entry, error) {
	if offset < 0 || limit <= 0 {
		return nil, retry.Validation(nil, fmt.Sprintf("catalog: invalid page offset=%d limit=%d", offset, limit))
	}
	return f.pages.GetOrLoad(ctx, PageKey{Offset: offset, Limit: limit})
}

// LoadMore returns the PageSize page at offset. Its signature matches
// controller.LoadMoreFunc.
func (f *Feed) LoadMore(ctx context.Context, offset int) ([]Entry, error) {
	return f.Page(ctx, offset, f.opt.PageSize)
}

// Next returns the page after the previous Next call and advances the
// cursor. After a short page it returns an empty slice.
func (f *Feed) Next(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return nil, nil
	}
	page, err := f.Page(ctx, f.cursor, f.opt.PageSize)
	if err != nil {
		return nil, err
	}
	f.cursor += len(page)
	if len(page) < f.opt.PageSize {
		f.done = true
	}
	return page, nil
}

// Rewind resets the Next cursor to the start of the catalog.
func (f *Feed) Rewind() {
	f.mu.Lock()
	f.cursor, f.done = 0, false
	f.mu.Unlock()
}

// Invalidate drops every cached page.
func (f *Feed) Invalidate() { f.pages.Clear() }

// CacheStats exposes the page cache counters.
func (f *Feed) CacheStats() cache.Stats { return f.pages.Stats() }

// Close stops the page cache sweeper.
func (f *Feed) Close() error { return f.pages.Close() }

func (f *Feed) fetch(ctx context.Context, k PageKey) ([]Entry, error) {
	res := retry.Do(ctx, func(ctx context.Context) ([]Entry, error) {
		return f.src.FetchPage(ctx, k.Offset, k.Limit)
	}, f.opt.Retry)
	if !res.Succeeded {
		f.opt.Logger.Warn("fetch page",
			slog.Int("offset", k.Offset),
			slog.Int("limit", k.Limit),
			slog.Int("attempts", res.Attempts),
			slog.Any("error", res.Err),
		)
		return nil, fmt.Errorf("catalog: page %s: %w", k, res.Err)
	}
	return res.Value, nil
}
