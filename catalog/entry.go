package catalog

import (
	"context"
	"strconv"

	"github.com/IvanBrykalov/gridview/grid"
)

// Entry is one catalog record as the grid sees it.
type Entry struct {
	SKU      string
	Title    string
	Image    string
	Position int
}

// ID implements grid.Item.
func (e Entry) ID() string { return e.SKU }

// ImageURL implements grid.Item.
func (e Entry) ImageURL() string { return e.Image }

var _ grid.Item = Entry{}

// PageSource returns up to limit entries starting at offset, in catalog
// order. A short or empty page means the end of the catalog. Errors
// should be tagged with retry kinds so transient failures are retried.
type PageSource interface {
	FetchPage(ctx context.Context, offset, limit int) ([]Entry, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, offset, limit int) ([]Entry, error)

func (f PageSourceFunc) FetchPage(ctx context.Context, offset, limit int) ([]Entry, error) {
	return f(ctx, offset, limit)
}

// PageKey identifies one cached page.
type PageKey struct {
	Offset int
	Limit  int
}

// String renders the key for shard hashing.
func (k PageKey) String() string {
	return strconv.Itoa(k.Offset) + ":" + strconv.Itoa(k.Limit)
}
