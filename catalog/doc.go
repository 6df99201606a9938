// Package catalog is the item side of the grid: the Entry record, the
// PageSource contract of the upstream data layer and a Feed that pages
// through a source with retries and a TTL page cache.
package catalog
