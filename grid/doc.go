// Package grid computes which items of a long, fixed-height grid must be
// rendered for a given scroll position ("windowing").
//
// Compute is a pure function of the item count, the Layout and the
// Viewport: the same inputs always produce the same Window, so it can be
// unit tested and replayed. Virtualizer adds a single-entry memo on top
// for callers that recompute on every frame.
//
// For rowHeight = ItemHeight + Gap and rows = ceil(n / Columns):
//
//	totalHeight = rows * rowHeight
//	startRow    = max(0, floor(scroll / rowHeight) - overscan)
//	span        = ceil(containerHeight / rowHeight) + 2*overscan
//	endRow      = min(rows-1, startRow + span - 1)
//
// Items in rows [startRow, endRow] are emitted with absolute positions.
// Image URLs of the row after endRow are returned as a prefetch hint.
package grid
