package controller

import "github.com/IvanBrykalov/gridview/grid"

// BoxStyle sizes one of the two nested boxes of the scroll container.
type BoxStyle struct {
	Height    float64
	Position  string
	OverflowY string
}

// ViewModel is everything the presentation layer needs for one frame.
// It is a snapshot and must not be mutated.
type ViewModel[T grid.Item] struct {
	// Seq increases with every recomputation.
	Seq uint64

	Virtualized bool
	Items       []grid.VisibleItem[T]
	TotalHeight float64
	Columns     int

	// Container is the scrolling viewport; Inner is sized to TotalHeight
	// so the scrollbar reflects the full list.
	Container BoxStyle
	Inner     BoxStyle

	// Loading is set while a LoadMore page is being fetched.
	Loading bool
	// Err is the last LoadMore failure, cleared by RetryLoad.
	Err error
}
