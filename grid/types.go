package grid

import (
	"fmt"

	perrors "github.com/jmgilman/go/errors"
)

// ErrInvalidLayout reports a Layout or Viewport that cannot produce rows.
var ErrInvalidLayout = perrors.New(perrors.CodeInvalidInput, "grid: invalid layout")

// Item is what the grid needs from a record: a stable identity and an
// optional image. Other fields are never inspected.
type Item interface {
	ID() string
	// ImageURL returns the item's image resource, or "" if it has none.
	ImageURL() string
}

// Layout is the fixed geometry of one grid.
type Layout struct {
	ItemHeight float64
	Gap        float64
	// Overscan is the number of extra rows rendered above and below the
	// viewport.
	Overscan int
}

// RowHeight is the vertical pitch of one row.
func (l Layout) RowHeight() float64 { return l.ItemHeight + l.Gap }

func (l Layout) validate(columns int) error {
	switch {
	case columns < 1:
		return invalid(fmt.Sprintf("columns must be >= 1, got %d", columns))
	case l.Overscan < 0:
		return invalid(fmt.Sprintf("overscan must be >= 0, got %d", l.Overscan))
	case l.ItemHeight < 0 || l.Gap < 0:
		return invalid(fmt.Sprintf("negative size: item height %v, gap %v", l.ItemHeight, l.Gap))
	case !(l.RowHeight() > 0):
		return invalid(fmt.Sprintf("row height must be > 0, got %v", l.RowHeight()))
	}
	return nil
}

func invalid(msg string) error {
	return perrors.Wrap(ErrInvalidLayout, perrors.CodeInvalidInput, msg)
}

// Viewport is the scroll container's state. Columns is normally derived
// from ContainerWidth with ColumnsFor.
type Viewport struct {
	ScrollOffset    float64
	ContainerHeight float64
	ContainerWidth  float64
	Columns         int
}

// Style is an item's absolute position inside the scroll container.
// Horizontal placement is in percent of the container width.
type Style struct {
	Top          float64
	LeftPercent  float64
	WidthPercent float64
	Height       float64
}

// VisibleItem is one rendered cell.
type VisibleItem[T Item] struct {
	Item  T
	Index int
	Row   int
	Col   int
	Style Style
}

// Window is the render plan for one viewport. For an empty item list
// EndRow and EndIndex are -1 and Items is empty.
type Window[T Item] struct {
	StartRow   int
	EndRow     int
	StartIndex int
	// EndIndex is the last emitted index, inclusive.
	EndIndex int

	Items       []VisibleItem[T]
	TotalHeight float64
	RowHeight   float64

	// Prefetch holds the image URLs of the row right after EndRow.
	Prefetch []string
}

// Len returns the number of rendered cells.
func (w Window[T]) Len() int { return len(w.Items) }
