package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/IvanBrykalov/gridview/grid"
	"github.com/IvanBrykalov/gridview/preload"
)

const (
	// DefaultThreshold is the item count from which rendering is windowed.
	DefaultThreshold = 50
	// DefaultInitialPreload is the number of leading images preloaded on first render.
	DefaultInitialPreload = 6
	// DefaultFrameInterval is Run's tick, one display frame at 60 Hz.
	DefaultFrameInterval = 16 * time.Millisecond
	// DefaultLoadMoreRows is how close to the last row a page load starts.
	DefaultLoadMoreRows = 2
)

// DefaultLayout is used when Options.Layout is the zero value.
var DefaultLayout = grid.Layout{ItemHeight: 480, Gap: 24, Overscan: 2}

// Preloader is the subset of *preload.Scheduler the controller uses.
type Preloader interface {
	PreloadImages(ctx context.Context, ids []string, p preload.Priority) error
}

var _ Preloader = (*preload.Scheduler)(nil)

// LoadMoreFunc returns the page of items starting at offset. An empty
// page marks the end of the list.
type LoadMoreFunc[T grid.Item] func(ctx context.Context, offset int) ([]T, error)

// Options configures a Controller. Zero values are safe; defaults are
// applied in New():
//   - Threshold <= 0        => 50
//   - InitialPreload == 0   => 6 (negative => disabled)
//   - zero Layout           => DefaultLayout
//   - nil Breakpoints       => grid.DefaultBreakpoints
//   - FrameInterval <= 0    => 16ms
//   - LoadMoreRows <= 0     => 2
//   - nil Preloader         => no preloading
//   - nil Logger            => slog.Default()
type Options[T grid.Item] struct {
	Threshold      int
	InitialPreload int

	Layout      grid.Layout
	Breakpoints []grid.Breakpoint

	FrameInterval time.Duration

	Preloader Preloader

	// LoadMore enables infinite loading.
	LoadMore     LoadMoreFunc[T]
	LoadMoreRows int

	Logger *slog.Logger
}
