package controller

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/IvanBrykalov/gridview/grid"
	"github.com/IvanBrykalov/gridview/preload"
)

// Controller adapts a grid to its viewport. All methods are safe for
// concurrent use.
type Controller[T grid.Item] struct {
	opt Options[T]

	mu       sync.Mutex
	items    []T
	version  uint64
	vp       grid.Viewport
	dirty    bool
	vm       ViewModel[T]

	// Initial preload progress over the current list: items scanned and
	// images requested so far. Appends fill the remaining slots.
	leadScanned int
	leadQueued  int

	loading   bool
	exhausted bool
	loadErr   error
	closed    bool

	virt    grid.Virtualizer[T]
	updates chan ViewModel[T]

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New constructs a Controller with an empty list and a zero viewport.
func New[T grid.Item](opt Options[T]) *Controller[T] {
	if opt.Threshold <= 0 {
		opt.Threshold = DefaultThreshold
	}
	if opt.InitialPreload == 0 {
		opt.InitialPreload = DefaultInitialPreload
	}
	if opt.Layout == (grid.Layout{}) {
		opt.Layout = DefaultLayout
	}
	if opt.Breakpoints == nil {
		opt.Breakpoints = grid.DefaultBreakpoints
	}
	if opt.FrameInterval <= 0 {
		opt.FrameInterval = DefaultFrameInterval
	}
	if opt.LoadMoreRows <= 0 {
		opt.LoadMoreRows = DefaultLoadMoreRows
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		opt:     opt,
		vp:      grid.Viewport{Columns: 1},
		dirty:   true,
		updates: make(chan ViewModel[T], 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetItems replaces the list. The next frame preloads its leading images.
func (c *Controller[T]) SetItems(items []T) {
	c.mu.Lock()
	c.items = slices.Clone(items)
	c.version++
	c.leadScanned, c.leadQueued = 0, 0
	c.exhausted = false
	c.loadErr = nil
	c.dirty = true
	c.mu.Unlock()
}

// AppendItems adds items to the end of the list.
func (c *Controller[T]) AppendItems(items ...T) {
	if len(items) == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.version++
	c.dirty = true
	c.mu.Unlock()
}

// Len returns the number of items in the list.
func (c *Controller[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// OnScroll records the container's scroll offset.
func (c *Controller[T]) OnScroll(offset float64) {
	c.mu.Lock()
	if c.vp.ScrollOffset != offset {
		c.vp.ScrollOffset = offset
		c.dirty = true
	}
	c.mu.Unlock()
}

// OnResize records the container's size and derives the column count.
func (c *Controller[T]) OnResize(width, height float64) {
	c.mu.Lock()
	vp := c.vp
	vp.ContainerWidth, vp.ContainerHeight = width, height
	vp.Columns = grid.ColumnsFor(width, c.opt.Breakpoints)
	if vp != c.vp {
		c.vp = vp
		c.dirty = true
	}
	c.mu.Unlock()
}

// RetryLoad clears a LoadMore failure so the next frame may try again.
func (c *Controller[T]) RetryLoad() {
	c.mu.Lock()
	if c.loadErr != nil {
		c.loadErr = nil
		c.dirty = true
	}
	c.mu.Unlock()
}

// View returns the most recent ViewModel.
func (c *Controller[T]) View() ViewModel[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm
}

// Frame recomputes the ViewModel if anything changed since the last
// frame and reports whether it did.
func (c *Controller[T]) Frame() (ViewModel[T], bool) {
	c.mu.Lock()
	if !c.dirty {
		vm := c.vm
		c.mu.Unlock()
		return vm, false
	}
	c.dirty = false
	vm, fx := c.renderLocked()
	c.vm = vm
	c.wg.Add(fx.tasks(c.opt.Preloader != nil))
	c.mu.Unlock()

	c.apply(fx)
	return vm, true
}

// Run calls Frame every FrameInterval until ctx is done or the controller
// is closed, publishing changed ViewModels on Updates.
func (c *Controller[T]) Run(ctx context.Context) error {
	t := time.NewTicker(c.opt.FrameInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return nil
		case <-t.C:
			if vm, changed := c.Frame(); changed {
				c.publish(vm)
			}
		}
	}
}

// Updates delivers ViewModels published by Run. Only the latest
// unconsumed one is kept.
func (c *Controller[T]) Updates() <-chan ViewModel[T] { return c.updates }

// Close cancels background preloads and page loads and waits for them.
// Safe to call repeatedly.
func (c *Controller[T]) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
		c.wg.Wait()
	})
	return nil
}

// ---- helpers ----

// effects are the side effects of one render, run outside the lock.
type effects struct {
	initial    []string
	prefetch   []string
	loadOffset int // -1 => no page load
}

// tasks counts the goroutines apply will start.
func (fx effects) tasks(preloading bool) int {
	n := 0
	if preloading && len(fx.initial) > 0 {
		n++
	}
	if fx.loadOffset >= 0 {
		n++
	}
	return n
}

func (c *Controller[T]) renderLocked() (ViewModel[T], effects) {
	fx := effects{loadOffset: -1}
	vp := c.vp
	vp.Columns = max(vp.Columns, 1)

	vm := ViewModel[T]{
		Seq:     c.vm.Seq + 1,
		Columns: vp.Columns,
	}
	if len(c.items) >= c.opt.Threshold {
		w, err := c.virt.Window(c.items, c.version, c.opt.Layout, vp)
		if err != nil {
			c.opt.Logger.Error("grid window", slog.Any("error", err))
			vm.Err = err
			return vm, fx
		}
		vm.Virtualized = true
		vm.Items = w.Items
		vm.TotalHeight = w.TotalHeight
		fx.prefetch = w.Prefetch
	} else {
		vm.Items, vm.TotalHeight = fullLayout(c.items, c.opt.Layout, vp.Columns)
	}

	vm.Container = BoxStyle{Height: vp.ContainerHeight, Position: "relative", OverflowY: "auto"}
	vm.Inner = BoxStyle{Height: vm.TotalHeight, Position: "relative"}

	if c.closed {
		fx.prefetch = nil
		vm.Loading = c.loading
		vm.Err = cmp.Or(vm.Err, c.loadErr)
		return vm, fx
	}

	fx.initial = c.leadingLocked()

	if c.opt.LoadMore != nil && !c.loading && !c.exhausted && c.loadErr == nil {
		margin := float64(c.opt.LoadMoreRows) * c.opt.Layout.RowHeight()
		if vp.ScrollOffset+vp.ContainerHeight >= vm.TotalHeight-margin {
			c.loading = true
			fx.loadOffset = len(c.items)
		}
	}
	vm.Loading = c.loading
	vm.Err = cmp.Or(vm.Err, c.loadErr)
	return vm, fx
}

// apply runs the side effects of a render; Frame has already added
// fx.tasks to the wait group.
func (c *Controller[T]) apply(fx effects) {
	p := c.opt.Preloader
	if p != nil && len(fx.initial) > 0 {
		go func() {
			defer c.wg.Done()
			if err := p.PreloadImages(c.ctx, fx.initial, preload.High); err != nil {
				c.opt.Logger.Debug("initial preload", slog.Int("images", len(fx.initial)), slog.Any("error", err))
			}
		}()
	}
	if p != nil && len(fx.prefetch) > 0 {
		if err := p.PreloadImages(c.ctx, fx.prefetch, preload.Low); err != nil {
			c.opt.Logger.Debug("prefetch", slog.Int("images", len(fx.prefetch)), slog.Any("error", err))
		}
	}
	if fx.loadOffset >= 0 {
		go func() {
			defer c.wg.Done()
			c.loadMore(fx.loadOffset)
		}()
	}
}

func (c *Controller[T]) loadMore(offset int) {
	page, err := c.opt.LoadMore(c.ctx, offset)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.dirty = true
	switch {
	case err != nil:
		if c.ctx.Err() == nil {
			c.loadErr = err
			c.opt.Logger.Warn("load more", slog.Int("offset", offset), slog.Any("error", err))
		}
	case len(page) == 0:
		c.exhausted = true
	case offset == len(c.items):
		c.items = append(c.items, page...)
		c.version++
	default:
		// The list was replaced while the page was in flight.
		c.opt.Logger.Debug("dropping stale page", slog.Int("offset", offset), slog.Int("items", len(c.items)))
	}
}

func (c *Controller[T]) publish(vm ViewModel[T]) {
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- vm:
	default:
	}
}

// fullLayout places every item without windowing.
func fullLayout[T grid.Item](items []T, l grid.Layout, cols int) ([]grid.VisibleItem[T], float64) {
	if len(items) == 0 {
		return nil, 0
	}
	rowHeight := l.RowHeight()
	width := 100 / float64(cols)
	out := make([]grid.VisibleItem[T], len(items))
	for i, it := range items {
		row, col := i/cols, i%cols
		out[i] = grid.VisibleItem[T]{
			Item:  it,
			Index: i,
			Row:   row,
			Col:   col,
			Style: grid.Style{
				Top:          float64(row) * rowHeight,
				LeftPercent:  float64(col) * width,
				WidthPercent: width,
				Height:       l.ItemHeight,
			},
		}
	}
	rows := (len(items) + cols - 1) / cols
	return out, float64(rows) * rowHeight
}

// leadingLocked returns the images of the list's first InitialPreload
// items not yet handed to the preloader. A list that starts empty or
// short gets the rest once items are appended.
func (c *Controller[T]) leadingLocked() []string {
	var out []string
	for c.leadQueued < c.opt.InitialPreload && c.leadScanned < len(c.items) {
		if url := c.items[c.leadScanned].ImageURL(); url != "" {
			out = append(out, url)
			c.leadQueued++
		}
		c.leadScanned++
	}
	return out
}
