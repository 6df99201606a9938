package grid

import (
	"sync"
	"sync/atomic"
)

type memoKey struct {
	version uint64
	n       int
	layout  Layout
	vp      Viewport
}

// Virtualizer memoizes the last Compute result. Callers bump version
// whenever the item list is replaced or mutated; identical (version,
// length, layout, viewport) inputs return the cached Window.
//
// The returned Window shares its Items slice between calls and must be
// treated as read-only.
type Virtualizer[T Item] struct {
	mu    sync.Mutex
	key   memoKey
	win   Window[T]
	valid bool

	computes atomic.Uint64
}

// Window returns the render window, recomputing only when inputs changed.
func (v *Virtualizer[T]) Window(items []T, version uint64, layout Layout, vp Viewport) (Window[T], error) {
	key := memoKey{version: version, n: len(items), layout: layout, vp: vp}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.valid && v.key == key {
		return v.win, nil
	}
	w, err := Compute(items, layout, vp)
	v.computes.Add(1)
	if err != nil {
		v.valid = false
		return Window[T]{}, err
	}
	v.key, v.win, v.valid = key, w, true
	return w, nil
}

// Reset drops the memoized window.
func (v *Virtualizer[T]) Reset() {
	v.mu.Lock()
	v.valid = false
	v.win = Window[T]{}
	v.mu.Unlock()
}

// Computes returns how many times Compute actually ran.
func (v *Virtualizer[T]) Computes() uint64 { return v.computes.Load() }
