package preload

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeLoader counts fetches per id and tracks peak concurrency.
type fakeLoader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int // remaining failures per id
	block map[string]chan struct{}
	delay time.Duration

	cur, peak atomic.Int32
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		calls: make(map[string]int),
		fail:  make(map[string]int),
		block: make(map[string]chan struct{}),
	}
}

func (l *fakeLoader) Load(ctx context.Context, id string) error {
	n := l.cur.Add(1)
	defer l.cur.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}

	l.mu.Lock()
	l.calls[id]++
	ch := l.block[id]
	fail := l.fail[id] > 0
	if fail {
		l.fail[id]--
	}
	l.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if fail {
		return errors.New("load failed")
	}
	return nil
}

func (l *fakeLoader) blockOn(id string) chan struct{} {
	ch := make(chan struct{})
	l.mu.Lock()
	l.block[id] = ch
	l.mu.Unlock()
	return ch
}

func (l *fakeLoader) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

func newScheduler(t *testing.T, l Loader, opt Options) *Scheduler {
	t.Helper()
	s := New(l, opt)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func idle(s *Scheduler) func() bool {
	return func() bool {
		st := s.Stats()
		return st.Pending == 0 && st.InFlight == 0
	}
}

// Enqueueing the same id twice fetches it once.
func TestQueueImagePreload_Idempotent(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	release := l.blockOn("a")
	s := newScheduler(t, l, Options{})

	s.QueueImagePreload("a")
	s.QueueImagePreload("a")
	waitFor(t, "a in flight", func() bool { return s.Stats().InFlight == 1 })
	s.QueueImagePreload("a")
	close(release)

	waitFor(t, "a completed", func() bool { return s.IsImagePreloaded("a") })
	s.QueueImagePreload("a")
	waitFor(t, "idle", idle(s))

	if got := l.count("a"); got != 1 {
		t.Fatalf("fetches of a = %d, want 1", got)
	}
}

// With K workers and M > K queued ids, at most K fetches overlap.
func TestScheduler_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	const k, m = 3, 24
	l := newFakeLoader()
	l.delay = 3 * time.Millisecond
	s := newScheduler(t, l, Options{Concurrency: k})

	for i := 0; i < m; i++ {
		s.QueueImagePreload("img-" + strconv.Itoa(i))
	}
	waitFor(t, "all completed", func() bool { return s.Stats().Completed == m })

	if p := l.peak.Load(); p > k {
		t.Fatalf("peak in-flight = %d, want <= %d", p, k)
	}
	for i := 0; i < m; i++ {
		if got := l.count("img-" + strconv.Itoa(i)); got != 1 {
			t.Fatalf("img-%d fetched %d times", i, got)
		}
	}
}

func TestPreloadImage_CompletedSkipsFetch(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	s := newScheduler(t, l, Options{})
	ctx := context.Background()

	if err := s.PreloadImage(ctx, "a"); err != nil {
		t.Fatalf("PreloadImage: %v", err)
	}
	if !s.IsImagePreloaded("a") {
		t.Fatal("a must be completed")
	}
	if err := s.PreloadImage(ctx, "a"); err != nil {
		t.Fatalf("second PreloadImage: %v", err)
	}
	if got := l.count("a"); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
	if err := s.PreloadImage(ctx, ""); err != nil {
		t.Fatalf("empty id: %v", err)
	}
}

// A direct preload joins a background load of the same id.
func TestPreloadImage_JoinsInFlight(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	release := l.blockOn("a")
	s := newScheduler(t, l, Options{})

	s.QueueImagePreload("a")
	waitFor(t, "a in flight", func() bool { return s.Stats().InFlight == 1 })

	errc := make(chan error, 1)
	go func() { errc <- s.PreloadImage(context.Background(), "a") }()
	time.Sleep(5 * time.Millisecond)
	close(release)

	if err := <-errc; err != nil {
		t.Fatalf("PreloadImage: %v", err)
	}
	if got := l.count("a"); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

// A direct preload claims a pending id; the worker later skips it.
func TestPreloadImage_ClaimsQueued(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	release := l.blockOn("x")
	s := newScheduler(t, l, Options{Concurrency: 1})

	s.QueueImagePreload("x")
	waitFor(t, "x in flight", func() bool { return s.Stats().InFlight == 1 })
	s.QueueImagePreload("y")
	if st := s.Stats(); st.Pending != 1 {
		t.Fatalf("pending = %d, want 1", st.Pending)
	}

	if err := s.PreloadImage(context.Background(), "y"); err != nil {
		t.Fatalf("PreloadImage(y): %v", err)
	}
	if st := s.Stats(); st.Pending != 0 {
		t.Fatalf("y must leave the queue, pending = %d", st.Pending)
	}
	close(release)
	waitFor(t, "idle", idle(s))

	if got := l.count("y"); got != 1 {
		t.Fatalf("fetches of y = %d, want 1", got)
	}
}

// A failed load is not completed and can be queued again.
func TestScheduler_FailureIsolated(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	l.fail["bad"] = 1
	s := newScheduler(t, l, Options{})

	s.QueueImagePreload("bad")
	s.QueueImagePreload("good")
	waitFor(t, "idle", idle(s))

	if s.IsImagePreloaded("bad") {
		t.Fatal("failed id must not be completed")
	}
	if !s.IsImagePreloaded("good") {
		t.Fatal("sibling must complete despite the failure")
	}

	s.QueueImagePreload("bad")
	waitFor(t, "bad completed", func() bool { return s.IsImagePreloaded("bad") })
	if got := l.count("bad"); got != 2 {
		t.Fatalf("fetches of bad = %d, want 2", got)
	}
}

func TestPreloadImages_High(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	s := newScheduler(t, l, Options{HighPriorityLimit: 2})
	ids := []string{"a", "b", "c", "d", "a"}

	if err := s.PreloadImages(context.Background(), ids, High); err != nil {
		t.Fatalf("PreloadImages: %v", err)
	}
	for _, id := range ids {
		if !s.IsImagePreloaded(id) {
			t.Fatalf("%s must be completed on return", id)
		}
	}
	if got := l.count("a"); got != 1 {
		t.Fatalf("duplicate id fetched %d times", got)
	}

	l.fail["e"] = 1
	if err := s.PreloadImages(context.Background(), []string{"e", "f"}, High); err == nil {
		t.Fatal("expected the failing id's error")
	}
	if !s.IsImagePreloaded("f") {
		t.Fatal("f must still complete")
	}
}

func TestPreloadImages_LowReturnsImmediately(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	release := l.blockOn("a")
	s := newScheduler(t, l, Options{Concurrency: 1})

	if err := s.PreloadImages(context.Background(), []string{"a", "b", "c"}, Low); err != nil {
		t.Fatalf("PreloadImages: %v", err)
	}
	if st := s.Stats(); st.Pending+st.InFlight != 3 {
		t.Fatalf("stats = %+v, want 3 outstanding", st)
	}
	close(release)
	waitFor(t, "all completed", func() bool { return s.Stats().Completed == 3 })
}

func TestScheduler_CompletedBounded(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newFakeLoader(), Options{MaxCompleted: 2})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.PreloadImage(ctx, id); err != nil {
			t.Fatalf("PreloadImage(%s): %v", id, err)
		}
	}
	if got := s.Stats().Completed; got != 2 {
		t.Fatalf("completed = %d, want 2", got)
	}
	if s.IsImagePreloaded("a") {
		t.Fatal("oldest id must be evicted")
	}
}

func TestScheduler_LoaderPanic(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, LoaderFunc(func(context.Context, string) error {
		panic("boom")
	}), Options{})

	if err := s.PreloadImage(context.Background(), "a"); err == nil {
		t.Fatal("expected error from panicking loader")
	}
	if s.IsImagePreloaded("a") {
		t.Fatal("panicked load must not complete")
	}
}

func TestScheduler_Close(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	l.blockOn("a")
	s := New(l, Options{Concurrency: 1})

	s.QueueImagePreload("a")
	s.QueueImagePreload("b")
	waitFor(t, "a in flight", func() bool { return s.Stats().InFlight == 1 })

	// Close cancels the blocked load and waits for the worker.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st := s.Stats(); st.Pending != 0 || st.InFlight != 0 {
		t.Fatalf("stats after Close = %+v", st)
	}
	if got := l.count("b"); got != 0 {
		t.Fatalf("pending id fetched after Close: %d", got)
	}
	if err := s.PreloadImage(context.Background(), "c"); !errors.Is(err, ErrClosed) {
		t.Fatalf("PreloadImage after Close = %v, want ErrClosed", err)
	}
	s.QueueImagePreload("d")
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// Cancelling the caller's context ends the wait, not the load.
func TestPreloadImage_CallerCancel(t *testing.T) {
	t.Parallel()

	l := newFakeLoader()
	release := l.blockOn("a")
	s := newScheduler(t, l, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.PreloadImage(ctx, "a") }()
	waitFor(t, "a in flight", func() bool { return s.Stats().InFlight == 1 })
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	close(release)
	waitFor(t, "a completed", func() bool { return s.IsImagePreloaded("a") })
}
