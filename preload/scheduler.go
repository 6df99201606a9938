package preload

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by PreloadImage after Close.
var ErrClosed = errors.New("preload: scheduler closed")

// Stats is a point-in-time snapshot of the scheduler's sets.
type Stats struct {
	Pending   int
	InFlight  int
	Completed int
}

// flight is one running load; waiters block on done and then read err.
type flight struct {
	done chan struct{}
	err  error
}

// Scheduler de-duplicates and caps image preloads.
// All methods are safe for concurrent use.
type Scheduler struct {
	loader Loader
	opt    Options

	mu        sync.Mutex
	queue     []string             // FIFO; may hold IDs already claimed elsewhere
	queued    map[string]time.Time // pending IDs and their enqueue time
	inflight  map[string]*flight
	completed *lru.Cache[string, struct{}]
	closed    bool

	wake   chan struct{} // cap 1; a pending wake-up for idle workers
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Scheduler and starts its workers.
func New(loader Loader, opt Options) *Scheduler {
	if opt.Concurrency <= 0 {
		opt.Concurrency = DefaultConcurrency
	}
	if opt.MaxCompleted <= 0 {
		opt.MaxCompleted = DefaultMaxCompleted
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	// lru.New fails only for a non-positive size.
	completed, _ := lru.New[string, struct{}](opt.MaxCompleted)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		loader:    loader,
		opt:       opt,
		queued:    make(map[string]time.Time),
		inflight:  make(map[string]*flight),
		completed: completed,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.wg.Add(opt.Concurrency)
	for i := 0; i < opt.Concurrency; i++ {
		go s.worker()
	}
	return s
}

// PreloadImage loads id and waits for the outcome. A completed id returns
// nil without a fetch; an id already loading is joined rather than
// fetched again; a queued id is claimed from the queue and loaded now.
//
// The load itself runs under the scheduler's lifetime, so cancelling ctx
// stops the wait but not the fetch.
func (s *Scheduler) PreloadImage(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.completed.Get(id); ok {
		s.mu.Unlock()
		return nil
	}
	f, ok := s.inflight[id]
	if !ok {
		if _, queued := s.queued[id]; queued {
			delete(s.queued, id)
			s.opt.Metrics.Pending(len(s.queued))
		}
		f = s.startLocked(id)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(id, f)
		}()
	}
	s.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueImagePreload schedules id for background loading. It is a no-op
// when id is empty, completed, pending or in flight, or after Close.
func (s *Scheduler) QueueImagePreload(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if s.closed || s.knownLocked(id) {
		s.mu.Unlock()
		return
	}
	s.queued[id] = time.Now()
	s.queue = append(s.queue, id)
	pending := len(s.queued)
	s.mu.Unlock()

	s.opt.Metrics.Enqueued()
	s.opt.Metrics.Pending(pending)
	s.signal()
}

// PreloadImages handles a batch. High loads every id concurrently and
// waits for all of them, returning the first error; Low enqueues them and
// returns nil immediately.
func (s *Scheduler) PreloadImages(ctx context.Context, ids []string, p Priority) error {
	if p != High {
		for _, id := range ids {
			s.QueueImagePreload(id)
		}
		return nil
	}

	var g errgroup.Group
	if s.opt.HighPriorityLimit > 0 {
		g.SetLimit(s.opt.HighPriorityLimit)
	}
	for _, id := range ids {
		g.Go(func() error { return s.PreloadImage(ctx, id) })
	}
	return g.Wait()
}

// IsImagePreloaded reports whether id has finished loading successfully.
func (s *Scheduler) IsImagePreloaded(id string) bool {
	return s.completed.Contains(id)
}

// Stats returns the current sizes of the pending, in-flight and completed sets.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Pending:   len(s.queued),
		InFlight:  len(s.inflight),
		Completed: s.completed.Len(),
	}
}

// Close drops pending entries, cancels running loads and waits for every
// worker to exit. Safe to call repeatedly.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.queue = nil
	clear(s.queued)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// ---- helpers ----

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for {
			id, f, ok := s.next()
			if !ok {
				break
			}
			s.run(id, f)
		}
	}
}

// next pops the oldest pending id and marks it in flight. Entries claimed
// by PreloadImage since they were queued are skipped.
func (s *Scheduler) next() (string, *flight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		id := s.queue[0]
		s.queue[0] = ""
		s.queue = s.queue[1:]
		if _, ok := s.queued[id]; !ok {
			continue
		}
		delete(s.queued, id)
		s.opt.Metrics.Pending(len(s.queued))
		f := s.startLocked(id)
		if len(s.queue) > 0 {
			// Hand the rest of the queue to another idle worker.
			s.signal()
		}
		return id, f, true
	}
	return "", nil, false
}

func (s *Scheduler) startLocked(id string) *flight {
	f := &flight{done: make(chan struct{})}
	s.inflight[id] = f
	s.opt.Metrics.InFlight(len(s.inflight))
	return f
}

// run loads id and publishes the outcome to every waiter on f.
func (s *Scheduler) run(id string, f *flight) {
	start := time.Now()
	err := s.load(id)

	s.mu.Lock()
	delete(s.inflight, id)
	if err == nil {
		s.completed.Add(id, struct{}{})
	}
	f.err = err
	close(f.done)
	inflight := len(s.inflight)
	s.mu.Unlock()

	s.opt.Metrics.InFlight(inflight)
	if err != nil {
		s.opt.Metrics.Failed()
		s.opt.Logger.Debug("image preload failed", slog.String("id", id), slog.Any("error", err))
		return
	}
	s.opt.Metrics.Loaded(time.Since(start))
}

// load calls the Loader, converting a panic into an error.
func (s *Scheduler) load(id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("preload: loader panicked")
			s.opt.Logger.Error("loader panic", slog.String("id", id), slog.Any("panic", r))
		}
	}()
	return s.loader.Load(s.ctx, id)
}

func (s *Scheduler) knownLocked(id string) bool {
	if _, ok := s.queued[id]; ok {
		return true
	}
	if _, ok := s.inflight[id]; ok {
		return true
	}
	_, ok := s.completed.Get(id)
	return ok
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
