// Command gridbench scrolls a synthetic catalog through the full engine
// (SQLite page source, feed, controller, image preloader) against a local
// image server with injected latency and failures, and exposes optional
// pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/gridview/catalog"
	"github.com/IvanBrykalov/gridview/catalog/sqlite"
	"github.com/IvanBrykalov/gridview/controller"
	"github.com/IvanBrykalov/gridview/internal/config"
	pmet "github.com/IvanBrykalov/gridview/metrics/prom"
	"github.com/IvanBrykalov/gridview/preload"
	"github.com/IvanBrykalov/gridview/retry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	// ---- Flags ----
	var (
		items    = flag.Int("items", 5_000, "catalog size")
		dbPath   = flag.String("db", ":memory:", "SQLite database path")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		speed    = flag.Float64("speed", 240, "scroll distance per frame in px")
		width    = flag.Float64("width", 1100, "container width in px")
		height   = flag.Float64("height", 800, "container height in px")

		imgLatency = flag.Duration("img_latency", 20*time.Millisecond, "image server latency")
		imgFail    = flag.Float64("img_fail", 0.05, "image failure rate [0..1]")
		pageFail   = flag.Float64("page_fail", 0.2, "transient page failure rate [0..1]")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			slog.Info("pprof: serving", slog.String("addr", *pprofAddr))
			slog.Error("pprof server", slog.Any("error", http.ListenAndServe(*pprofAddr, nil)))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	cacheMetrics := pmet.New(nil, "gridview", "pages", nil)
	preloadMetrics := pmet.NewPreload(nil, "gridview", "preload", nil)
	retryMetrics := pmet.NewRetry(nil, "gridview", "retry", nil)
	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			slog.Info("metrics: serving", slog.String("addr", *metricsAddr))
			slog.Error("metrics server", slog.Any("error", http.ListenAndServe(*metricsAddr, nil)))
		}()
	}

	// ---- Image server ----
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	var rngMu sync.Mutex // rand.Rand is NOT goroutine-safe
	images := httptest.NewServer(imageHandler(*imgLatency, func() bool {
		rngMu.Lock()
		defer rngMu.Unlock()
		return rng.Float64() < *imgFail
	}))
	defer images.Close()

	// ---- Catalog ----
	store, err := sqlite.Open(*dbPath)
	if err != nil {
		slog.Error("open catalog", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	if err := seedCatalog(context.Background(), store, *items, images.URL); err != nil {
		slog.Error("seed catalog", slog.Any("error", err))
		os.Exit(1)
	}

	var pageFailures atomic.Int64
	flaky := catalog.PageSourceFunc(func(ctx context.Context, offset, limit int) ([]catalog.Entry, error) {
		rngMu.Lock()
		fail := rng.Float64() < *pageFail
		rngMu.Unlock()
		if fail {
			pageFailures.Add(1)
			return nil, retry.Unavailable(nil, "injected page failure")
		}
		return store.FetchPage(ctx, offset, limit)
	})

	feedOpt := cfg.Feed()
	feedOpt.CacheMetrics = cacheMetrics
	feedOpt.Retry.Metrics = retryMetrics
	feedOpt.Retry.BaseDelay = 10 * time.Millisecond
	feedOpt.Retry.MaxDelay = 200 * time.Millisecond
	feedOpt.Retry.MaxJitter = 10 * time.Millisecond
	feed := catalog.NewFeed(flaky, feedOpt)
	defer func() { _ = feed.Close() }()

	// ---- Preloader + controller ----
	preOpt := cfg.Preload()
	preOpt.Metrics = preloadMetrics
	sched := preload.New(&preload.HTTPLoader{Client: images.Client(), UserAgent: "gridbench"}, preOpt)
	defer func() { _ = sched.Close() }()

	ctlOpt := config.Controller[catalog.Entry](cfg)
	ctlOpt.Preloader = sched
	ctlOpt.LoadMore = feed.LoadMore
	ctl := controller.New(ctlOpt)
	defer func() { _ = ctl.Close() }()
	ctl.OnResize(*width, *height)

	// ---- Scroll simulation ----
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	go func() { _ = ctl.Run(ctx) }()

	var frames, windowed, maxRendered int
	var offset float64
	start := time.Now()
	scroll := time.NewTicker(controller.DefaultFrameInterval)
	defer scroll.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-scroll.C:
			vm := ctl.View()
			// Stay inside the loaded content so infinite loading drives progress.
			if limit := vm.TotalHeight - *height; offset+*speed <= limit || limit <= 0 {
				offset += *speed
			} else {
				offset = max(limit, 0)
			}
			ctl.OnScroll(offset)
		case vm := <-ctl.Updates():
			frames++
			if vm.Virtualized {
				windowed++
			}
			maxRendered = max(maxRendered, len(vm.Items))
			if vm.Err != nil {
				slog.Warn("feed error, retrying", slog.Any("error", vm.Err))
				ctl.RetryLoad()
			}
		}
	}
	elapsed := time.Since(start)

	// ---- Report ----
	st := sched.Stats()
	cs := feed.CacheStats()
	fmt.Printf("items=%d loaded=%d dur=%v seed=%d\n", *items, ctl.Len(), elapsed, *seed)
	fmt.Printf("frames=%d (%.0f/s)  windowed=%d  max-rendered=%d  offset=%.0f\n",
		frames, float64(frames)/elapsed.Seconds(), windowed, maxRendered, offset)
	fmt.Printf("images: completed=%d in-flight=%d pending=%d\n", st.Completed, st.InFlight, st.Pending)
	fmt.Printf("pages: cached=%d hits=%d misses=%d injected-failures=%d\n",
		cs.Entries, cs.Hits, cs.Misses, pageFailures.Load())
}

// imageHandler serves a tiny JPEG after latency, failing some requests
// with 503.
func imageHandler(latency time.Duration, fail func() bool) http.Handler {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xff, 0xd9}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(latency):
		case <-r.Context().Done():
			return
		}
		if fail() {
			http.Error(w, "injected failure", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
		_, _ = w.Write(jpeg)
	})
}

func seedCatalog(ctx context.Context, store *sqlite.Store, n int, imageBase string) error {
	const batch = 500
	entries := make([]catalog.Entry, 0, batch)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		entries = append(entries, catalog.Entry{
			SKU:      "sku-" + id,
			Title:    "Product " + id,
			Image:    imageBase + "/p/" + id + ".jpg",
			Position: i,
		})
		if len(entries) == batch || i == n-1 {
			if err := store.Insert(ctx, entries...); err != nil {
				return fmt.Errorf("insert batch ending at %d: %w", i, err)
			}
			entries = entries[:0]
		}
	}
	return nil
}
