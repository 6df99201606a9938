package preload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IvanBrykalov/gridview/retry"
)

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/forbidden.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/down.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/busy.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLoader_StatusMapping(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	l := &HTTPLoader{Client: srv.Client(), UserAgent: "gridview-test"}

	tests := []struct {
		path string
		ok   bool
		kind retry.Kind
	}{
		{path: "/ok.jpg", ok: true},
		{path: "/missing.jpg", kind: retry.KindNotFound},
		{path: "/page.html", kind: retry.KindValidation},
		{path: "/forbidden.jpg", kind: retry.KindPermission},
		{path: "/down.jpg", kind: retry.KindUnavailable},
		{path: "/busy.jpg", kind: retry.KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := l.Load(context.Background(), srv.URL+tt.path)
			if tt.ok {
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := retry.Classify(err); got != tt.kind {
				t.Fatalf("kind = %v, want %v (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestHTTPLoader_TransportErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone.jpg"
	srv.Close()

	l := &HTTPLoader{}
	err := l.Load(context.Background(), url)
	if got := retry.Classify(err); got != retry.KindNetwork {
		t.Fatalf("kind = %v, want network (err: %v)", got, err)
	}
	if !retry.IsRetryable(err) {
		t.Fatal("connection refused must be retryable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = l.Load(ctx, url)
	if got := retry.Classify(err); got != retry.KindCanceled {
		t.Fatalf("kind = %v, want canceled (err: %v)", got, err)
	}

	if err := l.Load(context.Background(), "://bad"); retry.Classify(err) != retry.KindValidation {
		t.Fatalf("bad url kind = %v", retry.Classify(err))
	}
}

// The scheduler and the HTTP loader together.
func TestScheduler_WithHTTPLoader(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	s := newScheduler(t, &HTTPLoader{Client: srv.Client()}, Options{})

	ok, missing := srv.URL+"/ok.jpg", srv.URL+"/missing.jpg"
	if err := s.PreloadImages(context.Background(), []string{ok, missing}, High); err == nil {
		t.Fatal("expected not-found error")
	}
	if !s.IsImagePreloaded(ok) || s.IsImagePreloaded(missing) {
		t.Fatalf("completed set wrong: ok=%v missing=%v", s.IsImagePreloaded(ok), s.IsImagePreloaded(missing))
	}
}
