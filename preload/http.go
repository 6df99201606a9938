package preload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/IvanBrykalov/gridview/retry"
)

// HTTPLoader fetches images over HTTP. The body is read to completion and
// discarded; only success matters. Failures are tagged with retry kinds
// so callers can tell a dead link from a flaky network.
type HTTPLoader struct {
	// Client is used for requests. Nil => http.DefaultClient.
	Client *http.Client
	// UserAgent, when set, is sent with every request.
	UserAgent string
}

var _ Loader = (*HTTPLoader)(nil)

// Load issues GET url and succeeds on a 2xx image/* response.
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Validation(err, "preload: build request")
	}
	req.Header.Set("Accept", "image/*")
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return retry.Network(err, "preload: fetch "+url)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode, url); err != nil {
		return err
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return retry.Validation(nil, fmt.Sprintf("preload: %s is not an image (%q)", url, resp.Header.Get("Content-Type")))
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return retry.Network(err, "preload: read "+url)
	}
	return nil
}

func statusError(code int, url string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return retry.NotFound(nil, fmt.Sprintf("preload: %s: status %d", url, code))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return retry.Permission(nil, fmt.Sprintf("preload: %s: status %d", url, code))
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return retry.Unavailable(nil, fmt.Sprintf("preload: %s: status %d", url, code))
	default:
		return retry.Validation(nil, fmt.Sprintf("preload: %s: status %d", url, code))
	}
}
