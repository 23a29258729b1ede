package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/Wikid82/scirius/backend/internal/models"
	"github.com/Wikid82/scirius/backend/internal/version"
)

const (
	// MaxFeedSize caps a downloaded or local payload.
	MaxFeedSize = 256 << 20
	// MaxArchiveSize caps the decompressed size of a whole tar.gz feed.
	MaxArchiveSize = 1 << 30
)

// HTTPFetcher downloads http sources with a bounded client and a shared
// outbound rate limit.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher returns a fetcher allowing perMinute downloads per minute.
func NewHTTPFetcher(timeout time.Duration, perMinute int) *HTTPFetcher {
	if perMinute <= 0 {
		perMinute = 1
	}
	burst := perMinute
	if burst > 5 {
		burst = 5
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src *models.Source) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, src.URI, resp.Status)
	}

	return readLimited(resp.Body, MaxFeedSize)
}

// readLimited reads r fully and fails when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %w: payload exceeds %d bytes", ErrFetch, ErrFeedTooLarge, limit)
	}
	return data, nil
}

// LocalFetcher reads sources stored on the server filesystem. MaxSize
// defaults to MaxFeedSize.
type LocalFetcher struct {
	MaxSize int64
}

func (l LocalFetcher) Fetch(ctx context.Context, src *models.Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	f, err := os.Open(src.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer f.Close()

	limit := l.MaxSize
	if limit <= 0 {
		limit = MaxFeedSize
	}
	return readLimited(f, limit)
}

// MethodFetcher dispatches on Source.Method.
type MethodFetcher map[string]Fetcher

// NewMethodFetcher wires the http and local fetchers.
func NewMethodFetcher(timeout time.Duration, perMinute int) MethodFetcher {
	return MethodFetcher{
		models.SourceMethodHTTP:  NewHTTPFetcher(timeout, perMinute),
		models.SourceMethodLocal: LocalFetcher{},
	}
}

func (m MethodFetcher) Fetch(ctx context.Context, src *models.Source) ([]byte, error) {
	f, ok := m[src.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, src.Method)
	}
	return f.Fetch(ctx, src)
}
