package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the raw body published at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	Logger            *zap.Logger
}

type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	log       *zap.Logger
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
		log:       log,
	}
}

// Fetch waits for a request slot, then GETs url and returns the body
// unmodified. Any non-200 status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	f.log.Debug("fetched",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// Logical dataset names, used both as upstream file names and cache file names.
const (
	ElectionsFile = "elections.txt"
	CountyFile    = "county.txt"
	OfficeFile    = "office.txt"
)

// ResultsFile names the results shard of one jurisdiction.
func ResultsFile(jurisdictionID string) string {
	return "results_" + jurisdictionID + ".txt"
}

// Endpoints builds upstream URLs relative to the election authority's base URL.
type Endpoints struct {
	BaseURL string
}

func (e Endpoints) base() string {
	return strings.TrimRight(e.BaseURL, "/")
}

func (e Endpoints) Elections() string {
	return e.base() + "/" + ElectionsFile
}

func (e Endpoints) Counties(election string) string {
	return e.dataURL(election, CountyFile)
}

func (e Endpoints) Offices(election string) string {
	return e.dataURL(election, OfficeFile)
}

func (e Endpoints) Results(election, jurisdictionID string) string {
	return e.dataURL(election, ResultsFile(jurisdictionID))
}

func (e Endpoints) dataURL(election, name string) string {
	return fmt.Sprintf("%s/%s/data/%s", e.base(), election, name)
}
