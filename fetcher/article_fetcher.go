package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	maxRedirects = 5
	// maxBodyBytes bounds how much HTML is read from a page; the content
	// extractor applies its own character caps after this.
	maxBodyBytes = 4 << 20

	defaultUserAgent = "Mozilla/5.0 (compatible; StoryhubBot/1.0)"

	robotsCacheTTL = time.Hour
)

// ErrDisallowedByRobots indicates the page's robots.txt forbids fetching.
var ErrDisallowedByRobots = errors.New("fetch disallowed by robots.txt")

// ArticleFetcher retrieves the raw HTML of an article page.
type ArticleFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// articleFetcher fetches article pages with a bounded timeout, a redirect
// cap, and per-host robots.txt honoring backed by a TTL cache.
type articleFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu     sync.Mutex
	robots map[string]robotsEntry
}

// NewArticleFetcher creates an article fetcher. timeout bounds each fetch
// including redirects.
func NewArticleFetcher(timeout time.Duration, userAgent string, logger *slog.Logger) ArticleFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &articleFetcher{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		robots:    make(map[string]robotsEntry),
	}
}

// FetchHTML retrieves the page at pageURL and returns its body as a string.
func (f *articleFetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid article url %s: %w", pageURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q for article url", parsed.Scheme)
	}

	if !f.allowedByRobots(ctx, parsed) {
		return "", fmt.Errorf("%w: %s", ErrDisallowedByRobots, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build article request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("article fetch returned status %d for %s", resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}

	return string(body), nil
}

// allowedByRobots checks the host's robots.txt, caching results per host.
// Unreachable or malformed robots.txt permits the fetch.
func (f *articleFetcher) allowedByRobots(ctx context.Context, pageURL *url.URL) bool {
	host := pageURL.Scheme + "://" + pageURL.Host

	f.mu.Lock()
	entry, ok := f.robots[host]
	f.mu.Unlock()

	if !ok || time.Since(entry.fetchedAt) > robotsCacheTTL {
		entry = robotsEntry{data: f.fetchRobots(ctx, host), fetchedAt: time.Now()}
		f.mu.Lock()
		f.robots[host] = entry
		f.mu.Unlock()
	}

	if entry.data == nil {
		return true
	}

	return entry.data.TestAgent(pageURL.Path, f.userAgent)
}

func (f *articleFetcher) fetchRobots(ctx context.Context, host string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.DebugContext(ctx, "robots.txt unreachable", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}

	return data
}
