package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"resonance/internal/types"
)

const (
	defaultUserAgent = "Resonance/0.3 (ArtifactVerifier)"
	maxBodyBytes     = 2 << 20
)

// publishDateLayouts are tried in order against extracted date strings.
var publishDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
}

// HTTPOptions configures an HTTPClient. Zero values take defaults.
type HTTPOptions struct {
	Timeout           time.Duration // per-request timeout (default 15s)
	UserAgent         string
	SearchEndpoint    string // search API endpoint; search is disabled when empty
	SearchAPIKey      string
	MaxRetries        int           // retries after the first attempt (default 2)
	RequestsPerSecond float64       // per-host rate limit (default 1)
	CacheTTL          time.Duration // page and search cache TTL (default 1h)
}

func (o *HTTPOptions) withDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 2
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 1.0
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
}

// hostGate combines the per-host rate limiter and circuit breaker.
type hostGate struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

type pageEntry struct {
	page types.WebPage
	at   time.Time
}

type searchEntry struct {
	results []types.SearchResult
	at      time.Time
}

// HTTPClient is the direct-HTTP Client used when no agent is available.
// Fetches are rate limited per host, guarded by a circuit breaker, deduped
// via singleflight, and cached with a TTL.
type HTTPClient struct {
	opts   HTTPOptions
	client *http.Client

	mu          sync.Mutex
	gates       map[string]*hostGate
	pageCache   map[string]pageEntry
	searchCache map[string]searchEntry

	group       singleflight.Group
	now         func() time.Time
	backoffBase time.Duration
}

// NewHTTPClient builds a client with the given options.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	opts.withDefaults()
	return &HTTPClient{
		opts:        opts,
		client:      &http.Client{Timeout: opts.Timeout},
		gates:       make(map[string]*hostGate),
		pageCache:   make(map[string]pageEntry),
		searchCache: make(map[string]searchEntry),
		now:         time.Now,
		backoffBase: time.Second,
	}
}

// FetchPage fetches a URL with caching, per-host rate limiting, and retry.
// Concurrent fetches of the same URL share one request.
func (c *HTTPClient) FetchPage(ctx context.Context, rawURL string) (types.WebPage, error) {
	if page, ok := c.cachedPage(rawURL); ok {
		return page, nil
	}

	v, err, _ := c.group.Do("page:"+rawURL, func() (interface{}, error) {
		return c.fetchPage(ctx, rawURL)
	})
	if err != nil {
		return types.WebPage{URL: rawURL}, err
	}
	return v.(types.WebPage), nil
}

func (c *HTTPClient) fetchPage(ctx context.Context, rawURL string) (types.WebPage, error) {
	gate, err := c.gateFor(rawURL)
	if err != nil {
		return types.WebPage{URL: rawURL}, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
				return types.WebPage{URL: rawURL}, err
			}
		}
		if err := gate.limiter.Wait(ctx); err != nil {
			return types.WebPage{URL: rawURL}, err
		}

		result, err := gate.breaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx, rawURL)
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return types.WebPage{URL: rawURL}, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
			continue
		}

		// Any HTTP response counts as an answer; only transport
		// failures are retried.
		page := result.(types.WebPage)
		if page.Accessible {
			c.storePage(rawURL, page)
		}
		return page, nil
	}
	return types.WebPage{URL: rawURL}, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (c *HTTPClient) doFetch(ctx context.Context, rawURL string) (types.WebPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.WebPage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.WebPage{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.WebPage{}, fmt.Errorf("failed to read response: %w", err)
	}

	page := types.WebPage{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Platform:   DetectPlatform(rawURL),
		Accessible: resp.StatusCode >= 200 && resp.StatusCode < 400,
	}

	if doc, perr := html.Parse(strings.NewReader(string(body))); perr == nil {
		page.Title = extractTitle(doc)
		page.ContentText = extractText(doc)
		page.ContentLength = len(page.ContentText)
		page.PublishDate = extractPublishDate(doc)
	}

	return page, nil
}

// Search queries the configured search endpoint with caching and retry.
// Returns an empty slice when no endpoint is configured.
func (c *HTTPClient) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if c.opts.SearchEndpoint == "" {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("%s:%d", query, maxResults)
	if results, ok := c.cachedSearch(cacheKey); ok {
		return results, nil
	}

	v, err, _ := c.group.Do("search:"+cacheKey, func() (interface{}, error) {
		return c.doSearch(ctx, query, maxResults, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.SearchResult), nil
}

func (c *HTTPClient) doSearch(ctx context.Context, query string, maxResults int, cacheKey string) ([]types.SearchResult, error) {
	gate, err := c.gateFor(c.opts.SearchEndpoint)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}
		if err := gate.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, err := gate.breaker.Execute(func() (interface{}, error) {
			return c.querySearchEndpoint(ctx, query, maxResults)
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("search: %w", err)
			}
			continue
		}

		results := result.([]types.SearchResult)
		c.storeSearch(cacheKey, results)
		return results, nil
	}
	return nil, fmt.Errorf("search %q: %w", query, lastErr)
}

func (c *HTTPClient) querySearchEndpoint(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	u, err := url.Parse(c.opts.SearchEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", maxResults))
	if c.opts.SearchAPIKey != "" {
		q.Set("key", c.opts.SearchAPIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Accept both {"results": [...]} and {"items": [...]} shapes.
	var payload struct {
		Results []searchItem `json:"results"`
		Items   []searchItem `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	items := payload.Results
	if len(items) == 0 {
		items = payload.Items
	}
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	results := make([]types.SearchResult, 0, len(items))
	for _, it := range items {
		link := it.URL
		if link == "" {
			link = it.Link
		}
		snippet := it.Snippet
		if snippet == "" {
			snippet = it.Description
		}
		results = append(results, types.SearchResult{
			Title:   it.Title,
			URL:     link,
			Snippet: snippet,
			Source:  u.Host,
		})
	}
	return results, nil
}

type searchItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
}

// ========== Gates and Caches ==========

func (c *HTTPClient) gateFor(rawURL string) (*hostGate, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.gates[u.Host]; ok {
		return g, nil
	}
	g := &hostGate{
		limiter: rate.NewLimiter(rate.Limit(c.opts.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    u.Host,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
	c.gates[u.Host] = g
	return g, nil
}

func (c *HTTPClient) cachedPage(url string) (types.WebPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pageCache[url]
	if !ok || c.now().Sub(entry.at) >= c.opts.CacheTTL {
		return types.WebPage{}, false
	}
	return entry.page, true
}

func (c *HTTPClient) storePage(url string, page types.WebPage) {
	c.mu.Lock()
	c.pageCache[url] = pageEntry{page: page, at: c.now()}
	c.mu.Unlock()
}

func (c *HTTPClient) cachedSearch(key string) ([]types.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.searchCache[key]
	if !ok || c.now().Sub(entry.at) >= c.opts.CacheTTL {
		return nil, false
	}
	return entry.results, true
}

func (c *HTTPClient) storeSearch(key string, results []types.SearchResult) {
	c.mu.Lock()
	c.searchCache[key] = searchEntry{results: results, at: c.now()}
	c.mu.Unlock()
}

func (c *HTTPClient) backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * c.backoffBase
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ========== HTML Extraction ==========

func extractTitle(doc *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return title
}

func extractText(doc *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// extractPublishDate checks the usual metadata carriers for a publication
// date and parses the first one that yields a valid time.
func extractPublishDate(doc *html.Node) *time.Time {
	var candidate string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if candidate != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var prop, name, content string
				for _, a := range n.Attr {
					switch a.Key {
					case "property":
						prop = a.Val
					case "name":
						name = a.Val
					case "content":
						content = a.Val
					}
				}
				if content != "" &&
					(prop == "article:published_time" || name == "date" || name == "DC.date") {
					candidate = content
					return
				}
			case "time":
				for _, a := range n.Attr {
					if a.Key == "datetime" && a.Val != "" {
						candidate = a.Val
						return
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	if candidate == "" {
		return nil
	}
	return parsePublishDate(candidate)
}

func parsePublishDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// DetectPlatform maps a URL to the platform label used in verification
// notes.
func DetectPlatform(rawURL string) string {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "x.com") || strings.Contains(u, "twitter.com"):
		return "x"
	case strings.Contains(u, "github.com"):
		return "github"
	case strings.Contains(u, "medium.com"):
		return "medium"
	case strings.Contains(u, "wikipedia.org"):
		return "wiki"
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be"):
		return "youtube"
	case strings.Contains(u, "substack.com"):
		return "substack"
	case strings.Contains(u, "linkedin.com"):
		return "linkedin"
	case strings.Contains(u, "reddit.com"):
		return "reddit"
	}
	return "web"
}
