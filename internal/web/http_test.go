package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(opts HTTPOptions) *HTTPClient {
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 1000
	}
	c := NewHTTPClient(opts)
	c.backoffBase = time.Millisecond
	return c
}

func TestFetchPageExtractsMetadata(t *testing.T) {
	page := `<html><head>
		<title>  Weekend Project: Birdhouse  </title>
		<meta property="article:published_time" content="2025-05-04T10:30:00Z">
		<style>body { color: red; }</style>
		<script>var tracker = 1;</script>
	</head><body>
		<h1>Birdhouse build log</h1>
		<p>Cut the panels and glued the roof together.</p>
	</body></html>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Resonance") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	c := newTestClient(HTTPOptions{})
	defer c.client.CloseIdleConnections()

	got, err := c.FetchPage(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if !got.Accessible {
		t.Error("expected page to be accessible")
	}
	if got.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
	if got.Title != "Weekend Project: Birdhouse" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.ContentText, "Birdhouse build log") ||
		!strings.Contains(got.ContentText, "glued the roof") {
		t.Errorf("content text missing body copy: %q", got.ContentText)
	}
	if strings.Contains(got.ContentText, "color: red") ||
		strings.Contains(got.ContentText, "var tracker") {
		t.Errorf("content text includes script/style: %q", got.ContentText)
	}
	if got.ContentLength != len(got.ContentText) {
		t.Errorf("ContentLength = %d, want %d", got.ContentLength, len(got.ContentText))
	}
	if got.PublishDate == nil {
		t.Fatal("expected publish date")
	}
	want := time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)
	if !got.PublishDate.Equal(want) {
		t.Errorf("PublishDate = %v, want %v", got.PublishDate, want)
	}
	if got.Platform != "web" {
		t.Errorf("Platform = %q, want web", got.Platform)
	}
}

func TestFetchPageErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(HTTPOptions{})
	defer c.client.CloseIdleConnections()

	got, err := c.FetchPage(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("an HTTP error status should not surface as an error: %v", err)
	}
	if got.Accessible {
		t.Error("404 page should not be accessible")
	}
	if got.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want 404", got.StatusCode)
	}
}

func TestFetchPageCaching(t *testing.T) {
	t.Run("successful fetches are cached", func(t *testing.T) {
		var hits int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			fmt.Fprint(w, `<html><head><title>Cached</title></head><body>ok</body></html>`)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{})
		defer c.client.CloseIdleConnections()

		for i := 0; i < 3; i++ {
			page, err := c.FetchPage(context.Background(), ts.URL)
			if err != nil {
				t.Fatalf("fetch %d failed: %v", i, err)
			}
			if page.Title != "Cached" {
				t.Errorf("fetch %d Title = %q", i, page.Title)
			}
		}
		if n := atomic.LoadInt32(&hits); n != 1 {
			t.Errorf("server hits = %d, want 1", n)
		}
	})

	t.Run("failed fetches are not cached", func(t *testing.T) {
		var hits int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{})
		defer c.client.CloseIdleConnections()

		for i := 0; i < 2; i++ {
			if _, err := c.FetchPage(context.Background(), ts.URL); err != nil {
				t.Fatalf("fetch %d failed: %v", i, err)
			}
		}
		if n := atomic.LoadInt32(&hits); n != 2 {
			t.Errorf("server hits = %d, want 2", n)
		}
	})

	t.Run("cache entries expire", func(t *testing.T) {
		var hits int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			fmt.Fprint(w, `<html><body>ok</body></html>`)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{CacheTTL: time.Hour})
		defer c.client.CloseIdleConnections()

		current := time.Now()
		c.now = func() time.Time { return current }

		if _, err := c.FetchPage(context.Background(), ts.URL); err != nil {
			t.Fatalf("first fetch failed: %v", err)
		}
		current = current.Add(2 * time.Hour)
		if _, err := c.FetchPage(context.Background(), ts.URL); err != nil {
			t.Fatalf("second fetch failed: %v", err)
		}
		if n := atomic.LoadInt32(&hits); n != 2 {
			t.Errorf("server hits = %d, want 2", n)
		}
	})
}

func TestFetchPageRetriesTransportErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			// Drop the first connection mid-flight.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("server does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack failed: %v", err)
				return
			}
			conn.Close()
			return
		}
		fmt.Fprint(w, `<html><head><title>Recovered</title></head><body>ok</body></html>`)
	}))
	defer ts.Close()

	c := newTestClient(HTTPOptions{MaxRetries: 2})
	defer c.client.CloseIdleConnections()

	page, err := c.FetchPage(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("FetchPage should have recovered on retry: %v", err)
	}
	if page.Title != "Recovered" {
		t.Errorf("Title = %q, want Recovered", page.Title)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("server hits = %d, want 2", n)
	}
}

func TestFetchPageCircuitBreakerOpens(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := ts.URL
	ts.Close()

	c := newTestClient(HTTPOptions{MaxRetries: 1})
	defer c.client.CloseIdleConnections()

	// Each call burns through its retries against a dead host, so the
	// per-host breaker trips after a few calls.
	var lastErr error
	for i := 0; i < 4; i++ {
		_, lastErr = c.FetchPage(context.Background(), dead)
		if lastErr == nil {
			t.Fatalf("fetch %d against a closed server should fail", i)
		}
	}
	if !errors.Is(lastErr, gobreaker.ErrOpenState) {
		t.Errorf("expected open circuit error, got: %v", lastErr)
	}
}

func TestSearch(t *testing.T) {
	t.Run("results shape", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if q := r.URL.Query().Get("q"); q != "guitar outcomes" {
				t.Errorf("query = %q", q)
			}
			if key := r.URL.Query().Get("key"); key != "secret" {
				t.Errorf("key = %q", key)
			}
			fmt.Fprint(w, `{"results": [
				{"title": "A", "url": "http://a.example", "snippet": "first"},
				{"title": "B", "link": "http://b.example", "description": "second"}
			]}`)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{SearchEndpoint: ts.URL, SearchAPIKey: "secret"})
		defer c.client.CloseIdleConnections()

		results, err := c.Search(context.Background(), "guitar outcomes", 5)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].URL != "http://a.example" || results[0].Snippet != "first" {
			t.Errorf("results[0] = %+v", results[0])
		}
		if results[1].URL != "http://b.example" || results[1].Snippet != "second" {
			t.Errorf("link/description fallback not applied: %+v", results[1])
		}
		if results[0].Source == "" {
			t.Error("results should carry the endpoint host as their source")
		}
	})

	t.Run("items shape capped at max", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items": [
				{"title": "A", "url": "http://a.example"},
				{"title": "B", "url": "http://b.example"},
				{"title": "C", "url": "http://c.example"}
			]}`)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{SearchEndpoint: ts.URL})
		defer c.client.CloseIdleConnections()

		results, err := c.Search(context.Background(), "anything", 2)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
	})

	t.Run("responses are cached per query", func(t *testing.T) {
		var hits int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			fmt.Fprint(w, `{"results": [{"title": "A", "url": "http://a.example"}]}`)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{SearchEndpoint: ts.URL})
		defer c.client.CloseIdleConnections()

		for i := 0; i < 2; i++ {
			if _, err := c.Search(context.Background(), "same query", 5); err != nil {
				t.Fatalf("search %d failed: %v", i, err)
			}
		}
		if n := atomic.LoadInt32(&hits); n != 1 {
			t.Errorf("server hits = %d, want 1", n)
		}
	})

	t.Run("no endpoint configured", func(t *testing.T) {
		c := newTestClient(HTTPOptions{})
		results, err := c.Search(context.Background(), "anything", 5)
		if err != nil {
			t.Fatalf("Search without endpoint should degrade silently: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("got %d results, want 0", len(results))
		}
	})

	t.Run("error status surfaces after retries", func(t *testing.T) {
		var hits int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		c := newTestClient(HTTPOptions{SearchEndpoint: ts.URL, MaxRetries: 1})
		defer c.client.CloseIdleConnections()

		if _, err := c.Search(context.Background(), "anything", 5); err == nil {
			t.Fatal("expected error from failing endpoint")
		}
		if n := atomic.LoadInt32(&hits); n != 2 {
			t.Errorf("server hits = %d, want 2 (one retry)", n)
		}
	})
}

func TestParsePublishDate(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"2025-05-04T10:30:00Z", timePtr(time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC))},
		{"2025-05-04T10:30:00+02:00", timePtr(time.Date(2025, 5, 4, 8, 30, 0, 0, time.UTC))},
		{"2025-05-04T10:30:00", timePtr(time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC))},
		{"2025-05-04", timePtr(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC))},
		{"May 4, 2025", timePtr(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC))},
		{"last Tuesday", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := parsePublishDate(tc.in)
		if (got == nil) != (tc.want == nil) {
			t.Errorf("parsePublishDate(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		if got != nil && !got.Equal(*tc.want) {
			t.Errorf("parsePublishDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://x.com/someone/status/1", "x"},
		{"https://twitter.com/someone", "x"},
		{"https://github.com/someone/project", "github"},
		{"https://medium.com/@someone/post", "medium"},
		{"https://en.wikipedia.org/wiki/Topic", "wiki"},
		{"https://youtu.be/abc123", "youtube"},
		{"https://www.youtube.com/watch?v=abc", "youtube"},
		{"https://someone.substack.com/p/post", "substack"},
		{"https://www.linkedin.com/in/someone", "linkedin"},
		{"https://reddit.com/r/somewhere", "reddit"},
		{"https://blog.example.com/post", "web"},
	}
	for _, tc := range cases {
		if got := DetectPlatform(tc.url); got != tc.want {
			t.Errorf("DetectPlatform(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
