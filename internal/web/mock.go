package web

import (
	"context"
	"strings"
	"sync"

	"resonance/internal/types"
)

// MockClient is an in-memory Client for tests. Pages and search results
// are registered up front; unknown URLs come back inaccessible.
type MockClient struct {
	mu      sync.Mutex
	pages   map[string]types.WebPage
	results map[string][]types.SearchResult

	FetchCalls  []string
	SearchCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		pages:   make(map[string]types.WebPage),
		results: make(map[string][]types.SearchResult),
	}
}

// AddPage registers a page returned for its URL.
func (m *MockClient) AddPage(page types.WebPage) {
	if page.ContentLength == 0 {
		page.ContentLength = len(page.ContentText)
	}
	m.mu.Lock()
	m.pages[page.URL] = page
	m.mu.Unlock()
}

// AddSearchResults registers results returned for a query. Lookup is
// exact first, then by word overlap.
func (m *MockClient) AddSearchResults(query string, results []types.SearchResult) {
	m.mu.Lock()
	m.results[strings.ToLower(query)] = results
	m.mu.Unlock()
}

func (m *MockClient) FetchPage(_ context.Context, url string) (types.WebPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCalls = append(m.FetchCalls, url)
	if page, ok := m.pages[url]; ok {
		return page, nil
	}
	return types.WebPage{
		URL:        url,
		Accessible: false,
		StatusCode: 404,
		Platform:   DetectPlatform(url),
	}, nil
}

func (m *MockClient) Search(_ context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls = append(m.SearchCalls, query)
	q := strings.ToLower(query)
	if results, ok := m.results[q]; ok {
		return capResults(results, maxResults), nil
	}

	// Flexible match: the registered query sharing the most words with
	// the asked one wins, if at least half its words are covered.
	queryWords := wordSet(q)
	var best []types.SearchResult
	bestOverlap := 0
	for key, results := range m.results {
		keyWords := wordSet(key)
		overlap := 0
		for w := range keyWords {
			if queryWords[w] {
				overlap++
			}
		}
		required := (len(keyWords) + 1) / 2
		if required < 1 {
			required = 1
		}
		if overlap > bestOverlap && overlap >= required {
			bestOverlap = overlap
			best = results
		}
	}
	return capResults(best, maxResults), nil
}

func capResults(results []types.SearchResult, n int) []types.SearchResult {
	if n > 0 && len(results) > n {
		return results[:n]
	}
	return results
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
