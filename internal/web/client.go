// Package web is the access layer for external evidence gathering.
//
// Two capabilities depend on it: artifact verification (fetch a URL the user
// presents as evidence of creation) and evidence search (find documented
// outcomes of similar actions). Implementations: HTTPClient for direct HTTP,
// AgentClient for delegation to an LLM agent, MockClient for tests.
//
// If no client is configured the rest of the pipeline keeps working on the
// other defence layers and reports lower confidence.
package web

import (
	"context"

	"resonance/internal/types"
)

// Client fetches pages and searches the public web.
//
// FetchPage returns an error only when no response was obtained at all; an
// HTTP error status comes back as a page with Accessible=false and a nil
// error. Search returns an empty slice when nothing was found.
type Client interface {
	FetchPage(ctx context.Context, url string) (types.WebPage, error)
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)
}

// EvidenceRequester is the richer evidence API. Clients backed by an agent
// implement it in addition to Client; callers upgrade via type assertion and
// fall back to the plain interface when unavailable.
type EvidenceRequester interface {
	RequestEvidence(ctx context.Context, req types.EvidenceRequest) (types.EvidenceResponse, error)
}
