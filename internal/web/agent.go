package web

import (
	"context"
	"fmt"

	"resonance/internal/types"
)

// AgentClient satisfies Client by delegating to an agent-side fulfiller
// instead of making HTTP requests itself. The agent uses its own tools
// (web fetch, search, reasoning) and reports back structured evidence.
// It also exposes the richer EvidenceRequester surface directly.
type AgentClient struct {
	fulfill types.EvidenceFulfiller
}

func NewAgentClient(fulfill types.EvidenceFulfiller) *AgentClient {
	return &AgentClient{fulfill: fulfill}
}

// FetchPage asks the agent to fetch and summarize a URL, then shapes the
// answer as a WebPage. The content text is the agent's summary, not raw
// HTML, which downstream scoring handles the same way.
func (a *AgentClient) FetchPage(ctx context.Context, url string) (types.WebPage, error) {
	resp, err := a.RequestEvidence(ctx, types.EvidenceRequest{
		Type:  types.EvidenceArtifactVerify,
		Query: "Fetch and summarize the content at: " + url,
		URL:   url,
	})
	if err != nil {
		return types.WebPage{URL: url}, err
	}
	if !resp.Success {
		return types.WebPage{
			URL:        url,
			Accessible: false,
			Platform:   "agent",
		}, nil
	}

	status := 200
	if !resp.URLAccessible {
		status = 404
	}
	return types.WebPage{
		URL:           url,
		Accessible:    resp.URLAccessible,
		StatusCode:    status,
		Title:         truncate(resp.ContentSummary, 100),
		ContentText:   resp.ContentSummary,
		ContentLength: len(resp.ContentSummary),
		Platform:      "agent",
	}, nil
}

// Search asks the agent for trajectory evidence and flattens the answer
// into search results: cited source URLs first, then the sources attached
// to each hypothesis, deduplicated.
func (a *AgentClient) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	resp, err := a.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceTrajectorySearch,
		Query:                 query,
		ExperienceDescription: query,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}

	seen := make(map[string]bool)
	var results []types.SearchResult
	for _, u := range resp.SourceURLs {
		if len(results) >= maxResults {
			break
		}
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		results = append(results, types.SearchResult{
			URL:     u,
			Snippet: truncate(resp.Summary, 200),
			Source:  "agent",
		})
	}

	for _, h := range resp.Hypotheses {
		if len(results) >= maxResults {
			break
		}
		pattern := stringField(h, "action_pattern")
		trajectory := stringField(h, "typical_trajectory")
		for _, u := range stringSlice(h["sources"]) {
			if len(results) >= maxResults {
				break
			}
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			results = append(results, types.SearchResult{
				Title:   pattern,
				URL:     u,
				Snippet: trajectory,
				Source:  "agent",
			})
		}
	}
	return results, nil
}

// RequestEvidence forwards a structured request to the agent.
func (a *AgentClient) RequestEvidence(ctx context.Context, req types.EvidenceRequest) (types.EvidenceResponse, error) {
	if a.fulfill == nil {
		return types.EvidenceResponse{}, fmt.Errorf("no evidence fulfiller configured")
	}
	return a.fulfill(ctx, req)
}

// VerifyArtifact requests a full artifact assessment for a URL.
func (a *AgentClient) VerifyArtifact(ctx context.Context, url, claim, description string) (types.EvidenceResponse, error) {
	return a.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceArtifactVerify,
		Query:                 "Verify artifact at " + url,
		URL:                   url,
		UserClaim:             claim,
		ExperienceDescription: description,
	})
}

// AssessQuality requests external quality signals for an activity.
func (a *AgentClient) AssessQuality(ctx context.Context, description string, extra map[string]interface{}) (types.EvidenceResponse, error) {
	return a.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceQualitySignal,
		Query:                 "Quality evidence for: " + description,
		ExperienceDescription: description,
		Context:               extra,
	})
}

// AssessVectorProbability requests creative-vs-consumptive outcome odds
// for an activity.
func (a *AgentClient) AssessVectorProbability(ctx context.Context, description string) (types.EvidenceResponse, error) {
	return a.RequestEvidence(ctx, types.EvidenceRequest{
		Type:                  types.EvidenceVectorProbability,
		Query:                 "Vector probability for: " + description,
		ExperienceDescription: description,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// stringSlice tolerates both []string and the []interface{} that JSON
// decoding produces.
func stringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
