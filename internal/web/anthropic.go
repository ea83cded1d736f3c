package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"resonance/internal/types"
)

// messagesAPI captures the subset of the Anthropic SDK the fulfiller uses.
// It is satisfied by *sdk.MessageService; tests substitute a fake.
type messagesAPI interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// ConversationLogger receives both sides of every agent exchange for
// observability. store.Store satisfies it.
type ConversationLogger interface {
	LogConversation(sessionID, userID, role, content, mode string, metrics map[string]interface{}) error
}

const (
	defaultAgentModel = "claude-sonnet-4-5"
	agentMaxTokens    = 2048
	// webSearchRounds bounds how many times a paused server-side search
	// turn is resumed before giving up on the reply.
	webSearchRounds = 4
)

// AnthropicFulfiller answers evidence requests by running an Anthropic
// model with the server-side web search tool enabled. The model fetches
// and searches on Anthropic's side; the fulfiller only assembles the
// prompt and decodes the structured reply. Fulfill satisfies
// types.EvidenceFulfiller, so NewAgentClient can wrap it directly.
type AnthropicFulfiller struct {
	msg       messagesAPI
	model     string
	sessionID string
	logger    *zap.Logger
	log       ConversationLogger
	now       func() time.Time
}

// NewAnthropicFulfiller builds a fulfiller backed by the real API.
// An empty model selects the default.
func NewAnthropicFulfiller(apiKey, model string) *AnthropicFulfiller {
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return newFulfiller(&ac.Messages, model)
}

func newFulfiller(msg messagesAPI, model string) *AnthropicFulfiller {
	if model == "" {
		model = defaultAgentModel
	}
	return &AnthropicFulfiller{
		msg:       msg,
		model:     model,
		sessionID: uuid.NewString(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// SetLogger replaces the no-op logger.
func (f *AnthropicFulfiller) SetLogger(logger *zap.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// SetConversationLog enables persistent transcripts of agent exchanges.
func (f *AnthropicFulfiller) SetConversationLog(log ConversationLogger) {
	f.log = log
}

// Fulfill sends the rendered evidence prompt to the model and decodes the
// JSON object in its reply. Transport and decode failures come back as
// unsuccessful responses rather than errors, so the pipeline degrades the
// same way it does for any other missing evidence.
func (f *AnthropicFulfiller) Fulfill(ctx context.Context, req types.EvidenceRequest) (types.EvidenceResponse, error) {
	prompt := req.AgentPrompt() + "\n\n" + responseFormat(req.Type)
	f.logExchange(req, "user", prompt, nil)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(f.model),
		MaxTokens: agentMaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Tools: []sdk.ToolUnionParam{{
			OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
				MaxUses: sdk.Int(5),
			},
		}},
	}

	var text strings.Builder
	var inputTokens, outputTokens int64
	for round := 0; round < webSearchRounds; round++ {
		msg, err := f.msg.New(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return types.EvidenceResponse{Type: req.Type}, ctx.Err()
			}
			f.logger.Warn("agent request failed",
				zap.String("request_type", string(req.Type)),
				zap.Error(err))
			return failedEvidence(req.Type, fmt.Sprintf("agent request: %v", err)), nil
		}
		inputTokens += msg.Usage.InputTokens
		outputTokens += msg.Usage.OutputTokens
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text != "" {
				text.WriteString(block.Text)
			}
		}
		// The API pauses long-running server tool turns; resending the
		// conversation with the partial assistant message resumes them.
		if msg.StopReason != "pause_turn" {
			break
		}
		params.Messages = append(params.Messages, msg.ToParam())
	}

	raw := text.String()
	f.logExchange(req, "assistant", raw, map[string]interface{}{
		"input_tokens":  float64(inputTokens),
		"output_tokens": float64(outputTokens),
	})

	resp, err := parseEvidenceJSON(raw)
	if err != nil {
		f.logger.Warn("agent reply had no usable JSON",
			zap.String("request_type", string(req.Type)),
			zap.Error(err))
		return failedEvidence(req.Type, err.Error()), nil
	}
	resp.Type = req.Type
	resp.Success = true
	resp.Timestamp = f.now().UTC()
	return resp, nil
}

func failedEvidence(t types.EvidenceType, reason string) types.EvidenceResponse {
	return types.EvidenceResponse{Type: t, Success: false, Error: reason}
}

// parseEvidenceJSON extracts the JSON object from the agent's reply.
// Models wrap JSON in prose or code fences, so everything from the first
// opening brace to the last closing one is taken as the object.
func parseEvidenceJSON(raw string) (types.EvidenceResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return types.EvidenceResponse{}, fmt.Errorf("no JSON object in agent reply")
	}
	var resp types.EvidenceResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return types.EvidenceResponse{}, fmt.Errorf("decode agent reply: %w", err)
	}
	return resp, nil
}

// responseFormat names the exact JSON keys each evidence type must use,
// matching the wire tags on types.EvidenceResponse so the reply decodes
// without any intermediate mapping.
func responseFormat(t types.EvidenceType) string {
	switch t {
	case types.EvidenceArtifactVerify:
		return "Respond with a single JSON object using exactly these keys:\n" +
			`{"url_accessible": bool, "content_substantive": bool, ` +
			`"content_summary": string, "timestamp_plausible": bool, ` +
			`"relevance_score": number 0-1, "confidence": number 0-1, ` +
			`"source_urls": [string]}`
	case types.EvidenceTrajectorySearch:
		return "Respond with a single JSON object using exactly these keys:\n" +
			`{"hypotheses": [{"action_pattern": string, "typical_trajectory": string, ` +
			`"probability_estimate": number 0-1, "confidence": number 0-1, ` +
			`"distinguishing_factors": [string], "notable_exceptions": [string], ` +
			`"sources": [string], "empowerment_note": string}], ` +
			`"summary": string, "confidence": number 0-1, "source_urls": [string]}`
	case types.EvidenceQualitySignal:
		return "Respond with a single JSON object using exactly these keys:\n" +
			`{"quality_score": number 0-1, "quality_dimensions": {dimension: number 0-1}, ` +
			`"confidence": number 0-1, "summary": string, "source_urls": [string]}`
	case types.EvidenceVectorProbability:
		return "Respond with a single JSON object using exactly these keys:\n" +
			`{"creative_probability": number 0-1, "consumptive_probability": number 0-1, ` +
			`"key_factors": [string], "resolution_horizon": "weeks" or "months" or "years", ` +
			`"confidence": number 0-1, "source_urls": [string]}`
	}
	return "Respond with a single JSON object."
}

func (f *AnthropicFulfiller) logExchange(req types.EvidenceRequest, role, content string, metrics map[string]interface{}) {
	if f.log == nil {
		return
	}
	if err := f.log.LogConversation(f.sessionID, "", role, content, string(req.Type), metrics); err != nil {
		f.logger.Warn("conversation log failed", zap.Error(err))
	}
}
