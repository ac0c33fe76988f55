// Package openai implements compose.Provider against an OpenAI-compatible
// chat-completions endpoint using the official openai-go SDK.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/linnemanlabs/scribe/internal/compose"
)

// requestTimeout bounds a single generation call. There is no automatic
// retry: on timeout or error the composer falls back to its heuristic, so
// caller-visible latency stays bounded by this ceiling plus fallback cost.
const requestTimeout = 40 * time.Second

const temperature = 0.2

// Client calls the chat-completions API with structured JSON output.
type Client struct {
	client openai.Client
	model  string
}

// New creates a client. baseURL may point at any OpenAI-compatible
// endpoint; empty means the default API host.
func New(apiKey, baseURL, model string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// draftSchema constrains the model to the draft envelope the composer
// expects.
var draftSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"internal_summary": map[string]any{"type": "string"},
		"customer_draft":   map[string]any{"type": "string"},
		"risk_tokens": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"internal_summary", "customer_draft", "risk_tokens"},
	"additionalProperties": false,
}

// Generate implements compose.Provider.
func (c *Client) Generate(ctx context.Context, system, user string) (*compose.RemoteDraft, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "ca_notification",
					Schema: draftSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: empty choices")
	}

	draft, err := parseDraft(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	draft.ModelVersion = resp.Model
	if draft.ModelVersion == "" {
		draft.ModelVersion = c.model
	}
	return draft, nil
}

// parseDraft decodes the structured answer. risk_tokens is tolerated as
// either an array or a single string, matching what models actually emit.
func parseDraft(content string) (*compose.RemoteDraft, error) {
	var raw struct {
		InternalSummary string          `json:"internal_summary"`
		CustomerDraft   string          `json:"customer_draft"`
		RiskTokens      json.RawMessage `json:"risk_tokens"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("decode draft json: %w", err)
	}
	if raw.InternalSummary == "" && raw.CustomerDraft == "" {
		return nil, errors.New("decode draft json: empty envelope")
	}

	var tokens []string
	if len(raw.RiskTokens) > 0 {
		if err := json.Unmarshal(raw.RiskTokens, &tokens); err != nil {
			var single string
			if err := json.Unmarshal(raw.RiskTokens, &single); err == nil && single != "" {
				tokens = []string{single}
			}
		}
	}

	return &compose.RemoteDraft{
		InternalSummary: raw.InternalSummary,
		CustomerDraft:   raw.CustomerDraft,
		RiskTokens:      tokens,
	}, nil
}
