// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/pdf2md/pkg/types"
)

const (
	defaultClaudeModel  = "claude-sonnet-4-5"
	defaultClaudeSecret = "ANTHROPIC_API_KEY"
	anthropicVersion    = "2023-06-01"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeBackend calls the Anthropic Messages API. It supports direct mode only.
type ClaudeBackend struct {
	cfg     types.RefineConfig
	secrets SecretSource
	client  *http.Client
}

// NewClaude creates a Claude backend. A nil client uses one with cfg.Timeout.
func NewClaude(cfg types.RefineConfig, secrets SecretSource, client *http.Client) *ClaudeBackend {
	cfg = withDefaults(cfg, defaultClaudeModel, defaultClaudeSecret, "")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = types.DefaultConfig().Refine.MaxTokens
	}
	return &ClaudeBackend{cfg: cfg, secrets: secrets, client: httpClient(client, cfg)}
}

func (b *ClaudeBackend) Name() string { return string(types.BackendClaude) }

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the policy as the system prompt and the document as the
// user turn, and joins the text blocks of the answer.
func (b *ClaudeBackend) Complete(ctx context.Context, p types.RefinementPrompt) (string, error) {
	key, err := apiKey(b.secrets, b.cfg.APIKeySecret)
	if err != nil {
		return "", err
	}

	reqBody := claudeRequest{
		Model:       b.cfg.Model,
		MaxTokens:   b.cfg.MaxTokens,
		System:      p.System,
		Temperature: b.cfg.Temperature,
		Messages:    []claudeMessage{{Role: "user", Content: p.User}},
	}
	headers := userAgentHeader(map[string]string{
		"x-api-key":         key,
		"anthropic-version": anthropicVersion,
	}, b.cfg)

	url := b.cfg.BaseURL
	if url == "" {
		url = claudeAPIURL
	}

	var cResp claudeResponse
	if err := postJSON(ctx, b.client, url, headers, reqBody, &cResp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
