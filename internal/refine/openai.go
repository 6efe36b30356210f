package refine

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/pdf2md/pkg/types"
)

const (
	defaultOpenAIModel  = "gpt-4o"
	defaultOpenAISecret = "OPENAI_API_KEY"
)

// openAIBaseURL is the OpenAI API root. Package-level var for test substitution.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAIBackend calls the OpenAI chat completions API.
type OpenAIBackend struct {
	cfg     types.RefineConfig
	secrets SecretSource
	client  *http.Client
}

// NewOpenAI creates an OpenAI backend. A nil client uses one with cfg.Timeout.
func NewOpenAI(cfg types.RefineConfig, secrets SecretSource, client *http.Client) *OpenAIBackend {
	cfg = withDefaults(cfg, defaultOpenAIModel, defaultOpenAISecret, "")
	return &OpenAIBackend{cfg: cfg, secrets: secrets, client: httpClient(client, cfg)}
}

func (b *OpenAIBackend) Name() string { return string(types.BackendOpenAI) }

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIFunctionSpec `json:"function"`
}

type openAIFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends the prompt as a system and a user message.
func (b *OpenAIBackend) Complete(ctx context.Context, p types.RefinementPrompt) (string, error) {
	key, err := apiKey(b.secrets, b.cfg.APIKeySecret)
	if err != nil {
		return "", err
	}
	msg, err := b.chat(ctx, key, initialMessages(p), nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// CompleteWithTool offers tool as a function and executes the calls the
// model makes, up to cfg.MaxToolTurns rounds. An error from tool.Call ends
// the completion.
func (b *OpenAIBackend) CompleteWithTool(ctx context.Context, p types.RefinementPrompt, tool Tool) (string, error) {
	key, err := apiKey(b.secrets, b.cfg.APIKeySecret)
	if err != nil {
		return "", err
	}

	tools := []openAITool{{
		Type: "function",
		Function: openAIFunctionSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toolParameters(),
		},
	}}
	messages := initialMessages(p)

	for turn := 0; ; turn++ {
		msg, err := b.chat(ctx, key, messages, tools)
		if err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}
		if turn >= b.cfg.MaxToolTurns {
			return "", failure(types.KindUpstream, "model exceeded %d tool turns", b.cfg.MaxToolTurns)
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			out, err := runToolCall(ctx, tool, call.Function.Name, call.Function.Arguments)
			if err != nil {
				return "", err
			}
			messages = append(messages, openAIMessage{Role: "tool", ToolCallID: call.ID, Content: out})
		}
	}
}

func (b *OpenAIBackend) chat(ctx context.Context, key string, messages []openAIMessage, tools []openAITool) (openAIMessage, error) {
	reqBody := openAIRequest{
		Model:       b.cfg.Model,
		Messages:    messages,
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
		Tools:       tools,
	}
	headers := userAgentHeader(map[string]string{"Authorization": "Bearer " + key}, b.cfg)

	base := strings.TrimRight(b.cfg.BaseURL, "/")
	if base == "" {
		base = openAIBaseURL
	}

	var resp openAIResponse
	if err := postJSON(ctx, b.client, base+"/chat/completions", headers, reqBody, &resp); err != nil {
		return openAIMessage{}, err
	}
	if len(resp.Choices) == 0 {
		return openAIMessage{}, failure(types.KindMalformedResponse, "response has no choices")
	}
	return resp.Choices[0].Message, nil
}

func initialMessages(p types.RefinementPrompt) []openAIMessage {
	return []openAIMessage{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

// runToolCall executes one tool call. Unknown functions and bad arguments
// are reported back to the model rather than aborting.
func runToolCall(ctx context.Context, tool Tool, name, arguments string) (string, error) {
	if name != tool.Name {
		return "error: unknown tool " + name, nil
	}
	filename, err := parseToolArgs(arguments)
	if err != nil {
		return "error: " + err.Error(), nil
	}
	return tool.Call(ctx, filename)
}
