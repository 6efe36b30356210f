package refine

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/pdf2md/pkg/types"
)

const (
	defaultGeminiModel  = "gemini-2.5-flash"
	defaultGeminiSecret = "GEMINI_API_KEY"
)

// GeminiBackend calls Google Gemini through the generative-ai-go SDK.
type GeminiBackend struct {
	cfg     types.RefineConfig
	secrets SecretSource
}

// NewGemini creates a Gemini backend.
func NewGemini(cfg types.RefineConfig, secrets SecretSource) *GeminiBackend {
	return &GeminiBackend{
		cfg:     withDefaults(cfg, defaultGeminiModel, defaultGeminiSecret, ""),
		secrets: secrets,
	}
}

func (b *GeminiBackend) Name() string { return string(types.BackendGemini) }

// Complete sends the policy as the system instruction and the document as
// the user turn.
func (b *GeminiBackend) Complete(ctx context.Context, p types.RefinementPrompt) (string, error) {
	client, model, err := b.model(ctx, p)
	if err != nil {
		return "", err
	}
	defer client.Close()

	resp, err := model.GenerateContent(ctx, genai.Text(p.User))
	if err != nil {
		return "", geminiError(err)
	}
	return responseText(resp), nil
}

// CompleteWithTool declares tool as a function and answers the model's
// function calls within one chat session, up to cfg.MaxToolTurns rounds.
func (b *GeminiBackend) CompleteWithTool(ctx context.Context, p types.RefinementPrompt, tool Tool) (string, error) {
	client, model, err := b.model(ctx, p)
	if err != nil {
		return "", err
	}
	defer client.Close()

	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"filename": {
						Type:        genai.TypeString,
						Description: "Path or name of the PDF document to convert.",
					},
				},
				Required: []string{"filename"},
			},
		}},
	}}

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(p.User))
	for turn := 0; ; turn++ {
		if err != nil {
			return "", geminiError(err)
		}
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return responseText(resp), nil
		}
		if turn >= b.cfg.MaxToolTurns {
			return "", failure(types.KindUpstream, "model exceeded %d tool turns", b.cfg.MaxToolTurns)
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			out, err := runGeminiCall(ctx, tool, call)
			if err != nil {
				return "", err
			}
			replies = append(replies, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"content": out},
			})
		}
		resp, err = session.SendMessage(ctx, replies...)
	}
}

// model builds a client and a configured model for one completion.
func (b *GeminiBackend) model(ctx context.Context, p types.RefinementPrompt) (*genai.Client, *genai.GenerativeModel, error) {
	key, err := apiKey(b.secrets, b.cfg.APIKeySecret)
	if err != nil {
		return nil, nil, err
	}

	opts := []option.ClientOption{option.WithAPIKey(key)}
	if b.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(b.cfg.BaseURL))
	}
	if b.cfg.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(b.cfg.UserAgent))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, failure(types.KindConfiguration, "creating gemini client: %v", err)
	}

	m := client.GenerativeModel(b.cfg.Model)
	m.SetTemperature(float32(b.cfg.Temperature))
	if b.cfg.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(b.cfg.MaxTokens))
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	return client, m, nil
}

func runGeminiCall(ctx context.Context, tool Tool, call genai.FunctionCall) (string, error) {
	if call.Name != tool.Name {
		return "error: unknown tool " + call.Name, nil
	}
	filename, _ := call.Args["filename"].(string)
	if strings.TrimSpace(filename) == "" {
		return "error: invalid tool arguments: filename is required", nil
	}
	return tool.Call(ctx, filename)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// functionCalls returns the function calls of the first candidate.
func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch c := part.(type) {
		case genai.FunctionCall:
			calls = append(calls, c)
		case *genai.FunctionCall:
			calls = append(calls, *c)
		}
	}
	return calls
}

// geminiError tags an SDK error with its FailureKind.
func geminiError(err error) error {
	var fe *types.FailureError
	if errors.As(err, &fe) {
		return err
	}

	var apiErr *googleapi.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failure(types.KindTransport, "request cancelled: %v", err)
	case errors.As(err, &apiErr):
		return failure(types.KindUpstream, "gemini API returned %d: %s", apiErr.Code, apiErr.Message)
	case errors.As(err, &netErr):
		return failure(types.KindTransport, "request failed: %v", err)
	default:
		return failure(types.KindUpstream, "%v", err)
	}
}
