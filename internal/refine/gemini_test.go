package refine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/pdiddy/pdf2md/internal/secrets"
	"github.com/pdiddy/pdf2md/pkg/types"
)

func geminiResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func TestGeminiMissingKey(t *testing.T) {
	b := NewGemini(types.DefaultConfig().Refine, secrets.FromMap(nil))
	_, err := b.Complete(context.Background(), types.RefinementPrompt{System: "s", User: "u"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.EqualError(t, err, "Error: GEMINI_API_KEY not found in secrets")

	_, err = b.CompleteWithTool(context.Background(), types.RefinementPrompt{}, Tool{Name: "document_parser"})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestGeminiDefaults(t *testing.T) {
	b := NewGemini(types.RefineConfig{}, nil)
	assert.Equal(t, defaultGeminiModel, b.cfg.Model)
	assert.Equal(t, defaultGeminiSecret, b.cfg.APIKeySecret)
	assert.Equal(t, 4, b.cfg.MaxToolTurns)
	assert.True(t, SupportsTools(b))
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := geminiResponse(genai.Text("# Title"), genai.FunctionCall{Name: "x"}, genai.Text("\n\nbody"))
	assert.Equal(t, "# Title\n\nbody", responseText(resp))
}

func TestFunctionCalls(t *testing.T) {
	assert.Nil(t, functionCalls(geminiResponse(genai.Text("done"))))

	resp := geminiResponse(
		genai.Text("calling"),
		genai.FunctionCall{Name: "document_parser", Args: map[string]any{"filename": "a.pdf"}},
	)
	calls := functionCalls(resp)
	require.Len(t, calls, 1)
	assert.Equal(t, "document_parser", calls[0].Name)
	assert.Equal(t, "a.pdf", calls[0].Args["filename"])
}

func TestRunGeminiCall(t *testing.T) {
	var got string
	tool := Tool{Name: "document_parser", Call: func(_ context.Context, filename string) (string, error) {
		got = filename
		return "# Raw", nil
	}}

	out, err := runGeminiCall(context.Background(), tool, genai.FunctionCall{Name: "document_parser", Args: map[string]any{"filename": "a.pdf"}})
	require.NoError(t, err)
	assert.Equal(t, "# Raw", out)
	assert.Equal(t, "a.pdf", got)

	out, err = runGeminiCall(context.Background(), tool, genai.FunctionCall{Name: "document_parser", Args: map[string]any{"filename": 7}})
	require.NoError(t, err)
	assert.Contains(t, out, "filename is required")

	out, err = runGeminiCall(context.Background(), tool, genai.FunctionCall{Name: "search"})
	require.NoError(t, err)
	assert.Contains(t, out, "unknown tool")
}

func TestGeminiError(t *testing.T) {
	tagged := missingKey("GEMINI_API_KEY")
	assert.Same(t, tagged, geminiError(tagged))

	err := geminiError(fmt.Errorf("send: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, types.ErrTransport)

	err = geminiError(&googleapi.Error{Code: 429, Message: "quota exceeded"})
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.Contains(t, err.Error(), "429")

	err = geminiError(errors.New("blocked: safety"))
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name types.BackendName
		want string
	}{
		{"", "openai"},
		{types.BackendOpenAI, "openai"},
		{types.BackendClaude, "claude"},
		{types.BackendGemini, "gemini"},
	}
	for _, tt := range tests {
		b, err := NewBackend(types.RefineConfig{Backend: tt.name}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, b.Name())
	}

	_, err := NewBackend(types.RefineConfig{Backend: "mistral"}, nil, nil)
	assert.Error(t, err)
}
