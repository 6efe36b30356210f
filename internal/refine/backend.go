package refine

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// NewBackend returns the backend named by cfg.Backend. An empty name
// selects OpenAI.
func NewBackend(cfg types.RefineConfig, secrets SecretSource, client *http.Client) (Backend, error) {
	switch cfg.Backend {
	case types.BackendOpenAI, "":
		return NewOpenAI(cfg, secrets, client), nil
	case types.BackendClaude:
		return NewClaude(cfg, secrets, client), nil
	case types.BackendGemini:
		return NewGemini(cfg, secrets), nil
	default:
		return nil, fmt.Errorf("unknown refine backend %q (want openai, claude or gemini)", cfg.Backend)
	}
}

// SupportsTools reports whether b can run in tool mode.
func SupportsTools(b Backend) bool {
	_, ok := b.(ToolBackend)
	return ok
}
