package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// maxErrorBody bounds how much of an error response is quoted in a reason.
const maxErrorBody = 512

// postJSON sends body to url once and decodes a 2xx response into out.
// Failures are tagged with the matching FailureKind.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(types.KindConfiguration, "marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failure(types.KindConfiguration, "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failure(types.KindTransport, "request cancelled: %v", err)
		}
		return failure(types.KindTransport, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return failure(types.KindUpstream, "model API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure(types.KindMalformedResponse, "decoding response: %v", err)
	}
	return nil
}

// apiKey reads the named credential at call time.
func apiKey(secrets SecretSource, name string) (string, error) {
	if secrets == nil {
		return "", missingKey(name)
	}
	key, ok := secrets.Lookup(name)
	if !ok || strings.TrimSpace(key) == "" {
		return "", missingKey(name)
	}
	return key, nil
}

// withDefaults fills the model, key name and base URL a backend needs.
func withDefaults(cfg types.RefineConfig, model, secret, baseURL string) types.RefineConfig {
	if cfg.Model == "" {
		cfg.Model = model
	}
	if cfg.APIKeySecret == "" {
		cfg.APIKeySecret = secret
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}
	if cfg.MaxToolTurns <= 0 {
		cfg.MaxToolTurns = types.DefaultConfig().Refine.MaxToolTurns
	}
	return cfg
}

// httpClient returns client, or one honouring cfg.Timeout when nil.
func httpClient(client *http.Client, cfg types.RefineConfig) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: cfg.Timeout}
}

// userAgentHeader adds User-Agent when configured.
func userAgentHeader(headers map[string]string, cfg types.RefineConfig) map[string]string {
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	return headers
}

// toolArgs is the argument object of a document_parser call.
type toolArgs struct {
	Filename string `json:"filename"`
}

func parseToolArgs(raw string) (string, error) {
	var args toolArgs
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "", fmt.Errorf("invalid tool arguments: %w", err)
	}
	if strings.TrimSpace(args.Filename) == "" {
		return "", fmt.Errorf("invalid tool arguments: filename is required")
	}
	return args.Filename, nil
}

// toolParameters is the JSON schema of the document_parser arguments.
func toolParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"filename": map[string]any{
				"type":        "string",
				"description": "Path or name of the PDF document to convert.",
			},
		},
		"required": []string{"filename"},
	}
}
