// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extraction turns a PDF into raw structured markdown by calling the
// Upstage document-parse service.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/internal/httputil"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// reasonPrefix starts every non-credential failure reason.
const reasonPrefix = "Error converting PDF to markdown: "

// maxErrorBody bounds how much of an error response is quoted in a reason.
const maxErrorBody = 512

// Options are the capability flags sent with every request. They are fixed
// for all requests.
var Options = map[string]string{
	"ocr":               "force",
	"coordinates":       "true",
	"chart_recognition": "true",
	"output_formats":    "['markdown']",
	"model":             "document-parse",
}

// optionOrder keeps the multipart body byte-stable across requests.
var optionOrder = []string{"ocr", "coordinates", "chart_recognition", "output_formats", "model"}

// SecretSource supplies credentials at call time.
type SecretSource interface {
	Lookup(key string) (string, bool)
}

// Client calls the document-parse endpoint. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	cfg     types.ExtractionConfig
	secrets SecretSource
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client. A nil httpClient uses a client with cfg.Timeout.
func New(cfg types.ExtractionConfig, secrets SecretSource, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.APIKeySecret == "" {
		cfg.APIKeySecret = types.DefaultConfig().Extraction.APIKeySecret
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultConfig().Extraction.BaseURL
	}
	return &Client{cfg: cfg, secrets: secrets, http: httpClient, log: log}
}

// parseResponse is the subset of the document-parse response we read.
type parseResponse struct {
	Content *struct {
		Markdown *string `json:"markdown"`
	} `json:"content"`
}

// Extract sends doc to the service and returns the markdown it produced.
// Every failure is reported as a Result; Extract never panics on bad input.
func (c *Client) Extract(ctx context.Context, doc types.Document) types.Result {
	apiKey, ok := c.secrets.Lookup(c.cfg.APIKeySecret)
	if !ok {
		return types.Failuref(types.KindConfiguration, "Error: %s not found in secrets", c.cfg.APIKeySecret)
	}

	body, contentType, err := encodeForm(doc)
	if err != nil {
		return types.Failure(types.KindTransport, reasonPrefix+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return types.Failure(types.KindConfiguration, reasonPrefix+fmt.Sprintf("creating request: %v", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	c.log.Debug().Str("document", doc.FileName()).Int("bytes", len(body)).Msg("calling document parse")

	resp, err := httputil.DoWithRetry(c.log.WithContext(ctx), c.http, req, c.cfg.MaxRetries)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return types.Failure(types.KindTransport, reasonPrefix+"request cancelled: "+err.Error())
		}
		return types.Failure(types.KindTransport, reasonPrefix+fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.Failuref(types.KindUpstream, "%sdocument parse returned %d: %s",
			reasonPrefix, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return types.Failure(types.KindMalformedResponse, reasonPrefix+fmt.Sprintf("decoding response: %v", err))
	}
	if parsed.Content == nil || parsed.Content.Markdown == nil {
		return types.Failure(types.KindMalformedResponse, reasonPrefix+"response has no content.markdown field")
	}

	c.log.Debug().Str("document", doc.FileName()).Int("chars", len(*parsed.Content.Markdown)).Msg("document parsed")
	return types.Success(*parsed.Content.Markdown)
}

// encodeForm builds the multipart body: the document part followed by the
// fixed option fields.
func encodeForm(doc types.Document) ([]byte, string, error) {
	src, err := doc.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("document", doc.FileName())
	if err != nil {
		return nil, "", fmt.Errorf("creating document part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("reading document: %w", err)
	}

	for _, key := range optionOrder {
		if err := w.WriteField(key, Options[key]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", key, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
