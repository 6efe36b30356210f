// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine runs the single model invocation that turns extracted
// markdown into the final document. A Backend talks to one model provider;
// the Agent wraps it with result tagging, the optional document_parser tool
// and the empty-output check.
package refine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/internal/language"
	"github.com/pdiddy/pdf2md/internal/prompt"
	"github.com/pdiddy/pdf2md/pkg/types"
)

const reasonPrefix = "Error refining markdown: "

// Backend performs one completion against a model provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, p types.RefinementPrompt) (string, error)
}

// ToolBackend is a Backend whose model can call a tool before answering.
type ToolBackend interface {
	Backend
	CompleteWithTool(ctx context.Context, p types.RefinementPrompt, tool Tool) (string, error)
}

// Tool is a function the model may call with a single filename argument.
// Call returns text for the model, or an error that aborts the completion.
type Tool struct {
	Name        string
	Description string
	Call        func(ctx context.Context, filename string) (string, error)
}

// Extractor is the extraction capability handed to a tool-augmented agent.
type Extractor interface {
	Extract(ctx context.Context, doc types.Document) types.Result
}

// SecretSource supplies provider credentials at call time.
type SecretSource interface {
	Lookup(key string) (string, bool)
}

// Agent runs exactly one refinement attempt per call. It is immutable after
// construction and safe for concurrent use.
type Agent struct {
	backend   Backend
	mode      types.RefineMode
	extractor Extractor
	checker   *language.Checker
	target    language.Target
	log       zerolog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithExtractor supplies the capability behind the document_parser tool.
func WithExtractor(e Extractor) Option {
	return func(a *Agent) { a.extractor = e }
}

// WithLanguageCheck logs a warning when translated output is detected in a
// language other than target.
func WithLanguageCheck(c *language.Checker, target language.Target) Option {
	return func(a *Agent) {
		a.checker = c
		a.target = target
	}
}

// NewAgent creates an Agent. An empty mode means direct.
func NewAgent(backend Backend, mode types.RefineMode, log zerolog.Logger, opts ...Option) *Agent {
	if mode == "" {
		mode = types.ModeDirect
	}
	a := &Agent{backend: backend, mode: mode, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode reports whether the agent inlines text or uses the tool.
func (a *Agent) Mode() types.RefineMode {
	return a.mode
}

// Refine sends p to the model and returns the refined markdown. In tool mode
// the model fetches req.Document through the document_parser tool; a failed
// extraction inside the tool is returned unchanged.
func (a *Agent) Refine(ctx context.Context, p types.RefinementPrompt, req types.ConversionRequest) types.Result {
	log := a.log.With().Str("backend", a.backend.Name()).Str("mode", string(a.mode)).Logger()

	var (
		text string
		err  error
	)
	switch a.mode {
	case types.ModeDirect:
		text, err = a.backend.Complete(ctx, p)
	case types.ModeTool:
		tb, ok := a.backend.(ToolBackend)
		if !ok {
			return types.Failuref(types.KindConfiguration, "%sbackend %s does not support tool mode", reasonPrefix, a.backend.Name())
		}
		if a.extractor == nil {
			return types.Failure(types.KindConfiguration, reasonPrefix+"tool mode requires an extractor")
		}
		text, err = tb.CompleteWithTool(ctx, p, a.documentTool(req.Document))
	default:
		return types.Failuref(types.KindConfiguration, "%sunknown refine mode %q", reasonPrefix, a.mode)
	}
	if err != nil {
		res := failureFromError(err)
		log.Warn().Str("kind", string(res.Kind)).Msg(res.Reason)
		return res
	}

	text = stripFence(text)
	if types.Blank(text) {
		log.Warn().Msg("model returned empty output")
		return types.Failure(types.KindEmptyOutput, reasonPrefix+"model returned empty output")
	}

	if req.Translate && a.checker != nil {
		if detected, ok := a.checker.Matches(text, a.target); !ok {
			log.Warn().Str("want", a.target.Code()).Str("detected", detected).Msg("refined output is not in the target language")
		}
	}
	return types.Success(text)
}

// documentTool exposes the extractor for one document. The first extraction
// result is reused if the model calls the tool again.
func (a *Agent) documentTool(doc types.Document) Tool {
	ref := doc.Reference()
	var cached *types.Result
	return Tool{
		Name: prompt.ToolName,
		Description: "Converts a PDF file to markdown using Upstage Document AI. " +
			"Takes the document reference (file path) and returns the extracted markdown content.",
		Call: func(ctx context.Context, filename string) (string, error) {
			if !sameDocument(filename, doc) {
				return fmt.Sprintf("error: unknown document %q; the only available document is %q", filename, ref), nil
			}
			if cached == nil {
				res := a.extractor.Extract(ctx, doc)
				cached = &res
			}
			if !cached.OK() {
				return "", cached.Err()
			}
			return cached.Text, nil
		},
	}
}

func sameDocument(filename string, doc types.Document) bool {
	filename = strings.TrimSpace(filename)
	return filename == doc.Reference() ||
		filename == doc.FileName() ||
		filepath.Base(filename) == doc.FileName()
}

// failureFromError converts a backend error to a tagged Result. Errors that
// already carry a kind keep their reason unchanged.
func failureFromError(err error) types.Result {
	var fe *types.FailureError
	switch {
	case errors.As(err, &fe):
		return types.Failure(fe.Kind, fe.Reason)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.Failure(types.KindTransport, reasonPrefix+"request cancelled: "+err.Error())
	default:
		return types.Failure(types.KindUpstream, reasonPrefix+err.Error())
	}
}

// failure builds a tagged error for backends.
func failure(kind types.FailureKind, format string, args ...any) error {
	return &types.FailureError{Kind: kind, Reason: reasonPrefix + fmt.Sprintf(format, args...)}
}

func missingKey(name string) error {
	return &types.FailureError{Kind: types.KindConfiguration, Reason: fmt.Sprintf("Error: %s not found in secrets", name)}
}

// stripFence removes a code fence wrapped around the whole document.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	lang := strings.TrimSpace(s[3:nl])
	if lang != "" && lang != "markdown" && lang != "md" {
		return s
	}
	body := s[nl+1 : len(s)-3]
	// An odd number of inner fences means the outer pair is not a wrapper.
	if strings.Count(body, "```")%2 != 0 {
		return s
	}
	return strings.TrimSpace(body)
}
