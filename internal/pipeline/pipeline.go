// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences extraction and refinement for one document.
// A failed extraction short-circuits the pipeline: the model is never
// called and the extraction failure is returned unchanged.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/internal/observability"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// State is a step of one conversion.
type State string

const (
	StateIdle          State = "idle"
	StateExtracting    State = "extracting"
	StateExtractFailed State = "extract_failed"
	StateExtracted     State = "extracted"
	StateRefining      State = "refining"
	StateRefineFailed  State = "refine_failed"
	StateRefined       State = "refined"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateExtractFailed || s == StateRefineFailed || s == StateRefined
}

// Extractor turns a document into raw markdown.
type Extractor interface {
	Extract(ctx context.Context, doc types.Document) types.Result
}

// Prompter builds refinement prompts.
type Prompter interface {
	Build(rawText, requirements string, translate bool) types.RefinementPrompt
	BuildReference(reference, requirements string, translate bool) types.RefinementPrompt
}

// Refiner runs the single model invocation.
type Refiner interface {
	Refine(ctx context.Context, p types.RefinementPrompt, req types.ConversionRequest) types.Result
	Mode() types.RefineMode
}

// Observer receives every state transition of a conversion.
type Observer func(req types.ConversionRequest, s State)

// Pipeline is the conversion entry point. It keeps no state between calls
// and is safe for concurrent use.
type Pipeline struct {
	extractor Extractor
	prompts   Prompter
	refiner   Refiner
	log       zerolog.Logger
	observer  Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver reports state transitions to fn.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// New creates a Pipeline.
func New(extractor Extractor, prompts Prompter, refiner Refiner, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{extractor: extractor, prompts: prompts, refiner: refiner, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert runs one conversion. In direct mode it extracts, builds the prompt
// from the extracted text and refines. In tool mode the prompt references
// the document and the model extracts it through its tool. The refiner's
// result is returned as is.
func (p *Pipeline) Convert(ctx context.Context, req types.ConversionRequest) types.Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := observability.WithRequest(p.log, req.ID).With().Str("document", req.Document.FileName()).Logger()
	start := time.Now()

	p.enter(log, req, StateIdle)

	var prompt types.RefinementPrompt
	if p.refiner.Mode() == types.ModeTool {
		prompt = p.prompts.BuildReference(req.Document.Reference(), req.Requirements, req.Translate)
	} else {
		p.enter(log, req, StateExtracting)
		extracted := p.extractor.Extract(ctx, req.Document)
		if !extracted.OK() {
			p.enter(log, req, StateExtractFailed)
			log.Warn().Str("kind", string(extracted.Kind)).Dur("elapsed", time.Since(start)).Msg(extracted.Reason)
			return extracted
		}
		p.enter(log, req, StateExtracted)
		log.Debug().Int("chars", len(extracted.Text)).Msg("extracted")
		prompt = p.prompts.Build(extracted.Text, req.Requirements, req.Translate)
	}

	p.enter(log, req, StateRefining)
	res := p.refiner.Refine(ctx, prompt, req)
	if !res.OK() {
		p.enter(log, req, StateRefineFailed)
		log.Warn().Str("kind", string(res.Kind)).Dur("elapsed", time.Since(start)).Msg(res.Reason)
		return res
	}

	p.enter(log, req, StateRefined)
	log.Info().Int("chars", len(res.Text)).Dur("elapsed", time.Since(start)).Msg("converted")
	return res
}

// ConvertPDF is the host-facing form of Convert for in-memory uploads.
func (p *Pipeline) ConvertPDF(ctx context.Context, name string, pdf []byte, requirements string, translate bool) types.Result {
	return p.Convert(ctx, types.ConversionRequest{
		Document:     types.Document{Name: name, Data: pdf},
		Requirements: requirements,
		Translate:    translate,
	})
}

func (p *Pipeline) enter(log zerolog.Logger, req types.ConversionRequest, s State) {
	log.Debug().Str("state", string(s)).Msg("state")
	if p.observer != nil {
		p.observer(req, s)
	}
}
