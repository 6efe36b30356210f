package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pdf2md/internal/extraction"
	"github.com/pdiddy/pdf2md/internal/language"
	"github.com/pdiddy/pdf2md/internal/prompt"
	"github.com/pdiddy/pdf2md/internal/refine"
	"github.com/pdiddy/pdf2md/internal/secrets"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// FromConfig wires the extraction client, prompt builder and refinement
// agent described by cfg. Credentials are looked up per request, so a
// missing key surfaces as a ConfigurationError result rather than here.
func FromConfig(cfg types.Config, store *secrets.Store, log zerolog.Logger, opts ...Option) (*Pipeline, error) {
	target, err := language.Resolve(cfg.Refine.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("refine.target_language: %w", err)
	}

	backend, err := refine.NewBackend(cfg.Refine, store, nil)
	if err != nil {
		return nil, fmt.Errorf("refine.backend: %w", err)
	}

	extractor := extraction.New(cfg.Extraction, store, nil, log.With().Str("component", "extraction").Logger())

	agentOpts := []refine.Option{refine.WithExtractor(extractor)}
	if cfg.Refine.VerifyLanguage {
		agentOpts = append(agentOpts, refine.WithLanguageCheck(language.NewChecker(), target))
	}
	agent := refine.NewAgent(backend, cfg.Refine.Mode, log.With().Str("component", "refine").Logger(), agentOpts...)

	if agent.Mode() == types.ModeTool && !refine.SupportsTools(backend) {
		log.Warn().Str("backend", backend.Name()).Msg("backend does not support tool mode; conversions will fail with a configuration error")
	}

	return New(extractor, prompt.New(target), agent, log, opts...), nil
}
