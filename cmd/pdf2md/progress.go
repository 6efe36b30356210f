package main

import (
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/pdiddy/pdf2md/internal/pipeline"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// progress drives a terminal spinner from pipeline state transitions.
type progress struct {
	mu sync.Mutex
	s  *spinner.Spinner
}

func newProgress() *progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	return &progress{s: s}
}

// observe is a pipeline.Observer.
func (p *progress) observe(req types.ConversionRequest, st pipeline.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch st {
	case pipeline.StateExtracting:
		p.s.Suffix = " Document Parsing... " + req.Document.FileName()
		p.s.Start()
	case pipeline.StateRefining:
		p.s.Suffix = " Refining markdown with LLM... " + req.Document.FileName()
		p.s.Start()
	default:
		if st.Terminal() {
			p.s.Stop()
		}
	}
}

func (p *progress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.s.Stop()
}
