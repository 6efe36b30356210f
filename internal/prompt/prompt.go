// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt assembles the refinement instruction sent to the model.
// Rendering is pure: identical inputs always produce identical prompts.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/pdf2md/internal/language"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// ToolName is the name under which the extraction capability is offered to
// a tool-augmented model.
const ToolName = "document_parser"

// systemTmpl is the fixed refinement policy. Requirements sit above the
// policy for content selection; the syntax rules always apply.
var systemTmpl = template.Must(template.New("system").Parse(`You are an expert in markdown formatting and document structuring. Your task is to validate and refine markdown extracted from a PDF so that it is well-structured, accurate, and aligned with the user's requirements.

Refinement policy:
- Fix broken headings, lists, and tables.
- Fill in or clearly flag sections that are missing or unclear (incomplete sections, unreadable charts).
- Normalize markdown syntax and make styles consistent.
- Do not omit any content that is important. Never drop content silently.
- Output only the refined markdown document body. Do not add explanations, greetings, comments, or code fences around the document.
{{- if .HasRequirements}}

User requirements (these take priority over the policy above when deciding what content to keep or omit; the markdown syntax rules always apply):
{{.Requirements}}
{{- else}}

No additional user requirements were given; apply the policy above.
{{- end}}
{{- if .Translate}}

Translate the entire document into {{.Language}}. Keep the markdown structure (headings, lists, tables) and the content-selection rules above unchanged after translation.
{{- end}}
{{- if .Tool}}

The document is not included in this message. Call the {{.ToolName}} tool with the document reference to obtain its extracted markdown, then refine that markdown. Call the tool at most once.
{{- end}}`))

type systemData struct {
	Requirements    string
	HasRequirements bool
	Translate    bool
	Language     string
	Tool         bool
	ToolName     string
}

// Builder renders refinement prompts for one configured target language.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	target language.Target
}

// New returns a Builder that translates into target when asked.
func New(target language.Target) *Builder {
	return &Builder{target: target}
}

// NewForLanguage resolves a BCP 47 tag or English language name and returns
// a Builder for it.
func NewForLanguage(lang string) (*Builder, error) {
	target, err := language.Resolve(lang)
	if err != nil {
		return nil, fmt.Errorf("resolving target language: %w", err)
	}
	return New(target), nil
}

// Target returns the language used for translation requests.
func (b *Builder) Target() language.Target {
	return b.target
}

// Build returns the direct-mode prompt: the policy and requirements in
// System, the extracted markdown in User.
func (b *Builder) Build(rawText, requirements string, translate bool) types.RefinementPrompt {
	return types.RefinementPrompt{
		System: b.render(requirements, translate, false),
		User:   "Here is the markdown content to refine:\n\n" + rawText,
	}
}

// BuildReference returns the tool-mode prompt. User names the document
// reference that the model passes to the document_parser tool.
func (b *Builder) BuildReference(reference, requirements string, translate bool) types.RefinementPrompt {
	return types.RefinementPrompt{
		System: b.render(requirements, translate, true),
		User:   fmt.Sprintf("Document reference: %s\n\nFetch it with the %s tool and return the refined markdown.", reference, ToolName),
	}
}

func (b *Builder) render(requirements string, translate, tool bool) string {
	var buf bytes.Buffer
	err := systemTmpl.Execute(&buf, systemData{
		Requirements:    requirements,
		HasRequirements: !types.Blank(requirements),
		Translate:       translate,
		Language:        b.target.Label(),
		Tool:            tool,
		ToolName:        ToolName,
	})
	if err != nil {
		panic(fmt.Sprintf("rendering refinement prompt: %v", err))
	}
	return buf.String()
}
