package server

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderHTML renders refined markdown as a standalone HTML page for
// browser previews.
func RenderHTML(md, title string) []byte {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.CompletePage,
		Title: title,
	}
	renderer := html.NewRenderer(opts)
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Attributes)
	return markdown.Render(p.Parse([]byte(md)), renderer)
}
