// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs conversions for local PDF files and writes the
// resulting Markdown next to the input or into an output directory.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// Converter turns one request into a result. *pipeline.Pipeline implements it.
type Converter interface {
	Convert(ctx context.Context, req types.ConversionRequest) types.Result
}

// Status is the outcome of one file.
type Status string

const (
	StatusConverted Status = "converted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Options control where and how results are written.
type Options struct {
	// OutDir receives the .md files. Empty writes next to each input.
	OutDir string

	Requirements string
	Translate    bool

	// Overwrite replaces existing output instead of skipping the file.
	Overwrite bool

	// Frontmatter prepends YAML frontmatter naming the source PDF.
	Frontmatter bool
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// OutputPath returns where the Markdown for pdfPath is written.
func OutputPath(pdfPath, outDir string) string {
	name := types.Document{Path: pdfPath}.MarkdownName()
	if outDir == "" {
		return filepath.Join(filepath.Dir(pdfPath), name)
	}
	return filepath.Join(outDir, name)
}

// ConvertFile converts one PDF and writes the refined Markdown. On failure
// nothing is written, the reason is printed to w and the returned error is a
// *types.FailureError. Converted and skipped files return a nil error.
func ConvertFile(ctx context.Context, c Converter, pdfPath string, opts Options, w io.Writer) (Status, error) {
	mdPath := OutputPath(pdfPath, opts.OutDir)
	name := filepath.Base(pdfPath)

	if _, err := os.Stat(mdPath); err == nil && !opts.Overwrite {
		fmt.Fprintf(w, "%s %s (%s already exists)\n", color.YellowString("skipped:"), name, mdPath)
		return StatusSkipped, nil
	}

	res := c.Convert(ctx, types.ConversionRequest{
		Document:     types.Document{Path: pdfPath},
		Requirements: opts.Requirements,
		Translate:    opts.Translate,
	})
	if !res.OK() {
		fmt.Fprintf(w, "%s  %s\n  %s\n", color.RedString("failed:"), name, color.RedString(res.Reason))
		return StatusFailed, res.Err()
	}

	if dir := filepath.Dir(mdPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(w, "%s  %s (%v)\n", color.RedString("failed:"), name, err)
			return StatusFailed, types.Failuref(types.KindConfiguration, "creating %s: %v", dir, err).Err()
		}
	}

	content := res.Text
	if opts.Frontmatter {
		content = addFrontmatter(pdfPath, content)
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := os.WriteFile(mdPath, []byte(content), 0o644); err != nil {
		fmt.Fprintf(w, "%s  %s (%v)\n", color.RedString("failed:"), name, err)
		return StatusFailed, types.Failuref(types.KindConfiguration, "writing %s: %v", mdPath, err).Err()
	}

	fmt.Fprintf(w, "%s %s -> %s\n", color.GreenString("converted:"), name, mdPath)
	return StatusConverted, nil
}

// ConvertBatch converts each path in turn, printing per-file status to w
// and returning a summary. One file's failure does not stop the others.
func ConvertBatch(ctx context.Context, c Converter, pdfPaths []string, opts Options, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range pdfPaths {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "%s  %s (%v)\n", color.RedString("failed:"), filepath.Base(p), ctx.Err())
			result.Failed++
			continue
		}
		status, _ := ConvertFile(ctx, c, p, opts, w)
		switch status {
		case StatusConverted:
			result.Converted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	if len(pdfPaths) > 1 {
		fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
			result.Converted, result.Skipped, result.Failed, result.Total())
	}
	return result
}

// addFrontmatter prepends YAML frontmatter to the converted Markdown content.
func addFrontmatter(pdfPath, body string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source_pdf: %q\n", filepath.Base(pdfPath))
	fmt.Fprintf(&b, "converted_at: %q\n", ts)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}
