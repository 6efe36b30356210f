// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// fakeConverter implements Converter for testing. It returns a canned result
// per file name and records every request.
type fakeConverter struct {
	results  map[string]types.Result
	fallback types.Result
	requests []types.ConversionRequest
}

func (f *fakeConverter) Convert(_ context.Context, req types.ConversionRequest) types.Result {
	f.requests = append(f.requests, req)
	if r, ok := f.results[req.Document.FileName()]; ok {
		return r
	}
	return f.fallback
}

// setupPDF creates a temporary PDF file and returns its path and the temp dir.
func setupPDF(t *testing.T, name string) (pdfPath, tmpDir string) {
	t.Helper()
	tmpDir = t.TempDir()
	pdfPath = filepath.Join(tmpDir, name)
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return pdfPath, tmpDir
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/in/lecture.pdf", ""); got != "/in/lecture.md" {
		t.Errorf("OutputPath without out dir = %q", got)
	}
	if got := OutputPath("/in/lecture.pdf", "/out"); got != "/out/lecture.md" {
		t.Errorf("OutputPath with out dir = %q", got)
	}
}

func TestConvertFile(t *testing.T) {
	tests := []struct {
		name       string
		result     types.Result
		preCreate  bool
		overwrite  bool
		wantStatus Status
		wantErr    error
		wantLog    string
		wantFile   string
	}{
		{
			name:       "successful conversion",
			result:     types.Success("# Title\n\nContent here."),
			wantStatus: StatusConverted,
			wantLog:    "converted:",
			wantFile:   "# Title\n\nContent here.\n",
		},
		{
			name:       "skip existing markdown",
			result:     types.Success("should not be used"),
			preCreate:  true,
			wantStatus: StatusSkipped,
			wantLog:    "skipped:",
			wantFile:   "existing",
		},
		{
			name:       "overwrite existing markdown",
			result:     types.Success("# New"),
			preCreate:  true,
			overwrite:  true,
			wantStatus: StatusConverted,
			wantLog:    "converted:",
			wantFile:   "# New\n",
		},
		{
			name:       "conversion failure",
			result:     types.Failure(types.KindUpstream, "Error refining markdown: status 500"),
			wantStatus: StatusFailed,
			wantErr:    types.ErrUpstream,
			wantLog:    "Error refining markdown: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdfPath, tmpDir := setupPDF(t, "lecture.pdf")
			outDir := filepath.Join(tmpDir, "out")
			mdPath := filepath.Join(outDir, "lecture.md")

			if tt.preCreate {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(mdPath, []byte("existing"), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			conv := &fakeConverter{fallback: tt.result}
			var log bytes.Buffer
			opts := Options{OutDir: outDir, Overwrite: tt.overwrite, Requirements: "keep tables", Translate: true}

			status, err := ConvertFile(context.Background(), conv, pdfPath, opts, &log)

			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(log.String(), tt.wantLog) {
				t.Errorf("log output %q does not contain %q", log.String(), tt.wantLog)
			}

			data, err := os.ReadFile(mdPath)
			if tt.wantFile == "" {
				if err == nil {
					t.Errorf("expected no output file, found %q", data)
				}
				return
			}
			if err != nil {
				t.Fatalf("reading output: %v", err)
			}
			if string(data) != tt.wantFile {
				t.Errorf("output = %q, want %q", data, tt.wantFile)
			}
		})
	}
}

func TestConvertFileSkipCarriesNoResult(t *testing.T) {
	pdfPath, tmpDir := setupPDF(t, "done.pdf")
	if err := os.WriteFile(filepath.Join(tmpDir, "done.md"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	conv := &fakeConverter{fallback: types.Success("unused")}

	var log bytes.Buffer
	status, err := ConvertFile(context.Background(), conv, pdfPath, Options{}, &log)
	if status != StatusSkipped || err != nil {
		t.Fatalf("got (%q, %v), want (%q, nil)", status, err, StatusSkipped)
	}
	if len(conv.requests) != 0 {
		t.Errorf("converter called %d times for a skipped file", len(conv.requests))
	}
}

func TestConvertFilePassesRequest(t *testing.T) {
	pdfPath, _ := setupPDF(t, "a.pdf")
	conv := &fakeConverter{fallback: types.Success("x")}
	var log bytes.Buffer

	ConvertFile(context.Background(), conv, pdfPath, Options{Requirements: "bold headings", Translate: true}, &log)

	if len(conv.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(conv.requests))
	}
	req := conv.requests[0]
	if req.Document.Path != pdfPath {
		t.Errorf("document path = %q, want %q", req.Document.Path, pdfPath)
	}
	if req.Requirements != "bold headings" || !req.Translate {
		t.Errorf("request options not passed through: %+v", req)
	}
}

func TestConvertFileFrontmatter(t *testing.T) {
	pdfPath, tmpDir := setupPDF(t, "notes.pdf")
	conv := &fakeConverter{fallback: types.Success("# Notes\n\nSome content.")}

	var log bytes.Buffer
	status, _ := ConvertFile(context.Background(), conv, pdfPath, Options{Frontmatter: true}, &log)
	if status != StatusConverted {
		t.Fatalf("expected StatusConverted, got %q", status)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "notes.md"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "---\n") {
		t.Error("output should start with YAML frontmatter delimiter")
	}
	if !strings.Contains(content, `source_pdf: "notes.pdf"`) {
		t.Error("frontmatter should contain source_pdf")
	}
	if !strings.Contains(content, `converted_at:`) {
		t.Error("frontmatter should contain converted_at")
	}
	if !strings.Contains(content, "# Notes") {
		t.Error("output should contain the refined Markdown body")
	}
}

func TestConvertBatch(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "out")

	var paths []string
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte("pdf"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	// Pre-create output for "b" to trigger skip.
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "b.md"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	conv := &fakeConverter{
		results: map[string]types.Result{
			"a.pdf": types.Success("# A"),
			"c.pdf": types.Failure(types.KindConfiguration, "Error: UPSTAGE_API_KEY not found in secrets"),
		},
	}

	var log bytes.Buffer
	result := ConvertBatch(context.Background(), conv, paths, Options{OutDir: outDir}, &log)

	if result.Converted != 1 {
		t.Errorf("converted = %d, want 1", result.Converted)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	if result.Total() != 3 {
		t.Errorf("total = %d, want 3", result.Total())
	}
	if len(conv.requests) != 2 {
		t.Errorf("converter called %d times, want 2", len(conv.requests))
	}

	output := log.String()
	if !strings.Contains(output, "Batch summary:") {
		t.Error("batch output should contain summary line")
	}
	if !strings.Contains(output, "UPSTAGE_API_KEY not found") {
		t.Error("batch output should contain the failure reason")
	}
}

func TestConvertBatchCancelled(t *testing.T) {
	pdfPath, _ := setupPDF(t, "a.pdf")
	conv := &fakeConverter{fallback: types.Success("x")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	result := ConvertBatch(ctx, conv, []string{pdfPath}, Options{}, &log)
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if len(conv.requests) != 0 {
		t.Errorf("converter called %d times after cancellation", len(conv.requests))
	}
}
