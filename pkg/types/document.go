// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Document is a PDF handed to the pipeline. Exactly one of Data or Path
// carries the content; Data wins when both are set.
type Document struct {
	// Name is the user-visible file name (e.g. "lecture-03.pdf").
	Name string `json:"name" yaml:"name"`

	// Path is the local filesystem location of the PDF, if any.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Data holds the PDF bytes for uploads that never touch disk.
	Data []byte `json:"-" yaml:"-"`
}

// Open returns a reader over the document content.
func (d Document) Open() (io.ReadCloser, error) {
	if len(d.Data) > 0 {
		return io.NopCloser(bytes.NewReader(d.Data)), nil
	}
	if d.Path == "" {
		return nil, fmt.Errorf("document %q has no content", d.Name)
	}
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.Path, err)
	}
	return f, nil
}

// FileName returns the name sent to the extraction service.
func (d Document) FileName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.Path != "" {
		return filepath.Base(d.Path)
	}
	return "document.pdf"
}

// Reference is the location string a tool-augmented agent passes back to
// the document_parser tool.
func (d Document) Reference() string {
	if d.Path != "" {
		return d.Path
	}
	return d.FileName()
}

// MarkdownName returns the download name for the converted document: the
// source name with its extension replaced by ".md".
func (d Document) MarkdownName() string {
	name := d.FileName()
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".md"
}

// ConversionRequest is one conversion job. It is passed by value and never
// modified by the pipeline.
type ConversionRequest struct {
	// ID correlates log lines for one conversion.
	ID string `json:"id" yaml:"id"`

	Document Document `json:"document" yaml:"document"`

	// Requirements is free-form user guidance. It may be empty.
	Requirements string `json:"requirements" yaml:"requirements"`

	// Translate asks for the output in the configured target language.
	Translate bool `json:"translate" yaml:"translate"`
}
