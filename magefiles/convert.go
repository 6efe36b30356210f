package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts every PDF in in/ to Markdown in out/.
func Convert() error {
	mg.Deps(Init, Build)

	pdfs, err := filepath.Glob(filepath.Join("in", "*.pdf"))
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		fmt.Println("[convert] No PDFs in in/.")
		return nil
	}
	args := append([]string{"convert", "--out-dir", "out"}, pdfs...)
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Serve builds the CLI and starts the HTTP API.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "serve")
}
