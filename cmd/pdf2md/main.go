// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2md CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2md/internal/observability"
	"github.com/pdiddy/pdf2md/internal/secrets"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Loaded by the root command before any subcommand runs.
var (
	cfg           types.Config
	logger        zerolog.Logger
	loadedSecrets *secrets.Store
)

// rootCmd is the base command for the pdf2md CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf2md",
	Short: "Convert lecture PDFs to clean Markdown",
	Long: `pdf2md converts PDF documents to Markdown in two stages. A layout-aware
document-parse service extracts raw Markdown (OCR, tables, charts), then a
language model repairs the structure, applies your requirements and, when
asked, translates the result.

A failed extraction stops the conversion before the model is called.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c
		logger = observability.NewLogger(cfg.Log, os.Stderr)

		s, err := secrets.New(cfg.Secrets)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2md.yaml or ~/.config/pdf2md/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	bindFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
