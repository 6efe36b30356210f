package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2md/internal/feedback"
	"github.com/pdiddy/pdf2md/internal/pipeline"
	"github.com/pdiddy/pdf2md/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion API",
	Long: `Serve exposes POST /v1/convert (multipart PDF upload), POST /v1/feedback
and GET /health. It shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	bindFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := pipeline.FromConfig(cfg, loadedSecrets, logger)
	if err != nil {
		return err
	}

	dispatcher, closeSinks, err := openFeedback()
	if err != nil {
		return err
	}
	defer closeSinks()

	// A nil *Dispatcher must not become a non-nil interface.
	var fb server.FeedbackSubmitter
	if dispatcher != nil {
		fb = dispatcher
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), feedback.SendTimeout)
			defer cancel()
			if err := dispatcher.Close(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				logger.Warn().Err(err).Msg("closing feedback dispatcher")
			}
		}()
	}

	start := time.Now()
	err = server.New(cfg.Server, p, fb, version, logger).ListenAndServe(cmd.Context())
	logger.Info().Dur("uptime", time.Since(start)).Msg("server stopped")
	return err
}
