package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2md/internal/feedback"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Send or export user feedback",
	Long: `Feedback is stored in the SQLite database at feedback.db_path and, when
feedback.telegram_chat_id is set, posted to that Telegram chat.`,
}

var feedbackSendCmd = &cobra.Command{
	Use:   "send MESSAGE",
	Short: "Record one feedback message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		dispatcher, closeSinks, err := openFeedback()
		if err != nil {
			return err
		}
		defer closeSinks()
		if dispatcher == nil {
			return fmt.Errorf("no feedback sink configured (set feedback.db_path or feedback.telegram_chat_id)")
		}

		entry, err := dispatcher.Submit(name, args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), feedback.SendTimeout)
		defer cancel()
		if err := dispatcher.Close(ctx); err != nil {
			return fmt.Errorf("delivering feedback: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "feedback %s sent to %v\n", entry.ID, dispatcher.Sinks())
		return nil
	},
}

var feedbackExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored feedback as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if cfg.Feedback.DBPath == "" {
			return fmt.Errorf("feedback.db_path is not set")
		}

		store, err := feedback.OpenSQLite(cfg.Feedback.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.ExportYAML(cmd.Context(), out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", n, out)
		return nil
	},
}

func init() {
	feedbackSendCmd.Flags().String("name", "", "sender name (default: anonymous)")
	feedbackExportCmd.Flags().String("out", "out/feedback.yaml", "output YAML file")

	feedbackCmd.AddCommand(feedbackSendCmd, feedbackExportCmd)
	rootCmd.AddCommand(feedbackCmd)
}

// openFeedback builds a dispatcher over the configured sinks. It returns a
// nil dispatcher when no sink is configured. The returned func closes the
// sinks and must run after the dispatcher is closed.
func openFeedback() (*feedback.Dispatcher, func(), error) {
	var (
		sinks []feedback.Sink
		store *feedback.SQLiteSink
	)
	closeSinks := func() {
		if store != nil {
			store.Close()
		}
	}

	if cfg.Feedback.DBPath != "" {
		s, err := feedback.OpenSQLite(cfg.Feedback.DBPath)
		if err != nil {
			return nil, closeSinks, err
		}
		store = s
		sinks = append(sinks, s)
	}
	if cfg.Feedback.TelegramChatID != 0 {
		sinks = append(sinks, feedback.NewTelegram(loadedSecrets, cfg.Feedback.TelegramTokenSecret, cfg.Feedback.TelegramChatID, nil))
	}
	if len(sinks) == 0 {
		return nil, closeSinks, nil
	}
	return feedback.NewDispatcher(logger.With().Str("component", "feedback").Logger(), sinks...), closeSinks, nil
}
