package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/internal/config"
	"github.com/iksnae/wa-history/internal/store"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	storeDSN   string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	cfg = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wa-history",
	Short: "Ingest WhatsApp webhook payloads into conversation history",
	Long: `A CLI tool that turns WhatsApp Business webhook payloads into per-contact
conversation history.

Inbound and outbound messages are grouped by contact, delivery statuses are
applied to the messages they reference, and the result is merged into a
conversation store (SQLite, Postgres, MongoDB, DynamoDB or memory).
Re-ingesting the same payloads never duplicates anything.

Quick Start:
  wa-history ingest --dir ./payloads       # Ingest a directory of payload files
  wa-history list                          # List conversations
  wa-history show <wa_id>                  # View one conversation
  wa-history serve                         # Serve the REST API and webhook
  wa-history export --format md            # Export as Markdown

The store is selected by DSN (--store or WA_HISTORY_STORE_DSN):
  sqlite://./wa-history.db  postgres://...  mongodb://...  dynamodb://table  memory://`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if storeDSN != "" {
			loaded.Store.DSN = storeDSN
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured conversation store
func openStore(ctx context.Context) (internal.ConversationStore, error) {
	internal.LogDebug("Opening store %s", store.Describe(cfg.Store.DSN))
	s, err := store.Open(ctx, cfg.Store.DSN, store.Options{Timeout: cfg.Store.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", store.Describe(cfg.Store.DSN), err)
	}
	return s, nil
}

// newIngestor wires an Ingestor to s using the loaded configuration
func newIngestor(s internal.ConversationStore, dryRun bool) *internal.Ingestor {
	return internal.NewIngestor(s,
		internal.WithPlaceholderName(cfg.Account.PlaceholderName),
		internal.WithAPIPlaceholderName(cfg.Account.APIPlaceholderName),
		internal.WithDryRun(dryRun),
	)
}

func closeStore(s internal.ConversationStore) {
	if err := s.Close(); err != nil {
		internal.LogWarn("Failed to close store: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "store", "", "Conversation store DSN (overrides config and environment)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
