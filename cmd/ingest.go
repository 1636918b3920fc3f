package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/wa-history/internal"
	"github.com/spf13/cobra"
)

var (
	ingestDir    string
	ingestWatch  bool
	ingestDryRun bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest webhook payload files into the conversation store",
	Long: `Ingest WhatsApp webhook payload files into the conversation store.

Without arguments every *.json file of the payload directory is ingested, in
lexical order, as one batch. Files given as arguments are ingested instead.
Ingestion is idempotent: running it twice leaves the store unchanged.

With --watch the directory is ingested once and then watched; new or
rewritten payload files are ingested as they appear until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Ingest.PayloadDir
		if ingestDir != "" {
			dir = ingestDir
		}
		if ingestWatch && len(args) > 0 {
			return fmt.Errorf("--watch cannot be combined with file arguments")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(s)

		ingestor := newIngestor(s, ingestDryRun)
		if ingestDryRun {
			internal.PrintWarning("Dry run: nothing will be written to the store")
		}

		var result *internal.IngestResult
		err = internal.ShowProgress(ctx, "Ingesting payloads...", func() error {
			var ingestErr error
			if len(args) > 0 {
				docs, readErr := readPayloadArgs(args)
				if readErr != nil {
					return readErr
				}
				result, ingestErr = ingestor.Ingest(ctx, docs)
			} else {
				result, ingestErr = ingestor.IngestDir(ctx, dir)
			}
			return ingestErr
		})
		if result != nil {
			internal.PrintIngestSummary(result)
		}
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		internal.PrintSuccess("Ingest complete")

		if !ingestWatch {
			return nil
		}

		internal.PrintInfo(fmt.Sprintf("Watching %s for new payloads (Ctrl+C to stop)", dir))
		return internal.WatchDir(ctx, dir, cfg.Ingest.WatchDebounce, func(ctx context.Context, docs []internal.RawDocument) error {
			r, err := ingestor.Ingest(ctx, docs)
			if r != nil {
				internal.PrintIngestSummary(r)
			}
			if err != nil {
				internal.PrintError(fmt.Sprintf("Ingest of %d watched file(s) failed: %v", len(docs), err))
			}
			return err
		})
	},
}

func readPayloadArgs(paths []string) ([]internal.RawDocument, error) {
	docs := make([]internal.RawDocument, 0, len(paths))
	for _, p := range paths {
		doc, err := internal.ReadPayloadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestDir, "dir", "d", "", "Payload directory (default from config, ./payloads)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "Keep watching the directory for new payload files")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Extract and merge without writing to the store")
}
