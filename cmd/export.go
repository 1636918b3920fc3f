package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	exportID  string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to files",
	Long: `Export conversations to various formats (json, jsonl, yaml, md, html).

One file is written per conversation, named conversation_<wa_id>.<ext>.
Use --wa-id to export a single conversation; 'wa-history list' shows the ids.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Create exporter first so a bad format fails before touching the store
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore(s)

		var convs []*internal.Conversation
		if exportID != "" {
			conv, err := s.FindByConversationID(cmd.Context(), exportID)
			if errors.Is(err, internal.ErrNotFound) {
				return fmt.Errorf("conversation not found: %s (use 'wa-history list' to see available conversations)", exportID)
			}
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
			convs = append(convs, conv)
		} else {
			convs, err = s.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		var failed int
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Exporting %d conversation(s) to %s", len(convs), outputDir), func() error {
			for _, conv := range convs {
				if err := exportConversation(exporter, format, conv, outputDir); err != nil {
					internal.LogError("%v", err)
					failed++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d conversation(s) failed to export", failed, len(convs))
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", len(convs), outputDir))
		return nil
	},
}

// exportFileName builds the file name for conv; path separators in the id are replaced
func exportFileName(conv *internal.Conversation, ext string) string {
	id := strings.NewReplacer("/", "_", "\\", "_").Replace(conv.WaID)
	return fmt.Sprintf("conversation_%s.%s", id, ext)
}

func exportConversation(exporter export.Exporter, format string, conv *internal.Conversation, dir string) error {
	path := filepath.Join(dir, exportFileName(conv, exporter.Extension()))

	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats, ", ")+")")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&exportID, "wa-id", "", "Export a single conversation by wa_id")
}
