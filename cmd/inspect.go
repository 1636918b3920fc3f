package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/wa-history/internal"
	"github.com/spf13/cobra"
)

var (
	inspectFormat string
)

// inspectReport is the JSON form of an inspect run
type inspectReport struct {
	Files []inspectFile         `json:"files"`
	Stats internal.ExtractStats `json:"stats"`
	Merge internal.MergeStats   `json:"merge"`
}

type inspectFile struct {
	Name   string                    `json:"name"`
	Events []internal.ExtractedEvent `json:"events"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [files...]",
	Short: "Show the events payload files would produce",
	Long: `Inspect webhook payload files without touching the store.

This command extracts every file and prints:
  • Each message and status event found, per file
  • Documents and records that would be skipped
  • What the merge of all files would yield

Examples:
  wa-history inspect                           # Inspect the payload directory
  wa-history inspect payloads/a.json           # Inspect specific files
  wa-history inspect --format json             # Machine readable output`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "text" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}

		var docs []internal.RawDocument
		var err error
		if len(args) > 0 {
			docs, err = readPayloadArgs(args)
		} else {
			docs, err = internal.ReadPayloadDir(cfg.Ingest.PayloadDir)
		}
		if err != nil {
			return err
		}

		report := inspectDocuments(docs, cfg.Account.PlaceholderName)
		if inspectFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printInspectReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func inspectDocuments(docs []internal.RawDocument, placeholder string) *inspectReport {
	extractor := internal.NewExtractor(nil)
	merger := internal.NewMerger(placeholder)

	report := &inspectReport{Files: make([]inspectFile, 0, len(docs))}
	for _, doc := range docs {
		file := inspectFile{Name: doc.Name, Events: []internal.ExtractedEvent{}}
		for ev := range extractor.Extract(doc.Name, doc.Data) {
			file.Events = append(file.Events, ev)
			merger.Apply(ev)
		}
		report.Files = append(report.Files, file)
	}
	report.Stats = extractor.Stats
	report.Merge = merger.Finalize().Stats
	return report
}

func printInspectReport(out io.Writer, report *inspectReport) {
	for _, file := range report.Files {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📄 %s (%d event(s))", file.Name, len(file.Events))))
		if len(file.Events) == 0 {
			fmt.Fprintln(out)
			continue
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "KIND\tWA ID\tEVENT ID\tTIME\tDETAIL\t")
		for _, ev := range file.Events {
			detail := ev.Status
			if ev.Kind == internal.EventMessage {
				detail = describeMessageEvent(ev)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
				ev.Kind,
				ev.ConversationID,
				ev.EventID,
				time.UnixMilli(ev.OccurredAt).UTC().Format(time.RFC3339),
				detail,
			)
		}
		_ = w.Flush()
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
	fmt.Fprintf(out, "  %-22s %d\n", "Documents", report.Stats.Documents)
	fmt.Fprintf(out, "  %-22s %d\n", "Documents skipped", report.Stats.DocumentsSkipped)
	fmt.Fprintf(out, "  %-22s %d\n", "Records skipped", report.Stats.RecordsSkipped)
	fmt.Fprintf(out, "  %-22s %d\n", "Events", report.Stats.Events)
	fmt.Fprintf(out, "  %-22s %d\n", "Messages", report.Merge.Messages)
	fmt.Fprintf(out, "  %-22s %d\n", "Duplicate messages", report.Merge.DuplicateMessages)
	fmt.Fprintf(out, "  %-22s %d\n", "Statuses applied", report.Merge.StatusesApplied)
	fmt.Fprintf(out, "  %-22s %d\n", "Statuses pending", report.Merge.StatusesPending)
}

func describeMessageEvent(ev internal.ExtractedEvent) string {
	var parts []string
	if ev.Outbound {
		parts = append(parts, "outbound")
	} else {
		parts = append(parts, "inbound")
	}
	if ev.DisplayName != nil {
		parts = append(parts, "from "+*ev.DisplayName)
	}
	if ev.Text != nil {
		text := *ev.Text
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		parts = append(parts, fmt.Sprintf("%q", text))
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
}
