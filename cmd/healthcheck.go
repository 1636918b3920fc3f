package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/internal/store"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that wa-history can reach its store and payloads",
	Long: `Check the health of wa-history by verifying:
  • Configuration loading
  • Conversation store connectivity
  • Conversation listing
  • Payload directory availability

This command is useful for debugging deployments and store DSNs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 wa-history Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckDetails {
			if configPath != "" {
				fmt.Fprintf(out, "   Config file: %s\n", configPath)
			}
			fmt.Fprintf(out, "   Store: %s (timeout %s)\n", store.Describe(cfg.Store.DSN), cfg.Store.Timeout)
			fmt.Fprintf(out, "   Listen address: %s\n", cfg.Server.Addr)
		}
		fmt.Fprintln(out)

		// Step 2: Store
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening conversation store..."))
		s, err := openStore(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open store:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer closeStore(s)
		fmt.Fprintln(out, successStyle.Render("✅ Store reachable"))
		if healthcheckDetails {
			fmt.Fprintf(out, "   Type: %T\n", s)
		}
		fmt.Fprintln(out)

		// Step 3: Conversations
		fmt.Fprintln(out, infoStyle.Render("Step 3: Listing conversations..."))
		convs, err := s.ListAll(cmd.Context())
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to list conversations:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		if len(convs) > 0 {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d conversation(s)", len(convs))))
			if healthcheckDetails {
				printFirstConversations(out, convs, 5)
			}
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No conversations stored yet"))
		}
		fmt.Fprintln(out)

		// Step 4: Payload directory
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking payload directory..."))
		payloadsOK := checkPayloadDir(out, cfg.Ingest.PayloadDir)
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		fmt.Fprintln(out, successStyle.Render("   • Store: Available"))
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Conversations: %d found", len(convs))))
		if !payloadsOK {
			fmt.Fprintln(out, warningStyle.Render("   • Payload directory: not available (only needed by ingest)"))
		}
		return nil
	},
}

func printFirstConversations(out io.Writer, convs []*internal.Conversation, n int) {
	for i, conv := range convs {
		if i >= n {
			fmt.Fprintf(out, "   ... and %d more\n", len(convs)-n)
			return
		}
		fmt.Fprintf(out, "   [%d] %s (%s, %d message(s))\n", i+1, conv.Name, conv.WaID, len(conv.Messages))
	}
}

func checkPayloadDir(out io.Writer, dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintln(out, warningStyle.Render("⚠️  Payload directory not found"))
		if healthcheckDetails {
			fmt.Fprintf(out, "   Expected: %s\n", dir)
		}
		return false
	}
	files, err := internal.FindPayloadFiles(dir)
	if err != nil {
		fmt.Fprintln(out, warningStyle.Render("⚠️  Error scanning payload directory:"), err)
		return false
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d payload file(s) in %s", len(files), dir)))
	return true
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckDetails, "details", false, "Show detailed diagnostic information")
}
