package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/wa-history/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	Long:  `List every conversation in the store with its contact name, message count and last activity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore(s)

		convs, err := s.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		displayConversations(cmd.OutOrStdout(), convs, time.Now())
		return nil
	},
}

func displayConversations(out io.Writer, convs []*internal.Conversation, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No conversations found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d conversation(s)", len(convs))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("WA ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Last Activity")+"\t"+titleStyle.Render("Last Message")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, conv := range convs {
		name := conv.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}

		last := conv.LastMessage
		if len(last) > 40 {
			last = last[:37] + "..."
		}

		activity := dateStyle.Render("—")
		if n := len(conv.Messages); n > 0 {
			activity = dateStyle.Render(formatRelative(conv.Messages[n-1].Time(), now))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(conv.WaID),
			name,
			countStyle.Render(strconv.Itoa(len(conv.Messages))),
			activity,
			last,
		)
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use `wa-history show "+convs[0].WaID+"` to view a conversation"))
}

// formatRelative formats t relative to now, coarser the further back it is
func formatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour && diff >= 0:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour && diff >= 0:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour && diff >= 0:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
