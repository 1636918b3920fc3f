package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/wa-history/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	conversationHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	conversationMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	inboundMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	outboundMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <wa_id>",
	Short: "Show messages of one conversation",
	Long: `Display the messages exchanged with one contact, oldest first.

--limit keeps only the most recent messages; --since drops messages older
than an RFC3339 timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		waID := args[0]

		var sinceTime time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = parsed
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore(s)

		conv, err := s.FindByConversationID(cmd.Context(), waID)
		if errors.Is(err, internal.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", waID)
		}
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}

		out := cmd.OutOrStdout()
		displayConversationHeader(out, conv)

		messages := conv.Messages
		if !sinceTime.IsZero() {
			filtered := make([]internal.StoredMessage, 0, len(messages))
			for _, msg := range messages {
				if !msg.Time().Before(sinceTime) {
					filtered = append(filtered, msg)
				}
			}
			messages = filtered
		}

		total := len(messages)
		skipped := 0
		if limit > 0 && limit < total {
			skipped = total - limit
			messages = messages[skipped:]
		}

		if skipped > 0 {
			fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d earlier message(s))", skipped)))
			fmt.Fprintln(out)
		}
		for i, msg := range messages {
			displayMessage(out, conv, skipped+i+1, msg, total)
		}
		return nil
	},
}

func displayConversationHeader(out io.Writer, conv *internal.Conversation) {
	fmt.Fprintln(out, conversationHeaderStyle.Render(fmt.Sprintf("💬 %s", conv.Name)))

	metaParts := []string{
		fmt.Sprintf("WA ID: %s", conv.WaID),
		fmt.Sprintf("Messages: %d", len(conv.Messages)),
	}
	if n := len(conv.Messages); n > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Last activity: %s", conv.Messages[n-1].Time().UTC().Format(time.RFC3339)))
	}
	fmt.Fprintln(out, conversationMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

func displayMessage(out io.Writer, conv *internal.Conversation, index int, msg internal.StoredMessage, total int) {
	actorStyle := inboundMessageStyle
	actorLabel := "👤 " + conv.Name
	if msg.FromMe {
		actorStyle = outboundMessageStyle
		actorLabel = "📤 You"
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	header += " " + timestampStyle.Render(msg.Time().UTC().Format("2006-01-02 15:04:05"))
	if msg.FromMe {
		header += " " + timestampStyle.Render(statusMark(msg.Status))
	}
	fmt.Fprintln(out, header)

	content := strings.TrimSpace(msg.TextValue())
	if content != "" {
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(no text)"))
	}
}

// statusMark renders a delivery status the way chat clients tick messages
func statusMark(status string) string {
	switch status {
	case internal.StatusSent:
		return "✓ sent"
	case internal.StatusDelivered:
		return "✓✓ delivered"
	case internal.StatusRead:
		return "✓✓ read"
	default:
		return status
	}
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N messages")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
