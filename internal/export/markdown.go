package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/wa-history/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", escapeMarkdown(conv.Name))
	_, _ = fmt.Fprintf(w, "**WA ID:** %s  \n", conv.WaID)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range conv.Messages {
		sender := conv.Name
		if msg.FromMe {
			sender = "You"
		}
		when := msg.Time().UTC().Format(time.RFC3339)

		text := "_(no text)_"
		if msg.Text != nil {
			text = escapeMarkdown(*msg.Text)
		}

		_, _ = fmt.Fprintf(w, "**%s** (%s, %s)\n\n%s\n\n", escapeMarkdown(sender), when, msg.Status, text)

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
