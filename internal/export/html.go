package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/iksnae/wa-history/internal"
	"github.com/yuin/goldmark"
)

var htmlPage = template.Must(template.New("conversation").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; color: #1f2933; }
hr { border: 0; border-top: 1px solid #d9e2ec; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTMLExporter renders the Markdown export as a standalone HTML page
type HTMLExporter struct{}

// Export exports a conversation to HTML format
func (e *HTMLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	var md bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &md); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := goldmark.Convert(md.Bytes(), &body); err != nil {
		return fmt.Errorf("failed to convert markdown: %w", err)
	}

	return htmlPage.Execute(w, struct {
		Title string
		Body  template.HTML
	}{
		Title: fmt.Sprintf("%s (%s)", conv.Name, conv.WaID),
		// goldmark drops raw HTML from the markdown unless WithUnsafe is set
		Body: template.HTML(body.String()),
	})
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
