package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/wa-history/internal"
)

// JSONLExporter exports conversations in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	WaID      string  `json:"wa_id"`
	ID        string  `json:"id"`
	FromMe    bool    `json:"fromMe"`
	Text      *string `json:"text"`
	Timestamp int64   `json:"timestamp"`
	Status    string  `json:"status"`
}

// Export exports a conversation to JSONL format
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range conv.Messages {
		line := jsonlLine{
			WaID:      conv.WaID,
			ID:        msg.ID,
			FromMe:    msg.FromMe,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
			Status:    msg.Status,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
