package export

import (
	"bytes"
	"testing"

	"github.com/iksnae/wa-history/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	conv := sampleConversation()
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got internal.Conversation
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if internal.Fingerprint(&got) != internal.Fingerprint(conv) {
		t.Errorf("YAML export does not round-trip:\n%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("wa_id: \"15551234567\"")) {
		t.Errorf("expected quoted wa_id, got:\n%s", buf.String())
	}
}
