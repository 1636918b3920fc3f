package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/testutil"
)

func TestInspectCommand_JSON(t *testing.T) {
	dir := seedPayloads(t)
	testutil.WritePayloadFile(t, dir, "005_broken.json", []byte("{not json"))

	out, err := execute(t, "inspect", "--format", "json", dir+"/001_inbound.json", dir+"/003_status.json", dir+"/005_broken.json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var report inspectReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(report.Files))
	}
	if got := report.Files[0].Events; len(got) != 1 || got[0].Kind != internal.EventMessage || got[0].ConversationID != "15551234567" {
		t.Errorf("unexpected events for inbound file: %+v", got)
	}
	if got := report.Files[1].Events; len(got) != 1 || got[0].Status != "read" {
		t.Errorf("unexpected events for status file: %+v", got)
	}
	if len(report.Files[2].Events) != 0 {
		t.Errorf("broken file produced events: %+v", report.Files[2].Events)
	}
	if report.Stats.DocumentsSkipped != 1 || report.Stats.Events != 2 {
		t.Errorf("unexpected stats: %+v", report.Stats)
	}
	// the status references a message outside the batch
	if report.Merge.StatusesPending != 1 {
		t.Errorf("unexpected merge stats: %+v", report.Merge)
	}
}

func TestInspectCommand_Text(t *testing.T) {
	dir := seedPayloads(t)

	out, err := execute(t, "inspect", "--store", "memory://", "--format", "text", dir+"/002_outbound.json")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"002_outbound.json (1 event(s))", "message", "wamid.out1", "outbound", `"Yes, it left today"`, "Statuses pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectCommand_Errors(t *testing.T) {
	if _, err := execute(t, "inspect", "--format", "xml", "a.json"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := execute(t, "inspect", "/nonexistent/a.json"); err == nil {
		t.Error("expected error for missing file")
	}
}
