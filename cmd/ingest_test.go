package cmd

import (
	"testing"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/testutil"
)

func TestIngestCommand(t *testing.T) {
	dir := seedPayloads(t)
	dsn := newTestDSN(t)

	if _, err := execute(t, "ingest", "--dir", dir, "--store", dsn); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	convs := loadConversations(t, dsn)
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	ravi := convs[0]
	if ravi.WaID != "15551234567" {
		t.Fatalf("expected first conversation 15551234567, got %s", ravi.WaID)
	}
	if len(ravi.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(ravi.Messages))
	}
	out := ravi.Messages[1]
	if !out.FromMe || out.Status != internal.StatusRead {
		t.Errorf("outbound message = %+v, want fromMe with status read", out)
	}
	if ravi.LastMessage != "Yes, it left today" {
		t.Errorf("LastMessage = %q", ravi.LastMessage)
	}

	// a second run changes nothing
	before := internal.Fingerprint(ravi)
	if _, err := execute(t, "ingest", "--dir", dir, "--store", dsn); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	again := loadConversations(t, dsn)
	if len(again) != 2 {
		t.Fatalf("expected 2 conversations after re-ingest, got %d", len(again))
	}
	if internal.Fingerprint(again[0]) != before {
		t.Error("re-ingesting the same payloads changed the stored conversation")
	}
}

func TestIngestCommand_Files(t *testing.T) {
	dir := seedPayloads(t)
	dsn := newTestDSN(t)

	if _, err := execute(t, "ingest", "--store", dsn, dir+"/004_other.json"); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	convs := loadConversations(t, dsn)
	if len(convs) != 1 || convs[0].Name != "Neha Joshi" {
		t.Fatalf("unexpected conversations: %+v", convs)
	}
}

func TestIngestCommand_DryRun(t *testing.T) {
	dir := seedPayloads(t)
	dsn := newTestDSN(t)

	if _, err := execute(t, "ingest", "--dir", dir, "--store", dsn, "--dry-run"); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if convs := loadConversations(t, dsn); len(convs) != 0 {
		t.Errorf("dry run wrote %d conversation(s)", len(convs))
	}
}

func TestIngestCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "missing directory",
			args: []string{"ingest", "--store", "memory://", "--dir", "/nonexistent/payloads"},
		},
		{
			name: "missing file",
			args: []string{"ingest", "--store", "memory://", "/nonexistent/a.json"},
		},
		{
			name: "watch with files",
			args: []string{"ingest", "--store", "memory://", "--watch", "a.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadPayloadArgs(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	a := testutil.WritePayloadFile(t, dir, "b.json", []byte(`{}`))
	b := testutil.WritePayloadFile(t, dir, "a.json", []byte(`[]`))

	docs, err := readPayloadArgs([]string{a, b})
	if err != nil {
		t.Fatalf("readPayloadArgs: %v", err)
	}
	// argument order is kept
	if len(docs) != 2 || docs[0].Name != "b.json" || docs[1].Name != "a.json" {
		t.Errorf("unexpected docs: %+v", docs)
	}
}
