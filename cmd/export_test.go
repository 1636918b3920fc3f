package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/internal/export"
	"github.com/iksnae/wa-history/testutil"
)

func TestExportCommand(t *testing.T) {
	dsn := seededDSN(t)

	tests := []struct {
		name      string
		args      []string
		wantFiles []string
		wantErr   bool
	}{
		{
			name:    "export with invalid format",
			args:    []string{"export", "--format", "invalid", "--store", dsn},
			wantErr: true,
		},
		{
			name:    "export unknown conversation",
			args:    []string{"export", "--wa-id", "000", "--store", dsn},
			wantErr: true,
		},
		{
			name:      "export all as jsonl",
			args:      []string{"export", "--store", dsn},
			wantFiles: []string{"conversation_15551234567.jsonl", "conversation_919937320320.jsonl"},
		},
		{
			name:      "export one as markdown",
			args:      []string{"export", "--format", "md", "--wa-id", "919937320320", "--store", dsn},
			wantFiles: []string{"conversation_919937320320.md"},
		},
		{
			name:      "export html",
			args:      []string{"export", "--format", "html", "--wa-id", "15551234567", "--store", dsn},
			wantFiles: []string{"conversation_15551234567.html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := filepath.Join(testutil.CreateTempDir(t), "exports")
			_, err := execute(t, append(tt.args, "--out", outDir)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("exportCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			entries, err := os.ReadDir(outDir)
			if err != nil {
				t.Fatalf("read output dir: %v", err)
			}
			if len(entries) != len(tt.wantFiles) {
				t.Fatalf("expected %d file(s), got %d", len(tt.wantFiles), len(entries))
			}
			for _, name := range tt.wantFiles {
				data, err := os.ReadFile(filepath.Join(outDir, name))
				if err != nil {
					t.Errorf("missing export %s: %v", name, err)
					continue
				}
				if len(data) == 0 {
					t.Errorf("export %s is empty", name)
				}
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	conv := internal.CreateTestConversation("a/b\\c", "x")
	if got := exportFileName(conv, "json"); got != "conversation_a_b_c.json" {
		t.Errorf("exportFileName() = %q", got)
	}
}

func TestExportConversation_CreateFails(t *testing.T) {
	exporter, err := export.NewExporter("json")
	if err != nil {
		t.Fatal(err)
	}
	conv := internal.CreateTestConversation("1", "A")

	err = exportConversation(exporter, "json", conv, "/nonexistent/dir")
	var exportErr *internal.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if !strings.HasSuffix(exportErr.Path, "conversation_1.json") {
		t.Errorf("unexpected path %s", exportErr.Path)
	}
}
