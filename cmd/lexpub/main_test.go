package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FocuswithJustin/lexpub/internal/app"
	"github.com/FocuswithJustin/lexpub/internal/export"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func resetCLI(t *testing.T) {
	t.Helper()
	CLI.Config, CLI.LogLevel, CLI.LogFormat = "", "", ""
	t.Cleanup(func() { CLI.Config, CLI.LogLevel, CLI.LogFormat = "", "", "" })
}

func TestApplyFlags(t *testing.T) {
	s := settings.Default()
	applyFlags(s, RunFlags{
		Database:    "seh.lexdb",
		Publication: "School",
		Backend:     settings.BackendODT,
		Workers:     -1,
		Bundle:      true,
	})
	s.ApplyDefaults()

	if s.Database != "seh.lexdb" || s.Publication != "School" {
		t.Errorf("database/publication = %q/%q", s.Database, s.Publication)
	}
	if s.Backend != settings.BackendODT || s.Output != "dictionary.odt" {
		t.Errorf("backend/output = %q/%q", s.Backend, s.Output)
	}
	if s.Workers != 0 {
		t.Errorf("Workers = %d, want unchanged 0", s.Workers)
	}
	if !s.Bundle {
		t.Error("Bundle not set")
	}
}

func TestApplyFlagsKeepsExplicitOutput(t *testing.T) {
	s := settings.Default()
	s.Output = "/srv/seh.xhtml"
	applyFlags(s, RunFlags{Backend: settings.BackendJSON, Workers: 2})
	if s.Output != "/srv/seh.xhtml" {
		t.Errorf("Output = %q", s.Output)
	}
	if s.Workers != 2 {
		t.Errorf("Workers = %d", s.Workers)
	}
}

func TestLoadSettingsFromFile(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	CLI.Config = createTestFile(t, dir, "run.yaml", "database: seh.lexdb\nbackend: json\nlog:\n  level: warn\n")

	s, err := loadSettings(RunFlags{Workers: -1, Publication: "Main Dictionary"})
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if s.Database != filepath.Join(dir, "seh.lexdb") {
		t.Errorf("Database = %q", s.Database)
	}
	if s.Backend != settings.BackendJSON || s.Publication != "Main Dictionary" {
		t.Errorf("settings = %+v", s)
	}
}

func TestLoadSettingsRequiresDatabase(t *testing.T) {
	resetCLI(t)
	if _, err := loadSettings(RunFlags{Workers: -1}); err == nil {
		t.Error("expected an error without a database")
	}
}

func TestRenderAndVerifyCommands(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "sample.lexdb")
	if err := (&SampleCmd{Out: db}).Run(); err != nil {
		t.Fatalf("sample: %v", err)
	}

	CLI.Config = createTestFile(t, dir, "run.yaml",
		"database: sample.lexdb\nwritingSystems:\n  vernacular: "+app.SampleWritingSystem+"\n  analysis: en\n")

	out := filepath.Join(dir, "dict.xhtml")
	cmd := &RenderCmd{RunFlags{
		Publication: app.SamplePublication,
		Output:      out,
		Workers:     2,
		Bundle:      true,
	}}
	if err := cmd.Run(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	bundle := filepath.Join(dir, "dict.tar.xz")
	if err := (&VerifyCmd{Path: bundle}).Run(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestCheckCommandReportsProblems(t *testing.T) {
	resetCLI(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "sample.lexdb")
	if err := app.WriteSample(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	tree := createTestFile(t, dir, "tree.yaml", "label: Main Entry\nchildren:\n  - label: Note\n    field: Note\n")

	err := (&CheckCmd{RunFlags{Database: db, Configuration: tree, Workers: -1}}).Run()
	if err == nil || !strings.Contains(err.Error(), "1 configuration problem") {
		t.Errorf("err = %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &app.Report{
		BatchID:  "b-1",
		Entries:  8,
		Headers:  5,
		Duration: 1500 * time.Microsecond,
		Outputs:  []string{"dict.json", "dict.css"},
		Bundle:   "dict.tar.xz",
	})
	out := buf.String()
	for _, want := range []string{"Render done: 8 entries, 5 letter headers, 0 failed in 2ms (batch b-1)", "wrote dict.css", "bundle dict.tar.xz"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPrintCheck(t *testing.T) {
	var buf bytes.Buffer
	printCheck(&buf, &app.CheckReport{
		Entries:  3,
		Problems: []app.Problem{{Path: "Main Entry > Note", Class: "LexEntry", Field: "Note"}},
	})
	out := buf.String()
	if !strings.Contains(out, "(all entries)") || !strings.Contains(out, `Main Entry > Note: field "Note" not found on LexEntry`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVerifyCommandRejectsTampering(t *testing.T) {
	dir := t.TempDir()
	in := createTestFile(t, dir, "dict.json", "[]")
	bundle := filepath.Join(dir, "dict.tar.xz")
	if err := export.Bundle(bundle, export.NewManifest("json", ""), in); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(bundle)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(bundle, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := (&VerifyCmd{Path: bundle}).Run(); err == nil {
		t.Error("tampered bundle verified")
	}
}
