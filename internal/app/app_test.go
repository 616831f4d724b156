package app

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/xml"
	"github.com/FocuswithJustin/lexpub/internal/export"
	"github.com/FocuswithJustin/lexpub/internal/metrics"
	"github.com/FocuswithJustin/lexpub/internal/progress"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

func sampleSettings(t *testing.T, backend string) *settings.Settings {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "sample.lexdb")
	if err := WriteSample(context.Background(), db); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	s := &settings.Settings{
		Database:       db,
		Publication:    SamplePublication,
		Backend:        backend,
		Output:         filepath.Join(dir, "out", "dict"+settings.Extension(backend)),
		Workers:        3,
		WritingSystems: settings.WritingSystems{Vernacular: SampleWritingSystem, Analysis: "en"},
	}
	s.ApplyDefaults()
	return s
}

func openApp(t *testing.T, s *settings.Settings, opts ...Option) *App {
	t.Helper()
	a, err := Open(context.Background(), s, opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEntriesFollowCollation(t *testing.T) {
	a := openApp(t, sampleSettings(t, settings.BackendXHTML))
	entries, err := a.Entries()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, h := range entries {
		hw, err := a.View().HeadwordText(h, SampleWritingSystem)
		if err != nil {
			t.Fatal(err)
		}
		if hw != "-ba" {
			got = append(got, hw)
		}
	}
	want := []string{"ba1", "ba2", "baba", "chala", "dzina", "kupasa", "mbuzi"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("headwords = %v, want %v", got, want)
	}
	if len(entries) != 8 {
		t.Errorf("len(entries) = %d, want 8", len(entries))
	}
}

func TestRenderXHTMLWithBundle(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	s.Bundle = true
	a := openApp(t, s)

	rep, err := a.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if rep.Entries != 8 || rep.Headers != 5 || rep.Failed != 0 {
		t.Errorf("report = %+v", rep)
	}

	data, err := os.ReadFile(s.Output)
	if err != nil {
		t.Fatal(err)
	}
	if err := xml.WellFormed(data); err != nil {
		t.Fatalf("output not well formed: %v", err)
	}
	out := string(data)
	if n := strings.Count(out, `<div class="entry"`); n != 8 {
		t.Errorf("entry divs = %d, want 8", n)
	}
	for _, hidden := range []string{"old man", "to steal", "mbudzi"} {
		if strings.Contains(out, hidden) {
			t.Errorf("output contains excluded %q", hidden)
		}
	}
	for _, shown := range []string{"paternal uncle", "grandfather", `class="letHead"`} {
		if !strings.Contains(out, shown) {
			t.Errorf("output lacks %q", shown)
		}
	}

	m, err := export.Verify(rep.Bundle)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if m.BatchID != rep.BatchID || m.Entries != 8 || m.Publication != SamplePublication {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Files) != 1 || m.Files[0].Name != "dict.xhtml" {
		t.Errorf("manifest files = %+v", m.Files)
	}
}

func TestRenderJSONWritesStylesheet(t *testing.T) {
	s := sampleSettings(t, settings.BackendJSON)
	a := openApp(t, s)

	rep, err := a.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(rep.Outputs) != 2 || rep.Outputs[1] != s.StylesheetPath() {
		t.Fatalf("outputs = %v", rep.Outputs)
	}

	data, err := os.ReadFile(s.Output)
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(records) != 8 {
		t.Errorf("records = %d, want 8", len(records))
	}
	css, err := os.ReadFile(s.StylesheetPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(css), ".entry") {
		t.Errorf("stylesheet lacks entry rules:\n%s", css)
	}
}

func TestRenderODT(t *testing.T) {
	s := sampleSettings(t, settings.BackendODT)
	reg := prom.NewRegistry()
	a := openApp(t, s, WithRecorder(metrics.NewPrometheusRecorder(reg)))

	if _, err := a.Render(context.Background()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	zr, err := zip.OpenReader(s.Output)
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	defer zr.Close()
	if zr.File[0].Name != "mimetype" {
		t.Errorf("first member = %q", zr.File[0].Name)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "lexpub_entries_total" {
			found = true
		}
	}
	if !found {
		t.Error("entries counter not registered")
	}
}

func TestRenderWithTracker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := progress.NewHub(nil)
	go hub.Run(ctx)

	ts := httptest.NewServer(hub)
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	for deadline := time.Now().Add(2 * time.Second); hub.Clients() != 1; time.Sleep(5 * time.Millisecond) {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
	}

	s := sampleSettings(t, settings.BackendXHTML)
	a := openApp(t, s, WithTracker(progress.NewTracker(hub, 5*time.Millisecond)))
	rep, err := a.Render(ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var types []string
	for len(types) == 0 || types[len(types)-1] != "complete" {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed after %v: %v", types, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			var msg progress.Message
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				t.Fatalf("bad message %s: %v", line, err)
			}
			if msg.Batch != rep.BatchID {
				t.Errorf("message for batch %q, want %q", msg.Batch, rep.BatchID)
			}
			types = append(types, msg.Type)
		}
	}
	if len(types) < 2 || types[0] != "started" {
		t.Fatalf("messages = %v, want started first", types)
	}
	for _, typ := range types[1 : len(types)-1] {
		if typ != "progress" {
			t.Errorf("messages = %v, want only progress between started and complete", types)
		}
	}
}

func TestRenderCancelledWritesNothing(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	a := openApp(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := a.Render(ctx)
	if err != ErrCancelled {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !rep.Cancelled {
		t.Error("report not marked cancelled")
	}
	if _, err := os.Stat(s.Output); !os.IsNotExist(err) {
		t.Errorf("output written after cancellation: %v", err)
	}
}

func TestNoPublicationRendersEverything(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	s.Publication = ""
	a := openApp(t, s)
	entries, err := a.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Errorf("len(entries) = %d, want 10", len(entries))
	}
}

func TestOpenErrors(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	s.Publication = "Nonexistent"
	if _, err := Open(context.Background(), s); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown publication: err = %v, want not found", err)
	}

	s = sampleSettings(t, settings.BackendXHTML)
	s.Database = ""
	if _, err := Open(context.Background(), s); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("no database: err = %v, want invalid input", err)
	}

	s = sampleSettings(t, settings.BackendXHTML)
	s.Collation.Rules = "& < <"
	if _, err := Open(context.Background(), s); err == nil {
		t.Error("bad collation rules accepted")
	}
}

func TestFactory(t *testing.T) {
	for _, name := range []string{settings.BackendXHTML, settings.BackendJSON, settings.BackendODT} {
		f, err := Factory(name)
		if err != nil {
			t.Fatalf("Factory(%q): %v", name, err)
		}
		if got := f().Name(); got != name {
			t.Errorf("Factory(%q)().Name() = %q", name, got)
		}
	}
	if _, err := Factory("rtf"); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("err = %v, want unsupported", err)
	}
}

func TestCheck(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	a := openApp(t, s)

	rep, err := a.Check()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Entries != 8 || rep.Excluded != 3 || rep.ExcludedAsHeadword != 1 {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Problems) != 0 {
		t.Errorf("stock tree has problems: %+v", rep.Problems)
	}
}

func TestCheckReportsUnknownFields(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	s.Configuration = filepath.Join(t.TempDir(), "tree.yaml")
	tree := `label: Main Entry
field: LexEntry
children:
  - label: Headword
    field: MLHeadWord
  - label: Etymology Note
    field: EtymologyNote
  - label: Senses
    field: Senses
    children:
      - label: Gloss
        field: Gloss
      - label: Register
        field: Register
  - label: Relations
    field: LexEntryReferences
    children:
      - label: Targets
        field: Targets
        children:
          - label: Gloss
            field: Gloss
`
	if err := os.WriteFile(s.Configuration, []byte(tree), 0644); err != nil {
		t.Fatal(err)
	}
	a := openApp(t, s)

	rep, err := a.Check()
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, p := range rep.Problems {
		paths = append(paths, p.Path)
	}
	want := []string{"Main Entry > Etymology Note", "Main Entry > Senses > Register"}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("problem paths = %v, want %v", paths, want)
	}
	if rep.Problems[1].Class != "LexSense" {
		t.Errorf("class = %q", rep.Problems[1].Class)
	}
}
