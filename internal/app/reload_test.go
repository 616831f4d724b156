package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/FocuswithJustin/lexpub/core/lexdb"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

// saveExtended writes the sample plus one more entry over path.
func saveExtended(t *testing.T, path string) {
	t.Helper()
	b := SampleLexicon()
	b.Sense(b.Entry(SampleWritingSystem, "nyumba", 0), "en", "house")
	if err := lexdb.Save(context.Background(), path, b.M); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func entryCount(t *testing.T, a *App) int {
	t.Helper()
	entries, err := a.Entries()
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestReloadRefreshesExistingView(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	a := openApp(t, s)
	view := a.View()
	if n := entryCount(t, a); n != 8 {
		t.Fatalf("entries = %d, want 8", n)
	}

	saveExtended(t, s.Database)
	if err := a.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if n := entryCount(t, a); n != 9 {
		t.Errorf("entries after reload = %d, want 9", n)
	}
	if a.View() != view {
		t.Error("view was rebuilt although fields and publication are unchanged")
	}
}

func TestReloadFailureKeepsPreviousDatabase(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	a := openApp(t, s)

	if err := os.WriteFile(s.Database, []byte("not a database"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := a.Reload(context.Background()); err == nil {
		t.Fatal("Reload of a corrupt file succeeded")
	}
	if n := entryCount(t, a); n != 8 {
		t.Errorf("entries = %d, want 8", n)
	}
}

func TestWatchRerendersOnChange(t *testing.T) {
	s := sampleSettings(t, settings.BackendJSON)
	a := openApp(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reports := make(chan *Report, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, 50*time.Millisecond, func(rep *Report, err error) {
			if err == nil {
				reports <- rep
			}
		})
	}()

	wait := func(entries int) {
		t.Helper()
		deadline := time.After(10 * time.Second)
		for {
			select {
			case rep := <-reports:
				if rep.Entries == entries {
					return
				}
			case <-deadline:
				t.Fatalf("no render with %d entries", entries)
			}
		}
	}
	wait(8)
	saveExtended(t, s.Database)
	wait(9)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	s := sampleSettings(t, settings.BackendXHTML)
	w, err := NewWatcher(s.Database, 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(s.Database+"-journal", []byte("x"), 0644)
	}()
	if err := w.Run(ctx, func(context.Context) error { calls++; return nil }); err != context.DeadlineExceeded {
		t.Errorf("Run returned %v", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times for an unrelated file", calls)
	}
}
