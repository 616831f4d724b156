package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/render"
	"github.com/FocuswithJustin/lexpub/core/render/jsonout"
	"github.com/FocuswithJustin/lexpub/core/render/odt"
	"github.com/FocuswithJustin/lexpub/core/render/xhtml"
	"github.com/FocuswithJustin/lexpub/core/style"
	"github.com/FocuswithJustin/lexpub/internal/export"
	"github.com/FocuswithJustin/lexpub/internal/logging"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

// ErrCancelled is returned by Render when the batch stopped before every
// entry was rendered. Nothing is written in that case.
var ErrCancelled = errors.New("render cancelled")

// Report summarizes one Render call.
type Report struct {
	BatchID   string
	Backend   string
	Entries   int
	Headers   int
	Failed    int
	Cancelled bool
	Duration  time.Duration
	// Outputs lists the files written, in writing order.
	Outputs []string
	// Bundle is the bundle path when one was written.
	Bundle string
}

// Factory returns the backend factory named by the settings.
func Factory(backend string) (render.Factory, error) {
	switch backend {
	case settings.BackendXHTML:
		return xhtml.New, nil
	case settings.BackendJSON:
		return jsonout.New, nil
	case settings.BackendODT:
		return odt.New, nil
	}
	return nil, errors.NewUnsupported("backend "+backend, "want xhtml, json or odt")
}

// Render renders every main entry of the publication and writes the
// output files. Entries that fail are left out of the output and
// reported through the returned *errors.BatchError; the files are still
// written. A cancelled render writes nothing and returns ErrCancelled.
func (a *App) Render(ctx context.Context) (*Report, error) {
	s := a.settings
	factory, err := Factory(s.Backend)
	if err != nil {
		return nil, err
	}
	entries, err := a.Entries()
	if err != nil {
		return nil, err
	}

	rep := &Report{BatchID: uuid.NewString(), Backend: s.Backend}
	ctx = logging.WithBatchID(ctx, rep.BatchID)
	start := time.Now()

	batch := render.NewBatch(entries, a.root, a.view, factory, render.Options{
		Workers:       s.Workers,
		Collation:     a.coll,
		Abbreviations: s.Abbreviations,
		Recorder:      a.recorder,
	})

	trackCtx, stopTracking := context.WithCancel(ctx)
	var tracking sync.WaitGroup
	if a.tracker != nil {
		a.tracker.Start(rep.BatchID, s.Backend, batch)
		tracking.Add(1)
		go func() {
			defer tracking.Done()
			a.tracker.Track(trackCtx, rep.BatchID, s.Backend, batch)
		}()
	}
	a.recorder.SetInFlight(s.Backend, 1)
	res, batchErr := batch.Run(ctx)
	a.recorder.SetInFlight(s.Backend, 0)
	stopTracking()
	tracking.Wait()

	rep.Duration = time.Since(start)
	rep.Entries, rep.Headers, rep.Cancelled = res.Entries, res.Headers, res.Cancelled
	var be *errors.BatchError
	if errors.As(batchErr, &be) {
		rep.Failed = len(be.Failures)
	}

	if res.Cancelled {
		a.finish(rep, batch, ErrCancelled)
		return rep, ErrCancelled
	}
	if err := a.write(ctx, res, rep); err != nil {
		a.finish(rep, batch, err)
		return rep, err
	}
	a.finish(rep, batch, batchErr)
	return rep, batchErr
}

func (a *App) finish(rep *Report, batch *render.Batch, err error) {
	if a.tracker == nil {
		return
	}
	cancelled := err == ErrCancelled
	if cancelled {
		err = nil
	}
	a.tracker.Finish(rep.BatchID, rep.Backend, batch, cancelled, err)
}

// write stores the batch output and, when configured, the bundle.
func (a *App) write(ctx context.Context, res *render.Result, rep *Report) error {
	s := a.settings
	vern := s.WritingSystems.Vernacular

	var writeMain func(io.Writer) error
	switch s.Backend {
	case settings.BackendXHTML:
		css, err := style.Stylesheet(a.root, a.styles, style.StylesheetOptions{WritingSystem: vern})
		if err != nil {
			return err
		}
		writeMain = func(w io.Writer) error {
			return xhtml.WriteDocument(w, res.Fragments, xhtml.DocumentOptions{
				Title:     s.Title,
				Lang:      vern,
				InlineCSS: css,
				Check:     true,
			})
		}
	case settings.BackendJSON:
		writeMain = func(w io.Writer) error { return jsonout.WriteRecords(w, res.Fragments) }
	case settings.BackendODT:
		writeMain = func(w io.Writer) error {
			return odt.WritePackage(w, res.Fragments, odt.PackageOptions{
				Title:         s.Title,
				Root:          a.root,
				Styles:        a.styles,
				WritingSystem: vern,
				Check:         true,
			})
		}
	}

	if err := export.WriteFile(s.Output, writeMain); err != nil {
		return err
	}
	rep.Outputs = append(rep.Outputs, s.Output)

	if s.Backend == settings.BackendJSON {
		css := s.StylesheetPath()
		err := export.WriteFile(css, func(w io.Writer) error {
			return jsonout.WriteStylesheet(w, a.root, a.styles, vern)
		})
		if err != nil {
			return err
		}
		rep.Outputs = append(rep.Outputs, css)
	}

	if s.Bundle {
		m := export.NewManifest(s.Backend, a.pubName)
		m.BatchID = rep.BatchID
		m.Entries = rep.Entries
		if err := export.Bundle(s.BundlePath(), m, rep.Outputs...); err != nil {
			return err
		}
		rep.Bundle = s.BundlePath()
	}
	logging.InfoContext(ctx, "publication written",
		"outputs", rep.Outputs,
		"bundle", rep.Bundle,
		"entries", rep.Entries,
		"headers", rep.Headers,
	)
	return nil
}
