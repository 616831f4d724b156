// Package app wires a publishing run together: it opens the lexical
// database, builds the publication view, and renders and exports batches
// as the run settings describe.
package app

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/FocuswithJustin/lexpub/core/collation"
	"github.com/FocuswithJustin/lexpub/core/config"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexdb"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/publication"
	"github.com/FocuswithJustin/lexpub/core/style"
	"github.com/FocuswithJustin/lexpub/internal/logging"
	"github.com/FocuswithJustin/lexpub/internal/metrics"
	"github.com/FocuswithJustin/lexpub/internal/progress"
	"github.com/FocuswithJustin/lexpub/internal/settings"
)

// App holds everything a run needs between renders. It is not safe for
// concurrent use: Render and Refresh must not overlap.
type App struct {
	settings *settings.Settings
	src      *source
	view     *publication.View
	root     *config.Node
	styles   style.Resolver
	coll     *collation.Collation
	pubName  string

	recorder metrics.Recorder
	tracker  *progress.Tracker
}

// Option configures an App.
type Option func(*App)

// WithRecorder reports batch metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// WithTracker broadcasts batch progress through t.
func WithTracker(t *progress.Tracker) Option {
	return func(a *App) { a.tracker = t }
}

// Open loads the run described by s.
func Open(ctx context.Context, s *settings.Settings, opts ...Option) (*App, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	a := &App{settings: s, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.root, err = loadTree(s); err != nil {
		return nil, err
	}
	if a.styles, err = loadStyles(s); err != nil {
		return nil, err
	}
	if a.coll, err = loadCollation(s); err != nil {
		return nil, err
	}

	db, err := lexdb.Open(ctx, s.Database, lexdb.WithValueCache(s.CacheSize))
	if err != nil {
		return nil, err
	}
	a.src = newSource(db)
	a.pubName = s.Publication
	if a.view, err = a.newView(a.src); err != nil {
		db.Close()
		return nil, err
	}
	logging.Info("publication opened",
		"database", s.Database,
		"publication", s.Publication,
		"excluded", len(a.view.Excluded()),
		"excluded_as_headword", len(a.view.ExcludedAsHeadword()),
	)
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.src == nil {
		return nil
	}
	return a.src.db().Close()
}

// Settings returns the run settings.
func (a *App) Settings() *settings.Settings { return a.settings }

// View returns the publication view.
func (a *App) View() *publication.View { return a.view }

// Root returns the configuration tree.
func (a *App) Root() *config.Node { return a.root }

// Refresh recomputes the view after the database changed.
func (a *App) Refresh() error {
	if err := a.view.Refresh(); err != nil {
		return err
	}
	logging.Info("publication refreshed",
		"excluded", len(a.view.Excluded()),
		"excluded_as_headword", len(a.view.ExcludedAsHeadword()),
	)
	return nil
}

func loadTree(s *settings.Settings) (*config.Node, error) {
	if s.Configuration == "" {
		return config.Default(s.WritingSystems.Vernacular, s.WritingSystems.Analysis), nil
	}
	return config.LoadFile(s.Configuration)
}

func loadStyles(s *settings.Settings) (style.Resolver, error) {
	if s.Styles == "" {
		return style.Default(), nil
	}
	return style.LoadSheetFile(s.Styles)
}

func loadCollation(s *settings.Settings) (*collation.Collation, error) {
	if s.Collation.Disabled {
		return nil, nil
	}
	text := s.Collation.Rules
	if s.Collation.RulesFile != "" {
		data, err := os.ReadFile(s.Collation.RulesFile)
		if err != nil {
			return nil, errors.NewIO("read", s.Collation.RulesFile, err)
		}
		text = string(data)
	}
	var rules *collation.Rules
	if strings.TrimSpace(text) != "" {
		var err error
		if rules, err = collation.Parse(text); err != nil {
			return nil, errors.Wrap(err, "collation rules")
		}
	}
	return collation.New(s.WritingSystems.Vernacular, rules), nil
}

// findPublication resolves a publication by any alternative of its name,
// ignoring case. An empty name selects no publication.
func findPublication(src lexicon.Source, name string) (lexicon.Handle, error) {
	if name == "" {
		return lexicon.NoHandle, nil
	}
	pubs, err := src.Instances(lexicon.ClassPublication)
	if err != nil {
		return lexicon.NoHandle, err
	}
	nameField, err := src.FieldID(lexicon.ClassPublication, lexicon.FieldName)
	if err != nil {
		return lexicon.NoHandle, err
	}
	for _, p := range pubs {
		val, err := src.Scalar(p, nameField)
		if err != nil {
			return lexicon.NoHandle, err
		}
		if strings.EqualFold(val.Str, name) {
			return p, nil
		}
		for _, alt := range val.Multi {
			if strings.EqualFold(alt, name) {
				return p, nil
			}
		}
	}
	return lexicon.NoHandle, errors.NewNotFound("publication", name)
}

// Entries returns the main entries of the publication in collation
// order. Homographs keep their publication numbering; remaining ties are
// broken by handle so the order is stable across runs.
func (a *App) Entries() ([]lexicon.Handle, error) {
	roots, err := a.view.Instances(lexicon.ClassLexDb)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, errors.NewNotFound("object", string(lexicon.ClassLexDb))
	}
	entriesField, err := a.view.FieldID(lexicon.ClassLexDb, lexicon.FieldEntries)
	if err != nil {
		return nil, err
	}
	entries, err := a.view.Vector(roots[0], entriesField)
	if err != nil {
		return nil, err
	}

	coll := a.coll
	if coll == nil {
		coll = collation.New(a.settings.WritingSystems.Vernacular, nil)
	}
	type keyed struct {
		h   lexicon.Handle
		key []byte
		hn  int
	}
	ks := make([]keyed, len(entries))
	for i, h := range entries {
		hw, err := a.view.HeadwordText(h, coll.WritingSystem())
		if err != nil {
			return nil, err
		}
		ks[i] = keyed{h: h, key: coll.SortKey(hw), hn: a.view.HomographNumber(h)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if c := bytes.Compare(ks[i].key, ks[j].key); c != 0 {
			return c < 0
		}
		if ks[i].hn != ks[j].hn {
			return ks[i].hn < ks[j].hn
		}
		return ks[i].h < ks[j].h
	})
	out := make([]lexicon.Handle, len(ks))
	for i, k := range ks {
		out[i] = k.h
	}
	return out, nil
}
