package app

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/FocuswithJustin/lexpub/core/lexdb"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/publication"
	"github.com/FocuswithJustin/lexpub/internal/logging"
)

// source reads through whichever database is current, so a reload can
// replace the database under an existing view.
type source struct {
	cur atomic.Pointer[lexdb.DB]
}

func newSource(db *lexdb.DB) *source {
	s := &source{}
	s.cur.Store(db)
	return s
}

func (s *source) db() *lexdb.DB { return s.cur.Load() }

func (s *source) ClassOf(h lexicon.Handle) (lexicon.ClassID, error) { return s.db().ClassOf(h) }
func (s *source) Owner(h lexicon.Handle) (lexicon.Handle, error)    { return s.db().Owner(h) }
func (s *source) FieldID(class lexicon.ClassID, name string) (lexicon.FieldID, error) {
	return s.db().FieldID(class, name)
}
func (s *source) Field(id lexicon.FieldID) (lexicon.FieldInfo, error) { return s.db().Field(id) }
func (s *source) Fields() []lexicon.FieldInfo                        { return s.db().Fields() }
func (s *source) Scalar(h lexicon.Handle, f lexicon.FieldID) (lexicon.Value, error) {
	return s.db().Scalar(h, f)
}
func (s *source) Vector(h lexicon.Handle, f lexicon.FieldID) ([]lexicon.Handle, error) {
	return s.db().Vector(h, f)
}
func (s *source) Instances(class lexicon.ClassID) ([]lexicon.Handle, error) {
	return s.db().Instances(class)
}

// Reload reopens the database file and refreshes the view against it.
// When the field table and the publication are unchanged the existing
// view is kept and only refreshed; otherwise the view is rebuilt. On
// failure the previous database stays in use.
func (a *App) Reload(ctx context.Context) error {
	next, err := lexdb.Open(ctx, a.settings.Database, lexdb.WithValueCache(a.settings.CacheSize))
	if err != nil {
		return err
	}
	prev := a.src.db()

	pub, err := findPublication(next, a.settings.Publication)
	if err != nil {
		next.Close()
		return err
	}
	if pub != a.view.Publication() || !reflect.DeepEqual(prev.Fields(), next.Fields()) {
		src := newSource(next)
		view, err := a.newView(src)
		if err != nil {
			next.Close()
			return err
		}
		a.src, a.view = src, view
		logging.Info("publication rebuilt", "database", a.settings.Database)
		return prev.Close()
	}

	a.src.cur.Store(next)
	if err := a.Refresh(); err != nil {
		a.src.cur.Store(prev)
		next.Close()
		return err
	}
	return prev.Close()
}

// newView builds the publication view over src.
func (a *App) newView(src *source) (*publication.View, error) {
	var s lexicon.Source = src
	if a.settings.SerializeReads {
		s = lexicon.Serialized(s)
	}
	pub, err := findPublication(s, a.settings.Publication)
	if err != nil {
		return nil, err
	}
	return publication.New(s, pub, publication.WithWritingSystem(a.settings.WritingSystems.Vernacular))
}
