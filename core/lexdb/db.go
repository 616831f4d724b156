package lexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/FocuswithJustin/lexpub/core/cache"
	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/sqlite"
)

type object struct {
	class lexicon.ClassID
	owner lexicon.Handle
}

type valueKey struct {
	h lexicon.Handle
	f lexicon.FieldID
}

// DB is a lexicon.Source over a SQLite file opened read-only. Classes,
// owners and fields are loaded on Open; scalar values are read on demand
// and cached. It is safe for concurrent use.
type DB struct {
	db   *sql.DB
	path string

	fields     []lexicon.FieldInfo
	fieldIndex map[lexicon.ClassID]map[string]lexicon.FieldID
	objects    map[lexicon.Handle]object
	order      map[lexicon.ClassID][]lexicon.Handle

	scalars *sql.Stmt
	vectors *sql.Stmt
	values  *cache.LRU[valueKey, lexicon.Value]
}

// Option configures Open.
type Option func(*DB)

// WithValueCache sets how many scalar values are kept in memory.
func WithValueCache(size int) Option {
	return func(d *DB) { d.values = cache.New[valueKey, lexicon.Value](size) }
}

// Open opens the lexicon database at path read-only.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("lexicon database", path)
		}
		return nil, errors.NewIO("stat", path, err)
	}
	sqldb, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	d := &DB{
		db:         sqldb,
		path:       path,
		fieldIndex: make(map[lexicon.ClassID]map[string]lexicon.FieldID),
		objects:    make(map[lexicon.Handle]object),
		order:      make(map[lexicon.ClassID][]lexicon.Handle),
		values:     cache.New[valueKey, lexicon.Value](65536),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.load(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) load(ctx context.Context) error {
	var version string
	if err := d.db.QueryRowContext(ctx, selectVersion).Scan(&version); err != nil {
		return errors.NewParse("lexdb", d.path, fmt.Sprintf("no schema version: %v", err))
	}
	if version != SchemaVersion {
		return errors.NewUnsupported("lexdb schema "+version, "this build reads schema "+SchemaVersion)
	}
	if err := d.loadFields(ctx); err != nil {
		return err
	}
	if err := d.loadObjects(ctx); err != nil {
		return err
	}

	var err error
	if d.scalars, err = d.db.PrepareContext(ctx, selectScalars); err != nil {
		return errors.NewIO("prepare", d.path, err)
	}
	if d.vectors, err = d.db.PrepareContext(ctx, selectVector); err != nil {
		return errors.NewIO("prepare", d.path, err)
	}
	return nil
}

func (d *DB) loadFields(ctx context.Context) error {
	rows, err := d.db.QueryContext(ctx, selectFields)
	if err != nil {
		return errors.NewIO("read fields", d.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			info              lexicon.FieldInfo
			class, kind, dest string
			media             string
		)
		if err := rows.Scan(&info.ID, &class, &info.Name, &kind, &dest, &media); err != nil {
			return errors.NewIO("read fields", d.path, err)
		}
		k, ok := lexicon.ParseFieldKind(kind)
		if !ok {
			return errors.NewParse("lexdb", d.path, fmt.Sprintf("field %s.%s has unknown kind %q", class, info.Name, kind))
		}
		info.Class, info.Kind, info.Dest, info.Media = lexicon.ClassID(class), k, lexicon.ClassID(dest), lexicon.MediaType(media)
		if int(info.ID) != len(d.fields)+1 {
			return errors.NewParse("lexdb", d.path, fmt.Sprintf("field ids are not dense at %d", info.ID))
		}
		d.fields = append(d.fields, info)
		byName, ok := d.fieldIndex[info.Class]
		if !ok {
			byName = make(map[string]lexicon.FieldID)
			d.fieldIndex[info.Class] = byName
		}
		byName[info.Name] = info.ID
	}
	if err := rows.Err(); err != nil {
		return errors.NewIO("read fields", d.path, err)
	}
	return nil
}

func (d *DB) loadObjects(ctx context.Context) error {
	rows, err := d.db.QueryContext(ctx, selectObjects)
	if err != nil {
		return errors.NewIO("read objects", d.path, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, owner int64
			class     string
		)
		if err := rows.Scan(&id, &class, &owner); err != nil {
			return errors.NewIO("read objects", d.path, err)
		}
		h := lexicon.Handle(id)
		d.objects[h] = object{class: lexicon.ClassID(class), owner: lexicon.Handle(owner)}
		d.order[lexicon.ClassID(class)] = append(d.order[lexicon.ClassID(class)], h)
	}
	if err := rows.Err(); err != nil {
		return errors.NewIO("read objects", d.path, err)
	}
	return nil
}

// Close releases the database.
func (d *DB) Close() error {
	if d.scalars != nil {
		d.scalars.Close()
	}
	if d.vectors != nil {
		d.vectors.Close()
	}
	return d.db.Close()
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

// CacheStats reports the scalar value cache.
func (d *DB) CacheStats() cache.Stats { return d.values.Stats() }

// ClassOf implements lexicon.Source.
func (d *DB) ClassOf(h lexicon.Handle) (lexicon.ClassID, error) {
	o, ok := d.objects[h]
	if !ok {
		return "", errors.NewNotFound("object", h.String())
	}
	return o.class, nil
}

// Owner implements lexicon.Source.
func (d *DB) Owner(h lexicon.Handle) (lexicon.Handle, error) {
	o, ok := d.objects[h]
	if !ok {
		return lexicon.NoHandle, errors.NewNotFound("object", h.String())
	}
	return o.owner, nil
}

// FieldID implements lexicon.Source.
func (d *DB) FieldID(class lexicon.ClassID, name string) (lexicon.FieldID, error) {
	if id, ok := d.fieldIndex[class][name]; ok {
		return id, nil
	}
	return 0, errors.NewNotFound("field", fmt.Sprintf("%s.%s", class, name))
}

// Field implements lexicon.Source.
func (d *DB) Field(id lexicon.FieldID) (lexicon.FieldInfo, error) {
	if id < 1 || int(id) > len(d.fields) {
		return lexicon.FieldInfo{}, errors.NewNotFound("field", fmt.Sprintf("#%d", id))
	}
	return d.fields[id-1], nil
}

// Fields implements lexicon.Source.
func (d *DB) Fields() []lexicon.FieldInfo {
	out := make([]lexicon.FieldInfo, len(d.fields))
	copy(out, d.fields)
	return out
}

// Instances implements lexicon.Source.
func (d *DB) Instances(class lexicon.ClassID) ([]lexicon.Handle, error) {
	out := make([]lexicon.Handle, len(d.order[class]))
	copy(out, d.order[class])
	return out, nil
}

// Classes lists the classes that have at least one object, sorted.
func (d *DB) Classes() []lexicon.ClassID {
	out := make([]lexicon.ClassID, 0, len(d.order))
	for c := range d.order {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Scalar implements lexicon.Source. Unset fields return the zero value of
// their kind.
func (d *DB) Scalar(h lexicon.Handle, f lexicon.FieldID) (lexicon.Value, error) {
	info, err := d.Field(f)
	if err != nil {
		return lexicon.Value{}, err
	}
	if _, ok := d.objects[h]; !ok {
		return lexicon.Value{}, errors.NewNotFound("object", h.String())
	}
	if info.Kind == lexicon.KindVector {
		return lexicon.Value{Kind: info.Kind}, nil
	}
	key := valueKey{h, f}
	if v, ok := d.values.Get(key); ok {
		return copyValue(v), nil
	}
	v, err := d.readScalar(h, info)
	if err != nil {
		return lexicon.Value{}, err
	}
	d.values.Put(key, v)
	return copyValue(v), nil
}

func (d *DB) readScalar(h lexicon.Handle, info lexicon.FieldInfo) (lexicon.Value, error) {
	rows, err := d.scalars.Query(int64(h), int(info.ID))
	if err != nil {
		return lexicon.Value{}, errors.NewIO("read", d.path, err)
	}
	defer rows.Close()

	v := lexicon.Value{Kind: info.Kind}
	for rows.Next() {
		var (
			ws   string
			text sql.NullString
			num  sql.NullInt64
		)
		if err := rows.Scan(&ws, &text, &num); err != nil {
			return lexicon.Value{}, errors.NewIO("read", d.path, err)
		}
		switch info.Kind {
		case lexicon.KindString, lexicon.KindMedia:
			v.Str = text.String
		case lexicon.KindMultiString:
			if v.Multi == nil {
				v.Multi = make(map[string]string)
			}
			v.Multi[ws] = text.String
		case lexicon.KindInt:
			v.Int = int(num.Int64)
		case lexicon.KindBool:
			v.Bool = num.Int64 != 0
		case lexicon.KindObject:
			v.Obj = lexicon.Handle(num.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return lexicon.Value{}, errors.NewIO("read", d.path, err)
	}
	return v, nil
}

func copyValue(v lexicon.Value) lexicon.Value {
	if v.Multi != nil {
		multi := make(map[string]string, len(v.Multi))
		for ws, s := range v.Multi {
			multi[ws] = s
		}
		v.Multi = multi
	}
	return v
}

// Vector implements lexicon.Source.
func (d *DB) Vector(h lexicon.Handle, f lexicon.FieldID) ([]lexicon.Handle, error) {
	if _, err := d.Field(f); err != nil {
		return nil, err
	}
	if _, ok := d.objects[h]; !ok {
		return nil, errors.NewNotFound("object", h.String())
	}
	rows, err := d.vectors.Query(int64(h), int(f))
	if err != nil {
		return nil, errors.NewIO("read", d.path, err)
	}
	defer rows.Close()
	out := []lexicon.Handle{}
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, errors.NewIO("read", d.path, err)
		}
		out = append(out, lexicon.Handle(target))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("read", d.path, err)
	}
	return out, nil
}

var _ lexicon.Source = (*DB)(nil)
