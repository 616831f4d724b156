package lexdb

import (
	"context"
	"database/sql"
	"os"

	"github.com/FocuswithJustin/lexpub/core/errors"
	"github.com/FocuswithJustin/lexpub/core/lexicon"
	"github.com/FocuswithJustin/lexpub/core/sqlite"
)

// Graph is a Source that can list its classes, such as *lexicon.Memory
// or *DB.
type Graph interface {
	lexicon.Source
	Classes() []lexicon.ClassID
}

// Save writes every object of src to a new database at path, replacing
// any existing file. Handles and field ids are preserved.
func Save(ctx context.Context, path string, src Graph) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove", path, err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.NewIO("create schema", path, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("begin", path, err)
	}
	if err := write(ctx, tx, src); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "saving %s", path)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIO("commit", path, err)
	}
	return nil
}

func write(ctx context.Context, tx *sql.Tx, src Graph) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, SchemaVersion); err != nil {
		return err
	}

	byClass := make(map[lexicon.ClassID][]lexicon.FieldInfo)
	for _, f := range src.Fields() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fields (id, class, name, kind, dest, media) VALUES (?, ?, ?, ?, ?, ?)`,
			int(f.ID), string(f.Class), f.Name, f.Kind.String(), string(f.Dest), string(f.Media)); err != nil {
			return err
		}
		byClass[f.Class] = append(byClass[f.Class], f)
	}

	insertObject, err := tx.PrepareContext(ctx, `INSERT INTO objects (id, class, owner, seq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertObject.Close()
	insertScalar, err := tx.PrepareContext(ctx, `INSERT INTO scalars (obj, field, ws, text, num) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertScalar.Close()
	insertVector, err := tx.PrepareContext(ctx, `INSERT INTO vectors (obj, field, pos, target) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertVector.Close()

	for _, class := range src.Classes() {
		handles, err := src.Instances(class)
		if err != nil {
			return err
		}
		for seq, h := range handles {
			if err := ctx.Err(); err != nil {
				return err
			}
			owner, err := src.Owner(h)
			if err != nil {
				return err
			}
			if _, err := insertObject.ExecContext(ctx, int64(h), string(class), int64(owner), seq); err != nil {
				return err
			}
			for _, f := range byClass[class] {
				if err := writeField(ctx, insertScalar, insertVector, src, h, f); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func writeField(ctx context.Context, scalar, vector *sql.Stmt, src lexicon.Source, h lexicon.Handle, f lexicon.FieldInfo) error {
	if f.Kind == lexicon.KindVector {
		targets, err := src.Vector(h, f.ID)
		if err != nil {
			return err
		}
		for pos, t := range targets {
			if _, err := vector.ExecContext(ctx, int64(h), int(f.ID), pos, int64(t)); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := src.Scalar(h, f.ID)
	if err != nil {
		return err
	}
	put := func(ws string, text any, num any) error {
		_, err := scalar.ExecContext(ctx, int64(h), int(f.ID), ws, text, num)
		return err
	}
	switch f.Kind {
	case lexicon.KindString, lexicon.KindMedia:
		if v.Str != "" {
			return put("", v.Str, nil)
		}
	case lexicon.KindMultiString:
		for ws, text := range v.Multi {
			if text != "" {
				if err := put(ws, text, nil); err != nil {
					return err
				}
			}
		}
	case lexicon.KindInt:
		if v.Int != 0 {
			return put("", nil, v.Int)
		}
	case lexicon.KindBool:
		if v.Bool {
			return put("", nil, 1)
		}
	case lexicon.KindObject:
		if v.Obj != lexicon.NoHandle {
			return put("", nil, int64(v.Obj))
		}
	}
	return nil
}
