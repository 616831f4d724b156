// Package lexdb stores a lexicon object graph in a SQLite file and serves
// it back as a read-only lexicon.Source.
package lexdb

// SchemaVersion is written to the meta table and checked on Open.
const SchemaVersion = "1"

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE fields (
	id    INTEGER PRIMARY KEY,
	class TEXT NOT NULL,
	name  TEXT NOT NULL,
	kind  TEXT NOT NULL,
	dest  TEXT NOT NULL DEFAULT '',
	media TEXT NOT NULL DEFAULT '',
	UNIQUE (class, name)
);
CREATE TABLE objects (
	id    INTEGER PRIMARY KEY,
	class TEXT NOT NULL,
	owner INTEGER NOT NULL DEFAULT 0,
	seq   INTEGER NOT NULL
);
CREATE INDEX objects_by_class ON objects (class, seq);
CREATE TABLE scalars (
	obj   INTEGER NOT NULL REFERENCES objects (id),
	field INTEGER NOT NULL REFERENCES fields (id),
	ws    TEXT NOT NULL DEFAULT '',
	text  TEXT,
	num   INTEGER,
	PRIMARY KEY (obj, field, ws)
);
CREATE TABLE vectors (
	obj    INTEGER NOT NULL REFERENCES objects (id),
	field  INTEGER NOT NULL REFERENCES fields (id),
	pos    INTEGER NOT NULL,
	target INTEGER NOT NULL,
	PRIMARY KEY (obj, field, pos)
);
`

const (
	selectScalars = `SELECT ws, text, num FROM scalars WHERE obj = ? AND field = ?`
	selectVector  = `SELECT target FROM vectors WHERE obj = ? AND field = ? ORDER BY pos`
	selectFields  = `SELECT id, class, name, kind, dest, media FROM fields ORDER BY id`
	selectObjects = `SELECT id, class, owner FROM objects ORDER BY class, seq`
	selectVersion = `SELECT value FROM meta WHERE key = 'schema_version'`
)
