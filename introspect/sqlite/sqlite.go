// Package sqlite reads a SQLite file's schema via PRAGMA statements, using
// modernc.org/sqlite the way the teacher's cmd/sqlite3def build tag chooses
// it over mattn/go-sqlite3 to stay CGo-free (spec.md §3.1). It also queries
// sqlite_version() to pick the right dialect.Capability: below
// dialect.SQLiteRescueVersion, COUNT(DISTINCT ROWID) is available as a
// surrogate for composite-PK distinct counts; at or above it, the nested
// DISTINCT-subselect rewrite is used instead (spec.md §4.2).
package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/introspect"
	"github.com/ponyql/queryc/schema"
)

type Reader struct {
	db *sql.DB
}

func NewReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) ReadSchema(ctx context.Context) ([]*schema.Entity, dialect.Capability, error) {
	version, err := r.version(ctx)
	if err != nil {
		return nil, dialect.Capability{}, err
	}

	tables, err := r.tableNames(ctx)
	if err != nil {
		return nil, dialect.Capability{}, err
	}

	entities := make([]*schema.Entity, 0, len(tables))
	for _, table := range tables {
		e, err := r.readTable(ctx, table)
		if err != nil {
			return nil, dialect.Capability{}, err
		}
		entities = append(entities, e)
	}
	return entities, dialect.SQLiteCapability(version), nil
}

func (r *Reader) version(ctx context.Context) (dialect.Version, error) {
	var raw string
	if err := r.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&raw); err != nil {
		return dialect.Version{}, err
	}
	parts := strings.SplitN(raw, ".", 3)
	var v dialect.Version
	for i := 0; i < len(parts) && i < 3; i++ {
		n, _ := strconv.Atoi(parts[i])
		v[i] = n
	}
	return v, nil
}

func (r *Reader) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Reader) readTable(ctx context.Context, table string) (*schema.Entity, error) {
	entity := &schema.Entity{
		Name:   introspect.PascalCase(table),
		Tables: []string{table},
		Attrs:  map[string]*schema.Attribute{},
	}

	// PRAGMA table_info doesn't accept bound parameters; table names here
	// come only from sqlite_master, never from external input.
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(table)+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pkCol struct {
		name string
		seq  int
	}
	var pks []pkCol

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		entity.Attrs[name] = &schema.Attribute{
			Name:       name,
			EntityName: entity.Name,
			TypeName:   canonicalType(colType),
			Columns:    []string{name},
			IsRequired: notNull != 0 || pk != 0,
		}
		if pk != 0 {
			pks = append(pks, pkCol{name: name, seq: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// table_info rows come in column order; pk is the 1-based position of
	// the column within the primary key.
	sort.Slice(pks, func(a, b int) bool { return pks[a].seq < pks[b].seq })
	for _, p := range pks {
		entity.PrimaryKey = append(entity.PrimaryKey, p.name)
	}

	if err := r.readForeignKeys(ctx, table, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *Reader) readForeignKeys(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA foreign_key_list(`+quoteIdent(table)+`)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		if attr, ok := entity.Attrs[from]; ok {
			attr.TypeName = introspect.PascalCase(refTable)
		}
	}
	return rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func canonicalType(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return "int"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "float"
	case strings.Contains(t, "DECIMAL"), strings.Contains(t, "NUMERIC"):
		return "decimal"
	case strings.Contains(t, "DATETIME") || strings.Contains(t, "TIMESTAMP"):
		return "datetime"
	case strings.Contains(t, "DATE"):
		return "date"
	case strings.Contains(t, "BOOL"):
		return "bool"
	case strings.Contains(t, "BLOB"):
		return "buffer"
	default:
		return "string"
	}
}

var _ introspect.SchemaReader = (*Reader)(nil)
