// Package postgres reads PostgreSQL's pg_catalog into schema.Entity values
// via database/sql + lib/pq, the same driver the teacher's
// database/postgres.PostgresDatabase uses for DDL export, pointed at
// pg_attribute/pg_constraint instead (spec.md §3.1). Column DEFAULT and
// CHECK expressions come back from pg_get_expr() as raw SQL text; pg_query_go
// normalises that text into a stable, parameter-erased form so two
// semantically identical defaults compare equal regardless of literal
// spelling, the same job pg_query_go.Normalize does for query fingerprinting.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	pgquery "github.com/pganalyze/pg_query_go/v2"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/introspect"
	"github.com/ponyql/queryc/schema"
)

type Config struct {
	Host, User, Password, DBName, SSLMode string
	Port                                  int
}

type Reader struct {
	db     *sql.DB
	dbName string
}

func NewReader(cfg Config) (*Reader, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db, dbName: cfg.DBName}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) ReadSchema(ctx context.Context) ([]*schema.Entity, dialect.Capability, error) {
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
	return entities, dialect.PostgresCapability(), nil
}

func (r *Reader) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
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

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			a.attnotnull,
			coalesce(pg_get_expr(d.adbin, d.adrelid), ''),
			a.attidentity != ''
		FROM pg_attribute a
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attrelid = $1::regclass AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, pgType, defaultExpr string
		var notNull, identity bool
		if err := rows.Scan(&name, &pgType, &notNull, &defaultExpr, &identity); err != nil {
			return nil, err
		}
		attr := &schema.Attribute{
			Name:       name,
			EntityName: entity.Name,
			TypeName:   canonicalType(pgType),
			Columns:    []string{name},
			IsRequired: notNull,
			Identity:   identity,
			Default:    normalizeExpr(defaultExpr),
		}
		entity.Attrs[name] = attr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.readPrimaryKey(ctx, table, entity); err != nil {
		return nil, err
	}
	if err := r.readCheckConstraints(ctx, table, entity); err != nil {
		return nil, err
	}
	if err := r.readForeignKeys(ctx, table, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *Reader) readPrimaryKey(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)
	`, table)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		entity.PrimaryKey = append(entity.PrimaryKey, name)
	}
	return rows.Err()
}

// readCheckConstraints records the normalised body of the table's first
// CHECK constraint on the first primary-key attribute. Further CHECK
// constraints are not recorded, and a constraint is not bound to the
// columns it mentions (a catalog-only read has no column/expression
// cross-reference without re-parsing the expression tree).
func (r *Reader) readCheckConstraints(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pg_get_constraintdef(oid)
		FROM pg_constraint
		WHERE conrelid = $1::regclass AND contype = 'c'
	`, table)
	if err != nil {
		return err
	}
	defer rows.Close()

	var checks []string
	for rows.Next() {
		var def string
		if err := rows.Scan(&def); err != nil {
			return err
		}
		checks = append(checks, normalizeExpr(def))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(checks) == 0 || len(entity.PrimaryKey) == 0 {
		return nil
	}
	if attr, ok := entity.Attrs[entity.PrimaryKey[0]]; ok {
		attr.Check = checks[0]
	}
	return nil
}

func (r *Reader) readForeignKeys(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.attname, cl.relname
		FROM pg_constraint c
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = c.conkey[1]
		JOIN pg_class cl ON cl.oid = c.confrelid
		WHERE c.conrelid = $1::regclass AND c.contype = 'f'
	`, table)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var column, refTable string
		if err := rows.Scan(&column, &refTable); err != nil {
			return err
		}
		if attr, ok := entity.Attrs[column]; ok {
			attr.TypeName = introspect.PascalCase(refTable)
		}
	}
	return rows.Err()
}

// normalizeExpr runs a DEFAULT/CHECK expression body through pg_query_go's
// fingerprint normaliser so two defaults that only differ in literal
// spelling (e.g. `'active'` vs `'active '`) still compare equal; parse
// failures are logged and the raw text is kept verbatim, since the
// translator treats this field as opaque either way.
func normalizeExpr(expr string) string {
	if expr == "" {
		return ""
	}
	normalized, err := pgquery.Normalize("SELECT " + expr)
	if err != nil {
		slog.Debug("failed to normalize expression", "expr", expr, "error", err)
		return expr
	}
	return normalized
}

func canonicalType(pgType string) string {
	switch pgType {
	case "smallint", "integer", "bigint", "smallserial", "serial", "bigserial":
		return "int"
	case "real", "double precision":
		return "float"
	case "numeric", "decimal":
		return "decimal"
	case "date":
		return "date"
	case "timestamp without time zone", "timestamp with time zone":
		return "datetime"
	case "boolean":
		return "bool"
	case "bytea":
		return "buffer"
	default:
		return "string"
	}
}

var _ introspect.SchemaReader = (*Reader)(nil)
