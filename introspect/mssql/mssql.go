// Package mssql reads SQL Server's sys.* catalog views into schema.Entity
// values via github.com/denisenkom/go-mssqldb, the driver the teacher's
// database/mssql.MssqlDatabase uses for DDL export, pointed at sys.columns
// and friends instead of sp_help (spec.md §3.1).
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/introspect"
	"github.com/ponyql/queryc/schema"
)

type Config struct {
	Host, User, Password, DBName string
	Port                         int
}

type Reader struct {
	db *sql.DB
}

func NewReader(cfg Config) (*Reader, error) {
	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
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
	return entities, dialect.MSSQLCapability(), nil
}

func (r *Reader) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.name FROM sys.tables t
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
		SELECT c.name, ty.name, c.is_nullable, c.is_identity
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		WHERE t.name = @p1
		ORDER BY c.column_id
	`, sql.Named("p1", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, typeName string
		var nullable, identity bool
		if err := rows.Scan(&name, &typeName, &nullable, &identity); err != nil {
			return nil, err
		}
		entity.Attrs[name] = &schema.Attribute{
			Name:       name,
			EntityName: entity.Name,
			TypeName:   canonicalType(typeName),
			Columns:    []string{name},
			IsRequired: !nullable,
			Identity:   identity,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.readPrimaryKey(ctx, table, entity); err != nil {
		return nil, err
	}
	if err := r.readForeignKeys(ctx, table, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// readPrimaryKey walks sys.key_constraints -> sys.index_columns to recover
// composite primary keys in their declared key_ordinal order, the same
// ordering contract schema.Entity.PrimaryKey requires (spec.md §3 Entity).
func (r *Reader) readPrimaryKey(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name
		FROM sys.key_constraints kc
		JOIN sys.tables t ON t.object_id = kc.parent_object_id
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE t.name = @p1 AND kc.type = 'PK'
		ORDER BY ic.key_ordinal
	`, sql.Named("p1", table))
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

func (r *Reader) readForeignKeys(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name, rt.name
		FROM sys.foreign_key_columns fkc
		JOIN sys.tables t ON t.object_id = fkc.parent_object_id
		JOIN sys.columns c ON c.object_id = fkc.parent_object_id AND c.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		WHERE t.name = @p1
	`, sql.Named("p1", table))
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

func canonicalType(typeName string) string {
	switch typeName {
	case "tinyint", "smallint", "int", "bigint":
		return "int"
	case "real", "float":
		return "float"
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "date":
		return "date"
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return "datetime"
	case "bit":
		return "bool"
	case "binary", "varbinary", "image":
		return "buffer"
	default:
		return "string"
	}
}

var _ introspect.SchemaReader = (*Reader)(nil)
