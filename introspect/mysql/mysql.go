// Package mysql reads MySQL's information_schema into schema.Entity values,
// the same sql.Open("mysql", dsn) + information_schema query pattern the
// teacher's database/mysql.MysqlDatabase uses to dump DDL, pointed at the
// catalog views instead of SHOW CREATE TABLE (spec.md §3.1).
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	driver "github.com/go-sql-driver/mysql"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/introspect"
	"github.com/ponyql/queryc/schema"
)

type Config struct {
	Host, User, Password, DBName string
	Port                         int
}

type Reader struct {
	db     *sql.DB
	dbName string
}

func NewReader(cfg Config) (*Reader, error) {
	c := driver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.DBName
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	db, err := sql.Open("mysql", c.FormatDSN())
	if err != nil {
		return nil, err
	}
	return &Reader{db: db, dbName: cfg.DBName}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) ReadSchema(ctx context.Context) ([]*schema.Entity, dialect.Capability, error) {
	var version string
	if err := r.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		slog.Debug("failed to read MySQL version", "error", err)
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
	return entities, dialect.MySQLCapability(), nil
}

func (r *Reader) tableNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
	`, r.dbName)
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

	columnRows, err := r.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY, EXTRA
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, r.dbName, table)
	if err != nil {
		return nil, err
	}
	defer columnRows.Close()

	for columnRows.Next() {
		var name, dataType, nullable, key, extra string
		if err := columnRows.Scan(&name, &dataType, &nullable, &key, &extra); err != nil {
			return nil, err
		}
		attr := &schema.Attribute{
			Name:       name,
			EntityName: entity.Name,
			TypeName:   canonicalType(dataType),
			Columns:    []string{name},
			IsRequired: nullable == "NO",
			Identity:   extra == "auto_increment",
		}
		entity.Attrs[name] = attr
		if key == "PRI" {
			entity.PrimaryKey = append(entity.PrimaryKey, name)
		}
	}
	if err := columnRows.Err(); err != nil {
		return nil, err
	}

	if err := r.readForeignKeys(ctx, table, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// readForeignKeys rewrites every FK column's attribute into an entity
// reference: TypeName becomes the referenced table's entity name and
// Columns keeps the owning-side FK column, matching schema.Attribute's
// "TypeName is another entity" convention (spec.md §3 Entity (external)).
func (r *Reader) readForeignKeys(ctx context.Context, table string, entity *schema.Entity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, REFERENCED_TABLE_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL
	`, r.dbName, table)
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

// canonicalType maps a MySQL column type name to one of the canonical
// scalar type names translate/monad_object.go's kindOfTypeName recognises.
func canonicalType(dataType string) string {
	switch dataType {
	case "tinyint", "smallint", "mediumint", "int", "bigint", "year":
		return "int"
	case "float", "double":
		return "float"
	case "decimal", "numeric":
		return "decimal"
	case "date":
		return "date"
	case "datetime", "timestamp":
		return "datetime"
	case "tinyint(1)", "bool", "boolean":
		return "bool"
	case "blob", "binary", "varbinary", "longblob", "mediumblob", "tinyblob":
		return "buffer"
	default:
		return "string"
	}
}

var _ introspect.SchemaReader = (*Reader)(nil)
