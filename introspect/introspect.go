// Package introspect is the domain-stack counterpart to package schema: where
// schema.Entity is the translator's read-only view of a data model,
// introspect builds that view by reading a live database's catalog, one
// package per dialect, mirroring how the teacher's database/<dialect>
// packages each wrap one driver behind a common interface (spec.md §3.1).
package introspect

import (
	"context"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/schema"
)

// SchemaReader is implemented by each dialect package. ReadSchema returns
// every table it can see as a schema.Entity, plus the dialect.Capability a
// Translator should be constructed with for this specific server.
type SchemaReader interface {
	ReadSchema(ctx context.Context) ([]*schema.Entity, dialect.Capability, error)
	Close() error
}

// PascalCase turns a snake_case table name into the CamelCase entity name
// convention schema.Entity.Name uses, e.g. "student_group" -> "StudentGroup".
func PascalCase(s string) string {
	out := make([]byte, 0, len(s))
	upper := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
