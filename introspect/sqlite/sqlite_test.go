package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyql/queryc/dialect"
)

func TestCanonicalType(t *testing.T) {
	cases := map[string]string{
		"INTEGER":  "int",
		"REAL":     "float",
		"NUMERIC":  "decimal",
		"DATETIME": "datetime",
		"DATE":     "date",
		"BOOLEAN":  "bool",
		"BLOB":     "buffer",
		"TEXT":     "string",
	}
	for input, want := range cases {
		assert.Equal(t, want, canonicalType(input))
	}
}

func TestVersionGatesRowidRescue(t *testing.T) {
	old := dialect.SQLiteCapability(dialect.Version{3, 6, 20})
	require.True(t, old.RowidRescue)

	current := dialect.SQLiteCapability(dialect.Version{3, 6, 21})
	require.False(t, current.RowidRescue)
}

func TestQuoteIdentEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
