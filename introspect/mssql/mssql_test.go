package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	cases := map[string]string{
		"int":       "int",
		"bigint":    "int",
		"float":     "float",
		"decimal":   "decimal",
		"datetime":  "datetime",
		"date":      "date",
		"bit":       "bool",
		"varbinary": "buffer",
		"nvarchar":  "string",
	}
	for input, want := range cases {
		assert.Equal(t, want, canonicalType(input))
	}
}
