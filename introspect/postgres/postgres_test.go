package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	cases := map[string]string{
		"integer":                     "int",
		"bigint":                      "int",
		"double precision":            "float",
		"numeric":                     "decimal",
		"timestamp without time zone": "datetime",
		"date":                        "date",
		"boolean":                     "bool",
		"bytea":                       "buffer",
		"text":                        "string",
	}
	for input, want := range cases {
		assert.Equal(t, want, canonicalType(input))
	}
}

func TestNormalizeExprEmptyStaysEmpty(t *testing.T) {
	assert.Equal(t, "", normalizeExpr(""))
}
