package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalType(t *testing.T) {
	cases := map[string]string{
		"int":      "int",
		"bigint":   "int",
		"double":   "float",
		"decimal":  "decimal",
		"datetime": "datetime",
		"date":     "date",
		"blob":     "buffer",
		"varchar":  "string",
	}
	for input, want := range cases {
		assert.Equal(t, want, canonicalType(input))
	}
}
