package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPascalCase(t *testing.T) {
	cases := map[string]string{
		"student":       "Student",
		"student_group": "StudentGroup",
		"id":            "Id",
		"":              "",
	}
	for input, want := range cases {
		assert.Equal(t, want, PascalCase(input))
	}
}
