package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceNumericLattice(t *testing.T) {
	r, ok := Coerce(Primitive(Int), Primitive(Float))
	require.True(t, ok)
	assert.Equal(t, Float, r.Kind)

	r, ok = Coerce(Primitive(Float), Primitive(Decimal))
	require.True(t, ok)
	assert.Equal(t, Decimal, r.Kind)

	_, ok = Coerce(Primitive(Int), Primitive(String))
	assert.False(t, ok)
}

func TestAreComparable(t *testing.T) {
	assert.True(t, AreComparable(Primitive(Int), Primitive(Float), "<"))
	assert.False(t, AreComparable(Primitive(Bool), Primitive(Bool), "<"))
	assert.False(t, AreComparable(NewTuple(Primitive(Int)), NewTuple(Primitive(Int)), ">="))
	assert.True(t, AreComparable(Primitive(None), Primitive(String), "=="))
	assert.True(t, AreComparable(NewEntity("Student"), NewEntity("Student"), "=="))
	assert.False(t, AreComparable(NewEntity("Student"), NewEntity("Group"), "=="))
}

func TestSetAndTupleEquality(t *testing.T) {
	a := NewSet(NewEntity("Student"))
	b := NewSet(NewEntity("Student"))
	assert.True(t, a.Equal(b))

	c := NewTuple(Primitive(Int), Primitive(String))
	d := NewTuple(Primitive(Int), Primitive(String))
	assert.True(t, c.Equal(d))
	assert.Equal(t, "(int, string)", c.String())
}
