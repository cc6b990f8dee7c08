package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAndFlattensNestedConjuncts(t *testing.T) {
	inner := And(N(Eq, ColumnRef("s", "a"), IntValue(1)), N(Eq, ColumnRef("s", "b"), IntValue(2)))
	outer := And(inner, N(Eq, ColumnRef("s", "c"), IntValue(3)))
	assert.Equal(t, And, outer.Tag)
	assert.Len(t, outer.Args, 3)
}

func TestAndSingleItemIsReturnedBare(t *testing.T) {
	leaf := N(Eq, ColumnRef("s", "a"), IntValue(1))
	assert.Equal(t, leaf, And(leaf))
}

func TestJoinOnColumnsPanicsOnMismatchedArity(t *testing.T) {
	assert.Panics(t, func() {
		JoinOnColumns("s", "g", []string{"a"}, []string{"a", "b"})
	})
}

func TestJoinOnColumnsBuildsConjunction(t *testing.T) {
	n := JoinOnColumns("s", "g", []string{"group_id"}, []string{"id"})
	assert.Equal(t, Eq, n.Tag)
}
