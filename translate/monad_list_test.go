package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

func intTuple(tr *Translator, a, b int) *ListMonad {
	m, err := NewListMonad(tr, []Monad{
		NewConstMonad(tr, typesys.Primitive(typesys.Int), a),
		NewConstMonad(tr, typesys.Primitive(typesys.Int), b),
	})
	if err != nil {
		panic(err)
	}
	return m
}

func TestListMonadContainsSingleColumnEmitsIn(t *testing.T) {
	tr := barebonesTranslator()
	list, err := NewListMonad(tr, []Monad{
		NewConstMonad(tr, typesys.Primitive(typesys.Int), 1),
		NewConstMonad(tr, typesys.Primitive(typesys.Int), 2),
	})
	require.NoError(t, err)

	item := NewConstMonad(tr, typesys.Primitive(typesys.Int), 1)
	m, err := list.Contains(item, false)
	require.NoError(t, err)

	boolExpr, ok := m.(*BoolExprMonad)
	require.True(t, ok)
	assert.Equal(t, sqlast.In, boolExpr.GetSQL()[0].Tag)
}

// A composite (tuple) LHS against a ListMonad of tuples can't lower to a
// single-column IN; it rewrites to OR of per-candidate AND-of-equalities.
func TestListMonadContainsCompositeRewritesToOrOfAnd(t *testing.T) {
	tr := barebonesTranslator()
	list, err := NewListMonad(tr, []Monad{
		intTuple(tr, 1, 2),
		intTuple(tr, 3, 4),
	})
	require.NoError(t, err)

	item := intTuple(tr, 1, 2)
	m, err := list.Contains(item, false)
	require.NoError(t, err)

	boolExpr, ok := m.(*BoolExprMonad)
	require.True(t, ok)
	sql := boolExpr.GetSQL()[0]
	require.Equal(t, sqlast.Or, sql.Tag)
	require.Len(t, sql.Args, 2)
	for _, cand := range sql.Args {
		assert.Equal(t, sqlast.And, cand.Tag)
		require.Len(t, cand.Args, 2)
		for _, eq := range cand.Args {
			assert.Equal(t, sqlast.Eq, eq.Tag)
		}
	}
}

// The NOT IN form of the same composite containment distributes De
// Morgan's law into an AND of per-candidate OR-of-inequalities, rather
// than wrapping the OR-of-AND form in a bare NOT.
func TestListMonadNotContainsCompositeRewritesToAndOfOr(t *testing.T) {
	tr := barebonesTranslator()
	list, err := NewListMonad(tr, []Monad{
		intTuple(tr, 1, 2),
		intTuple(tr, 3, 4),
	})
	require.NoError(t, err)

	item := intTuple(tr, 1, 2)
	m, err := list.Contains(item, true)
	require.NoError(t, err)

	boolExpr, ok := m.(*BoolExprMonad)
	require.True(t, ok)
	sql := boolExpr.GetSQL()[0]
	require.Equal(t, sqlast.And, sql.Tag)
	require.Len(t, sql.Args, 2)
	for _, cand := range sql.Args {
		assert.Equal(t, sqlast.Or, cand.Tag)
		require.Len(t, cand.Args, 2)
		for _, ne := range cand.Args {
			assert.Equal(t, sqlast.Ne, ne.Tag)
		}
	}
}
