package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// a tiny standalone Translator good enough to hand to monad constructors
// that only read tr.capability/tr.database — none of these tests touch
// joins or qualifiers.
func barebonesTranslator() *Translator {
	return &Translator{boundVars: map[string]TableRef{}, aggregatedSubqueryPaths: map[string]bool{}}
}

func TestDoubleNegationEliminatesWrapper(t *testing.T) {
	tr := barebonesTranslator()
	// EQ isn't in sqlNegation's rewrite table, so a first negate() wraps it
	// in a NotMonad; a second negate() must unwrap back to the same monad
	// rather than stacking NOT(NOT(...)).
	base := NewBoolExprMonad(tr, sqlast.N(sqlast.Eq, sqlast.IntValue(1), sqlast.IntValue(1)))

	once, err := negate(tr, base)
	require.NoError(t, err)
	_, wrapped := once.(*NotMonad)
	require.True(t, wrapped)

	twice, err := negate(tr, once)
	require.NoError(t, err)

	assert.Same(t, base, twice)
}

func TestBoolExprNegateUsesSqlNegationTable(t *testing.T) {
	tr := barebonesTranslator()
	m := NewBoolExprMonad(tr, sqlast.N(sqlast.In, sqlast.IntValue(1)))
	negated := m.Negate()
	boolExpr, ok := negated.(*BoolExprMonad)
	require.True(t, ok)
	assert.Equal(t, sqlast.NotIn, boolExpr.GetSQL()[0].Tag)
}

func TestAndFlattensNestedAndOperands(t *testing.T) {
	tr := barebonesTranslator()
	a, _ := newCmpMonad(tr, "==", NewConstMonad(tr, typesys.Primitive(typesys.Int), 1), NewConstMonad(tr, typesys.Primitive(typesys.Int), 1))
	b, _ := newCmpMonad(tr, "==", NewConstMonad(tr, typesys.Primitive(typesys.Int), 2), NewConstMonad(tr, typesys.Primitive(typesys.Int), 2))
	c, _ := newCmpMonad(tr, "==", NewConstMonad(tr, typesys.Primitive(typesys.Int), 3), NewConstMonad(tr, typesys.Primitive(typesys.Int), 3))

	inner, err := NewAndMonad(tr, a, b)
	require.NoError(t, err)
	outer, err := NewAndMonad(tr, inner, c)
	require.NoError(t, err)

	// (a AND b) AND c flattens to [a, b, c], not [[a, b], c].
	assert.Len(t, outer.Operands(), 3)
}

func TestCmpNegateSwapsOperator(t *testing.T) {
	tr := barebonesTranslator()
	cmp, err := newCmpMonad(tr, "<", NewConstMonad(tr, typesys.Primitive(typesys.Int), 1), NewConstMonad(tr, typesys.Primitive(typesys.Int), 2))
	require.NoError(t, err)

	negated := cmp.Negate().(*CmpMonad)
	assert.Equal(t, ">=", negated.op)
}
