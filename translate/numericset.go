package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// NumericSetExprMonad is the result of arithmetic between a scalar and a
// set-shaped monad (`s.marks + 1`), or between two set-shaped monads that
// share a common correlated tableref (spec.md §3 "NumericSetExprMonad").
// It stays set-shaped until an Aggregate call (sum/avg/min/max) collapses
// it back to a scalar via a fresh correlated subselect.
type NumericSetExprMonad struct {
	translator *Translator
	typ        typesys.Type
	sqlop      sqlast.Tag
	left       Monad
	right      Monad
	flags      *Flags
}

func newNumericSetExprMonad(tr *Translator, opName string, tag sqlast.Tag, left, right Monad) (Monad, error) {
	t1 := itemType(left.ValueType())
	t2 := itemType(right.ValueType())
	result, ok := typesys.Coerce(t1, t2)
	if !ok {
		return nil, &TypeError{Msg: "both operands of " + opName + " must be numeric in: " + exprPlaceholder}
	}
	flags, err := mergeFlags(left, right)
	if err != nil {
		return nil, err
	}
	return &NumericSetExprMonad{translator: tr, typ: result, sqlop: tag, left: left, right: right, flags: flags}, nil
}

func itemType(t typesys.Type) typesys.Type {
	if t.Kind == typesys.SetOf {
		return *t.Item
	}
	return t
}

func (m *NumericSetExprMonad) ValueType() typesys.Type { return typesys.NewSet(m.typ) }
func (m *NumericSetExprMonad) MonadFlags() *Flags      { return m.flags }

// GetSQL applies the operator to the first column of each operand.
func (m *NumericSetExprMonad) GetSQL() []sqlast.Node {
	left := first(m.left.GetSQL())
	right := first(m.right.GetSQL())
	return []sqlast.Node{sqlast.N(m.sqlop, left, right)}
}

// tableRef picks whichever side carries a correlated tableref (the
// set-shaped operand) as the expression's own tableref. When both sides
// carry one, their name paths must be equal; otherwise it reports a
// cartesian product.
func (m *NumericSetExprMonad) tableRef() (TableRef, error) {
	leftRef, leftOK := monadTableRef(m.left)
	rightRef, rightOK := monadTableRef(m.right)
	switch {
	case leftOK && !rightOK:
		return leftRef, nil
	case rightOK && !leftOK:
		return rightRef, nil
	case leftOK && rightOK:
		if leftRef.NamePath() == rightRef.NamePath() {
			return leftRef, nil
		}
		return nil, &TranslationError{Msg: "cartesian product detected in: " + exprPlaceholder}
	default:
		return nil, nil
	}
}

func monadTableRef(m Monad) (TableRef, bool) {
	if a, ok := m.(*AttrSetMonad); ok && a.tableref != nil {
		return a.tableref, true
	}
	return nil, false
}

// Aggregate collapses the set-shaped arithmetic expression to a scalar via
// a one-off correlated subselect, the way the original's NumericSetExprMonad
// .aggregate builds a fresh Subquery and pops its own join condition out to
// OuterConditions.
func (m *NumericSetExprMonad) Aggregate(funcName string) (Monad, error) {
	tr, err := m.tableRef()
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, &TypeError{Msg: "aggregation requires a set-shaped operand in: " + exprPlaceholder}
	}
	sub := NewSubquery(m.translator.subquery, false)
	alias, _ := tr.MakeJoin(false)
	_ = alias
	expr := m.GetSQL()[0]
	resultType := m.typ
	if funcName == "AVG" {
		resultType = typesys.Primitive(typesys.Float)
	}
	sql := sqlast.N(sqlast.Select,
		sqlast.N(sqlast.Aggregates, sqlast.N(sqlast.Tag(funcName), expr)),
		sub.FromAST,
		sqlast.N(sqlast.Where, append(sub.OuterConditions, sub.Conditions...)...),
	)
	return NewExprMonad(m.translator, resultType, sql), nil
}
