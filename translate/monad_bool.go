package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// sqlNegation mirrors Pony's sql_negation table (spec.md §4.3 "Monad
// negation"): tags that negate to a different tag rather than needing a
// wrapping NOT.
var sqlNegation = map[sqlast.Tag]sqlast.Tag{
	sqlast.In:      sqlast.NotIn,
	sqlast.Exists:  sqlast.NotExists,
	sqlast.Like:    sqlast.NotLike,
	sqlast.Between: sqlast.NotBetween,
	sqlast.IsNull:  sqlast.IsNotNull,
}

func init() {
	for k, v := range sqlNegation {
		if _, exists := sqlNegation[v]; !exists {
			sqlNegation[v] = k
		}
	}
}

// BoolExprMonad wraps an already-built boolean SQL fragment (e.g. the
// result of a comparison's getsql, or EXISTS/IN rewrites). Negate consults
// sqlNegation first; unrecognised tags fall back to wrapping in NotMonad.
type BoolExprMonad struct {
	translator *Translator
	sql        sqlast.Node
	flags      *Flags
}

func NewBoolExprMonad(tr *Translator, sql sqlast.Node) *BoolExprMonad {
	return &BoolExprMonad{translator: tr, sql: sql, flags: newFlags()}
}

func (m *BoolExprMonad) ValueType() typesys.Type { return typesys.Primitive(typesys.Bool) }
func (m *BoolExprMonad) MonadFlags() *Flags      { return m.flags }
func (m *BoolExprMonad) GetSQL() []sqlast.Node   { return []sqlast.Node{m.sql} }

func (m *BoolExprMonad) Negate() Monad {
	if negated, ok := sqlNegation[m.sql.Tag]; ok {
		negatedSQL := sqlast.Node{Tag: negated, Args: m.sql.Args, Str: m.sql.Str, Int: m.sql.Int, Ident: m.sql.Ident}
		return &BoolExprMonad{translator: m.translator, sql: negatedSQL, flags: m.flags}
	}
	return &NotMonad{translator: m.translator, operand: m, flags: m.flags}
}

var cmpOps = map[string]sqlast.Tag{
	">=": sqlast.Ge,
	">":  sqlast.Gt,
	"<=": sqlast.Le,
	"<":  sqlast.Lt,
}

var cmpNegate = map[string]string{
	"<": ">=", "<=": ">", "==": "!=", "is": "is not",
}

func init() {
	for k, v := range cmpNegate {
		if _, exists := cmpNegate[v]; !exists {
			cmpNegate[v] = k
		}
	}
}

// CmpMonad is one comparison operator applied to two already-translated
// operands (spec.md §4.3 "CmpMonad.negate swaps the operator").
type CmpMonad struct {
	translator *Translator
	op         string
	left       Monad
	flags      *Flags
	right      Monad
}

func newCmpMonad(tr *Translator, op string, left, right Monad) (*CmpMonad, error) {
	if op == "<>" {
		op = "!="
	}
	if left.ValueType().Kind == typesys.None {
		left, right = right, left
	}
	if right.ValueType().Kind == typesys.None {
		if op == "==" {
			op = "is"
		} else if op == "!=" {
			op = "is not"
		}
	} else if op == "is" {
		op = "=="
	} else if op == "is not" {
		op = "!="
	}
	flags, err := mergeFlags(left, right)
	if err != nil {
		return nil, err
	}
	return &CmpMonad{translator: tr, op: op, left: left, right: right, flags: flags}, nil
}

func (m *CmpMonad) ValueType() typesys.Type { return typesys.Primitive(typesys.Bool) }
func (m *CmpMonad) MonadFlags() *Flags      { return m.flags }

func (m *CmpMonad) Negate() Monad {
	negOp, ok := cmpNegate[m.op]
	if !ok {
		return &NotMonad{translator: m.translator, operand: m, flags: m.flags}
	}
	c, _ := newCmpMonad(m.translator, negOp, m.left, m.right)
	return c
}

func (m *CmpMonad) GetSQL() []sqlast.Node {
	leftSQL := m.left.GetSQL()
	switch m.op {
	case "is":
		conds := make([]sqlast.Node, len(leftSQL))
		for i, l := range leftSQL {
			conds[i] = sqlast.N(sqlast.IsNull, l)
		}
		return []sqlast.Node{sqlast.And(conds...)}
	case "is not":
		conds := make([]sqlast.Node, len(leftSQL))
		for i, l := range leftSQL {
			conds[i] = sqlast.N(sqlast.IsNotNull, l)
		}
		return []sqlast.Node{sqlast.Or(conds...)}
	}
	rightSQL := m.right.GetSQL()
	switch m.op {
	case "<", "<=", ">", ">=":
		return []sqlast.Node{sqlast.N(cmpOps[m.op], leftSQL[0], rightSQL[0])}
	case "==":
		conds := make([]sqlast.Node, len(leftSQL))
		for i := range leftSQL {
			conds[i] = sqlast.N(sqlast.Eq, leftSQL[i], rightSQL[i])
		}
		return []sqlast.Node{sqlast.And(conds...)}
	case "!=":
		conds := make([]sqlast.Node, len(leftSQL))
		for i := range leftSQL {
			conds[i] = sqlast.N(sqlast.Ne, leftSQL[i], rightSQL[i])
		}
		return []sqlast.Node{sqlast.Or(conds...)}
	}
	panic("translate: unreachable comparison operator " + m.op)
}

// AndMonad / OrMonad flatten same-op children the way Pony's
// LogicalBinOpMonad does, and coerce non-bool operands via Nonzero.
type boolBinOp struct {
	translator *Translator
	tag        sqlast.Tag
	operands   []Monad
	flags      *Flags
}

func newBoolBinOp(tr *Translator, tag sqlast.Tag, operands []Monad) (*boolBinOp, error) {
	items := make([]Monad, 0, len(operands))
	for _, op := range operands {
		if op.ValueType().Kind != typesys.Bool {
			t, ok := op.(Truthy)
			if !ok {
				return nil, &TypeError{Msg: "expected a boolean expression: " + exprPlaceholder}
			}
			op = t.Nonzero()
		}
		var same *boolBinOp
		switch v := op.(type) {
		case *AndMonad:
			same = v.boolBinOp
		case *OrMonad:
			same = v.boolBinOp
		}
		if same != nil && same.tag == tag {
			items = append(items, same.operands...)
			continue
		}
		items = append(items, op)
	}
	flags, err := mergeFlags(items...)
	if err != nil {
		return nil, err
	}
	return &boolBinOp{translator: tr, tag: tag, operands: items, flags: flags}, nil
}

func (m *boolBinOp) ValueType() typesys.Type { return typesys.Primitive(typesys.Bool) }
func (m *boolBinOp) MonadFlags() *Flags      { return m.flags }
func (m *boolBinOp) GetSQL() []sqlast.Node {
	parts := make([]sqlast.Node, len(m.operands))
	for i, o := range m.operands {
		parts[i] = first(o.GetSQL())
	}
	if m.tag == sqlast.And {
		return []sqlast.Node{sqlast.And(parts...)}
	}
	return []sqlast.Node{sqlast.Or(parts...)}
}

// AndMonad is the conjunction of two or more boolean monads.
type AndMonad struct{ *boolBinOp }

func NewAndMonad(tr *Translator, operands ...Monad) (*AndMonad, error) {
	b, err := newBoolBinOp(tr, sqlast.And, operands)
	if err != nil {
		return nil, err
	}
	return &AndMonad{b}, nil
}

// Operands exposes the flattened conjuncts, used by the driver's "flatten
// top-level AND" step over `if` clauses (spec.md §4.1 step e).
func (m *AndMonad) Operands() []Monad { return m.operands }

// OrMonad is the disjunction of two or more boolean monads.
type OrMonad struct{ *boolBinOp }

func NewOrMonad(tr *Translator, operands ...Monad) (*OrMonad, error) {
	b, err := newBoolBinOp(tr, sqlast.Or, operands)
	if err != nil {
		return nil, err
	}
	return &OrMonad{b}, nil
}

// NotMonad implements double-negation elimination: negating a NotMonad
// returns its operand directly (spec.md §4.3, §8 testable property).
type NotMonad struct {
	translator *Translator
	operand    Monad
	flags      *Flags
}

func NewNotMonad(tr *Translator, operand Monad) (*NotMonad, error) {
	if operand.ValueType().Kind != typesys.Bool {
		t, ok := operand.(Truthy)
		if !ok {
			return nil, &TypeError{Msg: "expected a boolean expression: " + exprPlaceholder}
		}
		operand = t.Nonzero()
	}
	return &NotMonad{translator: tr, operand: operand, flags: operand.MonadFlags()}, nil
}

func (m *NotMonad) ValueType() typesys.Type { return typesys.Primitive(typesys.Bool) }
func (m *NotMonad) MonadFlags() *Flags      { return m.flags }
func (m *NotMonad) GetSQL() []sqlast.Node {
	return []sqlast.Node{sqlast.N(sqlast.Not, first(m.operand.GetSQL()))}
}

// Negate implements double-negation elimination directly.
func (m *NotMonad) Negate() Monad { return m.operand }

func first(nodes []sqlast.Node) sqlast.Node {
	if len(nodes) == 0 {
		return sqlast.Node{}
	}
	return nodes[0]
}

// negate is the dispatch point the driver/walker call whenever a `not` is
// encountered or a containment rewrite prefers the algebraically simpler
// negated form (spec.md §4.3 "inside_not" flag): prefer a Negator
// implementation when available, otherwise wrap in NotMonad.
func negate(tr *Translator, m Monad) (Monad, error) {
	if n, ok := m.(Negator); ok {
		return n.Negate(), nil
	}
	return NewNotMonad(tr, m)
}
