package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// role distinguishes the four scalar roles spec.md §3 models as separate
// mixin-derived classes (AttrMonad, ParamMonad, ConstMonad, ExprMonad).
// They share identical operation semantics (NumericMixin/StringMixin/
// DateMixin/DatetimeMixin/BufferMixin in the original all vary only in
// which primitive Kind they wrap, never in role), so one Go type with a
// role tag replaces the sixteen-class grid the original builds via
// metaclass mixins.
type role int

const (
	roleAttr role = iota
	roleParam
	roleConst
	roleExpr
)

// ScalarMonad is every primitive-typed monad: attribute access, an
// external parameter, a literal, or a computed SQL scalar. Its Kind
// governs which mixin behaviour (NumericMixin/StringMixin/DateMixin/
// DatetimeMixin/BufferMixin) applies to arithmetic, indexing and
// comparison.
type ScalarMonad struct {
	translator *Translator
	typ        typesys.Type
	role       role
	sql        sqlast.Node
	flags      *Flags

	// paramKey/converter only populated for role == roleParam.
	paramKey string
}

func NewScalarMonad(tr *Translator, typ typesys.Type, r role, sql sqlast.Node) *ScalarMonad {
	return &ScalarMonad{translator: tr, typ: typ, role: r, sql: sql, flags: newFlags()}
}

func NewParamMonad(tr *Translator, typ typesys.Type, key string) *ScalarMonad {
	return &ScalarMonad{translator: tr, typ: typ, role: roleParam, paramKey: key,
		sql: sqlast.ParamRef(key, typ.Kind.String()), flags: newFlags()}
}

func NewConstMonad(tr *Translator, typ typesys.Type, value interface{}) *ScalarMonad {
	var v sqlast.Node
	switch x := value.(type) {
	case string:
		v = sqlast.StrValue(x)
	case int:
		v = sqlast.IntValue(x)
	case bool:
		n := 0
		if x {
			n = 1
		}
		v = sqlast.IntValue(n)
	default:
		v = sqlast.Leaf(sqlast.Value)
	}
	return &ScalarMonad{translator: tr, typ: typ, role: roleConst, sql: v, flags: newFlags()}
}

func NewExprMonad(tr *Translator, typ typesys.Type, sql sqlast.Node) *ScalarMonad {
	return &ScalarMonad{translator: tr, typ: typ, role: roleExpr, sql: sql, flags: newFlags()}
}

func (m *ScalarMonad) ValueType() typesys.Type { return m.typ }
func (m *ScalarMonad) MonadFlags() *Flags      { return m.flags }
func (m *ScalarMonad) GetSQL() []sqlast.Node   { return []sqlast.Node{m.sql} }

// NoneMonad is the `None` literal: it only ever compares for identity,
// rewriting to IS_NULL/IS_NOT_NULL (spec.md §4.2 Comparability).
type NoneMonad struct {
	translator *Translator
	flags      *Flags
}

func NewNoneMonad(tr *Translator) *NoneMonad { return &NoneMonad{translator: tr, flags: newFlags()} }

func (m *NoneMonad) ValueType() typesys.Type { return typesys.Primitive(typesys.None) }
func (m *NoneMonad) MonadFlags() *Flags      { return m.flags }
func (m *NoneMonad) GetSQL() []sqlast.Node   { return nil }

func (m *NoneMonad) Cmp(op string, other Monad) (Monad, error) {
	return newCmpMonad(m.translator, op, m, other)
}

// Cmp implements spec.md §4.2 Comparability: ==/!= with numeric promotion,
// strings to strings, None rewriting to IS[ NOT ]_NULL, and the <,<=,>,>=
// restriction.
func (m *ScalarMonad) Cmp(op string, other Monad) (Monad, error) {
	if err := checkComparable(m, other, op); err != nil {
		return nil, err
	}
	return newCmpMonad(m.translator, op, m, other)
}

func (m *ScalarMonad) Add(other Monad) (Monad, error) { return m.arith("+", sqlast.Add, other) }
func (m *ScalarMonad) Sub(other Monad) (Monad, error) { return m.arith("-", sqlast.Sub, other) }
func (m *ScalarMonad) Mul(other Monad) (Monad, error) { return m.arith("*", sqlast.Mul, other) }
func (m *ScalarMonad) Div(other Monad) (Monad, error) { return m.arith("/", sqlast.Div, other) }
func (m *ScalarMonad) Pow(other Monad) (Monad, error) { return m.arith("**", sqlast.Pow, other) }

func (m *ScalarMonad) arith(opName string, tag sqlast.Tag, other Monad) (Monad, error) {
	if otherSet, ok := other.(*AttrSetMonad); ok {
		return newNumericSetExprMonad(m.translator, opName, tag, m, otherSet)
	}
	if tag == sqlast.Add && m.typ.Kind == typesys.String {
		other2, ok := other.(*ScalarMonad)
		if !ok || other2.typ.Kind != typesys.String {
			return nil, &TypeError{Msg: "string concatenation requires two strings: " + exprPlaceholder}
		}
		sql := sqlast.N(sqlast.Concat, m.sql, other2.GetSQL()[0])
		return NewExprMonad(m.translator, m.typ, sql), nil
	}
	if !typesys.IsNumeric(m.typ) {
		return nil, &TypeError{Msg: "arithmetic requires numeric operands: " + exprPlaceholder}
	}
	other2, ok := other.(*ScalarMonad)
	if !ok || !typesys.IsNumeric(other2.typ) {
		return nil, &TypeError{Msg: "arithmetic requires numeric operands: " + exprPlaceholder}
	}
	resultType, ok := typesys.Coerce(m.typ, other2.typ)
	if !ok {
		return nil, &TypeError{Msg: "arithmetic requires numeric operands: " + exprPlaceholder}
	}
	sql := sqlast.N(tag, m.sql, other2.GetSQL()[0])
	return NewExprMonad(m.translator, resultType, sql), nil
}

func (m *ScalarMonad) Neg() (Monad, error) {
	if !typesys.IsNumeric(m.typ) {
		return nil, &TypeError{Msg: "unary minus requires a numeric operand: " + exprPlaceholder}
	}
	return NewExprMonad(m.translator, m.typ, sqlast.N(sqlast.Neg, m.sql)), nil
}

// Index and Slice implement spec.md §4.2 indexing/slicing: SQL SUBSTR with
// 1-based, +1-adjusted positive indices; negative indices and any step are
// rejected with NotImplementedError.
func (m *ScalarMonad) Index(i Monad) (Monad, error) {
	if m.typ.Kind != typesys.String {
		return nil, &TypeError{Msg: "indexing is only supported on strings: " + exprPlaceholder}
	}
	idx, ok := i.(*ScalarMonad)
	if !ok || idx.role != roleConst || idx.typ.Kind != typesys.Int {
		return nil, &NotImplementedError{Msg: "only constant integer indices are supported: " + exprPlaceholder}
	}
	if idx.sql.Int < 0 {
		return nil, &NotImplementedError{Msg: "negative string indices are not supported: " + exprPlaceholder}
	}
	start := sqlast.IntValue(idx.sql.Int + 1)
	length := sqlast.IntValue(1)
	sql := sqlast.N(sqlast.Substr, m.sql, start, length)
	return NewExprMonad(m.translator, typesys.Primitive(typesys.String), sql), nil
}

func (m *ScalarMonad) Slice(start, stop Monad) (Monad, error) {
	if m.typ.Kind != typesys.String {
		return nil, &TypeError{Msg: "slicing is only supported on strings: " + exprPlaceholder}
	}
	startN, ok1 := constInt(start)
	stopN, ok2 := constInt(stop)
	if !ok1 || !ok2 {
		return nil, &NotImplementedError{Msg: "only constant slice bounds are supported: " + exprPlaceholder}
	}
	if startN < 0 || stopN < 0 {
		return nil, &NotImplementedError{Msg: "negative string slice bounds are not supported: " + exprPlaceholder}
	}
	length := stopN - startN
	sql := sqlast.N(sqlast.Substr, m.sql, sqlast.IntValue(startN+1), sqlast.IntValue(length))
	return NewExprMonad(m.translator, typesys.Primitive(typesys.String), sql), nil
}

func constInt(m Monad) (int, bool) {
	if m == nil {
		return 0, true // open bound
	}
	s, ok := m.(*ScalarMonad)
	if !ok || s.role != roleConst || s.typ.Kind != typesys.Int {
		return 0, false
	}
	return s.sql.Int, true
}

// Nonzero implements truthiness for scalars. A bool scalar is used as is;
// every non-bool scalar, column or literal alike, is rewritten as
// `IS NOT NULL`, so a zero number or an empty string still counts as true
// (the translator never evaluates values itself).
func (m *ScalarMonad) Nonzero() Monad {
	if m.typ.Kind == typesys.Bool {
		return &BoolExprMonad{translator: m.translator, sql: m.sql, flags: m.flags}
	}
	sql := sqlast.N(sqlast.IsNotNull, m.sql)
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}
}
