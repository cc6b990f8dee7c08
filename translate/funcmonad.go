package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// FuncMonad is a bound built-in function awaiting a call (spec.md §3
// "FuncMonad subtypes"): len, abs, min, max, sum, count, avg, select,
// exists, desc, JOIN, date, datetime, decimal, buffer. One Go type with a
// name tag replaces the original's one-class-per-builtin hierarchy, since
// each variant's Call body is a handful of lines with no shared mutable
// state worth splitting into separate types.
type FuncMonad struct {
	translator *Translator
	name       string
}

func NewFuncMonad(tr *Translator, name string) (*FuncMonad, bool) {
	switch name {
	case "len", "abs", "min", "max", "sum", "count", "avg", "select", "exists",
		"desc", "JOIN", "date", "datetime", "decimal", "buffer":
		return &FuncMonad{translator: tr, name: name}, true
	default:
		return nil, false
	}
}

func (m *FuncMonad) ValueType() typesys.Type { return typesys.Type{Kind: typesys.Function} }
func (m *FuncMonad) MonadFlags() *Flags      { return nil }
func (m *FuncMonad) GetSQL() []sqlast.Node   { return nil }

func (m *FuncMonad) Call(args []Monad) (Monad, error) {
	switch m.name {
	case "len":
		return m.callLen(args)
	case "count":
		return m.callCount(args)
	case "abs":
		return m.callUnary(args, func(a Monad) (Monad, error) {
			arith, ok := a.(*ScalarMonad)
			if !ok || !typesys.IsNumeric(arith.typ) {
				return nil, &TypeError{Msg: "abs() expects a numeric argument in: " + exprPlaceholder}
			}
			return NewExprMonad(m.translator, arith.typ, sqlast.N(sqlast.Abs, arith.sql)), nil
		})
	case "sum":
		return m.callAggregate(args, "SUM")
	case "avg":
		return m.callAggregate(args, "AVG")
	case "min":
		return m.callMinMax(args, sqlast.Min, "MIN")
	case "max":
		return m.callMinMax(args, sqlast.Max, "MAX")
	case "select":
		return m.callSelect(args)
	case "exists":
		return m.callExists(args)
	case "desc":
		return m.callDesc(args)
	case "JOIN":
		return m.callJoin(args)
	case "date":
		return m.callDate(args)
	case "datetime":
		return m.callDatetime(args)
	case "decimal":
		return m.callDecimal(args)
	case "buffer":
		return m.callBuffer(args)
	case "date.today":
		return NewExprMonad(m.translator, typesys.Primitive(typesys.Date), sqlast.Leaf(sqlast.Today)), nil
	default:
		return nil, &NotImplementedError{Msg: "unsupported function: " + m.name}
	}
}

func (m *FuncMonad) callUnary(args []Monad, f func(Monad) (Monad, error)) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: m.name + "() takes exactly one argument: " + exprPlaceholder}
	}
	return f(args[0])
}

func (m *FuncMonad) callLen(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "len() takes exactly one argument: " + exprPlaceholder}
	}
	switch x := args[0].(type) {
	case *AttrSetMonad:
		return x.Count()
	case *QuerySetMonad:
		return x.Count()
	case *ScalarMonad:
		if x.typ.Kind != typesys.String {
			return nil, &TypeError{Msg: "len() expects a string or collection argument in: " + exprPlaceholder}
		}
		return NewExprMonad(m.translator, typesys.Primitive(typesys.Int), sqlast.N(sqlast.Length, x.sql)), nil
	default:
		return nil, &TypeError{Msg: "len() expects a string or collection argument in: " + exprPlaceholder}
	}
}

func (m *FuncMonad) callCount(args []Monad) (Monad, error) {
	if len(args) == 0 {
		result := NewExprMonad(m.translator, typesys.Primitive(typesys.Int),
			sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)))
		result.flags.Aggregated = true
		return result, nil
	}
	if s, ok := args[0].(*ScalarMonad); ok && s.role == roleConst && s.typ.Kind == typesys.String && s.sql.Str == "*" {
		result := NewExprMonad(m.translator, typesys.Primitive(typesys.Int),
			sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)))
		result.flags.Aggregated = true
		return result, nil
	}
	return m.callLen(args)
}

func (m *FuncMonad) callAggregate(args []Monad, funcName string) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: funcName + "() takes exactly one argument: " + exprPlaceholder}
	}
	switch x := args[0].(type) {
	case *AttrSetMonad:
		return x.Aggregate(funcName)
	case *NumericSetExprMonad:
		return x.Aggregate(funcName)
	case *QuerySetMonad:
		return x.Aggregate(funcName)
	default:
		return nil, &TypeError{Msg: funcName + "() expects a collection argument in: " + exprPlaceholder}
	}
}

func (m *FuncMonad) callMinMax(args []Monad, sqlop sqlast.Tag, funcName string) (Monad, error) {
	if len(args) == 0 {
		return nil, &TypeError{Msg: funcName + "() expected at least one argument"}
	}
	if len(args) == 1 {
		return m.callAggregate(args, funcName)
	}
	t := args[0].ValueType()
	if t.Kind == typesys.Method {
		return nil, &TypeError{Msg: "forgot parentheses? method used as a value: " + exprPlaceholder}
	}
	if !typesys.IsComparable(t) {
		return nil, &TypeError{Msg: funcName + "() argument is not comparable: " + exprPlaceholder}
	}
	for _, arg := range args[1:] {
		t2 := arg.ValueType()
		if t2.Kind == typesys.Method {
			return nil, &TypeError{Msg: "forgot parentheses? method used as a value: " + exprPlaceholder}
		}
		t3, ok := typesys.Coerce(t, t2)
		if !ok {
			return nil, &IncomparableTypesError{Type1: t, Type2: t2}
		}
		t = t3
	}
	sqlArgs := make([]sqlast.Node, len(args))
	for i, a := range args {
		sqlArgs[i] = first(a.GetSQL())
	}
	return NewExprMonad(m.translator, t, sqlast.N(sqlop, sqlArgs...)), nil
}

func (m *FuncMonad) callSelect(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "select() expects exactly one argument: " + exprPlaceholder}
	}
	qs, ok := args[0].(*QuerySetMonad)
	if !ok {
		return nil, &TypeError{Msg: "'select' function expects a generator expression, got: " + exprPlaceholder}
	}
	return qs, nil
}

func (m *FuncMonad) callExists(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "exists() expects exactly one argument: " + exprPlaceholder}
	}
	t, ok := args[0].(Truthy)
	if !ok {
		return nil, &TypeError{Msg: "'exists' function expects a generator expression or collection, got: " + exprPlaceholder}
	}
	return t.Nonzero(), nil
}

func (m *FuncMonad) callDesc(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "desc() expects exactly one argument: " + exprPlaceholder}
	}
	return NewDescMonad(args[0]), nil
}

// callJoin implements the JOIN(x.attr) pseudo-function: it flips
// translator.hintJoin for the remainder of the current qualifier's
// conditions and passes its argument straight through unmodified (spec.md
// §10 Supplemented Features, grounded in the original's JoinMonad).
func (m *FuncMonad) callJoin(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "JOIN() expects exactly one argument: " + exprPlaceholder}
	}
	m.translator.hintJoin = true
	return args[0], nil
}

func (m *FuncMonad) callDate(args []Monad) (Monad, error) {
	if len(args) == 0 {
		return &FuncMonad{translator: m.translator, name: "date.today"}, nil
	}
	if len(args) != 3 {
		return nil, &TypeError{Msg: "date(year, month, day) takes three arguments: " + exprPlaceholder}
	}
	for _, a := range args {
		s, ok := a.(*ScalarMonad)
		if !ok || s.typ.Kind != typesys.Int {
			return nil, &TypeError{Msg: "date(year, month, day) arguments must be of 'int' type: " + exprPlaceholder}
		}
		if s.role != roleConst {
			return nil, &NotImplementedError{Msg: "date() only supports constant arguments: " + exprPlaceholder}
		}
	}
	return NewConstMonad(m.translator, typesys.Primitive(typesys.Date), nil), nil
}

func (m *FuncMonad) callDatetime(args []Monad) (Monad, error) {
	if len(args) == 0 {
		return NewExprMonad(m.translator, typesys.Primitive(typesys.Datetime), sqlast.Leaf(sqlast.Now)), nil
	}
	for _, a := range args {
		s, ok := a.(*ScalarMonad)
		if !ok || s.typ.Kind != typesys.Int {
			return nil, &TypeError{Msg: "datetime(...) arguments must be of 'int' type: " + exprPlaceholder}
		}
		if s.role != roleConst {
			return nil, &NotImplementedError{Msg: "datetime() only supports constant arguments: " + exprPlaceholder}
		}
	}
	return NewConstMonad(m.translator, typesys.Primitive(typesys.Datetime), nil), nil
}

func (m *FuncMonad) callDecimal(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "decimal() takes exactly one argument: " + exprPlaceholder}
	}
	s, ok := args[0].(*ScalarMonad)
	if !ok || s.role != roleConst || s.typ.Kind != typesys.String {
		return nil, &TypeError{Msg: "decimal() expects a string constant: " + exprPlaceholder}
	}
	return NewConstMonad(m.translator, typesys.Primitive(typesys.Decimal), s.sql.Str), nil
}

func (m *FuncMonad) callBuffer(args []Monad) (Monad, error) {
	if len(args) != 1 {
		return nil, &TypeError{Msg: "buffer() takes exactly one argument: " + exprPlaceholder}
	}
	s, ok := args[0].(*ScalarMonad)
	if !ok || s.role != roleConst || s.typ.Kind != typesys.String {
		return nil, &TypeError{Msg: "buffer() expects a string constant: " + exprPlaceholder}
	}
	return NewConstMonad(m.translator, typesys.Primitive(typesys.Buffer), s.sql.Str), nil
}
