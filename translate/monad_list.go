package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// ListMonad is a tuple or list literal built from already-translated
// element monads — the `for x, y in pairs` target shape, a composite PK
// comparison operand, or a result-set row (spec.md §3 "ListMonad").
// Tuples and lists share this representation: their only behavioural
// difference in the original (list membership vs tuple unpacking) is
// captured here by Contains rather than by a separate type.
type ListMonad struct {
	translator *Translator
	typ        typesys.Type
	items      []Monad
	flags      *Flags
}

func NewListMonad(tr *Translator, items []Monad) (*ListMonad, error) {
	elemTypes := make([]typesys.Type, len(items))
	for i, it := range items {
		elemTypes[i] = it.ValueType()
	}
	flags, err := mergeFlags(items...)
	if err != nil {
		return nil, err
	}
	return &ListMonad{translator: tr, typ: typesys.NewTuple(elemTypes...), items: items, flags: flags}, nil
}

func (m *ListMonad) ValueType() typesys.Type { return m.typ }
func (m *ListMonad) MonadFlags() *Flags      { return m.flags }

func (m *ListMonad) GetSQL() []sqlast.Node {
	var nodes []sqlast.Node
	for _, it := range m.items {
		nodes = append(nodes, it.GetSQL()...)
	}
	return nodes
}

// Items exposes the element monads, used by QuerySetMonad.Contains to take
// a tuple item's columns one element at a time.
func (m *ListMonad) Items() []Monad { return m.items }

// Cmp compares tuples component-wise via AND of per-component equality,
// mirroring ObjectMonad.Cmp's treatment of composite PKs.
func (m *ListMonad) Cmp(op string, other Monad) (Monad, error) {
	if err := checkComparable(m, other, op); err != nil {
		return nil, err
	}
	if op != "==" && op != "!=" {
		return nil, &TypeError{Msg: "tuples only support == and != in: " + exprPlaceholder}
	}
	return newCmpMonad(m.translator, op, m, other)
}

// Contains implements literal-list membership: `x in (1, 2, 3)` lowers to
// IN when the item is a single column; `notIn` flips to NOT_IN
// directly rather than wrapping in NOT, matching the sql_negation shortcut
// used by AttrSetMonad.Contains.
func (m *ListMonad) Contains(item Monad, notIn bool) (Monad, error) {
	for _, it := range m.items {
		if err := checkComparable(item, it, "=="); err != nil {
			return nil, err
		}
	}
	flags, err := mergeFlags(append([]Monad{item}, m.items...)...)
	if err != nil {
		return nil, err
	}
	itemSQL := item.GetSQL()

	if len(itemSQL) == 1 {
		tag := sqlast.In
		if notIn {
			tag = sqlast.NotIn
		}
		list := make([]sqlast.Node, 0, len(m.items)+1)
		list = append(list, itemSQL[0])
		for _, it := range m.items {
			list = append(list, it.GetSQL()[0])
		}
		sql := sqlast.N(tag, list...)
		return &BoolExprMonad{translator: m.translator, sql: sql, flags: flags}, nil
	}

	// Composite LHS: a single-column IN isn't expressible, so containment
	// rewrites to OR of per-candidate AND-of-column-equalities; negation
	// distributes via De Morgan into AND of per-candidate
	// OR-of-column-inequalities, rather than wrapping the whole thing in
	// NOT (spec.md §4.2 Containment, second bullet).
	perCandidate := make([]sqlast.Node, len(m.items))
	for idx, it := range m.items {
		candSQL := it.GetSQL()
		if len(candSQL) != len(itemSQL) {
			return nil, &TypeError{Msg: "tuple containment requires matching arity: " + exprPlaceholder}
		}
		cols := make([]sqlast.Node, len(itemSQL))
		for i, col := range itemSQL {
			if notIn {
				cols[i] = sqlast.N(sqlast.Ne, col, candSQL[i])
			} else {
				cols[i] = sqlast.N(sqlast.Eq, col, candSQL[i])
			}
		}
		if notIn {
			perCandidate[idx] = sqlast.Or(cols...)
		} else {
			perCandidate[idx] = sqlast.And(cols...)
		}
	}
	sql := sqlast.Or(perCandidate...)
	if notIn {
		sql = sqlast.And(perCandidate...)
	}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: flags}, nil
}
