package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// QuerySetMonad wraps a nested comprehension (a generator expression or
// Entity.select(lambda)) as a set-shaped value in the enclosing translation
// (spec.md §3 "QuerySetMonad"). It is always nogroup: the driver never
// folds a nested query's own grouping into the outer one.
type QuerySetMonad struct {
	translator    *Translator
	sub           *Translator
	itemType      typesys.Type
	flags         *Flags
}

func NewQuerySetMonad(tr *Translator, sub *Translator) *QuerySetMonad {
	return &QuerySetMonad{translator: tr, sub: sub, itemType: sub.ExprType, flags: &Flags{NoGroup: true}}
}

func (m *QuerySetMonad) ValueType() typesys.Type { return typesys.NewSet(m.itemType) }
func (m *QuerySetMonad) MonadFlags() *Flags      { return m.flags }
func (m *QuerySetMonad) GetSQL() []sqlast.Node   { return nil }

// Contains implements `x in (s.name for s in Student if ...)`: single-column
// IN, row-value IN, or EXISTS depending on column count and dialect
// capability, matching AttrSetMonad.Contains's same three-way split.
func (m *QuerySetMonad) Contains(item Monad, notIn bool) (Monad, error) {
	if err := checkContainment(item, m.itemType); err != nil {
		return nil, err
	}
	columnsAST := m.sub.ExprColumns
	conditions := append([]sqlast.Node{}, m.sub.Conditions...)

	var itemColumns []sqlast.Node
	if list, ok := item.(*ListMonad); ok {
		for _, it := range list.Items() {
			itemColumns = append(itemColumns, it.GetSQL()...)
		}
	} else {
		itemColumns = item.GetSQL()
	}

	if len(columnsAST) == 1 || m.translator.capability.RowValueSyntax {
		if needsNotNullGuard(m.sub) {
			for _, c := range m.sub.ExprColumns {
				conditions = append(conditions, sqlast.N(sqlast.IsNotNull, c))
			}
		}
		selectAST := sqlast.N(sqlast.Select, sqlast.N(sqlast.All, columnsAST...), m.sub.subquery.FromAST)
		if len(conditions) > 0 {
			selectAST.Args = append(selectAST.Args, sqlast.N(sqlast.Where, conditions...))
		}
		var exprAST sqlast.Node
		if len(columnsAST) == 1 {
			exprAST = itemColumns[0]
		} else {
			exprAST = sqlast.N(sqlast.Row, itemColumns...)
		}
		tag := sqlast.In
		if notIn {
			tag = sqlast.NotIn
		}
		return &BoolExprMonad{translator: m.translator, sql: sqlast.N(tag, exprAST, selectAST), flags: m.flags}, nil
	}

	for i := range itemColumns {
		conditions = append(conditions, sqlast.N(sqlast.Eq, itemColumns[i], columnsAST[i]))
	}
	tag := sqlast.Exists
	if notIn {
		tag = sqlast.NotExists
	}
	sql := sqlast.Node{Tag: tag, Args: append([]sqlast.Node{m.sub.subquery.FromAST}, sqlast.N(sqlast.Where, conditions...))}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}, nil
}

func needsNotNullGuard(sub *Translator) bool {
	return !sub.selectorIsRequiredAttr
}

func (m *QuerySetMonad) Nonzero() Monad {
	sql := sqlast.Node{Tag: sqlast.Exists, Args: append([]sqlast.Node{m.sub.subquery.FromAST}, sqlast.N(sqlast.Where, m.sub.Conditions...))}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}
}

func (m *QuerySetMonad) Negate() Monad {
	sql := sqlast.Node{Tag: sqlast.NotExists, Args: append([]sqlast.Node{m.sub.subquery.FromAST}, sqlast.N(sqlast.Where, m.sub.Conditions...))}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}
}

func (m *QuerySetMonad) subselect(itemType typesys.Type, selectAST sqlast.Node) Monad {
	sql := sqlast.N(sqlast.Select, selectAST, m.sub.subquery.FromAST, sqlast.N(sqlast.Where, m.sub.Conditions...))
	return NewExprMonad(m.translator, itemType, sql)
}

// Count implements len(queryset)/count(queryset): entity/tuple results
// count rows (DISTINCT-aware per dialect capability); scalar results count
// distinct values of the one projected expression.
func (m *QuerySetMonad) Count() (Monad, error) {
	if m.itemType.Kind == typesys.Entity || m.itemType.Kind == typesys.Tuple {
		if !m.sub.distinct {
			return m.subselect(typesys.Primitive(typesys.Int),
				sqlast.N(sqlast.Aggregates, sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)))), nil
		}
		if len(m.sub.ExprColumns) == 1 {
			return m.subselect(typesys.Primitive(typesys.Int),
				sqlast.Node{Tag: sqlast.Aggregates, Args: []sqlast.Node{{Tag: sqlast.Count, Args: append([]sqlast.Node{sqlast.Leaf(sqlast.Distinct)}, m.sub.ExprColumns...)}}}), nil
		}
		if m.translator.capability.RowValueSyntax {
			return m.subselect(typesys.Primitive(typesys.Int),
				sqlast.Node{Tag: sqlast.Aggregates, Args: []sqlast.Node{{Tag: sqlast.Count, Args: append([]sqlast.Node{sqlast.Leaf(sqlast.Distinct)}, m.sub.ExprColumns...)}}}), nil
		}
		return nil, &NotImplementedError{Msg: "counting distinct composite rows is not supported on this dialect: " + exprPlaceholder}
	}
	if len(m.sub.ExprColumns) == 1 {
		return m.subselect(typesys.Primitive(typesys.Int),
			sqlast.Node{Tag: sqlast.Aggregates, Args: []sqlast.Node{{Tag: sqlast.Count, Args: []sqlast.Node{sqlast.Leaf(sqlast.Distinct), m.sub.ExprColumns[0]}}}}), nil
	}
	return nil, &NotImplementedError{Msg: "count() of a multi-column query is not supported: " + exprPlaceholder}
}

// Aggregate implements sum/avg/min/max of a single-column selector.
func (m *QuerySetMonad) Aggregate(funcName string) (Monad, error) {
	if len(m.sub.ExprColumns) != 1 {
		return nil, &NotImplementedError{Msg: "aggregation requires a single-column query: " + exprPlaceholder}
	}
	switch funcName {
	case "SUM", "AVG":
		if !typesys.IsNumeric(m.itemType) {
			return nil, &TypeError{Msg: "function " + funcName + "() expects a numeric query in: " + exprPlaceholder}
		}
	case "MIN", "MAX":
		if !typesys.IsComparable(m.itemType) {
			return nil, &TypeError{Msg: "function " + funcName + "() cannot be applied in: " + exprPlaceholder}
		}
	}
	resultType := m.itemType
	if funcName == "AVG" {
		resultType = typesys.Primitive(typesys.Float)
	}
	selectAST := sqlast.N(sqlast.Aggregates, sqlast.N(sqlast.Tag(funcName), m.sub.ExprColumns[0]))
	return m.subselect(resultType, selectAST), nil
}
