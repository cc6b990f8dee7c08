package translate

import (
	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// AttrSetMonad is a collection-valued attribute traversal, e.g. `s.marks`
// in `for s in Student`: a set of far-side rows correlated to the parent
// occurrence (spec.md §3 "AttrSetMonad"). Its own TableRef and Subquery are
// built lazily and cached, mirroring the original's subquery/tableref
// memoisation.
type AttrSetMonad struct {
	translator     *Translator
	parent         Monad
	attr           *schema.Attribute
	forcedDistinct bool
	flags          *Flags

	tableref     TableRef
	subquery     *Subquery
	exprListCache []sqlast.Node
}

func NewAttrSetMonad(tr *Translator, parent Monad, attr *schema.Attribute) *AttrSetMonad {
	return &AttrSetMonad{translator: tr, parent: parent, attr: attr, flags: newFlags()}
}

func (m *AttrSetMonad) ValueType() typesys.Type {
	return typesys.NewSet(typesys.Primitive(kindOfTypeName(m.attr.TypeName)))
}
func (m *AttrSetMonad) MonadFlags() *Flags { return m.flags }

func (m *AttrSetMonad) GetSQL() []sqlast.Node {
	m.makeTableRef(m.translator.subquery)
	return m.makeExprList()
}

// Distinct returns a copy forcing SUM/AVG to aggregate over DISTINCT
// values, mirroring the original's call_distinct shallow-copy trick.
func (m *AttrSetMonad) Distinct() *AttrSetMonad {
	copy := *m
	copy.forcedDistinct = true
	return &copy
}

func (m *AttrSetMonad) Getattr(name string) (Monad, error) {
	entity, ok := m.translator.database.Get(itemEntityName(m.attr))
	if !ok {
		return nil, &AttributeError{Name: name}
	}
	attr, ok := entity.Attr(name)
	if !ok {
		return nil, &AttributeError{Name: name}
	}
	return NewAttrSetMonad(m.translator, m, attr), nil
}

func itemEntityName(attr *schema.Attribute) string { return attr.TypeName }

// Contains implements spec.md §4.2 Containment's RHS-AttrSetMonad case:
// correlated IN/EXISTS outside hint_join; an INNER/LEFT JOIN rewrite with
// a distinct/all-null test inside it.
func (m *AttrSetMonad) Contains(item Monad, notIn bool) (Monad, error) {
	if err := checkContainment(item, typesys.Primitive(kindOfTypeName(m.attr.TypeName))); err != nil {
		return nil, err
	}
	tr := m.translator
	if !tr.hintJoin {
		sub, err := m.subselect()
		if err != nil {
			return nil, err
		}
		exprList := sub.exprList
		conds := append(append([]sqlast.Node{}, sub.Subquery.OuterConditions...), sub.Subquery.Conditions...)
		itemSQL := item.GetSQL()
		tag := sqlast.In
		if notIn {
			tag = sqlast.NotIn
		}
		switch {
		case len(exprList) == 1:
			sel := sqlast.N(sqlast.Select, sqlast.N(sqlast.All, exprList...), sub.Subquery.FromAST, sqlast.N(sqlast.Where, conds...))
			return &BoolExprMonad{translator: tr, sql: sqlast.N(tag, itemSQL[0], sel), flags: m.flags}, nil
		case tr.capability.RowValueSyntax:
			sel := sqlast.N(sqlast.Select, sqlast.N(sqlast.All, exprList...), sub.Subquery.FromAST, sqlast.N(sqlast.Where, conds...))
			row := sqlast.N(sqlast.Row, itemSQL...)
			return &BoolExprMonad{translator: tr, sql: sqlast.N(tag, row, sel), flags: m.flags}, nil
		default:
			for i := range itemSQL {
				conds = append(conds, sqlast.N(sqlast.Eq, itemSQL[i], exprList[i]))
			}
			existsTag := sqlast.Exists
			if notIn {
				existsTag = sqlast.NotExists
			}
			sql := sqlast.Node{Tag: existsTag, Args: append([]sqlast.Node{sub.Subquery.FromAST}, sqlast.N(sqlast.Where, conds...))}
			return &BoolExprMonad{translator: tr, sql: sql, flags: m.flags}, nil
		}
	}
	if !notIn {
		tr.distinct = true
		m.makeTableRef(tr.subquery)
		exprList := m.makeExprList()
		itemSQL := item.GetSQL()
		conds := make([]sqlast.Node, len(exprList))
		for i := range exprList {
			conds[i] = sqlast.N(sqlast.Eq, exprList[i], itemSQL[i])
		}
		return &BoolExprMonad{translator: tr, sql: sqlast.And(conds...), flags: m.flags}, nil
	}
	sub := NewSubquery(tr.subquery, false)
	m.makeTableRef(sub)
	itemSQL := item.GetSQL()
	exprList := m.makeExprList()
	tr.subquery.FromAST.Args = append(tr.subquery.FromAST.Args, sub.FromAST.Args...)
	conds := make([]sqlast.Node, len(exprList))
	for i := range exprList {
		conds[i] = sqlast.N(sqlast.IsNull, exprList[i])
	}
	_ = itemSQL
	return &BoolExprMonad{translator: tr, sql: sqlast.And(conds...), flags: m.flags}, nil
}

func (m *AttrSetMonad) requiresDistinct(joined bool, forCount bool) bool {
	if parentSet, ok := m.parent.(*AttrSetMonad); ok && parentSet.requiresDistinct(joined, false) {
		return true
	}
	if m.attr.Reverse == "" {
		return true
	}
	entity, ok := m.translator.database.Get(itemEntityName(m.attr))
	if !ok {
		return true
	}
	rev, ok := entity.Attr(m.attr.Reverse)
	if ok && rev.IsCollection {
		if !forCount && !m.translator.hintJoin {
			return true
		}
		if _, ok := m.parent.(*AttrSetMonad); ok {
			return true
		}
	}
	return false
}

func (m *AttrSetMonad) makeTableRef(sq *Subquery) TableRef {
	var parentRef TableRef
	switch p := m.parent.(type) {
	case *ObjectMonad:
		parentRef = p.tableref
	case *AttrSetMonad:
		parentRef = p.makeTableRef(sq)
	}
	if m.attr.Reverse != "" {
		namePath := parentRef.NamePath() + "-" + m.attr.Name
		if tr, ok := sq.GetTableRef(namePath); ok {
			m.tableref = tr
		} else {
			m.tableref = sq.AddTableRef(namePath, parentRef, m.attr.Name)
		}
	} else {
		m.tableref = parentRef
	}
	return m.tableref
}

func (m *AttrSetMonad) makeExprList() []sqlast.Node {
	pkOnly := m.attr.Reverse != "" || m.attr.PKOffset != nil
	alias, columns := m.tableref.MakeJoin(pkOnly)
	switch {
	case m.attr.Reverse != "":
	case m.attr.PKOffset != nil:
		offset := *m.attr.PKOffset
		columns = columns[offset : offset+len(m.attr.Columns)]
	default:
		columns = m.attr.Columns
	}
	nodes := make([]sqlast.Node, len(columns))
	for i, c := range columns {
		nodes[i] = sqlast.ColumnRef(alias, c)
	}
	return nodes
}

type attrsetSubquery struct {
	Subquery *Subquery
	exprList []sqlast.Node
}

func (m *AttrSetMonad) subselect() (*attrsetSubquery, error) {
	if m.subquery != nil {
		return &attrsetSubquery{Subquery: m.subquery, exprList: m.exprListCache}, nil
	}
	sq := NewSubquery(m.translator.subquery, false)
	m.makeTableRef(sq)
	exprList := m.makeExprList()
	if m.attr.Reverse == "" && !m.attr.IsRequired {
		for _, e := range exprList {
			sq.Conditions = append(sq.Conditions, sqlast.N(sqlast.IsNotNull, e))
		}
	}
	if sq != m.translator.subquery && len(sq.FromAST.Args) > 0 {
		// The first join item is the one correlated to the outer query: its
		// ON clause moves to OuterConditions and the table stays in FROM.
		firstItem := sq.FromAST.Args[0]
		if n := len(firstItem.Args); n > 0 {
			sq.OuterConditions = []sqlast.Node{firstItem.Args[n-1]}
			firstItem.Args = firstItem.Args[:n-1]
			sq.FromAST.Args[0] = firstItem
		}
	}
	m.subquery = sq
	m.exprListCache = exprList
	return &attrsetSubquery{Subquery: sq, exprList: exprList}, nil
}

// Aggregate implements sum/avg/min/max over the collection, choosing
// between a correlated scalar subselect and a hint_join materialised join
// exactly as spec.md §4.2/§4.4/§4.5 describe.
func (m *AttrSetMonad) Aggregate(funcName string) (Monad, error) {
	itemType := typesys.Primitive(kindOfTypeName(m.attr.TypeName))
	switch funcName {
	case "SUM", "AVG":
		if !typesys.IsNumeric(itemType) {
			return nil, &TypeError{Msg: "function " + funcName + "() expects a numeric collection in: " + exprPlaceholder}
		}
	case "MIN", "MAX":
		if !typesys.IsComparable(itemType) {
			return nil, &TypeError{Msg: "function " + funcName + "() expects a comparable collection in: " + exprPlaceholder}
		}
	}
	makeAggr := func(exprList []sqlast.Node) sqlast.Node {
		args := append([]sqlast.Node{}, exprList...)
		if m.forcedDistinct && (funcName == "SUM" || funcName == "AVG") {
			args = append([]sqlast.Node{sqlast.Leaf(sqlast.Distinct)}, args...)
		} else {
			args = append([]sqlast.Node{sqlast.Leaf(sqlast.All)}, args...)
		}
		return sqlast.Node{Tag: sqlast.Tag(funcName), Args: args}
	}

	tr := m.translator
	var sqlAST sqlast.Node
	var optimized bool
	var err error
	if tr.hintJoin {
		sqlAST, optimized, err = m.joinedSubselect(makeAggr, false, funcName == "SUM")
	} else {
		sqlAST, optimized, err = m.aggregatedScalarSubselect(makeAggr, false)
	}
	if err != nil {
		return nil, err
	}
	resultType := itemType
	if funcName == "AVG" {
		resultType = typesys.Primitive(typesys.Float)
	}
	if m.tableref != nil {
		tr.aggregatedSubqueryPaths[m.tableref.NamePath()] = true
	}
	result := NewExprMonad(tr, resultType, sqlAST)
	if optimized {
		result.flags.Aggregated = true
	} else {
		result.flags.NoGroup = true
	}
	return result, nil
}

// Count implements len(s.marks)/count(s.marks), dispatching on dialect
// capability for the composite-PK distinct-count strategy (spec.md §4.2).
func (m *AttrSetMonad) Count() (Monad, error) {
	tr := m.translator
	sub, err := m.subselect()
	if err != nil {
		return nil, err
	}
	exprList := sub.exprList
	distinct := m.requiresDistinct(tr.hintJoin, true)

	var makeAggr func([]sqlast.Node) sqlast.Node
	var sqlAST sqlast.Node
	extraGrouping := false
	hasSQL := false

	switch {
	case !distinct && (m.tableref == nil || m.tableref.NamePath() != tr.optimize):
		makeAggr = func([]sqlast.Node) sqlast.Node { return sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)) }
	case len(exprList) == 1:
		makeAggr = func(el []sqlast.Node) sqlast.Node {
			return sqlast.Node{Tag: sqlast.Count, Args: append([]sqlast.Node{sqlast.Leaf(sqlast.Distinct)}, el...)}
		}
	case tr.capability.Dialect == dialect.Oracle:
		if m.tableref != nil && m.tableref.NamePath() == tr.optimize {
			return nil, &OptimizationFailed{Path: tr.optimize}
		}
		extraGrouping = true
		if tr.hintJoin {
			makeAggr = func([]sqlast.Node) sqlast.Node { return sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)) }
		} else {
			makeAggr = func([]sqlast.Node) sqlast.Node {
				return sqlast.Node{Tag: sqlast.Count, Args: []sqlast.Node{sqlast.Leaf(sqlast.All), sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All))}}
			}
		}
	case tr.capability.RowValueSyntax:
		makeAggr = func(el []sqlast.Node) sqlast.Node {
			return sqlast.Node{Tag: sqlast.Count, Args: append([]sqlast.Node{sqlast.Leaf(sqlast.Distinct)}, el...)}
		}
	case tr.capability.Dialect == dialect.SQLite:
		switch {
		case !distinct:
			alias, _ := m.tableref.MakeJoin(true)
			makeAggr = func([]sqlast.Node) sqlast.Node {
				return sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All), sqlast.ColumnRef(alias, "ROWID"))
			}
		case tr.hintJoin:
			extraGrouping = true
			makeAggr = func([]sqlast.Node) sqlast.Node { return sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All)) }
		case tr.capability.RowidRescue:
			alias, _ := m.tableref.MakeJoin(false)
			makeAggr = func([]sqlast.Node) sqlast.Node {
				return sqlast.Node{Tag: sqlast.Count, Args: []sqlast.Node{sqlast.Leaf(sqlast.Distinct), sqlast.ColumnRef(alias, "ROWID")}}
			}
		default:
			inner := sqlast.N(sqlast.Select,
				sqlast.Node{Tag: sqlast.Distinct, Args: exprList},
				sub.Subquery.FromAST,
				sqlast.N(sqlast.Where, append(append([]sqlast.Node{}, sub.Subquery.OuterConditions...), sub.Subquery.Conditions...)...))
			sqlAST = sqlast.N(sqlast.Select,
				sqlast.N(sqlast.Aggregates, sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All))),
				sqlast.N(sqlast.From, inner))
			hasSQL = true
		}
	default:
		return nil, &NotImplementedError{Msg: "unsupported dialect for len()/count(): " + exprPlaceholder}
	}

	var optimized bool
	var err2 error
	if hasSQL {
		optimized = false
	} else if tr.hintJoin {
		sqlAST, optimized, err2 = m.joinedSubselect(makeAggr, extraGrouping, true)
	} else {
		sqlAST, optimized, err2 = m.aggregatedScalarSubselect(makeAggr, extraGrouping)
	}
	if err2 != nil {
		return nil, err2
	}
	if m.tableref != nil {
		tr.aggregatedSubqueryPaths[m.tableref.NamePath()] = true
	}
	result := NewExprMonad(tr, typesys.Primitive(typesys.Int), sqlAST)
	if optimized {
		result.flags.Aggregated = true
	} else {
		result.flags.NoGroup = true
	}
	return result, nil
}

// Nonzero/Negate implement `if s.marks:` truthiness as a correlated
// EXISTS/NOT EXISTS (spec.md §3 table).
func (m *AttrSetMonad) Nonzero() Monad {
	sub, err := m.subselect()
	if err != nil {
		return &BoolExprMonad{translator: m.translator, sql: sqlast.Leaf(sqlast.Value), flags: m.flags}
	}
	conds := append(append([]sqlast.Node{}, sub.Subquery.OuterConditions...), sub.Subquery.Conditions...)
	sql := sqlast.Node{Tag: sqlast.Exists, Args: append([]sqlast.Node{sub.Subquery.FromAST}, sqlast.N(sqlast.Where, conds...))}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}
}

func (m *AttrSetMonad) Negate() Monad {
	sub, err := m.subselect()
	if err != nil {
		return &NotMonad{translator: m.translator, operand: m.Nonzero(), flags: m.flags}
	}
	conds := append(append([]sqlast.Node{}, sub.Subquery.OuterConditions...), sub.Subquery.Conditions...)
	sql := sqlast.Node{Tag: sqlast.NotExists, Args: append([]sqlast.Node{sub.Subquery.FromAST}, sqlast.N(sqlast.Where, conds...))}
	return &BoolExprMonad{translator: m.translator, sql: sql, flags: m.flags}
}

func (m *AttrSetMonad) Add(other Monad) (Monad, error) { return m.arith("+", sqlast.Add, other) }
func (m *AttrSetMonad) Sub(other Monad) (Monad, error) { return m.arith("-", sqlast.Sub, other) }
func (m *AttrSetMonad) Mul(other Monad) (Monad, error) { return m.arith("*", sqlast.Mul, other) }
func (m *AttrSetMonad) Div(other Monad) (Monad, error) { return m.arith("/", sqlast.Div, other) }
func (m *AttrSetMonad) Pow(other Monad) (Monad, error) { return m.arith("**", sqlast.Pow, other) }
func (m *AttrSetMonad) Neg() (Monad, error) {
	return nil, &NotImplementedError{Msg: "unary minus is not supported on a collection: " + exprPlaceholder}
}

func (m *AttrSetMonad) arith(opName string, tag sqlast.Tag, other Monad) (Monad, error) {
	return newNumericSetExprMonad(m.translator, opName, tag, m, other)
}

// aggregatedScalarSubselect emits the correlated-subselect form used
// outside hint_join mode, applying the "optimize" shortcut that splices
// the inner FROM into the outer query when this tableref's name_path is
// the one the caller asked to optimize (spec.md §4.4 step 4).
func (m *AttrSetMonad) aggregatedScalarSubselect(makeAggr func([]sqlast.Node) sqlast.Node, extraGrouping bool) (sqlast.Node, bool, error) {
	sub, err := m.subselect()
	if err != nil {
		return sqlast.Node{}, false, err
	}
	tr := m.translator
	optimized := false
	var sqlAST sqlast.Node
	if m.tableref != nil && tr.optimize == m.tableref.NamePath() {
		sqlAST = makeAggr(sub.exprList)
		optimized = true
		if !tr.fromOptimized {
			extra := append([]sqlast.Node{}, sub.Subquery.FromAST.Args...)
			if len(extra) > 0 {
				firstItem := extra[0]
				firstItem.Args = append(append([]sqlast.Node{}, firstItem.Args...), sub.Subquery.OuterConditions...)
				extra[0] = firstItem
			}
			tr.subquery.FromAST.Args = append(tr.subquery.FromAST.Args, extra...)
			tr.fromOptimized = true
		}
	} else {
		conds := append(append([]sqlast.Node{}, sub.Subquery.OuterConditions...), sub.Subquery.Conditions...)
		sqlAST = sqlast.N(sqlast.Select, sqlast.N(sqlast.Aggregates, makeAggr(sub.exprList)),
			sub.Subquery.FromAST, sqlast.N(sqlast.Where, conds...))
	}
	if extraGrouping {
		sqlAST.Args = append(sqlAST.Args, sqlast.N(sqlast.GroupBy, sub.exprList...))
	}
	return sqlAST, optimized, nil
}

// joinedSubselect emits the materialised-join form used in hint_join mode:
// the aggregate is computed in a FROM-clause subquery grouped by the
// correlating columns, then joined back on equality (spec.md §4.5).
func (m *AttrSetMonad) joinedSubselect(makeAggr func([]sqlast.Node) sqlast.Node, extraGrouping bool, coalesceToZero bool) (sqlast.Node, bool, error) {
	sub, err := m.subselect()
	if err != nil {
		return sqlast.Node{}, false, err
	}
	tr := m.translator
	groupByColumns := append([]sqlast.Node{}, sub.Subquery.OuterConditions...)
	// OuterConditions each carry an EQ(outer, inner); take the inner side.
	gb := make([]sqlast.Node, 0, len(groupByColumns))
	for _, cond := range groupByColumns {
		if len(cond.Args) == 2 {
			gb = append(gb, cond.Args[1])
		}
	}
	fromAST := sub.Subquery.FromAST

	columns := append([]sqlast.Node{sqlast.Leaf(sqlast.All)}, gb...)
	cols := make([]sqlast.Node, 0, len(gb)+1)
	cols = append(cols, sqlast.Leaf(sqlast.All))
	for _, c := range gb {
		cols = append(cols, sqlast.As(c, c.Str))
	}
	_ = columns
	exprName := tr.subquery.NextExprName()
	cols = append(cols, sqlast.As(makeAggr(sub.exprList), exprName))

	subqueryAST := sqlast.N(sqlast.Select, sqlast.N(sqlast.All, cols...), fromAST)
	if len(sub.Subquery.Conditions) > 0 {
		subqueryAST.Args = append(subqueryAST.Args, sqlast.N(sqlast.Where, sub.Subquery.Conditions...))
	}
	subqueryAST.Args = append(subqueryAST.Args, sqlast.N(sqlast.GroupBy, gb...))

	alias := tr.subquery.GetShortAlias("", "t")
	outerConds := make([]sqlast.Node, len(sub.Subquery.OuterConditions))
	for i, cond := range sub.Subquery.OuterConditions {
		left := cond.Args[0]
		outerConds[i] = sqlast.N(sqlast.Eq, left, sqlast.ColumnRef(alias, gb[i].Str))
	}
	tr.subquery.FromAST.Args = append(tr.subquery.FromAST.Args,
		sqlast.Node{Tag: sqlast.Table, Str: alias, Args: []sqlast.Node{subqueryAST, sqlast.And(outerConds...)}})
	exprAST := sqlast.ColumnRef(alias, exprName)
	if coalesceToZero {
		exprAST = sqlast.N(sqlast.Coalesce, exprAST, sqlast.IntValue(0))
	}
	return exprAST, false, nil
}

var _ Aggregator = (*AttrSetMonad)(nil)
var _ Container = (*AttrSetMonad)(nil)
var _ Truthy = (*AttrSetMonad)(nil)
var _ Negator = (*AttrSetMonad)(nil)
var _ Arithmetic = (*AttrSetMonad)(nil)
var _ AttrAccessor = (*AttrSetMonad)(nil)
