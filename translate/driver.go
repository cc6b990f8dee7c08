package translate

import (
	"github.com/ponyql/queryc/ast"
	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// Translator is the two-pass compiler of spec.md §1/§2: constructed once
// from a comprehension AST plus a type environment, consumed once, single
// goroutine, no shared mutable state beyond the caller-owned caches in
// cache.go (spec.md §5).
type Translator struct {
	database   *schema.Database
	capability dialect.Capability
	vartypes   map[string]typesys.Type

	parent *Translator
	left   bool // this Translator is a nested subtranslator for a left-side lambda

	subquery *Subquery

	boundVars map[string]TableRef // qualifier target name -> its TableRef

	hintJoin      bool
	distinct      bool
	optimize      string
	fromOptimized bool

	aggregatedSubqueryPaths map[string]bool

	Conditions       []sqlast.Node
	HavingConditions []sqlast.Node
	GroupbyMonads    []Monad

	ExprType    typesys.Type
	ExprColumns []sqlast.Node

	selectorIsRequiredAttr bool

	tree *ast.Comprehension
}

// New implements spec.md §2's control flow: declares a TableRef per
// qualifier into a fresh Subquery, walks each qualifier's `if` clauses
// bottom-up into Conditions, then walks the selector expression and
// classifies it.
func New(tree *ast.Comprehension, vartypes map[string]typesys.Type, db *schema.Database, cap dialect.Capability, parent *Translator, leftJoin bool, optimize string) (*Translator, error) {
	tr := &Translator{
		database:                db,
		capability:              cap,
		vartypes:                vartypes,
		parent:                  parent,
		left:                    leftJoin,
		subquery:                NewSubquery(parentSubquery(parent), leftJoin),
		boundVars:               map[string]TableRef{},
		optimize:                optimize,
		aggregatedSubqueryPaths: map[string]bool{},
		tree:                    tree,
	}

	for i, q := range tree.Quals {
		// spec.md §4.1 step 1.d: every qualifier after the first forces
		// distinct, since joining in a second independent row source can
		// multiply the first one's rows.
		if i > 0 {
			tr.distinct = true
		}

		switch iter := q.Iter.(type) {
		case ast.Name:
			if !iter.External {
				return nil, &TranslationError{Msg: "qualifier source must be an entity collection or an attribute reference rooted at a bound qualifier: " + exprPlaceholder}
			}
			t, ok := vartypes[iter.Ident]
			if !ok || t.Kind != typesys.SetOf || t.Item.Kind != typesys.Entity {
				return nil, &TranslationError{Msg: "qualifier source must be an entity collection: " + exprPlaceholder}
			}
			entity, ok := db.Get(t.Item.EntityName)
			if !ok {
				return nil, &TranslationError{Msg: "unknown entity: " + exprPlaceholder}
			}
			root := NewRootTableRef(tr.subquery, q.Assign, entity)
			tr.subquery.AddRootTableRef(q.Assign, root)
			tr.boundVars[q.Assign] = root
		case *ast.Getattr:
			ref, err := tr.bindChainedQualifier(iter)
			if err != nil {
				return nil, err
			}
			tr.boundVars[q.Assign] = ref
		default:
			return nil, &TranslationError{Msg: "qualifier source must be an entity or attribute reference: " + exprPlaceholder}
		}

		for _, ifClause := range q.Ifs {
			m, err := tr.walk(ifClause.Test)
			if err != nil {
				return nil, err
			}
			boolM, err := toBool(tr, m)
			if err != nil {
				return nil, err
			}
			flags := boolM.MonadFlags()
			target := &tr.Conditions
			if flags != nil && flags.Aggregated {
				target = &tr.HavingConditions
				tr.GroupbyMonads = append(tr.GroupbyMonads, m)
			}
			if and, ok := boolM.(*AndMonad); ok {
				for _, op := range and.Operands() {
					*target = append(*target, first(op.GetSQL()))
				}
			} else {
				*target = append(*target, first(boolM.GetSQL()))
			}
		}
		tr.hintJoin = false
	}

	selMonad, err := tr.walk(tree.Expr)
	if err != nil {
		return nil, err
	}
	tr.classifySelector(selMonad)
	return tr, nil
}

func parentSubquery(parent *Translator) *Subquery {
	if parent == nil {
		return nil
	}
	return parent.subquery
}

// bindChainedQualifier resolves a qualifier source of the form
// `parent.a.b.c` (spec.md §4.1 step 1.b.ii): the root must already be a
// bound qualifier target, and each attribute in the chain creates (or
// reuses) a JoinedTableRef the same way ObjectMonad.Getattr does for
// in-expression traversal (monad_object.go). Unlike Getattr, a collection
// attribute here is still joined directly rather than lowered to an
// AttrSetMonad, since it is the thing being iterated over, and any
// many-to-many step along the way forces distinct per spec.md §4.1 step 1.d.
func (tr *Translator) bindChainedQualifier(getattr *ast.Getattr) (TableRef, error) {
	names, rootIdent, err := flattenGetattrChain(getattr)
	if err != nil {
		return nil, err
	}
	ref, ok := tr.boundVars[rootIdent]
	if !ok {
		return nil, &TranslationError{Msg: "qualifier attribute chain must be rooted at a previously bound qualifier: " + exprPlaceholder}
	}

	for _, name := range names {
		entity := ref.Entity()
		attr, ok := entity.Attr(name)
		if !ok {
			return nil, &AttributeError{Name: name}
		}
		if attr.TypeName == "" || !isEntityType(attr) {
			return nil, &TranslationError{Msg: "qualifier attribute chain must traverse entity attributes: " + exprPlaceholder}
		}
		if attr.M2M != nil {
			tr.distinct = true
		}

		namePath := ref.NamePath() + "-" + attr.Name
		sq := tr.subquery
		next, ok := sq.GetTableRef(namePath)
		if !ok {
			joined := sq.AddTableRef(namePath, ref, attr.Name)
			farEntity, _ := tr.database.Get(attr.TypeName)
			joined.entity = farEntity
			next = joined
		}
		ref = next
	}
	return ref, nil
}

// flattenGetattrChain unwinds a right-leaning Getattr chain into the
// ordered list of attribute names from root to leaf, plus the identifier
// of the bound qualifier variable the chain is rooted at.
func flattenGetattrChain(node *ast.Getattr) ([]string, string, error) {
	var chain []string
	var cur ast.Node = node
	for {
		switch n := cur.(type) {
		case *ast.Getattr:
			chain = append(chain, n.Attrname)
			cur = n.Expr
		case ast.Name:
			if n.External {
				return nil, "", &TranslationError{Msg: "qualifier attribute chain must be rooted at a bound qualifier, not an external name: " + exprPlaceholder}
			}
			for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
				chain[i], chain[j] = chain[j], chain[i]
			}
			return chain, n.Ident, nil
		default:
			return nil, "", &TranslationError{Msg: "qualifier source must be an entity or attribute reference: " + exprPlaceholder}
		}
	}
}

func toBool(tr *Translator, m Monad) (Monad, error) {
	if m.ValueType().Kind == typesys.Bool {
		return m, nil
	}
	t, ok := m.(Truthy)
	if !ok {
		return nil, &TypeError{Msg: "expected a boolean expression: " + exprPlaceholder}
	}
	return t.Nonzero(), nil
}

// classifySelector implements spec.md §4.1 pass 3's row-layout step: an
// ObjectMonad/EntityMonad selector projects the PK tuple; a ListMonad
// projects each element; any other monad is a single scalar column.
func (tr *Translator) classifySelector(m Monad) {
	tr.ExprType = m.ValueType()
	switch v := m.(type) {
	case *ListMonad:
		tr.ExprColumns = v.GetSQL()
	default:
		tr.ExprColumns = m.GetSQL()
		if s, ok := m.(*ScalarMonad); ok && s.role == roleAttr {
			tr.selectorIsRequiredAttr = true
		}
	}
}

// ConstructSQLAST assembles the final SELECT per spec.md §4.1 step 3:
// FROM/WHERE/GROUP_BY/HAVING/ORDER_BY/LIMIT, with an optional
// aggr_func_name override and the COUNT-with-DISTINCT composite wrapping.
func (tr *Translator) ConstructSQLAST(limit *[2]int, distinctOverride *bool, aggrFuncName string, orderBy []Monad) sqlast.Node {
	distinct := tr.distinct
	if distinctOverride != nil {
		distinct = *distinctOverride
	}

	selectCols := sqlast.N(sqlast.All)
	if distinct {
		selectCols = sqlast.N(sqlast.Distinct)
	}
	if aggrFuncName != "" {
		aggrExpr := sqlast.Node{Tag: sqlast.Tag(aggrFuncName), Args: tr.ExprColumns}
		selectCols = sqlast.N(sqlast.Aggregates, aggrExpr)
	} else {
		selectCols.Args = append(selectCols.Args, tr.ExprColumns...)
	}

	sel := sqlast.N(sqlast.Select, selectCols, tr.subquery.FromAST)
	if len(tr.Conditions) > 0 {
		sel.Args = append(sel.Args, sqlast.N(sqlast.Where, tr.Conditions...))
	}
	if len(tr.GroupbyMonads) > 0 {
		var gb []sqlast.Node
		for _, g := range tr.GroupbyMonads {
			gb = append(gb, g.GetSQL()...)
		}
		sel.Args = append(sel.Args, sqlast.N(sqlast.GroupBy, gb...))
	}
	if len(tr.HavingConditions) > 0 {
		sel.Args = append(sel.Args, sqlast.N(sqlast.Having, tr.HavingConditions...))
	}
	if len(orderBy) > 0 {
		var ob []sqlast.Node
		for _, o := range orderBy {
			ob = append(ob, o.GetSQL()...)
		}
		sel.Args = append(sel.Args, sqlast.N(sqlast.OrderBy, ob...))
	}
	if limit != nil {
		sel.Args = append(sel.Args, sqlast.N(sqlast.Limit, sqlast.IntValue(limit[0]), sqlast.IntValue(limit[1])))
	}

	if aggrFuncName == "COUNT" && distinct && tr.ExprType.Kind == typesys.Entity && len(tr.ExprColumns) > 1 && !tr.capability.CompositeCountDistinct {
		inner := sqlast.N(sqlast.Select, sqlast.N(sqlast.Distinct, tr.ExprColumns...), tr.subquery.FromAST)
		if len(tr.Conditions) > 0 {
			inner.Args = append(inner.Args, sqlast.N(sqlast.Where, tr.Conditions...))
		}
		sel = sqlast.N(sqlast.Select, sqlast.N(sqlast.Aggregates, sqlast.N(sqlast.Count, sqlast.Leaf(sqlast.All))),
			sqlast.N(sqlast.From, sqlast.Node{Tag: sqlast.Table, Str: "t", Args: []sqlast.Node{inner}}))
	}

	return sel
}
