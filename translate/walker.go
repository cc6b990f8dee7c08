package translate

import (
	"github.com/ponyql/queryc/ast"
	"github.com/ponyql/queryc/typesys"
)

// walk is the type-directed recursive dispatch of spec.md §4.1 pass 1/2:
// every comprehension/host-expression node type lowers to exactly one
// Monad. Errors raised deep in the tree get their {EXPR} placeholder
// substituted here, at the point where the offending node's source text
// is available — the Go analogue of the original's `call()` wrapper.
func (tr *Translator) walk(node ast.Node) (Monad, error) {
	m, err := tr.dispatch(node)
	if err != nil {
		substituteErrorExpr(err, node.Src())
	}
	return m, err
}

// substituteErrorExpr fills in {EXPR} on any of the typed errors that
// carry an Expr field, in place, the one substitution point every error
// constructor in errors.go relies on.
func substituteErrorExpr(err error, src string) {
	switch e := err.(type) {
	case *TranslationError:
		if e.Expr == "" {
			e.Expr = src
		}
	case *IncomparableTypesError:
		if e.Expr == "" {
			e.Expr = src
		}
	case *TypeError:
		if e.Expr == "" {
			e.Expr = src
		}
	case *AttributeError:
		if e.Expr == "" {
			e.Expr = src
		}
	case *NotImplementedError:
		if e.Expr == "" {
			e.Expr = src
		}
	}
}

func (tr *Translator) dispatch(node ast.Node) (Monad, error) {
	switch n := node.(type) {
	case ast.Name:
		return tr.walkName(n)
	case *ast.Getattr:
		return tr.walkGetattr(n)
	case *ast.Const:
		return tr.walkConst(n)
	case *ast.Tuple:
		return tr.walkList(n.Elems)
	case *ast.List:
		return tr.walkList(n.Elems)
	case *ast.Compare:
		return tr.walkCompare(n)
	case *ast.CallFunc:
		return tr.walkCall(n)
	case *ast.Subscript:
		return tr.walkSubscript(n)
	case *ast.Lambda:
		return tr.walkLambda(n)
	case *ast.BinOp:
		return tr.walkBinOp(n)
	case *ast.UnarySub:
		return tr.walkUnarySub(n)
	case *ast.BoolOp:
		return tr.walkBoolOp(n)
	case *ast.Not:
		return tr.walkNot(n)
	default:
		return nil, &NotImplementedError{Msg: "unsupported expression form: " + exprPlaceholder}
	}
}

func (tr *Translator) walkName(n ast.Name) (Monad, error) {
	if tableref, ok := tr.boundVars[n.Ident]; ok && tableref != nil {
		return NewObjectMonad(tr, tableref), nil
	}
	if fm, ok := NewFuncMonad(tr, n.Ident); ok {
		return fm, nil
	}
	if n.Ident == "JOIN" {
		fm, _ := NewFuncMonad(tr, "JOIN")
		return fm, nil
	}
	t, ok := tr.vartypes[n.Ident]
	if !ok {
		if tr.parent != nil {
			return tr.parent.walkName(n)
		}
		return nil, &TranslationError{Msg: "unknown name: " + exprPlaceholder}
	}
	if t.Kind == typesys.SetOf && t.Item.Kind == typesys.Entity {
		entity, ok := tr.database.Get(t.Item.EntityName)
		if !ok {
			return nil, &TranslationError{Msg: "unknown entity: " + exprPlaceholder}
		}
		return NewEntityMonad(tr, entity), nil
	}
	if t.Kind == typesys.None {
		return NewNoneMonad(tr), nil
	}
	return NewParamMonad(tr, t, n.Ident), nil
}

func (tr *Translator) walkGetattr(n *ast.Getattr) (Monad, error) {
	base, err := tr.walk(n.Expr)
	if err != nil {
		return nil, err
	}
	accessor, ok := base.(AttrAccessor)
	if !ok {
		return nil, &AttributeError{Name: n.Attrname}
	}
	return accessor.Getattr(n.Attrname)
}

func (tr *Translator) walkConst(n *ast.Const) (Monad, error) {
	if n.Value == nil {
		return NewNoneMonad(tr), nil
	}
	switch v := n.Value.(type) {
	case string:
		return NewConstMonad(tr, typesys.Primitive(typesys.String), v), nil
	case int:
		return NewConstMonad(tr, typesys.Primitive(typesys.Int), v), nil
	case float64:
		return NewConstMonad(tr, typesys.Primitive(typesys.Float), v), nil
	case bool:
		return NewConstMonad(tr, typesys.Primitive(typesys.Bool), v), nil
	default:
		return nil, &NotImplementedError{Msg: "unsupported literal type: " + exprPlaceholder}
	}
}

func (tr *Translator) walkList(elems []ast.Node) (Monad, error) {
	items := make([]Monad, len(elems))
	for i, e := range elems {
		m, err := tr.walk(e)
		if err != nil {
			return nil, err
		}
		items[i] = m
	}
	return NewListMonad(tr, items)
}

func (tr *Translator) walkCompare(n *ast.Compare) (Monad, error) {
	left, err := tr.walk(n.Expr)
	if err != nil {
		return nil, err
	}
	var result Monad
	for _, op := range n.Ops {
		right, err := tr.walk(op.Right)
		if err != nil {
			return nil, err
		}
		var cmp Monad
		switch op.Op {
		case "in", "not in":
			container, ok := right.(Container)
			if !ok {
				return nil, &TypeError{Msg: "right operand of 'in' must be a collection: " + exprPlaceholder}
			}
			cmp, err = container.Contains(left, op.Op == "not in")
		default:
			comparer, ok := left.(Comparer)
			if !ok {
				return nil, &TypeError{Msg: "operand does not support comparison: " + exprPlaceholder}
			}
			cmp, err = comparer.Cmp(op.Op, right)
		}
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = cmp
		} else {
			result, err = NewAndMonad(tr, result, cmp)
			if err != nil {
				return nil, err
			}
		}
		left = right
	}
	return result, nil
}

func (tr *Translator) walkCall(n *ast.CallFunc) (Monad, error) {
	callee, err := tr.walk(n.Func)
	if err != nil {
		return nil, err
	}
	caller, ok := callee.(Caller)
	if !ok {
		return nil, &TypeError{Msg: "object is not callable: " + exprPlaceholder}
	}
	args := make([]Monad, len(n.Args))
	for i, a := range n.Args {
		m, err := tr.walk(a)
		if err != nil {
			return nil, err
		}
		args[i] = m
	}
	return caller.Call(args)
}

func (tr *Translator) walkSubscript(n *ast.Subscript) (Monad, error) {
	base, err := tr.walk(n.Expr)
	if err != nil {
		return nil, err
	}
	indexer, ok := base.(Indexer)
	if !ok {
		return nil, &TypeError{Msg: "object does not support indexing: " + exprPlaceholder}
	}
	if len(n.Subs) == 1 {
		if sl, ok := n.Subs[0].(*ast.Slice); ok {
			var startM, stopM Monad
			if sl.Start != nil {
				startM, err = tr.walk(sl.Start)
				if err != nil {
					return nil, err
				}
			}
			if sl.Stop != nil {
				stopM, err = tr.walk(sl.Stop)
				if err != nil {
					return nil, err
				}
			}
			return indexer.Slice(startM, stopM)
		}
		idx, err := tr.walk(n.Subs[0])
		if err != nil {
			return nil, err
		}
		return indexer.Index(idx)
	}
	return nil, &NotImplementedError{Msg: "unsupported subscript form: " + exprPlaceholder}
}

// walkLambda translates a nested generator/lambda body as its own
// sub-Translator and wraps the result in a QuerySetMonad (spec.md §3
// "QuerySetMonad"), correlated to the enclosing translator via its parent
// link so walkName can resolve outer-scope variables.
func (tr *Translator) walkLambda(n *ast.Lambda) (Monad, error) {
	sub := &Translator{
		database:                tr.database,
		capability:              tr.capability,
		vartypes:                tr.vartypes,
		parent:                  tr,
		subquery:                NewSubquery(tr.subquery, false),
		boundVars:               map[string]TableRef{},
		aggregatedSubqueryPaths: map[string]bool{},
	}
	for _, p := range n.Params {
		sub.boundVars[p] = nil // bound by an enclosing `for`, resolved via parent ObjectMonad
	}
	bodyMonad, err := sub.walk(n.Body)
	if err != nil {
		return nil, err
	}
	boolMonad, err := toBool(sub, bodyMonad)
	if err != nil {
		return nil, err
	}
	sub.Conditions = append(sub.Conditions, first(boolMonad.GetSQL()))
	sub.classifySelector(bodyMonad)
	return NewQuerySetMonad(tr, sub), nil
}

func (tr *Translator) walkBinOp(n *ast.BinOp) (Monad, error) {
	left, err := tr.walk(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := tr.walk(n.Right)
	if err != nil {
		return nil, err
	}
	arith, ok := left.(Arithmetic)
	if !ok {
		return nil, &TypeError{Msg: "operand does not support arithmetic: " + exprPlaceholder}
	}
	switch n.Kind {
	case ast.OpAdd:
		return arith.Add(right)
	case ast.OpSub:
		return arith.Sub(right)
	case ast.OpMul:
		return arith.Mul(right)
	case ast.OpDiv:
		return arith.Div(right)
	case ast.OpPow:
		return arith.Pow(right)
	default:
		return nil, &NotImplementedError{Msg: "unsupported arithmetic operator: " + exprPlaceholder}
	}
}

func (tr *Translator) walkUnarySub(n *ast.UnarySub) (Monad, error) {
	m, err := tr.walk(n.Expr)
	if err != nil {
		return nil, err
	}
	arith, ok := m.(Arithmetic)
	if !ok {
		return nil, &TypeError{Msg: "operand does not support unary minus: " + exprPlaceholder}
	}
	return arith.Neg()
}

func (tr *Translator) walkBoolOp(n *ast.BoolOp) (Monad, error) {
	operands := make([]Monad, len(n.Exprs))
	for i, e := range n.Exprs {
		m, err := tr.walk(e)
		if err != nil {
			return nil, err
		}
		operands[i] = m
	}
	if n.Kind == ast.BoolAnd {
		return NewAndMonad(tr, operands...)
	}
	return NewOrMonad(tr, operands...)
}

func (tr *Translator) walkNot(n *ast.Not) (Monad, error) {
	m, err := tr.walk(n.Expr)
	if err != nil {
		return nil, err
	}
	return negate(tr, m)
}
