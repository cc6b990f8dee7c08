package translate

import (
	"fmt"

	"github.com/ponyql/queryc/typesys"
)

// exprPlaceholder is substituted with the offending subexpression's
// rendered source at the dispatch boundary (spec.md §7 "{EXPR}").
const exprPlaceholder = "{EXPR}"

// TranslationError covers structural problems in the comprehension itself:
// multiple databases, illegal target names, unresolved names, selecting an
// external parameter as a result, HAVING without GROUP BY, and cartesian
// products across sets inside a NumericSetExprMonad.
type TranslationError struct {
	Msg  string
	Expr string
}

func (e *TranslationError) Error() string { return substituteExpr(e.Msg, e.Expr) }

// IncomparableTypesError carries both operand types so a caller can render
// a precise diagnostic.
type IncomparableTypesError struct {
	Type1, Type2 typesys.Type
	Expr         string
}

func (e *IncomparableTypesError) Error() string {
	return substituteExpr(fmt.Sprintf("Incomparable types %s and %s in expression: %s",
		e.Type1, e.Type2, exprPlaceholder), e.Expr)
}

// TypeError covers per-operation argument-type mismatches: startswith on a
// non-string, len/min/max on an unsupported type, calling a non-callable,
// or invoking a missing method.
type TypeError struct {
	Msg  string
	Expr string
}

func (e *TypeError) Error() string { return substituteExpr(e.Msg, e.Expr) }

// AttributeError is raised when an attribute name is not on the entity or
// not supported by the monad kind it is looked up against.
type AttributeError struct {
	Name string
	Expr string
}

func (e *AttributeError) Error() string {
	return substituteExpr(fmt.Sprintf("%s: %s", e.Name, exprPlaceholder), e.Expr)
}

// NotImplementedError covers well-defined but unsupported forms: *args,
// composite PK inside an aggregate on a dialect without row-value syntax
// and without a ROWID rescue, negative string slices, and similar.
type NotImplementedError struct {
	Msg  string
	Expr string
}

func (e *NotImplementedError) Error() string { return substituteExpr(e.Msg, e.Expr) }

// OptimizationFailed is the internal signal that a requested optimize path
// could not be applied; the caller retries construction without it. It
// carries no source context because it never escapes to the user.
type OptimizationFailed struct {
	Path string
}

func (e *OptimizationFailed) Error() string {
	return fmt.Sprintf("optimization failed for path %q", e.Path)
}

func substituteExpr(msg, expr string) string {
	if expr == "" {
		return msg
	}
	out := ""
	for i := 0; i < len(msg); {
		if i+len(exprPlaceholder) <= len(msg) && msg[i:i+len(exprPlaceholder)] == exprPlaceholder {
			out += expr
			i += len(exprPlaceholder)
			continue
		}
		out += string(msg[i])
		i++
	}
	return out
}

// checkContainment implements check_comparable's `in`/`not in` branch
// (original `sqltranslation.check_comparable`): the item's type is checked
// against the container's *item* type, not the container's own set type.
func checkContainment(item Monad, itemType typesys.Type) error {
	t1 := item.ValueType()
	if t1.Kind == typesys.Method {
		return &TypeError{Msg: "forgot parentheses? method used as a value: " + exprPlaceholder}
	}
	if !typesys.AreComparable(t1, itemType, "==") {
		return &IncomparableTypesError{Type1: t1, Type2: itemType}
	}
	return nil
}

func checkComparable(left, right Monad, op string) error {
	t1, t2 := left.ValueType(), right.ValueType()
	if t1.Kind == typesys.Method || t2.Kind == typesys.Method {
		return &TypeError{Msg: "forgot parentheses? method used as a value: " + exprPlaceholder}
	}
	if !typesys.AreComparable(t1, t2, op) {
		return &IncomparableTypesError{Type1: t1, Type2: t2}
	}
	return nil
}
