package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// DescMonad wraps an ORDER_BY key to sort descending; it is otherwise a
// transparent passthrough over its wrapped expression (spec.md §3 table,
// `desc()` row).
type DescMonad struct {
	expr Monad
}

func NewDescMonad(expr Monad) *DescMonad { return &DescMonad{expr: expr} }

func (m *DescMonad) ValueType() typesys.Type { return m.expr.ValueType() }
func (m *DescMonad) MonadFlags() *Flags      { return m.expr.MonadFlags() }

func (m *DescMonad) GetSQL() []sqlast.Node {
	items := m.expr.GetSQL()
	out := make([]sqlast.Node, len(items))
	for i, it := range items {
		out[i] = sqlast.N(sqlast.Desc, it)
	}
	return out
}

// Inner exposes the wrapped monad, used by the driver to detect a DESC key
// when building ORDER_BY without double-wrapping it.
func (m *DescMonad) Inner() Monad { return m.expr }
