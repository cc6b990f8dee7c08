// Package ast defines the input contract (spec.md §6.1): the parsed
// expression tree of a generator-style comprehension, produced by an
// external decompiler this module never implements.
package ast

// Node is implemented by every comprehension and host-expression node.
// Leaves carry a Src key into a vartypes map; every node can report the
// children it owns, for the `{EXPR}` source-rendering and propagation
// passes (spec.md §4.1, §7).
type Node interface {
	Children() []Node
	Src() string
}

type base struct {
	src string
}

func (b base) Src() string { return b.src }

// Comprehension is the root: `expr for q0 in S0 [if ...]* [for q1 in S1 ...]*`.
type Comprehension struct {
	base
	Expr  Node
	Quals []*For
}

func (c *Comprehension) Children() []Node {
	out := []Node{c.Expr}
	for _, q := range c.Quals {
		out = append(out, q)
	}
	return out
}

// For is one qualifier: `assign in Iter [if ...]*`.
type For struct {
	base
	Assign string
	Iter   Node
	Ifs    []*If
}

func (f *For) Children() []Node {
	out := []Node{f.Iter}
	for _, i := range f.Ifs {
		out = append(out, i)
	}
	return out
}

// If is one filter clause of a qualifier.
type If struct {
	base
	Test Node
}

func (i *If) Children() []Node { return []Node{i.Test} }

// Name is a bare identifier, either bound by a qualifier or external
// (resolved against vartypes).
type Name struct {
	base
	Ident    string
	External bool
	Constant bool
}

func NewName(src, ident string, external bool) Name {
	return Name{base: base{src: src}, Ident: ident, External: external}
}

func (n Name) Children() []Node { return nil }

// Getattr is `Expr.Attrname`.
type Getattr struct {
	base
	Expr     Node
	Attrname string
}

func (g *Getattr) Children() []Node { return []Node{g.Expr} }

// Const is a literal.
type Const struct {
	base
	Value interface{}
}

func (c *Const) Children() []Node { return nil }

// Tuple is a literal tuple `(a, b, ...)`.
type Tuple struct {
	base
	Elems []Node
}

func (t *Tuple) Children() []Node { return t.Elems }

// List is a literal list `[a, b, ...]`.
type List struct {
	base
	Elems []Node
}

func (l *List) Children() []Node { return l.Elems }

// CmpOp is one (operator, rhs) pair of a chained comparison.
type CmpOp struct {
	Op    string
	Right Node
}

// Compare is `Expr op1 rhs1 [op2 rhs2 ...]`.
type Compare struct {
	base
	Expr Node
	Ops  []CmpOp
}

func (c *Compare) Children() []Node {
	out := []Node{c.Expr}
	for _, o := range c.Ops {
		out = append(out, o.Right)
	}
	return out
}

// Keyword is one `name=value` call argument.
type Keyword struct {
	Name  string
	Value Node
}

// CallFunc is `Node(args..., *star, **dstar)`.
type CallFunc struct {
	base
	Func     Node
	Args     []Node
	Keywords []Keyword
	StarArgs Node
	DStarArgs Node
}

func (c *CallFunc) Children() []Node {
	out := []Node{c.Func}
	out = append(out, c.Args...)
	for _, kw := range c.Keywords {
		out = append(out, kw.Value)
	}
	if c.StarArgs != nil {
		out = append(out, c.StarArgs)
	}
	if c.DStarArgs != nil {
		out = append(out, c.DStarArgs)
	}
	return out
}

// Slice is `start:stop` inside a Subscript.
type Slice struct {
	base
	Start Node
	Stop  Node
}

func (s *Slice) Children() []Node {
	var out []Node
	if s.Start != nil {
		out = append(out, s.Start)
	}
	if s.Stop != nil {
		out = append(out, s.Stop)
	}
	return out
}

// Subscript is `Expr[sub]` or `Expr[SliceObj]`.
type Subscript struct {
	base
	Expr Node
	Subs []Node // either a single index expr, or a single *Slice
}

func (s *Subscript) Children() []Node { return append([]Node{s.Expr}, s.Subs...) }

// Lambda wraps a nested generator body, e.g. `lambda x: x.attr == v`.
type Lambda struct {
	base
	Params []string
	Body   Node
}

func (l *Lambda) Children() []Node { return []Node{l.Body} }

// BinOp covers Add/Sub/Mul/Div/Power.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

type BinOp struct {
	base
	Kind        BinOpKind
	Left, Right Node
}

func (b *BinOp) Children() []Node { return []Node{b.Left, b.Right} }

// UnarySub is `-Expr`.
type UnarySub struct {
	base
	Expr Node
}

func (u *UnarySub) Children() []Node { return []Node{u.Expr} }

// BoolOpKind covers And/Or.
type BoolOpKind int

const (
	BoolAnd BoolOpKind = iota
	BoolOr
)

type BoolOp struct {
	base
	Kind  BoolOpKind
	Exprs []Node
}

func (b *BoolOp) Children() []Node { return b.Exprs }

// Not is boolean negation.
type Not struct {
	base
	Expr Node
}

func (n *Not) Children() []Node { return []Node{n.Expr} }

// WithSrc is a helper for tests/fixtures building leaves with a src key.
func WithSrc(src string) Node {
	return &Const{base: base{src: src}}
}
