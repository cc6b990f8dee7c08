// Package translate is the two-pass compiler at the centre of this module:
// it consumes a comprehension's parsed AST plus a type environment and
// produces a sqlast.Node tree (spec.md §1, §2). Its core IR is the Monad
// algebra of spec.md §3/§4.2, modelled here as a tagged sum: a minimal
// Monad interface every variant implements, plus small capability
// interfaces (Comparer, Container, Aggregator, ...) that only the variants
// supporting that operation implement. Using an unsupported operation is a
// type assertion that fails at call time, surfaced as a TypeError — the
// "construction-time diagnostic" spec.md §9 asks for, translated to Go's
// idiom of checking an interface satisfaction instead of raising on a
// missing Python attribute.
package translate

import (
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// Flags carries the aggregated/nogroup propagation state shared across a
// monad tree (spec.md §4.2 "The aggregated/nogroup propagation rule").
// Sentinel method-only and JOIN-pseudo types have no flags at all.
type Flags struct {
	Aggregated bool
	NoGroup    bool
}

// Monad is the minimal surface every IR node implements.
type Monad interface {
	// ValueType reports the node's normalised type, or one of the
	// sentinel kinds carried out-of-band by concrete METHOD/JOIN monads.
	ValueType() typesys.Type
	// GetSQL returns the column expressions this monad evaluates to. Most
	// scalar monads return exactly one; entity/tuple monads return one per
	// component.
	GetSQL() []sqlast.Node
	// MonadFlags exposes the shared aggregation bookkeeping; nil for
	// monads that can never be aggregated (entity/method).
	MonadFlags() *Flags
}

// Comparer is implemented by monads supporting ==, !=, <, <=, >, >=.
type Comparer interface {
	Cmp(op string, other Monad) (Monad, error)
}

// Container is implemented by monads that can appear on the right of `in`.
type Container interface {
	Contains(item Monad, notIn bool) (Monad, error)
}

// Negator is implemented by monads that can be boolean-negated directly
// (rather than being wrapped in a fresh NotMonad).
type Negator interface {
	Negate() Monad
}

// Truthy is implemented by monads that know how to become a boolean monad
// under Python-style truthiness (`if s.marks:`).
type Truthy interface {
	Nonzero() Monad
}

// AttrAccessor is implemented by monads supporting `.attr` access.
type AttrAccessor interface {
	Getattr(name string) (Monad, error)
}

// Caller is implemented by monads that can be invoked, i.e. MethodMonad and
// the FuncMonad family.
type Caller interface {
	Call(args []Monad) (Monad, error)
}

// Aggregator is implemented by set-shaped monads supporting
// count/sum/avg/min/max.
type Aggregator interface {
	Aggregate(funcName string) (Monad, error)
	Count() (Monad, error)
}

// Arithmetic is implemented by monads supporting +, -, *, /, **, unary -.
type Arithmetic interface {
	Add(other Monad) (Monad, error)
	Sub(other Monad) (Monad, error)
	Mul(other Monad) (Monad, error)
	Div(other Monad) (Monad, error)
	Pow(other Monad) (Monad, error)
	Neg() (Monad, error)
}

// Indexer is implemented by string-shaped monads supporting [i] and [a:b].
type Indexer interface {
	Index(i Monad) (Monad, error)
	Slice(start, stop Monad) (Monad, error)
}

func newFlags() *Flags { return &Flags{} }

// mergeFlags implements spec.md §4.2's propagation rule: a parent monad
// inherits aggregated/nogroup from its children unless it is itself an
// aggregate, and flags an error if an already-aggregated child is mixed
// with a nogroup sibling at the same level.
func mergeFlags(children ...Monad) (*Flags, error) {
	f := newFlags()
	for _, c := range children {
		if c == nil {
			continue
		}
		cf := c.MonadFlags()
		if cf == nil {
			continue
		}
		if cf.Aggregated {
			f.Aggregated = true
		}
		if cf.NoGroup {
			f.NoGroup = true
		}
	}
	if f.Aggregated && f.NoGroup {
		return f, &NotImplementedError{Msg: "Aggregation functions with different semantics cannot be mixed. Got: " + exprPlaceholder}
	}
	return f, nil
}
