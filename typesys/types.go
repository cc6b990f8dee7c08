// Package typesys holds the normalised type system the translator reasons
// about: numeric, string, date, datetime, buffer, bool, None, entity, set,
// tuple, function and method types, plus the comparability and coercion
// rules between them.
package typesys

import "fmt"

// Kind tags a normalised type. User-facing primitive aliases collapse to
// one of these canonical forms before they ever reach a Type value.
type Kind int

const (
	Int Kind = iota
	Float
	Decimal
	Date
	Datetime
	Bool
	String
	Buffer
	None
	Entity
	SetOf
	Tuple
	Function
	Method
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case Datetime:
		return "datetime"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Buffer:
		return "buffer"
	case None:
		return "None"
	case Entity:
		return "entity"
	case SetOf:
		return "set"
	case Tuple:
		return "tuple"
	case Function:
		return "function"
	case Method:
		return "method"
	default:
		return "unknown"
	}
}

// Type is a normalised type. Most Kind values need only EntityName (for
// Entity/Method) or Item/Elems (for SetOf/Tuple); the rest carry no extra
// payload.
type Type struct {
	Kind       Kind
	EntityName string // Entity, Method
	MethodName string // Method
	Item       *Type  // SetOf
	Elems      []Type // Tuple
}

func Primitive(k Kind) Type { return Type{Kind: k} }

func NewEntity(name string) Type { return Type{Kind: Entity, EntityName: name} }

func NewSet(item Type) Type { return Type{Kind: SetOf, Item: &item} }

func NewTuple(elems ...Type) Type { return Type{Kind: Tuple, Elems: elems} }

func NewMethod(entityName, methodName string) Type {
	return Type{Kind: Method, EntityName: entityName, MethodName: methodName}
}

func (t Type) String() string {
	switch t.Kind {
	case Entity:
		return t.EntityName
	case SetOf:
		return "Set<" + t.Item.String() + ">"
	case Tuple:
		s := "("
		for i, e := range t.Elems {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case Method:
		return fmt.Sprintf("%s.%s", t.EntityName, t.MethodName)
	default:
		return t.Kind.String()
	}
}

func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case Entity:
		return t.EntityName == other.EntityName
	case Method:
		return t.EntityName == other.EntityName && t.MethodName == other.MethodName
	case SetOf:
		return t.Item.Equal(*other.Item)
	case Tuple:
		if len(t.Elems) != len(other.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(other.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// numericRank implements the int ⊂ float ⊂ Decimal coercion lattice.
func numericRank(k Kind) (int, bool) {
	switch k {
	case Int:
		return 0, true
	case Float:
		return 1, true
	case Decimal:
		return 2, true
	default:
		return 0, false
	}
}

func IsNumeric(t Type) bool {
	_, ok := numericRank(t.Kind)
	return ok
}

func IsComparable(t Type) bool {
	switch t.Kind {
	case Bool, Tuple, Entity:
		return false
	default:
		return true
	}
}

// Coerce returns the common type two numeric operands promote to, following
// int ⊂ float ⊂ Decimal. ok is false if either type is not numeric.
func Coerce(a, b Type) (Type, bool) {
	ra, oka := numericRank(a.Kind)
	rb, okb := numericRank(b.Kind)
	if !oka || !okb {
		return Type{}, false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}

// AreComparable implements the relation from spec.md §4.2: ==/!= between
// same-category types with numeric promotion; strings to strings; entities
// to entities sharing a root; None compares only for identity; <,<=,>,>=
// are forbidden on bool, tuple and entity.
func AreComparable(a, b Type, op string) bool {
	if a.Kind == None || b.Kind == None {
		return op == "==" || op == "!=" || op == "is" || op == "is not"
	}
	ordered := op == "<" || op == "<=" || op == ">" || op == ">="
	if ordered && (a.Kind == Bool || a.Kind == Tuple || a.Kind == Entity ||
		b.Kind == Bool || b.Kind == Tuple || b.Kind == Entity) {
		return false
	}
	if IsNumeric(a) && IsNumeric(b) {
		return true
	}
	if a.Kind == String && b.Kind == String {
		return true
	}
	if a.Kind == Entity && b.Kind == Entity {
		return a.EntityName == b.EntityName // same root entity, shared hierarchy resolved by caller
	}
	if a.Kind == Tuple && b.Kind == Tuple && !ordered {
		return len(a.Elems) == len(b.Elems)
	}
	return a.Kind == b.Kind && !ordered
}
