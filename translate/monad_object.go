package translate

import (
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// ObjectMonad represents a bound entity occurrence: either the iteration
// variable itself (ObjectIterMonad in spec.md §3) or the result of
// traversing a non-collection entity attribute (ObjectAttrMonad). Both
// roles collapse to one Go type because their only difference in Pony is
// which mixin supplies GetSQL/Getattr, and both read directly off a
// TableRef.
type ObjectMonad struct {
	translator *Translator
	entity     *schema.Entity
	tableref   TableRef
	flags      *Flags
}

func NewObjectMonad(tr *Translator, tableref TableRef) *ObjectMonad {
	return &ObjectMonad{translator: tr, entity: tableref.Entity(), tableref: tableref, flags: newFlags()}
}

func (m *ObjectMonad) ValueType() typesys.Type  { return typesys.NewEntity(m.entity.Name) }
func (m *ObjectMonad) MonadFlags() *Flags       { return m.flags }
func (m *ObjectMonad) TableRef() TableRef       { return m.tableref }

// GetSQL joins (if not already joined) and returns the entity's PK column
// expressions on its alias — an ObjectMonad always denotes the PK tuple.
func (m *ObjectMonad) GetSQL() []sqlast.Node {
	alias, pk := m.tableref.MakeJoin(false)
	cols := make([]sqlast.Node, len(pk))
	for i, c := range pk {
		cols[i] = sqlast.ColumnRef(alias, c)
	}
	return cols
}

// Getattr dispatches on the target attribute's shape: a primitive scalar
// lowers to a ScalarMonad reading the owning alias's column(s); a
// non-collection entity attribute lazily creates (or reuses) a
// JoinedTableRef and wraps it in a fresh ObjectMonad; a collection
// attribute becomes an AttrSetMonad.
func (m *ObjectMonad) Getattr(name string) (Monad, error) {
	attr, ok := m.entity.Attr(name)
	if !ok {
		return nil, &AttributeError{Name: name}
	}
	if attr.IsCollection {
		return NewAttrSetMonad(m.translator, m, attr), nil
	}
	if attr.TypeName != "" && isEntityType(attr) {
		namePath := m.tableref.NamePath() + "-" + attr.Name
		sq := m.translator.subquery
		tr, ok := sq.GetTableRef(namePath)
		if !ok {
			tr = sq.AddTableRef(namePath, m.tableref, attr.Name)
			asJoined := tr.(*JoinedTableRef)
			farEntity, _ := m.translator.database.Get(attr.TypeName)
			asJoined.entity = farEntity
		}
		return NewObjectMonad(m.translator, tr), nil
	}
	// Primitive scalar attribute: resolve its column(s) via the owner's
	// alias, respecting the PK-offset / FK-embedded shortcut.
	alias, cols := m.resolveScalarColumns(attr)
	nodes := make([]sqlast.Node, len(cols))
	for i, c := range cols {
		nodes[i] = sqlast.ColumnRef(alias, c)
	}
	kind := kindOfTypeName(attr.TypeName)
	return NewScalarMonad(m.translator, typesys.Primitive(kind), roleAttr, nodes[0]), nil
}

func (m *ObjectMonad) resolveScalarColumns(attr *schema.Attribute) (string, []string) {
	pkOnly := attr.PKOffset != nil
	alias, pk := m.tableref.MakeJoin(pkOnly)
	if attr.PKOffset != nil {
		offset := *attr.PKOffset
		return alias, pk[offset : offset+len(attr.Columns)]
	}
	return alias, attr.Columns
}

// Cmp implements entity equality: comparing two ObjectMonads compares
// their PK tuples component-wise.
func (m *ObjectMonad) Cmp(op string, other Monad) (Monad, error) {
	if err := checkComparable(m, other, op); err != nil {
		return nil, err
	}
	if op != "==" && op != "!=" {
		return nil, &TypeError{Msg: "entities only support == and != in: " + exprPlaceholder}
	}
	return newCmpMonad(m.translator, op, m, other)
}

func isEntityType(attr *schema.Attribute) bool {
	switch attr.TypeName {
	case "int", "float", "decimal", "string", "bool", "date", "datetime", "buffer":
		return false
	default:
		return attr.TypeName != ""
	}
}

func kindOfTypeName(name string) typesys.Kind {
	switch name {
	case "int":
		return typesys.Int
	case "float":
		return typesys.Float
	case "decimal":
		return typesys.Decimal
	case "date":
		return typesys.Date
	case "datetime":
		return typesys.Datetime
	case "bool":
		return typesys.Bool
	case "buffer":
		return typesys.Buffer
	default:
		return typesys.String
	}
}

// EntityMonad is an entity class reference, e.g. the `Student` in
// `Student.select(...)` or the RHS of `for s in Student`.
type EntityMonad struct {
	translator *Translator
	entity     *schema.Entity
}

func NewEntityMonad(tr *Translator, e *schema.Entity) *EntityMonad {
	return &EntityMonad{translator: tr, entity: e}
}

func (m *EntityMonad) ValueType() typesys.Type { return typesys.NewSet(typesys.NewEntity(m.entity.Name)) }
func (m *EntityMonad) MonadFlags() *Flags      { return nil }
func (m *EntityMonad) GetSQL() []sqlast.Node   { return nil }

func (m *EntityMonad) Getattr(name string) (Monad, error) {
	return &MethodMonad{translator: m.translator, entity: m.entity, name: name}, nil
}

// MethodMonad is a bound method in flight awaiting a call (spec.md §3,
// §9 "Method pseudo-values"). Any non-call use is diagnosed through
// checkComparable's METHOD-kind check; Call is the only productive
// operation.
type MethodMonad struct {
	translator *Translator
	entity     *schema.Entity
	name       string
}

func (m *MethodMonad) ValueType() typesys.Type { return typesys.NewMethod(m.entity.Name, m.name) }
func (m *MethodMonad) MonadFlags() *Flags      { return nil }
func (m *MethodMonad) GetSQL() []sqlast.Node   { return nil }

func (m *MethodMonad) Call(args []Monad) (Monad, error) {
	if m.name != "select" {
		return nil, &NotImplementedError{Msg: "unsupported entity method: " + m.name}
	}
	if len(args) != 1 {
		return nil, &TypeError{Msg: "Entity.select() takes exactly one lambda argument: " + exprPlaceholder}
	}
	qs, ok := args[0].(*QuerySetMonad)
	if !ok {
		return nil, &NotImplementedError{Msg: "Entity.select() argument must be a generator or lambda: " + exprPlaceholder}
	}
	return qs, nil
}
