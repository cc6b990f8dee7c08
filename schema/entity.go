package schema

// Entity is the read-only, external schema record the translator consults
// (spec.md §3 "Entity (external)"). It never mutates over the lifetime of a
// translation call: construction happens once (typically by an introspector
// in package introspect, or by hand in tests), and the translator only
// reads from it.
type Entity struct {
	Name       string
	Tables     []string // usually one; more than one only for multi-table inheritance
	PrimaryKey []string // ordered primary-key attribute names
	Attrs      map[string]*Attribute

	Discriminator *Discriminator
}

// Attr looks up an attribute, returning (nil, false) if the entity has none
// by that name — the zero-value contract AttributeError dispatch relies on.
func (e *Entity) Attr(name string) (*Attribute, bool) {
	a, ok := e.Attrs[name]
	return a, ok
}

// PKColumns returns the physical columns backing the primary key, in
// declaration order, resolved through each PK attribute's own Columns.
func (e *Entity) PKColumns() []string {
	var cols []string
	for _, name := range e.PrimaryKey {
		attr := e.Attrs[name]
		cols = append(cols, attr.Columns...)
	}
	return cols
}

// PKAttrs returns the ordered primary-key Attribute values.
func (e *Entity) PKAttrs() []*Attribute {
	attrs := make([]*Attribute, len(e.PrimaryKey))
	for i, name := range e.PrimaryKey {
		attrs[i] = e.Attrs[name]
	}
	return attrs
}

// Discriminator names the attribute (usually a "classtype" column) that
// distinguishes sibling entities sharing a table in single-table
// inheritance, plus the criterion value each concrete entity matches.
type Discriminator struct {
	Attr  string
	Value string
}

// Criterion returns the discriminator attribute and value identifying rows
// of this entity inside a table shared with sibling entities; callers build
// the WHERE fragment from them, e.g. `alias.classtype = 'Student'`. The
// alias argument is not used. Entities without a discriminator return the
// ok=false sentinel.
func (e *Entity) Criterion(alias string) (attr, value string, ok bool) {
	if e.Discriminator == nil {
		return "", "", false
	}
	return e.Discriminator.Attr, e.Discriminator.Value, true
}

// ManyToMany describes a link-table-backed m2m attribute's own table and the
// two column groups joining back to each side's primary key.
type ManyToMany struct {
	Table        string
	OwnColumns   []string
	OtherColumns []string
}

// Attribute describes one declared field of an Entity (spec.md §3).
// TypeName names either a primitive type or another entity, depending on
// whether the field is itself another entity.
type Attribute struct {
	Name       string
	EntityName string // owning entity
	TypeName   string // declared type, e.g. "int", "Student" (another entity)

	IsCollection bool

	// Columns this attribute occupies in its owner's table, or nil if the
	// attribute is reverse-owned (the FK lives on the other side).
	Columns []string

	// PKOffset is non-nil when this attribute is itself embedded inside a
	// composite primary key, at the given zero-based offset into the
	// owner's PK column list — the "foreign-key embedded in parent row"
	// case that lets TableRef elide a join (spec.md §3 TableRef invariants).
	PKOffset *int

	// Reverse names the attribute on the far side that points back, or ""
	// if there is none (a plain scalar or a one-directional relation).
	Reverse string

	IsRequired bool // NOT NULL; governs the IS_NOT_NULL guard in _subselect

	M2M *ManyToMany // non-nil only when IsCollection and backed by a link table

	// Identity, Default and Check are introspection-only metadata: an
	// auto-increment/IDENTITY column, a column DEFAULT expression, and a
	// CHECK constraint body, each carried as opaque text the translator
	// never evaluates (spec.md §3.1). Default/Check are populated from
	// Postgres's pg_attrdef/pg_constraint and normalised with pg_query_go's
	// Normalize, which replaces literal constants with $n placeholders.
	Identity bool
	Default  string
	Check    string
}

// ReverseOf reports whether two attributes are the forward/reverse pair
// of the same relation, used when deciding whether a join's reverse side
// is itself a collection (spec.md §3 JoinedTableRef).
func (a *Attribute) ReverseOf(other *Attribute) bool {
	return a.Reverse == other.Name && other.Reverse == a.Name
}

// Database groups entities that may be freely joined together; the
// translator rejects any qualifier whose entities disagree on Database
// (spec.md §4.1 step c).
type Database struct {
	Name     string
	Entities map[string]*Entity
}

func NewDatabase(name string) *Database {
	return &Database{Name: name, Entities: map[string]*Entity{}}
}

func (d *Database) Add(e *Entity) { d.Entities[e.Name] = e }

func (d *Database) Get(name string) (*Entity, bool) {
	e, ok := d.Entities[name]
	return e, ok
}
