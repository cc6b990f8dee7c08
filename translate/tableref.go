package translate

import (
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/sqlast"
)

// TableRef is a handle onto one bound entity occurrence inside a Subquery
// (spec.md §3 "TableRef"). MakeJoin is idempotent: the first call emits the
// FROM/JOIN entry and flips Joined; later calls just report the cached
// alias and PK columns, matching the TableRef lifecycle state machine in
// spec.md §4.3.
type TableRef interface {
	NamePath() string
	Entity() *schema.Entity
	// MakeJoin materialises (once) the FROM/JOIN entry for this occurrence
	// and returns its alias plus the column list a caller should join
	// against: either the entity's real PK columns, or — when pkOnly is
	// requested and the attribute carries the parent's PK columns directly
	// — the parent's own columns with no extra join at all (the Optimized
	// shortcut, spec.md §3 invariants).
	MakeJoin(pkOnly bool) (alias string, pkColumns []string)
}

// RootTableRef is bound by a `for x in Entity` qualifier: a plain
// `FROM table alias`.
type RootTableRef struct {
	subquery *Subquery
	alias    string
	entity   *schema.Entity
	joined   bool
}

func NewRootTableRef(sq *Subquery, name string, entity *schema.Entity) *RootTableRef {
	return &RootTableRef{subquery: sq, alias: name, entity: entity}
}

func (r *RootTableRef) NamePath() string      { return r.alias }
func (r *RootTableRef) Entity() *schema.Entity { return r.entity }

func (r *RootTableRef) MakeJoin(pkOnly bool) (string, []string) {
	if !r.joined {
		r.subquery.FromAST.Args = append(r.subquery.FromAST.Args,
			sqlast.TableRef(r.alias, r.entity.Tables[0]))
		if attr, value, ok := r.entity.Criterion(r.alias); ok {
			r.subquery.Conditions = append(r.subquery.Conditions,
				sqlast.N(sqlast.Eq, sqlast.ColumnRef(r.alias, attr), sqlast.StrValue(value)))
		}
		r.joined = true
	}
	return r.alias, r.entity.PKColumns()
}

// JoinedTableRef is bound by attribute traversal `x.attr` or a later
// qualifier; it lazily emits the correct inner/left join, or a many-to-many
// link-table join, or elides the join entirely when the attribute's
// columns are embedded directly in the parent row (spec.md §3).
type JoinedTableRef struct {
	subquery *Subquery
	namePath string
	alias    string
	parent   TableRef
	attrName string
	entity   *schema.Entity

	joined    bool
	optimized bool
	pkColumns []string

	// m2mAlias caches the link-table alias once emitted, so a later
	// non-pk-only join reuses it instead of re-joining the link table.
	m2mAlias string
}

func (j *JoinedTableRef) NamePath() string       { return j.namePath }
func (j *JoinedTableRef) Entity() *schema.Entity { return j.entity }

// MakeJoin implements the JoinedTableRef branch of spec.md §3/§4.3: PK-only
// requests against an attribute whose columns are the parent's own FK
// columns return the parent's alias with Optimized=true and no new FROM
// entry; anything else (non-collection FK, reverse-owned one-to-many,
// many-to-many) emits exactly one join, idempotently.
func (j *JoinedTableRef) MakeJoin(pkOnly bool) (string, []string) {
	parentEntity := j.parent.Entity()
	attr, _ := parentEntity.Attr(j.attrName)
	entity := j.entity
	pkOnlyEffective := pkOnly && entity.Discriminator == nil

	if j.joined {
		if pkOnlyEffective || !j.optimized {
			return j.alias, j.pkColumns
		}
	}

	parentPKOnly := attr.PKOffset != nil || attr.IsCollection
	parentAlias, leftPK := j.parent.MakeJoin(parentPKOnly)
	pkColumns := entity.PKColumns()

	var alias string
	switch {
	case !attr.IsCollection:
		var joinCond sqlast.Node
		var leftColumns []string
		if len(attr.Columns) == 0 {
			// Reverse-owned: the FK lives on the far side.
			revAttr, _ := entity.Attr(attr.Reverse)
			alias = j.subquery.GetShortAlias(j.namePath, entity.Name)
			joinCond = sqlast.JoinOnColumns(parentAlias, alias, leftPK, revAttr.Columns)
		} else {
			leftColumns = attr.Columns
			if attr.PKOffset != nil {
				offset := *attr.PKOffset
				leftColumns = leftPK[offset : offset+len(attr.Columns)]
			}
			if pkOnlyEffective {
				j.alias = parentAlias
				j.pkColumns = leftColumns
				j.optimized = true
				j.joined = true
				return parentAlias, leftColumns
			}
			alias = j.subquery.GetShortAlias(j.namePath, entity.Name)
			joinCond = sqlast.JoinOnColumns(parentAlias, alias, leftColumns, pkColumns)
		}
		j.subquery.FromAST.Args = append(j.subquery.FromAST.Args,
			sqlast.Node{Tag: sqlast.Table, Ident: entity.Tables[0], Str: alias, Args: []sqlast.Node{joinCond}})

	case len(attr.Reverse) > 0 && !mustReverseCollection(entity, attr.Reverse):
		// one-to-many from the "many" side traversed back to the "one" side.
		revAttr, _ := entity.Attr(attr.Reverse)
		alias = j.subquery.GetShortAlias(j.namePath, entity.Name)
		joinCond := sqlast.JoinOnColumns(parentAlias, alias, leftPK, revAttr.Columns)
		j.subquery.FromAST.Args = append(j.subquery.FromAST.Args,
			sqlast.Node{Tag: sqlast.Table, Ident: entity.Tables[0], Str: alias, Args: []sqlast.Node{joinCond}})

	default:
		// Many-to-many via a link table.
		m2m := attr.M2M
		if j.m2mAlias == "" {
			m2mAlias := j.subquery.GetShortAlias("", "t")
			m2mJoin := sqlast.JoinOnColumns(parentAlias, m2mAlias, leftPK, m2m.OwnColumns)
			j.subquery.FromAST.Args = append(j.subquery.FromAST.Args,
				sqlast.Node{Tag: sqlast.Table, Ident: m2m.Table, Str: m2mAlias, Args: []sqlast.Node{m2mJoin}})
			j.m2mAlias = m2mAlias
			if pkOnlyEffective {
				j.alias = m2mAlias
				j.pkColumns = m2m.OtherColumns
				j.optimized = true
				j.joined = true
				return m2mAlias, m2m.OtherColumns
			}
		}
		alias = j.subquery.GetShortAlias(j.namePath, entity.Name)
		joinCond := sqlast.JoinOnColumns(j.m2mAlias, alias, m2m.OtherColumns, pkColumns)
		j.subquery.FromAST.Args = append(j.subquery.FromAST.Args,
			sqlast.Node{Tag: sqlast.Table, Ident: entity.Tables[0], Str: alias, Args: []sqlast.Node{joinCond}})
	}

	if dAttr, dValue, ok := entity.Criterion(alias); ok {
		discrCond := sqlast.N(sqlast.Eq, sqlast.ColumnRef(alias, dAttr), sqlast.StrValue(dValue))
		j.subquery.Conditions = append([]sqlast.Node{discrCond}, j.subquery.Conditions...)
	}

	j.alias = alias
	j.pkColumns = pkColumns
	j.optimized = false
	j.joined = true
	return j.alias, pkColumns
}

// mustReverseCollection reports whether the named reverse attribute on
// entity is itself a collection (i.e. this relation is many-to-many rather
// than a plain reverse one-to-many).
func mustReverseCollection(entity *schema.Entity, reverseName string) bool {
	rev, ok := entity.Attr(reverseName)
	return ok && rev.IsCollection
}
