package translate

import (
	"strings"

	"github.com/ponyql/queryc/sqlast"
)

// maxAliasLength mirrors Pony's max_alias_length: name_paths longer than
// this (and non-identifiers) get a generated short alias instead of being
// reused verbatim.
const maxAliasLength = 30

// Subquery is a translation scope: a FROM list being assembled, the
// conditions attached to it, its own TableRef dictionary keyed by
// name_path, and alias/expression counters shared down the parent chain
// (spec.md §3 "Subquery").
type Subquery struct {
	Parent     *Subquery
	LeftJoin   bool
	FromAST    sqlast.Node // head is FROM or LEFT_JOIN; Args are join items
	Conditions []sqlast.Node

	tablerefs map[string]TableRef

	aliasCounters map[string]int
	exprCounter   *int

	// OuterConditions, when this Subquery is nested for a correlated
	// subselect, holds the equality predicate harvested from its own
	// first join item (spec.md §4.4 step 5).
	OuterConditions []sqlast.Node
}

func NewSubquery(parent *Subquery, leftJoin bool) *Subquery {
	head := sqlast.From
	if leftJoin {
		head = sqlast.LeftJoin
	}
	sq := &Subquery{
		Parent:    parent,
		LeftJoin:  leftJoin,
		FromAST:   sqlast.Node{Tag: head},
		tablerefs: map[string]TableRef{},
	}
	if parent == nil {
		sq.aliasCounters = map[string]int{}
		n := 1
		sq.exprCounter = &n
	} else {
		sq.aliasCounters = map[string]int{}
		for k, v := range parent.aliasCounters {
			sq.aliasCounters[k] = v
		}
		sq.exprCounter = parent.exprCounter
	}
	return sq
}

// GetTableRef resolves a name_path in this scope or any enclosing one
// (spec.md §3 invariant: "Each name_path resolves to exactly one TableRef
// within the lexical scope of its owning Subquery or an enclosing one").
func (s *Subquery) GetTableRef(namePath string) (TableRef, bool) {
	if tr, ok := s.tablerefs[namePath]; ok {
		return tr, true
	}
	if s.Parent != nil {
		return s.Parent.GetTableRef(namePath)
	}
	return nil, false
}

func (s *Subquery) AddRootTableRef(name string, tr *RootTableRef) {
	s.tablerefs[name] = tr
}

func (s *Subquery) AddTableRef(namePath string, parent TableRef, attr string) *JoinedTableRef {
	tr := &JoinedTableRef{subquery: s, namePath: namePath, parent: parent, attrName: attr}
	s.tablerefs[namePath] = tr
	return tr
}

// NextExprName allocates the next anonymous column name, e.g. "expr-3",
// shared across the whole Subquery tree via the counter pointer.
func (s *Subquery) NextExprName() string {
	n := *s.exprCounter
	*s.exprCounter = n + 1
	return "expr-" + itoa(n)
}

// GetShortAlias implements the alias rule from spec.md §3: reuse name_path
// verbatim when it is a single legal identifier no longer than
// maxAliasLength; otherwise synthesize "<entity-prefix>-<n>".
func (s *Subquery) GetShortAlias(namePath, entityName string) string {
	if namePath != "" {
		if isIdent(namePath) && len(namePath) <= maxAliasLength {
			return namePath
		}
	}
	prefix := strings.ToLower(entityName)
	if len(prefix) > maxAliasLength-3 {
		prefix = prefix[:maxAliasLength-3]
	}
	n := s.aliasCounters[prefix] + 1
	s.aliasCounters[prefix] = n
	return prefix + "-" + itoa(n)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
