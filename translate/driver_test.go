package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyql/queryc/ast"
	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/sqlast"
	"github.com/ponyql/queryc/typesys"
)

// studentGroupFixture mirrors schema's own fixture (Student -> Group,
// one-to-many) with name and gpa columns added, so filter/compare/join scenarios
// all have something to exercise.
func studentGroupFixture() *schema.Database {
	db := schema.NewDatabase("school")
	group := &schema.Entity{
		Name:       "Group",
		Tables:     []string{"group"},
		PrimaryKey: []string{"number"},
		Attrs: map[string]*schema.Attribute{
			"number": {Name: "number", EntityName: "Group", TypeName: "string", Columns: []string{"number"}, IsRequired: true},
		},
	}
	student := &schema.Entity{
		Name:       "Student",
		Tables:     []string{"student"},
		PrimaryKey: []string{"id"},
		Attrs: map[string]*schema.Attribute{
			"id":   {Name: "id", EntityName: "Student", TypeName: "int", Columns: []string{"id"}, IsRequired: true},
			"name": {Name: "name", EntityName: "Student", TypeName: "string", Columns: []string{"name"}, IsRequired: true},
			"gpa":  {Name: "gpa", EntityName: "Student", TypeName: "float", Columns: []string{"gpa"}, IsRequired: true},
			"group": {Name: "group", EntityName: "Student", TypeName: "Group", Columns: []string{"group_id"}, Reverse: "students"},
		},
	}
	group.Attrs["students"] = &schema.Attribute{Name: "students", EntityName: "Group", TypeName: "Student", IsCollection: true, Reverse: "group"}
	db.Add(group)
	db.Add(student)
	return db
}

func comprehension(assign string, ifs []*ast.If, expr ast.Node) *ast.Comprehension {
	return &ast.Comprehension{
		Expr: expr,
		Quals: []*ast.For{
			{Assign: assign, Iter: ast.NewName("", "Student", true), Ifs: ifs},
		},
	}
}

func TestFilterOnScalarAttribute(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{
		"Student": typesys.NewSet(typesys.NewEntity("Student")),
		"minGpa":  typesys.Primitive(typesys.Float),
	}
	test := &ast.Compare{
		Expr: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "gpa"},
		Ops:  []ast.CmpOp{{Op: ">", Right: ast.NewName("", "minGpa", true)}},
	}
	tree := comprehension("s", []*ast.If{{Test: test}}, ast.NewName("", "s", false))

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	require.Len(t, tr.Conditions, 1)
	assert.Equal(t, sqlast.Gt, tr.Conditions[0].Tag)
	assert.Equal(t, sqlast.Column, tr.Conditions[0].Args[0].Tag)
	assert.Equal(t, "gpa", tr.Conditions[0].Args[0].Str)

	node := tr.ConstructSQLAST(nil, nil, "", nil)
	assert.Equal(t, sqlast.Select, node.Tag)
}

func TestContainmentRaisesIncomparableTypes(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	// s.gpa in ["hi"] -- comparing a float attribute against a string literal.
	test := &ast.Compare{
		Expr: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "gpa"},
		Ops: []ast.CmpOp{{Op: "in", Right: &ast.List{Elems: []ast.Node{
			&ast.Const{Value: "hi"},
		}}}},
	}
	tree := comprehension("s", []*ast.If{{Test: test}}, ast.NewName("", "s", false))

	_, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.Error(t, err)
	_, ok := err.(*IncomparableTypesError)
	assert.True(t, ok, "expected *IncomparableTypesError, got %T: %v", err, err)
}

func TestJoinThroughAttributeEmitsExactlyOneJoin(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{
		"Student":  typesys.NewSet(typesys.NewEntity("Student")),
		"groupNum": typesys.Primitive(typesys.String),
	}
	// for s in Student if s.group.number == groupNum -- traversing a
	// non-PK-offset attribute of a joined entity requires materialising the
	// join exactly once, idempotently (spec.md §3/§4.3 TableRef lifecycle).
	test := &ast.Compare{
		Expr: &ast.Getattr{Expr: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "group"}, Attrname: "number"},
		Ops:  []ast.CmpOp{{Op: "==", Right: ast.NewName("", "groupNum", true)}},
	}
	tree := comprehension("s", []*ast.If{{Test: test}}, ast.NewName("", "s", false))

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	// group.number isn't the student's own PK, so this does require a real
	// join: assert it happened exactly once (FROM has two entries).
	assert.Len(t, tr.subquery.FromAST.Args, 2)
}

func TestSelectEntityProjectsPrimaryKey(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	tree := comprehension("s", nil, ast.NewName("", "s", false))

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	assert.Equal(t, typesys.NewEntity("Student"), tr.ExprType)
	require.Len(t, tr.ExprColumns, 1)
	assert.Equal(t, "id", tr.ExprColumns[0].Str)
}

func TestSelectScalarAttributeProjectsOneColumn(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	expr := &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "name"}
	tree := comprehension("s", nil, expr)

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	assert.Equal(t, typesys.Primitive(typesys.String), tr.ExprType)
	require.Len(t, tr.ExprColumns, 1)
	assert.Equal(t, "name", tr.ExprColumns[0].Str)
}

func TestUnknownNameRaisesTranslationError(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	tree := comprehension("s", nil, ast.NewName("", "mystery", true))

	_, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.Error(t, err)
	_, ok := err.(*TranslationError)
	assert.True(t, ok, "expected *TranslationError, got %T: %v", err, err)
}

func TestSecondQualifierViaAttributeChainBindsAndForcesDistinct(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{
		"Student": typesys.NewSet(typesys.NewEntity("Student")),
	}
	// for s in Student for t in s.group.students if t.id != s.id -- a
	// second qualifier whose source is an attribute chain rooted at the
	// first qualifier's target, not a bare external entity name.
	tree := &ast.Comprehension{
		Expr: ast.NewName("", "s", false),
		Quals: []*ast.For{
			{Assign: "s", Iter: ast.NewName("", "Student", true)},
			{
				Assign: "t",
				Iter: &ast.Getattr{
					Expr:     &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "group"},
					Attrname: "students",
				},
				Ifs: []*ast.If{{Test: &ast.Compare{
					Expr: &ast.Getattr{Expr: ast.NewName("", "t", false), Attrname: "id"},
					Ops:  []ast.CmpOp{{Op: "!=", Right: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "id"}}},
				}}},
			},
		},
	}

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	tRef, ok := tr.boundVars["t"]
	require.True(t, ok)
	assert.Equal(t, "Student", tRef.Entity().Name)

	// spec.md §4.1 step 1.d: every qualifier after the first forces distinct.
	assert.True(t, tr.distinct)

	require.Len(t, tr.Conditions, 1)
	assert.Equal(t, sqlast.Ne, tr.Conditions[0].Tag)

	// The chain must have produced at least one real join beyond the root
	// student table bound by the first qualifier.
	assert.GreaterOrEqual(t, len(tr.subquery.FromAST.Args), 2)
}

func TestChainedQualifierRootedAtExternalNameIsRejected(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	tree := &ast.Comprehension{
		Expr: ast.NewName("", "s", false),
		Quals: []*ast.For{
			{Assign: "s", Iter: &ast.Getattr{Expr: ast.NewName("", "Student", true), Attrname: "group"}},
		},
	}

	_, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.Error(t, err)
	_, ok := err.(*TranslationError)
	assert.True(t, ok, "expected *TranslationError, got %T: %v", err, err)
}

func TestPowerOperatorEmitsPowNode(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{"Student": typesys.NewSet(typesys.NewEntity("Student"))}
	expr := &ast.BinOp{
		Kind:  ast.OpPow,
		Left:  &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "gpa"},
		Right: &ast.Const{Value: 2},
	}
	tree := comprehension("s", nil, expr)

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	require.Len(t, tr.ExprColumns, 1)
	assert.Equal(t, sqlast.Pow, tr.ExprColumns[0].Tag)
}

func TestAndFlattensIntoIndividualConditions(t *testing.T) {
	db := studentGroupFixture()
	vartypes := map[string]typesys.Type{
		"Student": typesys.NewSet(typesys.NewEntity("Student")),
		"minGpa":  typesys.Primitive(typesys.Float),
		"name":    typesys.Primitive(typesys.String),
	}
	gpaCmp := &ast.Compare{
		Expr: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "gpa"},
		Ops:  []ast.CmpOp{{Op: ">", Right: ast.NewName("", "minGpa", true)}},
	}
	nameCmp := &ast.Compare{
		Expr: &ast.Getattr{Expr: ast.NewName("", "s", false), Attrname: "name"},
		Ops:  []ast.CmpOp{{Op: "==", Right: ast.NewName("", "name", true)}},
	}
	test := &ast.BoolOp{Kind: ast.BoolAnd, Exprs: []ast.Node{gpaCmp, nameCmp}}
	tree := comprehension("s", []*ast.If{{Test: test}}, ast.NewName("", "s", false))

	tr, err := New(tree, vartypes, db, dialect.PostgresCapability(), nil, false, "")
	require.NoError(t, err)

	// sqland() flattens a top-level AND into individual WHERE conditions
	// rather than one nested AND node (spec.md §4.1 / sqlast.And).
	require.Len(t, tr.Conditions, 2)
	assert.Equal(t, sqlast.Gt, tr.Conditions[0].Tag)
	assert.Equal(t, sqlast.Eq, tr.Conditions[1].Tag)
}
