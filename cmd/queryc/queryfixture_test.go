package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyql/queryc/ast"
	"github.com/ponyql/queryc/typesys"
)

const sampleQueryYAML = `
vartypes:
  Student: Set<Student>
  minGpa: float
quals:
  - assign: s
    iter: {name: {ident: Student, external: true}}
    ifs:
      - compare:
          expr: {getattr: {expr: {name: {ident: s}}, attr: gpa}}
          ops:
            - {op: ">", right: {name: {ident: minGpa, external: true}}}
expr: {name: {ident: s}}
`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQueryFixtureDecodesComprehension(t *testing.T) {
	path := writeTempFile(t, "query.yaml", sampleQueryYAML)

	comp, vartypes, err := loadQueryFixture(path)
	require.NoError(t, err)

	require.Len(t, comp.Quals, 1)
	qual := comp.Quals[0]
	assert.Equal(t, "s", qual.Assign)

	iterName, ok := qual.Iter.(ast.Name)
	require.True(t, ok)
	assert.Equal(t, "Student", iterName.Ident)
	assert.True(t, iterName.External)

	require.Len(t, qual.Ifs, 1)
	cmp, ok := qual.Ifs[0].Test.(*ast.Compare)
	require.True(t, ok)
	require.Len(t, cmp.Ops, 1)
	assert.Equal(t, ">", cmp.Ops[0].Op)

	selExpr, ok := comp.Expr.(ast.Name)
	require.True(t, ok)
	assert.Equal(t, "s", selExpr.Ident)

	assert.Equal(t, typesys.NewSet(typesys.NewEntity("Student")), vartypes["Student"])
	assert.Equal(t, typesys.Primitive(typesys.Float), vartypes["minGpa"])
}

func TestDecodeTypeSet(t *testing.T) {
	typ, err := decodeType("Set<Student>")
	require.NoError(t, err)
	assert.Equal(t, typesys.SetOf, typ.Kind)
	assert.Equal(t, typesys.Entity, typ.Item.Kind)
	assert.Equal(t, "Student", typ.Item.EntityName)
}

func TestDecodeTypeEntity(t *testing.T) {
	typ, err := decodeType("Student")
	require.NoError(t, err)
	assert.Equal(t, typesys.Entity, typ.Kind)
	assert.Equal(t, "Student", typ.EntityName)
}

func TestExprNodeDecodeEmptyIsError(t *testing.T) {
	var n exprNode
	_, err := n.decode()
	assert.Error(t, err)
}
