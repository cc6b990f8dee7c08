package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSchemaYAML = `
database: school
entities:
  Group:
    table: "group"
    primary_key: [number]
    attrs:
      number: {type: string, columns: [number], required: true}
  Student:
    table: student
    primary_key: [id]
    attrs:
      id: {type: int, columns: [id], required: true}
      group: {type: Group, columns: [group_id], reverse: students}
`

func TestLoadSchemaFixtureBuildsDatabase(t *testing.T) {
	path := writeTempFile(t, "schema.yaml", sampleSchemaYAML)

	db, err := loadSchemaFixture(path)
	require.NoError(t, err)

	student, ok := db.Get("Student")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, student.PrimaryKey)

	groupAttr, ok := student.Attr("group")
	require.True(t, ok)
	assert.Equal(t, "Group", groupAttr.TypeName)
	assert.Equal(t, []string{"group_id"}, groupAttr.Columns)
	assert.Equal(t, "students", groupAttr.Reverse)

	group, ok := db.Get("Group")
	require.True(t, ok)
	numberAttr, ok := group.Attr("number")
	require.True(t, ok)
	assert.True(t, numberAttr.IsRequired)
}
