package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentGroupFixture() *Database {
	db := NewDatabase("school")
	group := &Entity{
		Name:       "Group",
		Tables:     []string{"group"},
		PrimaryKey: []string{"number"},
		Attrs: map[string]*Attribute{
			"number": {Name: "number", EntityName: "Group", TypeName: "string", Columns: []string{"number"}, IsRequired: true},
		},
	}
	student := &Entity{
		Name:       "Student",
		Tables:     []string{"student"},
		PrimaryKey: []string{"id"},
		Attrs: map[string]*Attribute{
			"id":    {Name: "id", EntityName: "Student", TypeName: "int", Columns: []string{"id"}, IsRequired: true},
			"group": {Name: "group", EntityName: "Student", TypeName: "Group", Columns: []string{"group_id"}, Reverse: "students"},
		},
	}
	group.Attrs["students"] = &Attribute{Name: "students", EntityName: "Group", TypeName: "Student", IsCollection: true, Reverse: "group"}
	db.Add(group)
	db.Add(student)
	return db
}

func TestPKColumns(t *testing.T) {
	db := studentGroupFixture()
	student, ok := db.Get("Student")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, student.PKColumns())
}

func TestAttrLookupMiss(t *testing.T) {
	db := studentGroupFixture()
	student, _ := db.Get("Student")
	_, ok := student.Attr("nonexistent")
	assert.False(t, ok)
}

func TestReverseOfPair(t *testing.T) {
	db := studentGroupFixture()
	student, _ := db.Get("Student")
	group, _ := db.Get("Group")
	groupAttr, _ := student.Attr("group")
	studentsAttr, _ := group.Attr("students")
	assert.True(t, groupAttr.ReverseOf(studentsAttr))
}
