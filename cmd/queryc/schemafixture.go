package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ponyql/queryc/schema"
)

// schemaFixture is the YAML shape of a `-schema file.yaml` fixture, the
// hand-written alternative to live introspection: one entry per entity,
// attributes keyed by name. It mirrors the teacher's own YAML config loader
// (database.ParseGeneratorConfig) in spirit — a flat struct decoded straight
// off the file, no intermediate AST.
type schemaFixture struct {
	Database string                    `yaml:"database"`
	Entities map[string]*entityFixture `yaml:"entities"`
}

type entityFixture struct {
	Table      string                       `yaml:"table"`
	PrimaryKey []string                     `yaml:"primary_key"`
	Attrs      map[string]*attributeFixture `yaml:"attrs"`
}

type attributeFixture struct {
	Type       string   `yaml:"type"`
	Columns    []string `yaml:"columns"`
	Collection bool     `yaml:"collection"`
	Required   bool     `yaml:"required"`
	Reverse    string   `yaml:"reverse"`
}

func loadSchemaFixture(path string) (*schema.Database, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx schemaFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, err
	}
	return fx.toDatabase(), nil
}

func (fx *schemaFixture) toDatabase() *schema.Database {
	name := fx.Database
	if name == "" {
		name = "default"
	}
	db := schema.NewDatabase(name)
	for entityName, e := range fx.Entities {
		entity := &schema.Entity{
			Name:       entityName,
			Tables:     []string{e.Table},
			PrimaryKey: e.PrimaryKey,
			Attrs:      map[string]*schema.Attribute{},
		}
		for attrName, a := range e.Attrs {
			entity.Attrs[attrName] = &schema.Attribute{
				Name:         attrName,
				EntityName:   entityName,
				TypeName:     a.Type,
				IsCollection: a.Collection,
				Columns:      a.Columns,
				IsRequired:   a.Required,
				Reverse:      a.Reverse,
			}
		}
		db.Add(entity)
	}
	return db
}
