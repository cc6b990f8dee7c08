// Command queryc translates a declarative comprehension fixture into a SQL
// AST against either a hand-written schema fixture or a live database,
// built with github.com/jessevdk/go-flags the same way the teacher's own
// cmd/mysqldef and cmd/psqldef are.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/ponyql/queryc/dialect"
	"github.com/ponyql/queryc/introspect"
	"github.com/ponyql/queryc/introspect/mssql"
	"github.com/ponyql/queryc/introspect/mysql"
	"github.com/ponyql/queryc/introspect/postgres"
	"github.com/ponyql/queryc/introspect/sqlite"
	"github.com/ponyql/queryc/schema"
	"github.com/ponyql/queryc/translate"
	"github.com/ponyql/queryc/util"
)

type options struct {
	Type     string `long:"type" description:"Database type when introspecting live (mysql, postgres, sqlite3, mssql)" value-name:"type"`
	Host     string `long:"host" description:"Database host" value-name:"host" default:"127.0.0.1"`
	Port     int    `long:"port" description:"Database port" value-name:"port"`
	User     string `long:"user" description:"Database user" value-name:"user"`
	Password string `long:"password" description:"Database password" value-name:"password"`
	Prompt   bool   `long:"password-prompt" description:"Force database password prompt"`
	DBName   string `long:"db" description:"Database name" value-name:"db_name"`
	File     string `long:"sqlite-file" description:"SQLite file path" value-name:"path"`

	Schema string `long:"schema" description:"YAML schema fixture, instead of live introspection" value-name:"schema.yaml"`
	Query  string `long:"query" description:"YAML comprehension fixture" value-name:"query.yaml" required:"true"`

	Debug bool `long:"debug" description:"Print the resulting SQL AST with pp instead of JSON"`
}

func main() {
	util.InitSlog()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		opts.Password = string(pass)
	}

	db, cap, err := loadSchema(opts)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Debug {
		for name := range util.CanonicalMapIter(db.Entities) {
			slog.Debug("entity loaded", "name", name)
		}
	}

	comp, vartypes, err := loadQueryFixture(opts.Query)
	if err != nil {
		log.Fatalf("failed to load query fixture: %v", err)
	}

	tr, err := translate.New(comp, vartypes, db, cap, nil, false, "")
	if err != nil {
		log.Fatalf("translation failed: %v", err)
	}

	node := tr.ConstructSQLAST(nil, nil, "", nil)

	if opts.Debug {
		pp.Println(node)
		return
	}
	encoded, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(encoded))
}

func loadSchema(opts options) (*schema.Database, dialect.Capability, error) {
	if opts.Schema != "" {
		db, err := loadSchemaFixture(opts.Schema)
		return db, capabilityFor(opts.Type), err
	}

	var reader introspect.SchemaReader
	var err error
	switch opts.Type {
	case "mysql":
		reader, err = mysql.NewReader(mysql.Config{Host: opts.Host, Port: opts.Port, User: opts.User, Password: opts.Password, DBName: opts.DBName})
	case "postgres":
		reader, err = postgres.NewReader(postgres.Config{Host: opts.Host, Port: opts.Port, User: opts.User, Password: opts.Password, DBName: opts.DBName})
	case "sqlite3":
		reader, err = sqlite.NewReader(opts.File)
	case "mssql":
		reader, err = mssql.NewReader(mssql.Config{Host: opts.Host, Port: opts.Port, User: opts.User, Password: opts.Password, DBName: opts.DBName})
	case "":
		return nil, dialect.Capability{}, fmt.Errorf("one of -schema or -type is required")
	default:
		return nil, dialect.Capability{}, fmt.Errorf("unknown -type %q", opts.Type)
	}
	if err != nil {
		return nil, dialect.Capability{}, err
	}
	defer reader.Close()

	entities, cap, err := reader.ReadSchema(context.Background())
	if err != nil {
		return nil, dialect.Capability{}, err
	}
	database := schema.NewDatabase(opts.DBName)
	for _, e := range entities {
		database.Add(e)
	}
	return database, cap, nil
}

func capabilityFor(dialectType string) dialect.Capability {
	switch dialectType {
	case "mysql":
		return dialect.MySQLCapability()
	case "postgres":
		return dialect.PostgresCapability()
	case "mssql":
		return dialect.MSSQLCapability()
	case "sqlite3":
		return dialect.SQLiteCapability(dialect.SQLiteRescueVersion)
	default:
		return dialect.PostgresCapability()
	}
}
