// Package dialect models the three dialect-dependent decisions the
// translator has to make (spec.md §9 Dialect switches) as a capability
// record. The translator reads these capability fields for most of its
// decisions; the composite-key len()/count() path in translate/attrset.go
// also compares Dialect against Oracle and SQLite directly.
package dialect

// Name identifies which of the teacher's own driver packages backs a
// Capability value. The translator switches on it in one place: the
// composite-key len()/count() of AttrSetMonad, where Oracle selects the
// COUNT(COUNT(*)) form and SQLite selects the ROWID or nested-DISTINCT
// forms.
type Name string

const (
	MySQL    Name = "mysql"
	Postgres Name = "postgres"
	SQLite   Name = "sqlite3"
	MSSQL    Name = "mssql"
	Oracle   Name = "oracle" // no introspector ships for it, capability-only
)

// Version is a simple (major, minor, patch) tuple, used only for the
// SQLite ROWID-rescue gate: versions below SQLiteRescueVersion (3, 6, 21),
// i.e. up to 3.6.20 (spec.md §4.2).
type Version [3]int

func (v Version) Less(other Version) bool {
	for i := 0; i < 3; i++ {
		if v[i] != other[i] {
			return v[i] < other[i]
		}
	}
	return false
}

// Capability is the record passed into a Translator describing what its
// target database can do. It is immutable once built.
type Capability struct {
	Dialect Name

	// RowValueSyntax reports whether `(a,b) IN (SELECT ...)` and
	// `(a,b) OP (c,d)` are available (spec.md §4.2 Containment, §4.4).
	RowValueSyntax bool

	// CompositeCountDistinct reports whether `COUNT(DISTINCT a, b)` over a
	// composite key is supported directly.
	CompositeCountDistinct bool

	// RowidRescue reports whether a ROWID-like column is available as a
	// single-column distinct-count surrogate for a composite PK (SQLite
	// only, and only below SQLiteRescueVersion).
	RowidRescue bool

	// SQLiteVersion is populated only when Dialect == SQLite; it gates the
	// `COUNT(DISTINCT ROWID)` vs. `COUNT(*) FROM (SELECT DISTINCT ...)`
	// split documented in spec.md §4.2.
	SQLiteVersion Version
}

// SQLiteRescueVersion is the (3, 6, 21) boundary from spec.md §4.2: below
// it, `COUNT(DISTINCT ROWID)` is used; at or above it, the nested-DISTINCT
// rewrite is used instead.
var SQLiteRescueVersion = Version{3, 6, 21}

func MySQLCapability() Capability {
	return Capability{Dialect: MySQL, RowValueSyntax: true, CompositeCountDistinct: true}
}

func PostgresCapability() Capability {
	return Capability{Dialect: Postgres, RowValueSyntax: true, CompositeCountDistinct: true}
}

func MSSQLCapability() Capability {
	return Capability{Dialect: MSSQL, RowValueSyntax: false, CompositeCountDistinct: false}
}

func OracleCapability() Capability {
	return Capability{Dialect: Oracle, RowValueSyntax: false, CompositeCountDistinct: false}
}

func SQLiteCapability(version Version) Capability {
	return Capability{
		Dialect:       SQLite,
		RowValueSyntax: false,
		RowidRescue:    version.Less(SQLiteRescueVersion),
		SQLiteVersion:  version,
	}
}
