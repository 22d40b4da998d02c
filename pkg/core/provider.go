package core

// Provider identifies a SQL backend family. The set is fixed: adding a
// backend means adding a constant here and a matching arm in the driver
// factory, which switches exhaustively over these values.
type Provider string

const (
	ProviderPostgres  Provider = "postgres"
	ProviderMySQL     Provider = "mysql"
	ProviderSQLite    Provider = "sqlite"
	ProviderSQLServer Provider = "sqlserver"
)

// Providers returns all known providers in a stable order.
func Providers() []Provider {
	return []Provider{ProviderPostgres, ProviderMySQL, ProviderSQLite, ProviderSQLServer}
}

// Known reports whether p is a member of the fixed provider enumeration.
func (p Provider) Known() bool {
	switch p {
	case ProviderPostgres, ProviderMySQL, ProviderSQLite, ProviderSQLServer:
		return true
	}
	return false
}

// Variant selects a concrete adapter within a provider family, for the
// families that ship more than one (postgres over TCP vs. a unix socket,
// embedded sqlite vs. the edge/libSQL flavor).
type Variant string

const (
	// VariantDefault picks the family's standard adapter.
	VariantDefault Variant = ""

	// VariantSocket selects the postgres adapter that dials a unix socket.
	VariantSocket Variant = "socket"

	// VariantEdge selects the remote edge flavor of sqlite or mysql.
	VariantEdge Variant = "edge"
)

// AdapterInfo describes a constructed adapter: which provider family it
// belongs to, the concrete adapter name, and optional capability flags.
type AdapterInfo struct {
	Provider Provider

	// Name is the concrete adapter name, e.g. "postgres+socket" or
	// "sqlite+edge".
	Name string

	// SupportsRelationJoins reports whether the backend can evaluate
	// database-side relation joins.
	SupportsRelationJoins bool
}

// ConnectionInfo carries backend connection details for adapters that can
// report them. The capability is optional; adapters without it return
// ok=false from ConnectionInfo.
type ConnectionInfo struct {
	// Schema is the active schema (search path head for postgres, database
	// name for mysql-family backends).
	Schema string

	// MaxBindValues caps the number of bind parameters a single statement
	// may carry, when the backend imposes one.
	MaxBindValues int
}
