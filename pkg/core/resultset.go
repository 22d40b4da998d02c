package core

// ResultSet is the materialized outcome of a raw query: column names, the
// backend's declared column types, and row values decoded to Go natives.
// It is the one row-shaped value that crosses component boundaries, so it
// carries no driver handles and is safe to retain after the connection is
// returned to the pool.
type ResultSet struct {
	Columns []string
	Types   []string
	Rows    [][]any

	// LastInsertID is set by backends that report it (mysql, sqlite);
	// nil otherwise.
	LastInsertID *int64
}

// EmptyResultSet returns a result set with no columns and no rows.
func EmptyResultSet() *ResultSet {
	return &ResultSet{Columns: []string{}, Types: []string{}, Rows: [][]any{}}
}
