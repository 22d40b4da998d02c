// Package recorder provides a decorating Recorder/Replayer pair around the
// capture-shaped adapter for deterministic, I/O-free query fixtures: record
// once against a live backend, then replay without any backend at all.
package recorder

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// Key normalizes a (query, args) pair into the recording key: each
// positional placeholder token is textually replaced by the stringified
// argument, in order.
//
// Caveat: the replacement is purely textual. It assumes placeholder tokens
// are unambiguous substrings of the query text and is not safe against SQL
// containing literal placeholder-like substrings (a "$1" inside a string
// literal will be rewritten). Keys bind textually, not positionally.
func Key(provider core.Provider, query string, args []any) string {
	for i, arg := range args {
		query = strings.Replace(query, placeholder(provider, i), stringify(arg), 1)
	}
	return query
}

// placeholder returns the i-th (zero-based) positional placeholder token in
// the provider's dialect.
func placeholder(provider core.Provider, i int) string {
	switch provider {
	case core.ProviderPostgres:
		return fmt.Sprintf("$%d", i+1)
	case core.ProviderSQLServer:
		return fmt.Sprintf("@p%d", i+1)
	default:
		return "?"
	}
}

func stringify(arg any) string {
	if arg == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", arg)
}
