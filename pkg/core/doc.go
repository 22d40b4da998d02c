// Package core defines the shared language of the querypipe system.
//
// This package contains:
//   - The fixed provider enumeration and adapter descriptors
//   - Result set and transaction types crossing component boundaries
//   - Query envelope types (JSONQuery, BatchQuery)
//   - Configuration types (DatabaseConfig)
//
// The Golden Rule: pkg/core imports ONLY the stdlib.
// All other packages depend on core, not the reverse.
package core
