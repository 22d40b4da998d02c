package driver

import (
	"fmt"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// UnknownProviderError is returned when the factory is asked for a provider
// outside the fixed enumeration.
type UnknownProviderError struct {
	Provider  core.Provider
	Available []core.Provider
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q\nAvailable providers: %v\nHint: check the database.provider setting in querypipe.yaml", e.Provider, e.Available)
}

// UnknownVariantError is returned when a provider family does not ship the
// requested variant.
type UnknownVariantError struct {
	Provider core.Provider
	Variant  core.Variant
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("provider %q has no %q variant", e.Provider, e.Variant)
}
