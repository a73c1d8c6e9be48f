package rule

import "context"

// Store is the read-only boundary the engine queries rules through. The
// engine never writes; rule lifecycle belongs to whatever sits behind this
// interface.
type Store interface {
	// AllRules returns every known rule, enabled or not.
	AllRules(ctx context.Context) ([]Definition, error)

	// EnabledRules returns only rules with Enabled set.
	EnabledRules(ctx context.Context) ([]Definition, error)
}
