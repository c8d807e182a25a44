// Package core contains canonical interaction domain contracts, entities, and
// the interaction lifecycle state machine. Lower-level adapters must depend on
// this package; core must not depend on transport-specific or store-specific
// adapters.
package core
