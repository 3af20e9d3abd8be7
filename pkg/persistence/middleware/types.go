// Package middleware wraps kv backends with encryption at rest and PII masking.
package middleware

import "github.com/aretw0/drip/pkg/adapters/kv"

// Middleware allows wrapping a Backend to add behavior.
type Middleware func(kv.Backend) kv.Backend

// Chain applies mws to b so that the first middleware is the outermost.
func Chain(b kv.Backend, mws ...Middleware) kv.Backend {
	for i := len(mws) - 1; i >= 0; i-- {
		b = mws[i](b)
	}
	return b
}
