// Package middleware provides composable SessionStore wrappers for
// at-rest data protection: envelope encryption and PII masking.
package middleware

import "github.com/aretw0/espalier/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares right to left, so the first one listed sees
// Save calls first.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
