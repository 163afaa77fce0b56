// Package middleware wraps a ports.ResponseStore with at-rest behavior:
// envelope encryption and PII redaction. Responses hold whatever a
// respondent typed, so deployments that persist them to shared
// infrastructure usually want at least one of the two.
package middleware

import "github.com/espalierhq/espalier/pkg/ports"

// Middleware allows wrapping a ResponseStore to add behavior.
type Middleware func(ports.ResponseStore) ports.ResponseStore

// Chain applies middlewares to the store, first one outermost.
func Chain(store ports.ResponseStore, mws ...Middleware) ports.ResponseStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
