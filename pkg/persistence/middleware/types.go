// Package middleware wraps a ProgressStore to change what reaches the backend.
package middleware

import "github.com/aretw0/lessonweave/pkg/ports"

// Middleware allows wrapping a ProgressStore to add behavior.
type Middleware func(ports.ProgressStore) ports.ProgressStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.ProgressStore, mws ...Middleware) ports.ProgressStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
