// Package modkit holds the small contract every ghscan module follows
package modkit

import "github.com/go-chi/chi/v5"

// Module is the common surface for modules that expose ports and optional operator routes
// keep this tiny so modules stay decoupled
type Module interface {
	// MountRoutes mounts operator HTTP routes; modules without routes do nothing
	MountRoutes(r chi.Router)
	// Ports returns a module specific port set for cross wiring
	Ports() any

	// Name returns the module name
	Name() string
}
