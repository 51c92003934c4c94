// Package tables registers the built-in dataset definitions with the core
// registry. Import it for its side effects.
package tables

// Each dataset file registers itself from init().
