// Package metrics exposes daemon job and API metrics through a private
// prometheus registry.
package metrics
