// Package apiclient is the typed HTTP client the CLI uses to drive a running
// timelapse daemon. Non-2xx responses surface as *StatusError, which unwraps
// to the services error markers.
package apiclient
