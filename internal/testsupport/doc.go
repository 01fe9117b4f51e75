// Package testsupport builds isolated configs, frame directories, and ffmpeg
// stubs for tests across the module.
package testsupport
