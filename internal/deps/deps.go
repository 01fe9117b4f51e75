// Package deps locates the external binaries timelapse runs.
package deps

// Status reports whether a binary can be executed. Command is the resolved
// path when Available, otherwise the name or path that was tried; Detail
// explains a failure or notes how the binary was found.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}
