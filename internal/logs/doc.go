// Package logs reads the daemon's log file for the CLI.
//
// Last returns the trailing lines of a file together with the byte offset
// where reading stopped, and Follow polls from that offset, emitting each new
// line until the context ends. A file that shrinks below the offset (the
// daemon restarted and replaced timelapse.log) is read again from the start.
package logs
