// Package logging builds the slog loggers used by the daemon and the CLI.
//
// New picks a console or JSON handler, opens the configured output files, and
// stamps an optional session id. WithContext attaches job, stage, and request
// ids carried in a context. WarnWithContext and ErrorWithContext make sure
// every warning or error names its event type and a hint for the operator.
package logging
