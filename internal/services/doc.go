// Package services holds the error markers and context keys shared by the
// workflow, the HTTP API, and the CLI.
//
// Wrap classifies a failure with a marker such as ErrValidation or ErrNotFound
// so callers branch with errors.Is instead of matching strings, and HTTPStatus
// turns the marker into a response code. The context helpers carry the job id,
// stage, and request id that logging attaches to every line.
package services
