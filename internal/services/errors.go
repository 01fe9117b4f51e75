package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Markers classify failures; callers test them with errors.Is.
var (
	ErrExternalTool = errors.New("external tool error")
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

var markers = []error{ErrExternalTool, ErrValidation, ErrNotFound, ErrConflict, ErrInternal}

// Wrap tags err with marker and a "component: operation: message" prefix.
// Empty segments are skipped, a nil marker becomes ErrInternal, and a nil
// err yields a standalone error.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrInternal
	}
	detail := joinSegments(component, operation, message)
	if err == nil {
		return fmt.Errorf("%w: %s", marker, detail)
	}
	return fmt.Errorf("%w: %s: %w", marker, detail, err)
}

// HTTPStatus maps a marked error to the response code the API surfaces.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Detail strips the marker prefix so user-facing messages read naturally.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range markers {
		if rest, ok := strings.CutPrefix(msg, marker.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

func joinSegments(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return "unspecified failure"
	}
	return b.String()
}
