package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error produced by the pipeline is tagged with exactly one
// of these markers so callers can branch with errors.Is.
var (
	ErrDecode            = errors.New("decode error")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
	ErrTransport         = errors.New("transport error")
	ErrUpstreamFormat    = errors.New("upstream format error")
	ErrUnsupportedMedia  = errors.New("unsupported media error")
	ErrInvalidTransition = errors.New("invalid transition")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker. The marker should be one of the sentinels above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FormatError is returned when the external capability answered but the text
// could not be used as an analysis result. Raw keeps the unparsed text.
type FormatError struct {
	Message string
	Raw     string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrUpstreamFormat, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrUpstreamFormat, e.Message)
}

// Unwrap exposes both the kind marker and the underlying cause.
func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamFormat}
	}
	return []error{ErrUpstreamFormat, e.Err}
}

// Retryable reports whether a fresh attempt could plausibly succeed without
// operator intervention.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Kind returns a stable identifier for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrUnsupportedMedia):
		return "unsupported_media"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrUpstreamFormat):
		return "upstream_format_error"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal_error"
	}
}

// MarkerForKind is the inverse of Kind. Unknown kinds map to nil.
func MarkerForKind(kind string) error {
	switch kind {
	case "validation_error":
		return ErrValidation
	case "decode_error":
		return ErrDecode
	case "unsupported_media":
		return ErrUnsupportedMedia
	case "configuration_error":
		return ErrConfiguration
	case "upstream_format_error":
		return ErrUpstreamFormat
	case "transport_error":
		return ErrTransport
	case "invalid_transition":
		return ErrInvalidTransition
	default:
		return nil
	}
}

// RawText returns the raw upstream text attached to err, if any.
func RawText(err error) (string, bool) {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Raw != "" {
		return fe.Raw, true
	}
	return "", false
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "palm analysis failure"
	}
	return strings.Join(parts, ": ")
}

// Message returns the text of err without its leading kind marker. For a
// FormatError it is the short message only, never the raw text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Message
	}
	text := err.Error()
	if marker := MarkerForKind(Kind(err)); marker != nil {
		text = strings.TrimPrefix(text, marker.Error()+": ")
	}
	return text
}
