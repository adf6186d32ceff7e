package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure kinds surfaced to callers. Each sentinel tags an error chain so the
// transport layer can map it without string matching.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrStageDegraded     = errors.New("stage degraded")
	ErrAlreadyProcessing = errors.New("already processing")
	ErrNotFound          = errors.New("not found")
	ErrStillProcessing   = errors.New("still processing")
	ErrInvalidInput      = errors.New("invalid input")
)

const (
	KindUnsupportedFormat = "unsupported_format"
	KindExtractionFailed  = "extraction_failed"
	KindStageDegraded     = "stage_degraded"
	KindAlreadyProcessing = "already_processing"
	KindNotFound          = "not_found"
	KindStillProcessing   = "still_processing"
	KindBadRequest        = "bad_request"
	KindInternal          = "internal"
)

type AppError struct {
	StatusCode     int
	Kind           string
	Message        string
	DegradedStages []string
	Err            error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Kind: KindBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Kind: KindNotFound, Message: message, Err: ErrNotFound}
}

func NewConflictError(kind, message string) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Kind: kind, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Kind: KindInternal, Message: message}
}

// Wrap tags err with marker and prefixes it with the component and operation
// that produced it.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf reports the taxonomy kind carried by err, or KindInternal.
func KindOf(err error) string {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Kind
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrStageDegraded):
		return KindStageDegraded
	case errors.Is(err, ErrAlreadyProcessing):
		return KindAlreadyProcessing
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStillProcessing):
		return KindStillProcessing
	case errors.Is(err, ErrInvalidInput):
		return KindBadRequest
	default:
		return KindInternal
	}
}

// MapError converts any error into an AppError suitable for a response.
// Untagged errors become a generic 500 so internals are not leaked.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	kind := KindOf(err)
	status := http.StatusInternalServerError
	message := "Internal server error"
	switch kind {
	case KindUnsupportedFormat:
		status, message = http.StatusUnsupportedMediaType, err.Error()
	case KindExtractionFailed:
		status, message = http.StatusUnprocessableEntity, err.Error()
	case KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case KindStillProcessing, KindAlreadyProcessing:
		status, message = http.StatusConflict, err.Error()
	case KindBadRequest:
		status, message = http.StatusBadRequest, err.Error()
	}
	return &AppError{StatusCode: status, Kind: kind, Message: message, Err: err}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{component, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
