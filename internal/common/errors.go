package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeNotSupported      = "NOT_SUPPORTED"
	CodeUnknownFormat     = "UNKNOWN_FORMAT"
	CodeInvalidFormat     = "INVALID_FORMAT"
	CodeMissingDependency = "MISSING_DEPENDENCY"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeInvalidArchive    = "INVALID_ARCHIVE"
	CodeEnrichmentFailed  = "ENRICHMENT_FAILED"
	CodeConfig            = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrNotSupported      = errors.New("format not supported")
	ErrUnknownFormat     = errors.New("unknown format")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrMissingDependency = errors.New("missing dependency")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrInvalidArchive    = errors.New("invalid archive")
	ErrEnrichmentFailed  = errors.New("enrichment failed")
)

var sentinelByCode = map[string]error{
	CodeNotSupported:      ErrNotSupported,
	CodeUnknownFormat:     ErrUnknownFormat,
	CodeInvalidFormat:     ErrInvalidFormat,
	CodeMissingDependency: ErrMissingDependency,
	CodeExtractionFailed:  ErrExtractionFailed,
	CodeInvalidArchive:    ErrInvalidArchive,
	CodeEnrichmentFailed:  ErrEnrichmentFailed,
	CodeConfig:            ErrInvalidInput,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewKindError builds an AppError whose cause chain contains both the kind
// sentinel for code and the underlying diagnostic, so errors.Is matches either.
func NewKindError(code, message string, cause error) *AppError {
	sentinel, ok := sentinelByCode[code]
	if !ok {
		sentinel = ErrInternal
	}
	if cause == nil {
		return NewAppError(code, message, sentinel)
	}
	return NewAppError(code, message, fmt.Errorf("%w: %w", sentinel, cause))
}

func NotSupported(message string) *AppError {
	return NewKindError(CodeNotSupported, message, nil)
}

func UnknownFormat(ext string) *AppError {
	if ext == "" {
		return NewKindError(CodeUnknownFormat, "file has no extension", nil)
	}
	return NewKindError(CodeUnknownFormat, fmt.Sprintf("unsupported file type: .%s", ext), nil)
}

func InvalidFormat(message string, cause error) *AppError {
	return NewKindError(CodeInvalidFormat, message, cause)
}

// MissingDependency names the absent native capability and how to install it.
func MissingDependency(dependency, hint string, cause error) *AppError {
	return NewKindError(CodeMissingDependency, fmt.Sprintf("%s not found; %s", dependency, hint), cause)
}

func ExtractionFailed(message string, cause error) *AppError {
	return NewKindError(CodeExtractionFailed, message, cause)
}

func InvalidArchive(cause error) *AppError {
	return NewKindError(CodeInvalidArchive, "cannot open zip archive", cause)
}

func EnrichmentFailed(message string, cause error) *AppError {
	return NewKindError(CodeEnrichmentFailed, message, cause)
}

// KindOf returns the AppError code found in err's chain, or "" when none.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsWarning reports whether err should be surfaced as a warning instead of an error.
func IsWarning(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error onto the status code returned by the HTTP API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotSupported), errors.Is(err, ErrUnknownFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidArchive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMissingDependency):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEnrichmentFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToGRPCStatus maps an error onto a gRPC status error.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotSupported), errors.Is(err, ErrUnknownFormat):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, ErrInvalidFormat), errors.Is(err, ErrInvalidArchive),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrMissingDependency):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrEnrichmentFailed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	default:
		return InternalError(err.Error())
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
