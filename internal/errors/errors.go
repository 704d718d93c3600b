package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an AppError. The HTTP layer maps it to a status.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeAI          ErrorType = "ai"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnavailable ErrorType = "unavailable"
)

// Error codes carried by AppError.Code
const (
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeAIServiceFailed = "AI_SERVICE_FAILED"
	ErrCodeMissingAPIKey   = "MISSING_API_KEY"

	ErrCodeCandidateNotFound    = "CANDIDATE_NOT_FOUND"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeSessionEnded         = "SESSION_ENDED"
	ErrCodeEmptyHistory         = "EMPTY_HISTORY"
	ErrCodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	ErrCodeStorageUploadFailed  = "STORAGE_UPLOAD_FAILED"
	ErrCodeWarehouseWriteFailed = "WAREHOUSE_WRITE_FAILED"
	ErrCodeWarehouseReadFailed  = "WAREHOUSE_READ_FAILED"
	ErrCodeExtractionFailed     = "TEXT_EXTRACTION_FAILED"
)

// AppError is a classified failure with a stable code
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another AppError with the same type and code, so sentinel
// values work with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Type == e.Type && t.Code == e.Code
}

// WithContext attaches a key that LogError emits as a log attribute
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func NewValidationError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message, Cause: cause}
}

func NewIOError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

func NewAIError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeAI, Code: code, Message: message, Cause: cause}
}

func NewNetworkError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Code: code, Message: message, Cause: cause}
}

func NewConfigError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Code: code, Message: message, Cause: cause}
}

func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// NewNotFoundError reports a missing candidate or session. Callers treat
// it as a warning with no side effects.
func NewNotFoundError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Code: code, Message: message, Cause: cause}
}

// NewUnavailableError reports a backing service whose client never came up
func NewUnavailableError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeUnavailable, Code: code, Message: message, Cause: cause}
}

// TypeOf returns the type of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsNotFound(err error) bool    { return TypeOf(err) == ErrorTypeNotFound }
func IsUnavailable(err error) bool { return TypeOf(err) == ErrorTypeUnavailable }
