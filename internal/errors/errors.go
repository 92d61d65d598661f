package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// innermost AppError in the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the first AppError in the chain, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// UserMessage returns the message of the first AppError in the chain without
// its causes. Falls back to err.Error().
func UserMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Predefined error codes
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeParseFailed         = "PARSE_FAILED"
	CodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	CodeSheetNotFound       = "SHEET_NOT_FOUND"
	CodeEmptyGrid           = "EMPTY_GRID"
	CodeUnsupportedAnalysis = "UNSUPPORTED_ANALYSIS"
	CodeNotAnalyzed         = "NOT_ANALYZED"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s service error", service),
		Cause:   cause,
	}
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ParseFailed(message string, cause error) *AppError {
	return &AppError{Code: CodeParseFailed, Message: message, Cause: cause}
}

func UnsupportedFormat(message string) *AppError {
	return New(CodeUnsupportedFormat, message)
}

func SheetNotFound(sheet string) *AppError {
	return New(CodeSheetNotFound, fmt.Sprintf("シート '%s' が見つかりません", sheet))
}

func EmptyGrid() *AppError {
	return New(CodeEmptyGrid, "データが見つかりません")
}

func UnsupportedAnalysis(kind string) *AppError {
	return New(CodeUnsupportedAnalysis, fmt.Sprintf("サポートされていない分析タイプです: %s", kind))
}

func NotAnalyzed() *AppError {
	return New(CodeNotAnalyzed, "分析が実行されていません")
}
