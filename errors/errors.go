package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode identifies a failure class across the pipeline.
type ErrorCode string

const (
	ErrorCode_INTERNAL             ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT     ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_NOT_FOUND            ErrorCode = "NOT_FOUND"
	ErrorCode_AUDIO_DECODE         ErrorCode = "AUDIO_DECODE"
	ErrorCode_AUDIO_DURATION       ErrorCode = "AUDIO_DURATION"
	ErrorCode_CAPTIONS_UNAVAILABLE ErrorCode = "CAPTIONS_UNAVAILABLE"
	ErrorCode_RECOGNITION_FAILED   ErrorCode = "RECOGNITION_FAILED"
	ErrorCode_PROVIDER_FAILED      ErrorCode = "PROVIDER_FAILED"
	ErrorCode_QUOTA_EXHAUSTED      ErrorCode = "QUOTA_EXHAUSTED"
	ErrorCode_VALIDATION_FAILED    ErrorCode = "VALIDATION_FAILED"
	ErrorCode_CACHE_WRITE_FAILED   ErrorCode = "CACHE_WRITE_FAILED"
	ErrorCode_PIPELINE_BUSY        ErrorCode = "PIPELINE_BUSY"
	ErrorCode_STAGE_FAILED         ErrorCode = "STAGE_FAILED"
	ErrorCode_STORAGE_FAILED       ErrorCode = "STORAGE_FAILED"
	ErrorCode_DB_QUERY_FAILED      ErrorCode = "DB_QUERY_FAILED"
)

func (c ErrorCode) String() string { return string(c) }

// AppError is the custom error type carried across service boundaries.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements the error interface.
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e AppError) Unwrap() error { return e.Raw }

// WithDetail adds a detail to the error.
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the ErrorCode of err if it is (or wraps) an AppError.
func CodeOf(err error) (ErrorCode, bool) {
	var ae AppError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// General errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// Audio preparation errors

func ErrDecodeFailed(format string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_AUDIO_DECODE,
		Message:  "Failed to decode audio",
	}.WithDetail("format", format)
}

func ErrDurationOutOfBounds(measured, min, max float64) AppError {
	return AppError{
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_AUDIO_DURATION,
		Message: fmt.Sprintf("Audio duration %.1fs outside allowed range %.0fs-%.0fs",
			measured, min, max),
	}.WithDetail("measured_seconds", fmt.Sprintf("%.2f", measured))
}

// Transcription errors

func ErrCaptionsUnavailable(sourceID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_CAPTIONS_UNAVAILABLE,
		Message:  "Captions unavailable for source",
	}.WithDetail("source_id", sourceID)
}

func ErrRecognitionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_RECOGNITION_FAILED,
		Message:  "Speech recognition failed",
	}
}

func ErrCacheWriteFailed(sourceID string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CACHE_WRITE_FAILED,
		Message:  "Failed to persist transcript to cache",
	}.WithDetail("source_id", sourceID)
}

func ErrPipelineBusy() AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_PIPELINE_BUSY,
		Message:  "A transcription is already in progress",
	}
}

// Generation errors

func ErrProviderFailed(provider string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_PROVIDER_FAILED,
		Message:  fmt.Sprintf("Provider %s request failed", provider),
	}.WithDetail("provider", provider)
}

func ErrQuotaExhausted(attempted []string) AppError {
	return AppError{
		HTTPCode: http.StatusTooManyRequests,
		Code:     ErrorCode_QUOTA_EXHAUSTED,
		Message:  fmt.Sprintf("All providers exhausted: %s", strings.Join(attempted, ", ")),
	}.WithDetail("providers", strings.Join(attempted, ","))
}

// Validation errors

func ErrValidationFailed(itemType string, reasons []string) AppError {
	return AppError{
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     ErrorCode_VALIDATION_FAILED,
		Message:  fmt.Sprintf("Invalid %s item: %s", itemType, strings.Join(reasons, "; ")),
	}.WithDetail("item_type", itemType)
}

// Pipeline errors

func ErrStageFailed(stage string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STAGE_FAILED,
		Message:  fmt.Sprintf("Pipeline stage %s failed", stage),
	}.WithDetail("stage", stage)
}

// Infrastructure errors

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrDBQueryFailed(query string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_QUERY_FAILED,
		Message:  "Database query failed",
	}.WithDetail("query", query)
}
