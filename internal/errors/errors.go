package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RootMissing indicates the crawl root does not exist (soft, the run is skipped)
	RootMissing ErrorCode = "ROOT_MISSING"
	// HistoryUnavailable indicates the history store could not answer a query
	HistoryUnavailable ErrorCode = "HISTORY_UNAVAILABLE"
	// Timeout indicates a query exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// WriterClosed indicates a write was attempted after the writer was finalized
	WriterClosed ErrorCode = "WRITER_CLOSED"
	// OutputFailed indicates the output file could not be opened, written or flushed
	OutputFailed ErrorCode = "OUTPUT_FAILED"
	// ConfigInvalid indicates the configuration could not be loaded or failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// SubmoduleFailed indicates an external submodule could not be fetched or built
	SubmoduleFailed ErrorCode = "SUBMODULE_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration key
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Description string        `json:"description,omitempty"`
}

// SitemapError represents an error with a stable code, message, and suggestions
type SitemapError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new SitemapError
func New(code ErrorCode, message string, cause error) *SitemapError {
	return &SitemapError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *SitemapError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SitemapError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SitemapError) WithDetails(details interface{}) *SitemapError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var se *SitemapError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsSoft reports whether err should be logged and skipped rather than fail the run.
func IsSoft(err error) bool {
	return CodeOf(err) == RootMissing
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RootMissing: {
		{
			Type:        EditConfig,
			Key:         "root",
			Description: "Point root at the directory holding the built static site",
		},
	},
	HistoryUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git fetch --unshallow",
			Description: "Shallow clones report truncated commit counts",
		},
	},
	Timeout: {
		{
			Type:        EditConfig,
			Key:         "history.timeoutMs",
			Description: "Raise the per-lookup timeout",
		},
	},
	OutputFailed: {
		{
			Type:        EditConfig,
			Key:         "output",
			Description: "Check that the output directory exists and is writable",
		},
	},
	SubmoduleFailed: {
		{
			Type:        RunCommand,
			Command:     "sitemapkit build --skip-submodules",
			Description: "Skip the submodule builds",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
