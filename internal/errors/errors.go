package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MissingReference indicates an id points at an entry absent from its table
	MissingReference ErrorCode = "MISSING_REFERENCE"
	// CycleDetected indicates a fragment or dep set chain revisits a node still being resolved
	CycleDetected ErrorCode = "CYCLE_DETECTED"
	// AmbiguousSourceFile indicates an action matched zero or several source files
	AmbiguousSourceFile ErrorCode = "AMBIGUOUS_SOURCE_FILE"
	// DuplicateIdentity indicates the same id appears twice in one table
	DuplicateIdentity ErrorCode = "DUPLICATE_IDENTITY"
	// InvalidTrace indicates the action graph could not be decoded
	InvalidTrace ErrorCode = "INVALID_TRACE"
	// WorkspaceMissing indicates no workspace directory was supplied
	WorkspaceMissing ErrorCode = "WORKSPACE_MISSING"
	// BuildToolFailed indicates the bazel subprocess exited unsuccessfully
	BuildToolFailed ErrorCode = "BUILD_TOOL_FAILED"
	// NoTargets indicates a query was requested without any target pattern
	NoTargets ErrorCode = "NO_TARGETS"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// SetFlag suggests passing a command line flag
	SetFlag FixActionType = "set-flag"
	// EditConfig suggests changing the configuration file
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Flag        string        `json:"flag,omitempty"`
	Description string        `json:"description,omitempty"`
}

// CompdbError represents a compdb error with code, message, and suggestions
type CompdbError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewCompdbError creates a new CompdbError. When suggestedFixes is nil the
// registered fixes for the code are attached.
func NewCompdbError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *CompdbError {
	if suggestedFixes == nil {
		suggestedFixes = GetSuggestedFixes(code)
	}
	return &CompdbError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// New creates an error with the given code and a formatted message.
func New(code ErrorCode, format string, args ...interface{}) *CompdbError {
	return NewCompdbError(code, fmt.Sprintf(format, args...), nil, nil)
}

// Wrap creates an error with the given code that wraps cause.
func Wrap(code ErrorCode, cause error, format string, args ...interface{}) *CompdbError {
	return NewCompdbError(code, fmt.Sprintf(format, args...), cause, nil)
}

// Error implements the error interface
func (e *CompdbError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CompdbError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a CompdbError with the same code.
func (e *CompdbError) Is(target error) bool {
	t, ok := target.(*CompdbError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *CompdbError) WithDetails(details interface{}) *CompdbError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CompdbError in err's chain, or the
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	var ce *CompdbError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a CompdbError with code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	WorkspaceMissing: {
		{
			Type:        SetFlag,
			Flag:        "--workspace",
			Description: "Pass the workspace directory explicitly",
		},
		{
			Type:        RunCommand,
			Command:     "bazel run //tools:compdb -- //...",
			Description: "Run through bazel run so BUILD_WORKSPACE_DIRECTORY is provided",
		},
	},
	NoTargets: {
		{
			Type:        RunCommand,
			Command:     "compdb generate //...",
			Description: "Name at least one target pattern to query",
		},
	},
	BuildToolFailed: {
		{
			Type:        SetFlag,
			Flag:        "--trace",
			Description: "Capture the aquery output separately and pass the file with --trace",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "compdb config show",
			Description: "Inspect the effective configuration",
		},
	},
	AmbiguousSourceFile: {
		{
			Type:        EditConfig,
			Description: "Check that the action compiles exactly one source file listed among its inputs",
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
