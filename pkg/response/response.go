// Package response defines the uniform result envelope returned by every
// tool operation, and the error-code taxonomy shared across the server.
package response

import "fmt"

// Code identifies a class of operation failure.
type Code string

const (
	// Configuration errors.
	CodeNoWorkdir      Code = "NO_WORKDIR"
	CodeWorkdirMissing Code = "WORKDIR_MISSING"
	CodeDirNotFound    Code = "DIR_NOT_FOUND"
	CodeNotADir        Code = "NOT_A_DIR"
	CodeSetDirError    Code = "SET_DIR_ERROR"

	// Path safety.
	CodeUnsafePath Code = "UNSAFE_PATH"

	// Existence conflicts.
	CodeFileExists   Code = "FILE_EXISTS"
	CodeFileNotFound Code = "FILE_NOT_FOUND"
	CodeNotAFile     Code = "NOT_A_FILE"
	CodeEmptyFile    Code = "EMPTY_FILE"
	CodeNoRData      Code = "NO_RDATA"

	// Size and encoding.
	CodeFileTooLarge Code = "FILE_TOO_LARGE"
	CodeDecodeError  Code = "DECODE_ERROR"

	// Process errors.
	CodeRNotFound       Code = "R_NOT_FOUND"
	CodeRExecutionError Code = "R_EXECUTION_ERROR"
	CodeTimeout         Code = "TIMEOUT"
	CodeExecutionError  Code = "EXECUTION_ERROR"

	// Per-operation catch-alls.
	CodeCreateError   Code = "CREATE_ERROR"
	CodeRenameError   Code = "RENAME_ERROR"
	CodeAppendError   Code = "APPEND_ERROR"
	CodeWriteError    Code = "WRITE_ERROR"
	CodeListError     Code = "LIST_ERROR"
	CodeReadError     Code = "READ_ERROR"
	CodePreviewError  Code = "PREVIEW_ERROR"
	CodeAnalysisError Code = "ANALYSIS_ERROR"

	// Anything an operation handler did not anticipate.
	CodeInternalError Code = "INTERNAL_ERROR"
)

// Error is a structured operation failure. It implements the error
// interface so domain packages can return it through ordinary error
// plumbing while the server layer keeps the typed code.
type Error struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Hints   []string `json:"hints,omitempty"`
	Details any      `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errf builds an Error with a formatted message.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithHints attaches caller guidance to the error and returns it.
func (e *Error) WithHints(hints ...string) *Error {
	e.Hints = append(e.Hints, hints...)
	return e
}

// WithDetails attaches a structured payload to the error and returns it.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Envelope is the wire-level result of a tool call: exactly one of Data
// or Err is populated.
type Envelope struct {
	OK   bool   `json:"ok"`
	Data any    `json:"data,omitempty"`
	Err  *Error `json:"error,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// Fail wraps a structured error.
func Fail(err *Error) Envelope {
	return Envelope{OK: false, Err: err}
}
