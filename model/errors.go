package model

import (
	"errors"
	"fmt"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrTurnInProgress  = errors.New("a turn is already running for this chat")
	ErrStreamConsumed  = errors.New("stream already consumed")
	ErrUnknownProvider = errors.New("unknown provider")
)

// InvalidModelError is returned when the requested model is not offered by
// the provider.
type InvalidModelError struct {
	Provider string
	Model    string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("model %s is either not found or not available", e.Model)
}

// UpstreamError is a failure reported by (or while talking to) a generation
// backend. Code is the HTTP status when known, 0 otherwise.
type UpstreamError struct {
	Provider string
	Code     int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s API response error (%d): %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API response error: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Tool error kinds, used as the errorType part of absorbed tool results.
const (
	ToolErrNotFound        = "NotFound"
	ToolErrArguments       = "InvalidArguments"
	ToolErrMissingArgument = "MissingArgument"
	ToolErrCredential      = "MissingCredential"
	ToolErrNetwork         = "Network"
	ToolErrHTTPStatus      = "HTTPStatus"
	ToolErrDecode          = "Decode"
	ToolErrSummarize       = "Summarize"
	ToolErrTokenizer       = "Tokenizer"
	ToolErrDepthLimit      = "DepthLimit"
	ToolErrCancelled       = "Cancelled"
)

// ToolExecutionError wraps any failure of a tool executor.
type ToolExecutionError struct {
	ToolName string
	Kind     string
	Cause    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.ToolName, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// ErrorType returns the short failure kind.
func (e *ToolExecutionError) ErrorType() string {
	if e.Kind == "" {
		return "ToolExecutionError"
	}
	return e.Kind
}

// ToolFailureContent renders a tool failure as the content of the tool
// message, so the model can see its own call failed.
func ToolFailureContent(name string, err error) string {
	var te *ToolExecutionError
	if errors.As(err, &te) {
		return fmt.Sprintf("Unable to use %s: %s - %v", name, te.ErrorType(), te.Cause)
	}
	return fmt.Sprintf("Unable to use %s: %T - %v", name, err, err)
}

// StoreError is any persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
