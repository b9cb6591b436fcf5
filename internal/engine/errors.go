package engine

import "fmt"

// ErrorKind classifies an execution failure. Kinds are part of the agent
// contract: they travel in the trigger response as errorKind.
type ErrorKind string

const (
	KindTriggerNotFound ErrorKind = "TriggerNotFoundError"
	KindInputValidation ErrorKind = "InputValidationError"
	KindTemplateRender  ErrorKind = "TemplateRenderError"
	KindConnector       ErrorKind = "ConnectorError"
	KindExtraction      ErrorKind = "ExtractionError"
	KindValidation      ErrorKind = "ValidationError"
	KindCancelled       ErrorKind = "CancelledError"
	KindInternal        ErrorKind = "InternalError"
)

// Error is a typed execution failure. The orchestrator is the only place
// that translates these into the external result shape; callers of Execute
// never see one directly.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func failf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}
