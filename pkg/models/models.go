// Package models defines the domain models for the fieldbridge middleware.
package models

import "time"

// ExecStatus represents the terminal status of a workflow execution.
type ExecStatus string

const (
	ExecStatusSuccess ExecStatus = "success"
	ExecStatusError   ExecStatus = "error"
)

// InsertMode represents how content is written into a target field.
type InsertMode string

const (
	InsertModeReplace InsertMode = "replace"
	InsertModeAppend  InsertMode = "append"
	InsertModePrepend InsertMode = "prepend"
)

// FieldKind represents the kind of content an insertion carries.
type FieldKind string

const (
	FieldKindText FieldKind = "text"
	FieldKindCode FieldKind = "code"
)

// InsertMethod represents how the agent should physically enter content.
type InsertMethod string

const (
	InsertMethodType  InsertMethod = "type"
	InsertMethodPaste InsertMethod = "paste"
)

// Context is the capture the agent sends alongside a trigger. Selected and
// clipboard text are carried separately so a workflow's input source can pick
// between them.
type Context struct {
	Text          string    `json:"text"`
	ClipboardText string    `json:"clipboardText,omitempty"`
	ActiveField   string    `json:"activeField,omitempty"`
	WindowLabel   string    `json:"windowLabel,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// TriggerRequest is the inbound payload from the agent when a hotkey fires.
type TriggerRequest struct {
	Trigger string  `json:"trigger"`
	Context Context `json:"context"`
}

// InsertionInstruction is one output directive returned to the agent. Order
// within a result is significant: it dictates field navigation sequencing.
type InsertionInstruction struct {
	TargetField  string       `json:"targetField"`
	Content      string       `json:"content"`
	Mode         InsertMode   `json:"mode"`
	Kind         FieldKind    `json:"kind"`
	Navigation   string       `json:"navigation,omitempty"`
	Label        string       `json:"label,omitempty"`
	ClickBefore  string       `json:"clickBefore,omitempty"`
	InsertMethod InsertMethod `json:"insertMethod,omitempty"`
}

// ExecutionResult is the structured outcome of one engine execution. A result
// with ErrorKind set carries no insertions, not even partial ones.
type ExecutionResult struct {
	ExecutionID  string                 `json:"executionId"`
	Status       ExecStatus             `json:"status"`
	WorkflowID   string                 `json:"workflowId"`
	Insertions   []InsertionInstruction `json:"insertions"`
	ErrorKind    string                 `json:"errorKind,omitempty"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	ElapsedMs    int64                  `json:"elapsedMs"`
	AttemptsUsed int                    `json:"attemptsUsed,omitempty"`
}

// ValidationResult is the outcome of a single validation step.
type ValidationResult struct {
	Valid   bool
	Error   string
	Details map[string]any
}

// AuditEntry is one audit record. It must never carry input text, rendered
// requests, or extracted field content.
type AuditEntry struct {
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	Connector   string    `json:"connector"`
	Trigger     string    `json:"trigger"`
	UserID      string    `json:"user_id,omitempty"`
	Status      string    `json:"status"`
	ErrorCode   string    `json:"error_code,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Attempts    int       `json:"attempts"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	Workflows     int       `json:"workflows"`
	Connectors    int       `json:"connectors"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

// WorkflowSummary is the listing shape for configured workflows. It exposes
// identity only, never templates or credentials.
type WorkflowSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Trigger   string `json:"trigger"`
	Connector string `json:"connector"`
	Enabled   bool   `json:"enabled"`
}

// ProblemDetails represents an RFC 7807 Problem Details response.
type ProblemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}
