// Package engine orchestrates one workflow execution per trigger event:
// match, validate input, render the request, invoke the connector, extract
// and validate response fields, build insertion instructions.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"fieldbridge/internal/audit"
	"fieldbridge/internal/connector"
	"fieldbridge/internal/extract"
	"fieldbridge/internal/registry"
	"fieldbridge/internal/template"
	"fieldbridge/internal/validate"
	"fieldbridge/pkg/models"
)

// Execution states. ConnectorInvoking loops internally per the retry policy
// but is a single logical state externally; any state may fall to failure.
type state string

const (
	stateReceived         state = "received"
	stateMatched          state = "matched"
	stateInputValidated   state = "input_validated"
	stateRequestRendered  state = "request_rendered"
	stateConnectorInvoked state = "connector_invoked"
	stateFieldsExtracted  state = "fields_extracted"
	stateFieldsValidated  state = "fields_validated"
	stateWhitelistChecked state = "whitelist_checked"
	stateCompleted        state = "completed"
)

// Logger is the logging interface the engine writes through.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// snapshot bundles one loaded registry with its built connector clients.
// In-flight executions hold the snapshot they started with; reload swaps the
// pointer atomically.
type snapshot struct {
	registry   *registry.Registry
	connectors *connector.Registry
}

// Engine drives workflow executions. Safe for concurrent use; each call to
// Execute owns its context and variables, nothing mutable is shared.
type Engine struct {
	snap   atomic.Pointer[snapshot]
	sink   audit.Sink
	logger Logger

	executions metric.Int64Counter
	duration   metric.Float64Histogram
	attempts   metric.Int64Counter
}

// New builds an Engine over a loaded registry. Connector clients are built
// here so credential problems surface at startup.
func New(reg *registry.Registry, sink audit.Sink, logger Logger) (*Engine, error) {
	e := &Engine{sink: sink, logger: logger}

	meter := otel.Meter("fieldbridge/engine")
	var err error
	if e.executions, err = meter.Int64Counter("workflow.executions",
		metric.WithDescription("Completed workflow executions by status")); err != nil {
		return nil, err
	}
	if e.duration, err = meter.Float64Histogram("workflow.duration",
		metric.WithDescription("Workflow execution wall-clock duration"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if e.attempts, err = meter.Int64Counter("connector.attempts",
		metric.WithDescription("Connector attempts used across executions")); err != nil {
		return nil, err
	}

	if err := e.Reload(reg); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload atomically swaps in a new registry snapshot. The new snapshot is
// built completely before the swap; executions already in flight finish
// against the snapshot they started with.
func (e *Engine) Reload(reg *registry.Registry) error {
	conns := connector.NewRegistry()
	if err := conns.Build(reg.Connectors()); err != nil {
		return err
	}
	e.snap.Store(&snapshot{registry: reg, connectors: conns})
	return nil
}

// Registry returns the currently active registry snapshot.
func (e *Engine) Registry() *registry.Registry {
	return e.snap.Load().registry
}

// Execute runs the workflow owning trigger against the captured context. It
// always returns a well-formed result; every failure path is converted into
// status=error with a typed kind, and no insertions ever accompany an error.
func (e *Engine) Execute(ctx context.Context, trigger string, capture models.Context) (result models.ExecutionResult) {
	start := time.Now()
	execID := uuid.New().String()
	snap := e.snap.Load()

	cur := stateReceived
	workflowID := ""
	connectorID := ""
	attemptsUsed := 0

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("execution panic", "execution_id", execID, "panic", r)
			result = e.finish(ctx, execID, workflowID, connectorID, trigger, capture.UserID,
				start, attemptsUsed, nil, failf(KindInternal, "internal error"))
		}
	}()

	fail := func(err *Error) models.ExecutionResult {
		e.logger.Debug("execution failed", "execution_id", execID, "state", string(cur), "kind", string(err.Kind))
		return e.finish(ctx, execID, workflowID, connectorID, trigger, capture.UserID,
			start, attemptsUsed, nil, err)
	}

	if ctx.Err() != nil {
		return fail(failf(KindCancelled, "execution cancelled"))
	}

	// Received -> Matched
	wf, ok := snap.registry.FindByTrigger(trigger)
	if !ok {
		return fail(failf(KindTriggerNotFound, "no enabled workflow for trigger %q", trigger))
	}
	cur = stateMatched
	workflowID = wf.ID
	connectorID = wf.ConnectorID

	// Matched -> InputValidated
	inputText := inputFor(wf.Input.Source, capture)
	if res := validate.Input(wf.Input, inputText); !res.Valid {
		return fail(failf(KindInputValidation, "%s", res.Error))
	}
	cur = stateInputValidated

	// InputValidated -> RequestRendered
	requestVars := map[string]any{
		"input_text":   inputText,
		"user_id":      capture.UserID,
		"window_title": capture.WindowLabel,
		"active_field": capture.ActiveField,
	}
	rendered, err := template.Render(wf.Request.Template, requestVars)
	if err != nil {
		return fail(wrap(KindTemplateRender, err))
	}
	var body map[string]any
	if jsonErr := json.Unmarshal([]byte(rendered), &body); jsonErr != nil {
		// Plain-text templates are wrapped in the conventional request shape.
		body = map[string]any{"text": rendered}
	}
	cur = stateRequestRendered

	// RequestRendered -> ConnectorInvoking -> ConnectorInvoked
	connDef, ok := snap.registry.FindConnector(wf.ConnectorID)
	if !ok {
		return fail(failf(KindInternal, "connector %q missing from registry", wf.ConnectorID))
	}
	invoker, ok := snap.connectors.Get(wf.ConnectorID)
	if !ok {
		return fail(failf(KindInternal, "connector %q has no built client", wf.ConnectorID))
	}
	endpoint := wf.Request.Endpoint
	if endpoint == "" {
		for name := range connDef.Endpoints {
			endpoint = name
		}
	}

	response, used, err := invoker.Invoke(ctx, endpoint, wf.Request.Method, body)
	attemptsUsed = used
	if err != nil {
		if ctx.Err() != nil {
			return fail(wrap(KindCancelled, err))
		}
		return fail(wrap(KindConnector, err))
	}
	cur = stateConnectorInvoked

	// ConnectorInvoked -> FieldsExtracted
	vars, err := extract.Fields(wf.Mappings, response)
	if err != nil {
		var missing *extract.MissingFieldError
		if errors.As(err, &missing) {
			return fail(wrap(KindExtraction, err))
		}
		return fail(wrap(KindInternal, err))
	}
	cur = stateFieldsExtracted

	// FieldsExtracted -> FieldsValidated
	if err := validate.Fields(wf.Validation, vars, snap.registry.Catalog()); err != nil {
		return fail(wrap(KindValidation, err))
	}
	cur = stateFieldsValidated

	// FieldsValidated -> WhitelistChecked
	if err := validate.Whitelist(wf.AllowedFields, wf.Outputs); err != nil {
		return fail(wrap(KindValidation, err))
	}
	cur = stateWhitelistChecked

	// WhitelistChecked -> Completed
	insertions, buildErr := buildInsertions(wf, vars)
	if buildErr != nil {
		return fail(buildErr)
	}
	cur = stateCompleted

	e.logger.Info("workflow executed",
		"execution_id", execID, "workflow", wf.ID, "insertions", len(insertions), "attempts", attemptsUsed)
	return e.finish(ctx, execID, workflowID, connectorID, trigger, capture.UserID,
		start, attemptsUsed, insertions, nil)
}

// buildInsertions renders every declared output in order. All-or-nothing: a
// render failure discards the whole list.
func buildInsertions(wf *models.WorkflowDefinition, vars map[string]any) ([]models.InsertionInstruction, *Error) {
	insertions := make([]models.InsertionInstruction, 0, len(wf.Outputs))
	for _, out := range wf.Outputs {
		content, err := template.Render(out.Content, vars)
		if err != nil {
			return nil, wrap(KindTemplateRender, err)
		}
		label := ""
		if out.Label != "" {
			if label, err = template.Render(out.Label, vars); err != nil {
				return nil, wrap(KindTemplateRender, err)
			}
		}
		if wf.Validation.CodeFormat && out.Kind == models.FieldKindCode {
			if res := validate.CodeFormat(content); !res.Valid {
				return nil, failf(KindValidation, "output for field %q: %s", out.TargetField, res.Error)
			}
		}
		insertions = append(insertions, models.InsertionInstruction{
			TargetField:  out.TargetField,
			Content:      content,
			Mode:         out.Mode,
			Kind:         out.Kind,
			Navigation:   out.Navigation,
			Label:        label,
			ClickBefore:  out.ClickBefore,
			InsertMethod: out.InsertMethod,
		})
	}
	return insertions, nil
}

// finish converts the terminal state into the external result shape, emits
// the audit entry and records metrics. The audit entry intentionally carries
// identifiers and counters only.
func (e *Engine) finish(ctx context.Context, execID, workflowID, connectorID, trigger, userID string,
	start time.Time, attempts int, insertions []models.InsertionInstruction, execErr *Error) models.ExecutionResult {

	elapsed := time.Since(start)
	result := models.ExecutionResult{
		ExecutionID:  execID,
		Status:       models.ExecStatusSuccess,
		WorkflowID:   workflowID,
		Insertions:   insertions,
		ElapsedMs:    elapsed.Milliseconds(),
		AttemptsUsed: attempts,
	}
	status := "success"
	errorCode := ""
	if execErr != nil {
		result.Status = models.ExecStatusError
		result.Insertions = []models.InsertionInstruction{}
		result.ErrorKind = string(execErr.Kind)
		result.ErrorMessage = execErr.Message
		status = "error"
		errorCode = string(execErr.Kind)
	}

	entry := models.AuditEntry{
		ExecutionID: execID,
		WorkflowID:  workflowID,
		Connector:   connectorID,
		Trigger:     trigger,
		UserID:      userID,
		Status:      status,
		ErrorCode:   errorCode,
		ElapsedMs:   elapsed.Milliseconds(),
		Attempts:    attempts,
		OccurredAt:  time.Now().UTC(),
	}
	// Audit must outlive a cancelled execution.
	if err := e.sink.Record(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error("audit record failed", "execution_id", execID, "error", err)
	}

	attrs := metric.WithAttributes(
		attribute.String("workflow", workflowID),
		attribute.String("status", status),
	)
	e.executions.Add(ctx, 1, attrs)
	e.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if attempts > 0 {
		e.attempts.Add(ctx, int64(attempts), attrs)
	}
	return result
}

func inputFor(source models.SourceKind, capture models.Context) string {
	switch source {
	case models.SourceClipboard:
		return capture.ClipboardText
	case models.SourceActiveFieldText:
		// Agents that cannot read the focused field send selected text instead.
		if capture.ActiveField != "" {
			return capture.ActiveField
		}
		return capture.Text
	default:
		return capture.Text
	}
}
