// Package registry loads workflow and connector definitions from yaml and
// exposes them as an immutable, O(1)-lookup snapshot. A load either yields a
// fully valid Registry or a ConfigError aggregating every problem found;
// nothing in between ever serves traffic.
package registry

import (
	"fmt"
	"strings"

	"fieldbridge/internal/validate"
	"fieldbridge/pkg/models"
)

// ConfigError aggregates every definition problem found during a load.
// Config errors are fatal: the process must refuse to serve until corrected.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
		len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Registry is an immutable snapshot of loaded definitions. It is shared by
// reference across concurrent executions and never mutated; reload builds a
// fresh Registry and swaps the active pointer.
type Registry struct {
	byTrigger  map[string]*models.WorkflowDefinition
	byID       map[string]*models.WorkflowDefinition
	workflows  []*models.WorkflowDefinition
	connectors map[string]models.ConnectorDefinition
	catalog    validate.Catalog
}

// NormalizeTrigger canonicalizes a symbolic trigger: uppercase, spaces
// stripped. "ctrl+alt+v" and "CTRL+ALT+V" address the same workflow.
func NormalizeTrigger(trigger string) string {
	return strings.ToUpper(strings.ReplaceAll(trigger, " ", ""))
}

// FindByTrigger returns the enabled workflow owning the trigger.
func (r *Registry) FindByTrigger(trigger string) (*models.WorkflowDefinition, bool) {
	wf, ok := r.byTrigger[NormalizeTrigger(trigger)]
	return wf, ok
}

// FindWorkflow returns a workflow by id, enabled or not.
func (r *Registry) FindWorkflow(id string) (*models.WorkflowDefinition, bool) {
	wf, ok := r.byID[id]
	return wf, ok
}

// FindConnector returns a connector definition by id.
func (r *Registry) FindConnector(id string) (models.ConnectorDefinition, bool) {
	def, ok := r.connectors[id]
	return def, ok
}

// Workflows returns all loaded workflows in declaration order.
func (r *Registry) Workflows() []*models.WorkflowDefinition {
	return r.workflows
}

// Connectors returns all loaded connector definitions keyed by id.
func (r *Registry) Connectors() map[string]models.ConnectorDefinition {
	return r.connectors
}

// Catalog returns the diagnosis-code catalog, possibly empty.
func (r *Registry) Catalog() validate.Catalog {
	return r.catalog
}
