// Package connector executes outbound calls to configured external services.
// Connector types are registered through factories; callers only ever see the
// Invoker capability.
package connector

import (
	"context"
	"fmt"

	"fieldbridge/pkg/models"
)

// Invoker executes one logical call to a named endpoint of a connector,
// retrying per the connector's policy. It returns the decoded response body
// and the number of attempts used. An empty method means POST.
type Invoker interface {
	Invoke(ctx context.Context, endpoint, method string, body map[string]any) (map[string]any, int, error)
}

// Error is a connector failure. Transient reports whether the last underlying
// failure was retryable; Attempts is how many attempts were made before
// giving up.
type Error struct {
	Code      string
	Message   string
	Transient bool
	Attempts  int
	Err       error
}

func (e *Error) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: %s (after %d attempts)", e.Code, e.Message, e.Attempts)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Factory builds an Invoker from a connector definition.
type Factory func(def models.ConnectorDefinition) (Invoker, error)

// Registry holds connector factories by type and built clients by connector
// id. Clients are built once at load; new types extend via RegisterType,
// never via type inspection.
type Registry struct {
	factories map[models.ConnectorType]Factory
	clients   map[string]Invoker
}

// NewRegistry creates a Registry with the built-in connector types
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[models.ConnectorType]Factory),
		clients:   make(map[string]Invoker),
	}
	r.RegisterType(models.ConnectorTypeRest, NewRest)
	return r
}

// RegisterType registers a factory for a connector type.
func (r *Registry) RegisterType(t models.ConnectorType, f Factory) {
	r.factories[t] = f
}

// Build constructs clients for every definition. Unknown types and factory
// failures are startup errors; the process must not serve with a partially
// built registry.
func (r *Registry) Build(defs map[string]models.ConnectorDefinition) error {
	for id, def := range defs {
		f, ok := r.factories[def.Type]
		if !ok {
			return fmt.Errorf("connector %q: unknown type %q", id, def.Type)
		}
		client, err := f(def)
		if err != nil {
			return fmt.Errorf("connector %q: %w", id, err)
		}
		r.clients[id] = client
	}
	return nil
}

// Get returns the built client for a connector id.
func (r *Registry) Get(id string) (Invoker, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// Len returns the number of built clients.
func (r *Registry) Len() int { return len(r.clients) }
