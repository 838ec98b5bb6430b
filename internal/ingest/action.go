package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/inkdex/ingest-cli/internal/model"
)

// Action is a named ingestion entry point selectable from the command line.
type Action interface {
	Name() string
	Run(ctx context.Context) (*model.IngestRun, error)
}

// Registry maps action names to their implementations.
type Registry struct {
	actions map[string]Action
	order   []string // insertion order for deterministic listing
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action to the registry. Re-registering a name replaces
// the previous action.
func (r *Registry) Register(a Action) {
	name := a.Name()
	if _, exists := r.actions[name]; !exists {
		r.order = append(r.order, name)
	}
	r.actions[name] = a
}

// Get returns an action by name. Unknown names report the valid set.
func (r *Registry) Get(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, eris.Errorf("ingest: unknown action %q (valid: %s)", name, strings.Join(r.order, ", "))
	}
	return a, nil
}

// Names returns registered action names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
