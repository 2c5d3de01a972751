package stage

import (
	"fmt"

	"reelvault/internal/archive"
)

// Registry maps stages to their handlers so dispatch and orchestration
// select behavior by lookup rather than branching.
type Registry struct {
	handlers map[archive.Stage]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[archive.Stage]Handler)}
}

// Register binds a handler to a stage, replacing any previous binding.
func (r *Registry) Register(stage archive.Stage, handler Handler) {
	r.handlers[stage] = handler
}

// Handler returns the handler bound to the stage.
func (r *Registry) Handler(stage archive.Stage) (Handler, error) {
	handler, ok := r.handlers[stage]
	if !ok {
		return nil, fmt.Errorf("no handler registered for stage %q", stage)
	}
	return handler, nil
}

// Stages lists registered stages in pipeline order.
func (r *Registry) Stages() []archive.Stage {
	out := make([]archive.Stage, 0, len(r.handlers))
	for _, stage := range archive.Stages {
		if _, ok := r.handlers[stage]; ok {
			out = append(out, stage)
		}
	}
	return out
}
