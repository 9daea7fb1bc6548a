package foundry

import "errors"

// ErrNoFilter is returned when a selection is attempted without a configured
// filter engine.
var ErrNoFilter = errors.New("foundry: filter engine not configured")

// FilterContext carries the bindings a predicate expression evaluates
// against. Token and Snapshot are flat map bindings so every engine backend
// exposes the same variable surface.
type FilterContext struct {
	Token    map[string]any
	Snapshot map[string]any
	Args     map[string]any
}

func (ctx FilterContext) withDefaults() FilterContext {
	if ctx.Token == nil {
		ctx.Token = map[string]any{}
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

// Filter executes token predicate expressions.
type Filter interface {
	Evaluate(ctx FilterContext, expr string) (any, error)
	Compile(expr string) (CompiledFilter, error)
}

// CompiledFilter is a reusable predicate program.
type CompiledFilter interface {
	Evaluate(ctx FilterContext) (any, error)
}

// ProgramCache stores compiled predicate programs keyed by expression text.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
