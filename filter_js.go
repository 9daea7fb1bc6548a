//go:build js_filter

package foundry

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsFilter struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSFilter constructs a Filter backed by goja.
func NewJSFilter(opts ...JSFilterOption) Filter {
	cfg := applyJSFilterOptions(opts)
	return &jsFilter{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (f *jsFilter) Evaluate(ctx FilterContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	if f.cache == nil {
		return f.run(ctx, expression, nil)
	}
	program, err := f.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, expression, program)
}

func (f *jsFilter) Compile(expression string) (CompiledFilter, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := f.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledFilter{
		filter:     f,
		expression: expression,
		program:    program,
	}, nil
}

func (f *jsFilter) loadOrCompile(expression string) (*goja.Program, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", f.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapFilterError("js", expression, err)
	}
	if f.cache != nil {
		f.cache.Set(expression, program)
	}
	return program, nil
}

func (f *jsFilter) run(ctx FilterContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	f.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapFilterError("js", expression, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(f.wrapExpression(expression))
	if err != nil {
		return nil, wrapFilterError("js", expression, err)
	}
	return value.Export(), nil
}

func (f *jsFilter) injectContext(vm *goja.Runtime, ctx FilterContext) {
	vm.Set("args", ctx.Args)
	vm.Set("snapshot", ctx.Snapshot)
	for key, value := range ctx.Token {
		vm.Set(key, value)
	}
	if f.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return f.registry.Call(name, arguments...)
		})
		for _, name := range f.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return f.registry.Call(fn, arguments...)
			})
		}
	}
}

func (f *jsFilter) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledFilter struct {
	filter     *jsFilter
	expression string
	program    *goja.Program
}

func (r *jsCompiledFilter) Evaluate(ctx FilterContext) (any, error) {
	if r.filter == nil {
		return nil, wrapFilterEngineError("js", fmt.Errorf("compiled filter missing engine"))
	}
	ctx = ctx.withDefaults()
	return r.filter.run(ctx, r.expression, r.program)
}

func jsFilterAvailable() bool {
	return true
}
