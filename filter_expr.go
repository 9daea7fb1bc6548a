package foundry

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprFilterOption configures an expr filter instance.
type ExprFilterOption func(*exprFilter)

// ExprWithProgramCache wires a ProgramCache into the expr filter.
func ExprWithProgramCache(cache ProgramCache) ExprFilterOption {
	return func(f *exprFilter) {
		f.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr filter.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprFilterOption {
	return func(f *exprFilter) {
		if registry == nil {
			return
		}
		f.registry = registry.Clone()
	}
}

// exprFilter executes predicate expressions using github.com/expr-lang/expr.
type exprFilter struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprFilter constructs a Filter backed by expr-lang/expr.
func NewExprFilter(opts ...ExprFilterOption) Filter {
	f := &exprFilter{}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Evaluate compiles and runs expression against ctx.
func (f *exprFilter) Evaluate(ctx FilterContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	env := f.environment(ctx)
	program, err := f.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapFilterError("expr", expression, err)
	}
	return result, nil
}

// Compile returns a compiled predicate that evaluates expression per
// invocation.
func (f *exprFilter) Compile(expression string) (CompiledFilter, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := f.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledFilter{
		filter:     f,
		program:    program,
		expression: expression,
	}, nil
}

func (f *exprFilter) loadOrCompile(expression string) (*exprvm.Program, error) {
	if f.cache != nil {
		if cached, ok := f.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range f.registryNames() {
		fn := f.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapFilterError("expr", expression, err)
	}
	if f.cache != nil {
		f.cache.Set(expression, program)
	}
	return program, nil
}

type exprCompiledFilter struct {
	filter     *exprFilter
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledFilter) Evaluate(ctx FilterContext) (any, error) {
	if r.filter == nil {
		return nil, wrapFilterEngineError("expr", fmt.Errorf("compiled filter missing engine"))
	}
	ctx = ctx.withDefaults()
	if r.program == nil {
		return r.filter.Evaluate(ctx, r.expression)
	}
	env := r.filter.environment(ctx)
	result, err := exprlang.Run(r.program, env)
	if err != nil {
		return nil, wrapFilterError("expr", r.expression, err)
	}
	return result, nil
}

func (f *exprFilter) environment(ctx FilterContext) map[string]any {
	env := map[string]any{
		"args":     ctx.Args,
		"snapshot": ctx.Snapshot,
	}
	for key, value := range ctx.Token {
		env[key] = value
	}
	if f.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return f.registry.Call(name, arguments...)
		}
		for _, name := range f.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return f.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

func (f *exprFilter) registryNames() []string {
	if f == nil || f.registry == nil {
		return nil
	}
	return f.registry.Names()
}

func (f *exprFilter) registryFunction(name string) func(...any) (any, error) {
	if f == nil || f.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return f.registry.Call(name, arguments...)
	}
}
