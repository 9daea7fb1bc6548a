package foundry

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celMaxCallArgs bounds the arity of the call() dispatcher. CEL overloads
// carry fixed signatures, so one is declared per argument count.
const celMaxCallArgs = 4

// CELFilterOption configures the CEL filter.
type CELFilterOption func(*celFilter)

// CELWithProgramCache wires a ProgramCache into the CEL filter.
func CELWithProgramCache(cache ProgramCache) CELFilterOption {
	return func(f *celFilter) {
		f.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL filter.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELFilterOption {
	return func(f *celFilter) {
		if registry == nil {
			return
		}
		f.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celFilter struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELFilter constructs a Filter backed by cel-go.
func NewCELFilter(opts ...CELFilterOption) Filter {
	f := &celFilter{}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *celFilter) Evaluate(ctx FilterContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := f.loadOrCompile(expression, ctx.Token)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(f.activation(ctx))
	if err != nil {
		return nil, wrapFilterError("cel", expression, err)
	}
	return out.Value(), nil
}

func (f *celFilter) Compile(expression string) (CompiledFilter, error) {
	if expression == "" {
		return nil, wrapFilterEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledFilter{
		filter:     f,
		expression: expression,
	}, nil
}

func (f *celFilter) loadOrCompile(expression string, token map[string]any) (*celProgram, error) {
	if token == nil {
		token = map[string]any{}
	}
	if f.cache != nil {
		if cached, ok := f.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := f.buildEnv(token)
	if err != nil {
		return nil, wrapFilterError("cel", expression, err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterError("cel", expression, issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapFilterError("cel", expression, issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapFilterError("cel", expression, err)
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if f.cache != nil {
		f.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (f *celFilter) buildEnv(token map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("snapshot", celgo.DynType),
	}
	if f.registry != nil {
		overloads := make([]celgo.FunctionOpt, 0, celMaxCallArgs+1)
		for arity := 0; arity <= celMaxCallArgs; arity++ {
			argTypes := make([]*celgo.Type, 0, arity+1)
			argTypes = append(argTypes, celgo.StringType)
			for i := 0; i < arity; i++ {
				argTypes = append(argTypes, celgo.DynType)
			}
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", arity),
				argTypes,
				celgo.DynType,
				celgo.FunctionBinding(f.callBinding()),
			))
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	for key := range token {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (f *celFilter) activation(ctx FilterContext) map[string]any {
	activation := map[string]any{
		"args":     ctx.Args,
		"snapshot": ctx.Snapshot,
	}
	for key, value := range ctx.Token {
		activation[key] = value
	}
	return activation
}

type celCompiledFilter struct {
	filter     *celFilter
	expression string
}

func (r *celCompiledFilter) Evaluate(ctx FilterContext) (any, error) {
	if r.filter == nil {
		return nil, wrapFilterEngineError("cel", fmt.Errorf("compiled filter missing engine"))
	}
	ctx = ctx.withDefaults()
	program, err := r.filter.loadOrCompile(r.expression, ctx.Token)
	if err != nil {
		return nil, err
	}
	out, _, err := program.program.Eval(r.filter.activation(ctx))
	if err != nil {
		return nil, wrapFilterError("cel", r.expression, err)
	}
	return out.Value(), nil
}

func (f *celFilter) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if f.registry == nil {
			return types.NewErr("foundry: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("foundry: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("foundry: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := f.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
