package foundry

import (
	"errors"
	"testing"
)

type filterFactory struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Filter
}

func filterFactories() []filterFactory {
	factories := []filterFactory{
		{
			name: "expr",
			new: func(cache ProgramCache, registry *FunctionRegistry) Filter {
				opts := []ExprFilterOption{}
				if cache != nil {
					opts = append(opts, ExprWithProgramCache(cache))
				}
				if registry != nil {
					opts = append(opts, ExprWithFunctionRegistry(registry))
				}
				return NewExprFilter(opts...)
			},
		},
		{
			name: "cel",
			new: func(cache ProgramCache, registry *FunctionRegistry) Filter {
				opts := []CELFilterOption{}
				if cache != nil {
					opts = append(opts, CELWithProgramCache(cache))
				}
				if registry != nil {
					opts = append(opts, CELWithFunctionRegistry(registry))
				}
				return NewCELFilter(opts...)
			},
		},
	}
	if jsFilterAvailable() {
		factories = append(factories, filterFactory{
			name: "js",
			new: func(cache ProgramCache, registry *FunctionRegistry) Filter {
				opts := []JSFilterOption{}
				if cache != nil {
					opts = append(opts, JSWithProgramCache(cache))
				}
				if registry != nil {
					opts = append(opts, JSWithFunctionRegistry(registry))
				}
				return NewJSFilter(opts...)
			},
		})
	}
	return factories
}

func sampleFilterContext() FilterContext {
	return FilterContext{
		Token: map[string]any{
			"id":        "token-surface",
			"themeable": true,
			"valueType": "color",
			"modeKeys":  []string{"mode-light", "mode-dark"},
		},
		Snapshot: map[string]any{
			"systemId": "sys-acme",
			"context":  "platform(platform-ios)",
		},
	}
}

func TestFilterPredicates(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want bool
	}{
		{name: "token field", expr: `themeable`, want: true},
		{name: "comparison", expr: `valueType == "color"`, want: true},
		{name: "comparison miss", expr: `valueType == "dimension"`, want: false},
		{name: "snapshot binding", expr: `snapshot.systemId == "sys-acme"`, want: true},
		{name: "conjunction", expr: `themeable && valueType == "color"`, want: true},
	}

	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			filter := factory.new(nil, nil)
			for _, tc := range cases {
				tc := tc
				t.Run(tc.name, func(t *testing.T) {
					result, err := filter.Evaluate(sampleFilterContext(), tc.expr)
					if err != nil {
						t.Fatalf("evaluate %q: %v", tc.expr, err)
					}
					if truthy(result) != tc.want {
						t.Fatalf("expected %q to be %v, got %#v", tc.expr, tc.want, result)
					}
				})
			}
		})
	}
}

func TestFilterCompileReuse(t *testing.T) {
	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			filter := factory.new(nil, nil)
			program, err := filter.Compile(`valueType == "color"`)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}

			ctx := sampleFilterContext()
			result, err := program.Evaluate(ctx)
			if err != nil {
				t.Fatalf("first evaluate: %v", err)
			}
			if !truthy(result) {
				t.Fatalf("expected color token to match, got %#v", result)
			}

			ctx.Token["valueType"] = "dimension"
			result, err = program.Evaluate(ctx)
			if err != nil {
				t.Fatalf("second evaluate: %v", err)
			}
			if truthy(result) {
				t.Fatalf("expected dimension token to be rejected, got %#v", result)
			}
		})
	}
}

func TestFilterRejectsEmptyExpression(t *testing.T) {
	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			filter := factory.new(nil, nil)
			if _, err := filter.Evaluate(sampleFilterContext(), ""); err == nil {
				t.Fatal("expected an error for an empty expression")
			}
			if _, err := filter.Compile(""); err == nil {
				t.Fatal("expected an error for an empty compile")
			}
		})
	}
}

type countingCache struct {
	entries map[string]any
	gets    int
	hits    int
	sets    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	c.gets++
	value, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return value, ok
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.entries[key] = value
}

func TestFilterProgramCache(t *testing.T) {
	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			cache := newCountingCache()
			filter := factory.new(cache, nil)

			for i := 0; i < 3; i++ {
				result, err := filter.Evaluate(sampleFilterContext(), `themeable`)
				if err != nil {
					t.Fatalf("evaluate %d: %v", i, err)
				}
				if !truthy(result) {
					t.Fatalf("evaluate %d: expected true, got %#v", i, result)
				}
			}

			if cache.sets != 1 {
				t.Fatalf("expected one compile to be cached, got %d", cache.sets)
			}
			if cache.hits < 2 {
				t.Fatalf("expected repeat evaluations to hit the cache, got %d hits", cache.hits)
			}
		})
	}
}

func TestCustomFunctionsAcrossFilters(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("double expects 1 argument")
		}
		switch v := args[0].(type) {
		case int:
			return v * 2, nil
		case int64:
			return v * 2, nil
		case float64:
			return v * 2, nil
		default:
			return nil, errors.New("double expects a number")
		}
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			filter := factory.new(nil, registry)
			result, err := filter.Evaluate(sampleFilterContext(), `call("double", 21) == 42`)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !truthy(result) {
				t.Fatalf("expected call to reach the registry, got %#v", result)
			}
		})
	}
}

func TestCallArityAcrossFilters(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("answer", func(args ...any) (any, error) {
		return 42, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("concat", func(args ...any) (any, error) {
		joined := ""
		for _, arg := range args {
			s, ok := arg.(string)
			if !ok {
				return nil, errors.New("concat expects strings")
			}
			joined += s
		}
		return joined, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	expressions := []string{
		`call("answer") == 42`,
		`call("concat", "a", "b", "c") == "abc"`,
	}
	for _, factory := range filterFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			filter := factory.new(nil, registry)
			for _, expression := range expressions {
				result, err := filter.Evaluate(sampleFilterContext(), expression)
				if err != nil {
					t.Fatalf("evaluate %q: %v", expression, err)
				}
				if !truthy(result) {
					t.Fatalf("expected %q to hold, got %#v", expression, result)
				}
			}
		})
	}
}

func TestSnapshotSelect(t *testing.T) {
	snapshot := Snapshot{
		SystemID: "sys-acme",
		Tokens: []ResolvedToken{
			{Token: Token{ID: "token-surface", Themeable: true, ResolvedValueTypeID: "color"}},
			{Token: Token{ID: "token-radius", ResolvedValueTypeID: "dimension"}},
		},
	}

	matched, err := snapshot.Select(NewExprFilter(), `themeable`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(matched) != 1 || matched[0].ID != "token-surface" {
		t.Fatalf("expected only the themeable token, got %#v", matched)
	}

	if _, err := snapshot.Select(nil, `themeable`); !errors.Is(err, ErrNoFilter) {
		t.Fatalf("expected ErrNoFilter, got %v", err)
	}
}
