package foundry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against filter engines.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom predicate helpers keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("foundry: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("foundry: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("foundry: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("foundry: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("foundry: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFunctionRegistry returns a registry preloaded with the predicate
// helpers most token selections need.
func DefaultFunctionRegistry() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("hasPrefix", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("foundry: hasPrefix expects 2 arguments")
		}
		value, ok1 := args[0].(string)
		prefix, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("foundry: hasPrefix expects string arguments")
		}
		return strings.HasPrefix(value, prefix), nil
	})
	_ = registry.Register("hasMode", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("foundry: hasMode expects 2 arguments")
		}
		keys, err := stringList(args[0])
		if err != nil {
			return nil, fmt.Errorf("foundry: hasMode expects a mode-key list")
		}
		modeID, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("foundry: hasMode expects a mode id string")
		}
		for _, key := range keys {
			if NewModeKey(strings.Split(key, "+")...).Contains(modeID) {
				return true, nil
			}
		}
		return false, nil
	})
	return registry
}

// stringList normalises the slice representations the different filter
// engines hand back for list bindings.
func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("foundry: expected string list")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("foundry: expected string list")
	}
}
