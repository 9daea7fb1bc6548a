// Package permissions maps layer instances to repository bindings and caches
// write-access checks. Failed checks are fail-closed: the caller always gets
// a boolean, never an error or a panic.
package permissions

import (
	"fmt"
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// BindingRegistry holds the repository binding for each linked layer
// instance. Exactly one binding exists per linked layer.
type BindingRegistry struct {
	mu        sync.RWMutex
	core      foundry.RepositoryBinding
	platforms map[string]foundry.RepositoryBinding
	themes    map[string]foundry.RepositoryBinding
}

// NewBindingRegistry constructs an empty registry.
func NewBindingRegistry() *BindingRegistry {
	return &BindingRegistry{
		platforms: map[string]foundry.RepositoryBinding{},
		themes:    map[string]foundry.RepositoryBinding{},
	}
}

// LinkCore binds the core document to a repository location.
func (r *BindingRegistry) LinkCore(binding foundry.RepositoryBinding) error {
	if binding.IsZero() {
		return fmt.Errorf("permissions: core binding must not be empty")
	}
	binding.Kind = foundry.LayerCore
	r.mu.Lock()
	r.core = binding
	r.mu.Unlock()
	return nil
}

// LinkPlatform binds one platform extension to a repository location.
func (r *BindingRegistry) LinkPlatform(platformID string, binding foundry.RepositoryBinding) error {
	if platformID == "" {
		return fmt.Errorf("permissions: platform id must not be empty")
	}
	if binding.IsZero() {
		return fmt.Errorf("permissions: binding for platform %q must not be empty", platformID)
	}
	binding.Kind = foundry.LayerPlatformExtension
	r.mu.Lock()
	r.platforms[platformID] = binding
	r.mu.Unlock()
	return nil
}

// LinkTheme binds one theme override to a repository location.
func (r *BindingRegistry) LinkTheme(themeID string, binding foundry.RepositoryBinding) error {
	if themeID == "" {
		return fmt.Errorf("permissions: theme id must not be empty")
	}
	if binding.IsZero() {
		return fmt.Errorf("permissions: binding for theme %q must not be empty", themeID)
	}
	binding.Kind = foundry.LayerThemeOverride
	r.mu.Lock()
	r.themes[themeID] = binding
	r.mu.Unlock()
	return nil
}

// UnlinkPlatform removes a platform binding.
func (r *BindingRegistry) UnlinkPlatform(platformID string) {
	r.mu.Lock()
	delete(r.platforms, platformID)
	r.mu.Unlock()
}

// UnlinkTheme removes a theme binding.
func (r *BindingRegistry) UnlinkTheme(themeID string) {
	r.mu.Lock()
	delete(r.themes, themeID)
	r.mu.Unlock()
}

// BindingFor resolves the binding for the layer a context addresses.
func (r *BindingRegistry) BindingFor(ctx foundry.SourceContext) (foundry.RepositoryBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch ctx.Kind() {
	case foundry.SourcePlatform:
		id, _ := ctx.PlatformID()
		binding, ok := r.platforms[id]
		return binding, ok
	case foundry.SourceTheme:
		id, _ := ctx.ThemeID()
		binding, ok := r.themes[id]
		return binding, ok
	default:
		if r.core.IsZero() {
			return foundry.RepositoryBinding{}, false
		}
		return r.core, true
	}
}

// PlatformIDs returns the platforms that currently have a binding.
func (r *BindingRegistry) PlatformIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.platforms))
	for id := range r.platforms {
		ids = append(ids, id)
	}
	return ids
}

// ThemeIDs returns the themes that currently have a binding.
func (r *BindingRegistry) ThemeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.themes))
	for id := range r.themes {
		ids = append(ids, id)
	}
	return ids
}
