package foundry

import (
	"fmt"
	"strings"
)

// SourceKind discriminates the active layer of a SourceContext.
type SourceKind int

const (
	// SourceCore means no non-core layer is active.
	SourceCore SourceKind = iota
	// SourcePlatform means one platform extension is the active layer.
	SourcePlatform
	// SourceTheme means one theme override is the active layer.
	SourceTheme
)

func (k SourceKind) String() string {
	switch k {
	case SourcePlatform:
		return "platform"
	case SourceTheme:
		return "theme"
	default:
		return "core"
	}
}

// SourceContext identifies which layer is active for viewing and editing. At
// most one non-core layer is active at any time; the zero value is Core.
type SourceContext struct {
	kind SourceKind
	id   string
}

// CoreContext returns the context with no non-core layer active.
func CoreContext() SourceContext {
	return SourceContext{}
}

// PlatformContext activates the extension layer for the given platform. An
// empty id normalizes to Core.
func PlatformContext(platformID string) SourceContext {
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return SourceContext{}
	}
	return SourceContext{kind: SourcePlatform, id: platformID}
}

// ThemeContext activates the override layer for the given theme. An empty id
// normalizes to Core.
func ThemeContext(themeID string) SourceContext {
	themeID = strings.TrimSpace(themeID)
	if themeID == "" {
		return SourceContext{}
	}
	return SourceContext{kind: SourceTheme, id: themeID}
}

// Kind returns the discriminator for exhaustive switching.
func (c SourceContext) Kind() SourceKind {
	return c.kind
}

// IsCore reports whether no non-core layer is active.
func (c SourceContext) IsCore() bool {
	return c.kind == SourceCore
}

// PlatformID returns the active platform id when Kind is SourcePlatform.
func (c SourceContext) PlatformID() (string, bool) {
	if c.kind != SourcePlatform {
		return "", false
	}
	return c.id, true
}

// ThemeID returns the active theme id when Kind is SourceTheme.
func (c SourceContext) ThemeID() (string, bool) {
	if c.kind != SourceTheme {
		return "", false
	}
	return c.id, true
}

// LayerID returns the non-core layer id, or "" for Core.
func (c SourceContext) LayerID() string {
	return c.id
}

// LayerKind maps the context onto the storage layer it addresses.
func (c SourceContext) LayerKind() LayerKind {
	switch c.kind {
	case SourcePlatform:
		return LayerPlatformExtension
	case SourceTheme:
		return LayerThemeOverride
	default:
		return LayerCore
	}
}

func (c SourceContext) String() string {
	if c.kind == SourceCore {
		return "core"
	}
	return fmt.Sprintf("%s(%s)", c.kind, c.id)
}

// ViewMode describes how the active context should be presented.
type ViewMode int

const (
	ViewCoreOnly ViewMode = iota
	ViewPlatformOnly
	ViewThemeOnly
	ViewMerged
)

func (m ViewMode) String() string {
	switch m {
	case ViewPlatformOnly:
		return "platform-only"
	case ViewThemeOnly:
		return "theme-only"
	case ViewMerged:
		return "merged"
	default:
		return "core-only"
	}
}
