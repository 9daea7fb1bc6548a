package foundry

import "fmt"

// LayerDocument is the tagged union over the three document types a layer
// can hold. Exactly one pointer is set, matching Kind.
type LayerDocument struct {
	Kind     LayerKind
	Core     *CoreDocument
	Platform *PlatformExtension
	Theme    *ThemeOverride
}

// CoreLayerDocument wraps a core document.
func CoreLayerDocument(doc CoreDocument) LayerDocument {
	return LayerDocument{Kind: LayerCore, Core: &doc}
}

// PlatformLayerDocument wraps a platform extension.
func PlatformLayerDocument(ext PlatformExtension) LayerDocument {
	return LayerDocument{Kind: LayerPlatformExtension, Platform: &ext}
}

// ThemeLayerDocument wraps a theme override.
func ThemeLayerDocument(ov ThemeOverride) LayerDocument {
	return LayerDocument{Kind: LayerThemeOverride, Theme: &ov}
}

// Clone returns a deep copy of the document.
func (d LayerDocument) Clone() LayerDocument {
	switch d.Kind {
	case LayerCore:
		if d.Core == nil {
			return LayerDocument{Kind: LayerCore}
		}
		clone := CloneCoreDocument(*d.Core)
		return LayerDocument{Kind: LayerCore, Core: &clone}
	case LayerPlatformExtension:
		if d.Platform == nil {
			return LayerDocument{Kind: LayerPlatformExtension}
		}
		clone := ClonePlatformExtension(*d.Platform)
		return LayerDocument{Kind: LayerPlatformExtension, Platform: &clone}
	case LayerThemeOverride:
		if d.Theme == nil {
			return LayerDocument{Kind: LayerThemeOverride}
		}
		clone := CloneThemeOverride(*d.Theme)
		return LayerDocument{Kind: LayerThemeOverride, Theme: &clone}
	default:
		return LayerDocument{}
	}
}

// IsZero reports whether no document is held.
func (d LayerDocument) IsZero() bool {
	return d.Core == nil && d.Platform == nil && d.Theme == nil
}

// LayerID returns the identity of the non-core layer ("" for core).
func (d LayerDocument) LayerID() string {
	switch d.Kind {
	case LayerPlatformExtension:
		if d.Platform != nil {
			return d.Platform.PlatformID
		}
	case LayerThemeOverride:
		if d.Theme != nil {
			return d.Theme.ThemeID
		}
	}
	return ""
}

// Validate checks the union invariant: the pointer matching Kind is set and
// the others are nil.
func (d LayerDocument) Validate() error {
	switch d.Kind {
	case LayerCore:
		if d.Core == nil || d.Platform != nil || d.Theme != nil {
			return fmt.Errorf("foundry: malformed core layer document")
		}
	case LayerPlatformExtension:
		if d.Platform == nil || d.Core != nil || d.Theme != nil {
			return fmt.Errorf("foundry: malformed platform-extension layer document")
		}
	case LayerThemeOverride:
		if d.Theme == nil || d.Core != nil || d.Platform != nil {
			return fmt.Errorf("foundry: malformed theme-override layer document")
		}
	default:
		return fmt.Errorf("foundry: layer document kind is unknown")
	}
	return nil
}
