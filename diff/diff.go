// Package diff maintains per-layer baselines and computes the change
// signals that gate saving and exporting: local dirtiness against the
// baseline and divergence of the remote copy from it.
package diff

import (
	"reflect"
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// Tracker holds one baseline per layer instance. A baseline is set only on a
// successful load or save and is never mutated in place.
type Tracker struct {
	mu        sync.RWMutex
	baselines map[string]foundry.LayerDocument
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{baselines: map[string]foundry.LayerDocument{}}
}

func layerKey(kind foundry.LayerKind, layerID string) string {
	return kind.String() + "\x00" + layerID
}

// SetBaseline records a deep copy of the document as the layer's baseline.
func (t *Tracker) SetBaseline(doc foundry.LayerDocument) {
	clone := doc.Clone()
	t.mu.Lock()
	t.baselines[layerKey(doc.Kind, doc.LayerID())] = clone
	t.mu.Unlock()
}

// Baseline returns a clone of the stored baseline for a layer.
func (t *Tracker) Baseline(kind foundry.LayerKind, layerID string) (foundry.LayerDocument, bool) {
	t.mu.RLock()
	baseline, ok := t.baselines[layerKey(kind, layerID)]
	t.mu.RUnlock()
	if !ok {
		return foundry.LayerDocument{}, false
	}
	return baseline.Clone(), true
}

// Clear drops the baseline for a layer.
func (t *Tracker) Clear(kind foundry.LayerKind, layerID string) {
	t.mu.Lock()
	delete(t.baselines, layerKey(kind, layerID))
	t.mu.Unlock()
}

// Reset drops every baseline.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.baselines = map[string]foundry.LayerDocument{}
	t.mu.Unlock()
}

// DiffCount reports how many top-level entity arrays of the document differ
// by value from its baseline. With no baseline recorded, the document is
// compared against an empty one of the same kind.
func (t *Tracker) DiffCount(current foundry.LayerDocument) int {
	baseline, ok := t.Baseline(current.Kind, current.LayerID())
	if !ok {
		baseline = emptyOf(current)
	}
	return DocumentDiffCount(baseline, current)
}

// Diverged reports whether the remote copy of a layer differs structurally
// from the recorded baseline. Without a baseline nothing can have diverged.
func (t *Tracker) Diverged(remote foundry.LayerDocument) bool {
	baseline, ok := t.Baseline(remote.Kind, remote.LayerID())
	if !ok {
		return false
	}
	return DocumentDiffCount(baseline, remote) > 0
}

// DocumentDiffCount counts the top-level entity arrays that differ between
// two documents of the same kind. A changed token counts once for the tokens
// array, not once per field.
func DocumentDiffCount(baseline, current foundry.LayerDocument) int {
	if baseline.Kind != current.Kind {
		// Kind mismatch means everything differs; count every section of the
		// current document.
		baseline = emptyOf(current)
	}
	switch current.Kind {
	case foundry.LayerCore:
		return coreDiffCount(deref(baseline.Core), deref(current.Core))
	case foundry.LayerPlatformExtension:
		return platformDiffCount(deref(baseline.Platform), deref(current.Platform))
	case foundry.LayerThemeOverride:
		return themeDiffCount(deref(baseline.Theme), deref(current.Theme))
	default:
		return 0
	}
}

func coreDiffCount(baseline, current foundry.CoreDocument) int {
	count := 0
	count += differs(baseline.Tokens, current.Tokens)
	count += differs(baseline.TokenCollections, current.TokenCollections)
	count += differs(baseline.Dimensions, current.Dimensions)
	count += differs(baseline.Platforms, current.Platforms)
	count += differs(baseline.Themes, current.Themes)
	count += differs(baseline.Taxonomies, current.Taxonomies)
	count += differs(baseline.ResolvedValueTypes, current.ResolvedValueTypes)
	return count
}

func platformDiffCount(baseline, current foundry.PlatformExtension) int {
	count := 0
	count += differs(baseline.TokenOverrides, current.TokenOverrides)
	count += differs(baseline.OmittedModes, current.OmittedModes)
	count += differs(baseline.OmittedDimensions, current.OmittedDimensions)
	count += differs(baseline.SyntaxPatterns, current.SyntaxPatterns)
	return count
}

func themeDiffCount(baseline, current foundry.ThemeOverride) int {
	return differs(baseline.TokenOverrides, current.TokenOverrides)
}

// differs compares by value, never by reference, and treats a nil slice the
// same as an empty one.
func differs(a, b any) int {
	if normalizedEqual(a, b) {
		return 0
	}
	return 1
}

func normalizedEqual(a, b any) bool {
	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)
	if av.Kind() == reflect.Slice && bv.Kind() == reflect.Slice && av.Len() == 0 && bv.Len() == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func deref[T any](ptr *T) T {
	if ptr == nil {
		var zero T
		return zero
	}
	return *ptr
}

func emptyOf(doc foundry.LayerDocument) foundry.LayerDocument {
	switch doc.Kind {
	case foundry.LayerCore:
		return foundry.CoreLayerDocument(foundry.CoreDocument{})
	case foundry.LayerPlatformExtension:
		ext := foundry.PlatformExtension{}
		if doc.Platform != nil {
			ext.PlatformID = doc.Platform.PlatformID
			ext.SystemID = doc.Platform.SystemID
		}
		return foundry.PlatformLayerDocument(ext)
	case foundry.LayerThemeOverride:
		ov := foundry.ThemeOverride{}
		if doc.Theme != nil {
			ov.ThemeID = doc.Theme.ThemeID
			ov.SystemID = doc.Theme.SystemID
		}
		return foundry.ThemeLayerDocument(ov)
	default:
		return foundry.LayerDocument{}
	}
}
