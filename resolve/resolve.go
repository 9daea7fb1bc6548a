// Package resolve implements the layered override resolution engine. Merge is
// a pure function: identical inputs always produce a structurally identical
// snapshot, with no I/O, randomness, or wall-clock dependence anywhere in the
// merge path.
package resolve

import (
	"fmt"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/internal/overlay"
)

// Inputs carries everything the engine resolves from. All fields are read
// only; the engine never mutates them.
type Inputs struct {
	Core               foundry.CoreDocument
	PlatformExtensions map[string]foundry.PlatformExtension
	ThemeOverrides     map[string]foundry.ThemeOverride
	Context            foundry.SourceContext
	// Pending holds staged, uncommitted overrides keyed by token id. They take
	// precedence over any layer-persisted value.
	Pending map[string]foundry.PendingOverride
}

// Merge resolves the three layers plus staged edits into one snapshot for the
// active context. Exactly one non-core layer can be active, so platform and
// theme overrides never compete for the same token within one pass.
func Merge(in Inputs) foundry.Snapshot {
	snapshot := foundry.Snapshot{
		Context:            in.Context,
		SystemID:           in.Core.SystemID,
		TokenCollections:   cloneSlice(in.Core.TokenCollections),
		Dimensions:         cloneSlice(in.Core.Dimensions),
		Platforms:          cloneSlice(in.Core.Platforms),
		Themes:             cloneSlice(in.Core.Themes),
		Taxonomies:         cloneSlice(in.Core.Taxonomies),
		ResolvedValueTypes: cloneSlice(in.Core.ResolvedValueTypes),
	}

	known := make(map[string]*foundry.Token, len(in.Core.Tokens))
	for i := range in.Core.Tokens {
		known[in.Core.Tokens[i].ID] = &in.Core.Tokens[i]
	}

	var (
		platformOverrides map[string]foundry.TokenOverride
		themeOverrides    map[string]foundry.TokenOverride
		omittedModes      []string
		omittedDimensions []string
	)

	switch in.Context.Kind() {
	case foundry.SourcePlatform:
		platformID, _ := in.Context.PlatformID()
		if ext, ok := in.PlatformExtensions[platformID]; ok {
			platformOverrides = indexOverrides(ext.TokenOverrides)
			omittedModes = ext.OmittedModes
			omittedDimensions = ext.OmittedDimensions
			snapshot.Warnings = append(snapshot.Warnings, unknownTokenWarnings(ext.TokenOverrides, known)...)
			snapshot.SyntaxPatterns = effectiveSyntaxPatterns(in.Core, platformID, ext.SyntaxPatterns)
		} else {
			snapshot.SyntaxPatterns = effectiveSyntaxPatterns(in.Core, platformID, nil)
		}
	case foundry.SourceTheme:
		themeID, _ := in.Context.ThemeID()
		if ov, ok := in.ThemeOverrides[themeID]; ok {
			themeOverrides = indexOverrides(ov.TokenOverrides)
			snapshot.Warnings = append(snapshot.Warnings, unknownTokenWarnings(ov.TokenOverrides, known)...)
		}
	case foundry.SourceCore:
		// No overlay.
	}

	omittedModeIDs := expandOmissions(in.Core, omittedModes, omittedDimensions)

	snapshot.Tokens = make([]foundry.ResolvedToken, 0, len(in.Core.Tokens))
	for _, token := range in.Core.Tokens {
		resolved, warnings := resolveToken(token, in.Context, platformOverrides, themeOverrides, omittedModeIDs, in.Pending)
		snapshot.Tokens = append(snapshot.Tokens, resolved)
		snapshot.Warnings = append(snapshot.Warnings, warnings...)
	}
	return snapshot
}

func resolveToken(
	token foundry.Token,
	ctx foundry.SourceContext,
	platformOverrides map[string]foundry.TokenOverride,
	themeOverrides map[string]foundry.TokenOverride,
	omittedModeIDs map[string]struct{},
	pending map[string]foundry.PendingOverride,
) (foundry.ResolvedToken, []foundry.Warning) {
	entries := make([]foundry.ValueByMode, len(token.ValuesByMode))
	copy(entries, token.ValuesByMode)

	origins := make(map[string]foundry.Provenance, len(entries))
	for _, entry := range entries {
		key := entry.Key().String()
		origins[key] = foundry.Provenance{ModeKey: key, Source: foundry.FromCore}
	}

	var warnings []foundry.Warning

	switch ctx.Kind() {
	case foundry.SourcePlatform:
		platformID, _ := ctx.PlatformID()
		if override, ok := platformOverrides[token.ID]; ok {
			entries = replaceMatching(entries, override.ValuesByMode, origins, foundry.Provenance{Source: foundry.FromPlatform, LayerID: platformID})
		}
		entries = dropOmitted(entries, omittedModeIDs, origins)
	case foundry.SourceTheme:
		themeID, _ := ctx.ThemeID()
		if override, ok := themeOverrides[token.ID]; ok {
			if !token.Themeable {
				warnings = append(warnings, foundry.Warning{
					Code:    foundry.WarnNotThemeable,
					TokenID: token.ID,
					Message: fmt.Sprintf("theme %q overrides non-themeable token %q; override ignored", themeID, token.ID),
				})
			} else {
				entries = replaceMatching(entries, override.ValuesByMode, origins, foundry.Provenance{Source: foundry.FromTheme, LayerID: themeID})
			}
		}
	case foundry.SourceCore:
		// Base values pass through unchanged.
	}

	if staged, ok := pending[token.ID]; ok {
		entries = applyPending(entries, staged.ValuesByMode, origins)
	}

	resolved := foundry.ResolvedToken{Token: token, Origins: origins}
	resolved.ValuesByMode = entries
	return resolved, warnings
}

// replaceMatching swaps base entries whose mode-key matches an override entry.
// Override entries with no matching base key are not appended; the core
// document alone decides which mode-keys a token carries.
func replaceMatching(base, overrides []foundry.ValueByMode, origins map[string]foundry.Provenance, origin foundry.Provenance) []foundry.ValueByMode {
	for _, override := range overrides {
		key := override.Key()
		for i := range base {
			if base[i].Key().Equal(key) {
				base[i] = override
				origins[key.String()] = foundry.Provenance{ModeKey: key.String(), Source: origin.Source, LayerID: origin.LayerID}
			}
		}
	}
	return base
}

// applyPending replaces matching entries and appends new mode-keys: a staged
// edit is a draft of the layer document itself, so it may introduce entries.
func applyPending(base, staged []foundry.ValueByMode, origins map[string]foundry.Provenance) []foundry.ValueByMode {
	for _, entry := range staged {
		key := entry.Key()
		replaced := false
		for i := range base {
			if base[i].Key().Equal(key) {
				base[i] = entry
				replaced = true
			}
		}
		if !replaced {
			base = append(base, entry)
		}
		origins[key.String()] = foundry.Provenance{ModeKey: key.String(), Source: foundry.FromPending}
	}
	return base
}

func dropOmitted(entries []foundry.ValueByMode, omittedModeIDs map[string]struct{}, origins map[string]foundry.Provenance) []foundry.ValueByMode {
	if len(omittedModeIDs) == 0 {
		return entries
	}
	kept := entries[:0]
	for _, entry := range entries {
		omitted := false
		for _, modeID := range entry.Key().ModeIDs() {
			if _, ok := omittedModeIDs[modeID]; ok {
				omitted = true
				break
			}
		}
		if omitted {
			delete(origins, entry.Key().String())
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

// expandOmissions folds omitted dimensions into a flat set of omitted mode
// ids using the core document's dimension definitions.
func expandOmissions(core foundry.CoreDocument, omittedModes, omittedDimensions []string) map[string]struct{} {
	if len(omittedModes) == 0 && len(omittedDimensions) == 0 {
		return nil
	}
	omitted := make(map[string]struct{}, len(omittedModes))
	for _, modeID := range omittedModes {
		if modeID != "" {
			omitted[modeID] = struct{}{}
		}
	}
	if len(omittedDimensions) > 0 {
		dims := make(map[string]struct{}, len(omittedDimensions))
		for _, dimID := range omittedDimensions {
			dims[dimID] = struct{}{}
		}
		for _, dimension := range core.Dimensions {
			if _, ok := dims[dimension.ID]; !ok {
				continue
			}
			for _, mode := range dimension.Modes {
				omitted[mode.ID] = struct{}{}
			}
		}
	}
	return omitted
}

// effectiveSyntaxPatterns overlays the extension's patterns on the core
// platform metadata, strongest first.
func effectiveSyntaxPatterns(core foundry.CoreDocument, platformID string, extension *foundry.SyntaxPatterns) *foundry.SyntaxPatterns {
	var base *foundry.SyntaxPatterns
	for _, platform := range core.Platforms {
		if platform.ID == platformID {
			base = platform.SyntaxPatterns
			break
		}
	}
	if extension == nil && base == nil {
		return nil
	}
	if extension == nil {
		clone := *base
		return &clone
	}
	if base == nil {
		clone := *extension
		return &clone
	}
	merged := overlay.Merge(*extension, *base)
	return &merged
}

func indexOverrides(overrides []foundry.TokenOverride) map[string]foundry.TokenOverride {
	if len(overrides) == 0 {
		return nil
	}
	indexed := make(map[string]foundry.TokenOverride, len(overrides))
	for _, override := range overrides {
		indexed[override.TokenID] = override
	}
	return indexed
}

func unknownTokenWarnings(overrides []foundry.TokenOverride, known map[string]*foundry.Token) []foundry.Warning {
	var warnings []foundry.Warning
	for _, override := range overrides {
		if _, ok := known[override.TokenID]; !ok {
			warnings = append(warnings, foundry.Warning{
				Code:    foundry.WarnUnknownToken,
				TokenID: override.TokenID,
				Message: fmt.Sprintf("override references unknown token %q", override.TokenID),
			})
		}
	}
	return warnings
}

func cloneSlice[T any](items []T) []T {
	if items == nil {
		return nil
	}
	cloned := make([]T, len(items))
	copy(cloned, items)
	return cloned
}
