package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// LayerStores is the typed holder for the three storage layers: one core
// document, platform extensions keyed by platform id, and theme overrides
// keyed by theme id. Reads return detached clones; only the persistence
// orchestrator and the active edit session are expected to call the setters.
type LayerStores struct {
	mu         sync.RWMutex
	core       foundry.CoreDocument
	coreLoaded bool
	platforms  map[string]foundry.PlatformExtension
	themes     map[string]foundry.ThemeOverride
}

// NewLayerStores constructs empty stores.
func NewLayerStores() *LayerStores {
	return &LayerStores{
		platforms: map[string]foundry.PlatformExtension{},
		themes:    map[string]foundry.ThemeOverride{},
	}
}

// Core returns a clone of the core document and whether one has been loaded.
func (s *LayerStores) Core() (foundry.CoreDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.coreLoaded {
		return foundry.CoreDocument{}, false
	}
	return foundry.CloneCoreDocument(s.core), true
}

// SetCore replaces the core document.
func (s *LayerStores) SetCore(doc foundry.CoreDocument) {
	clone := foundry.CloneCoreDocument(doc)
	s.mu.Lock()
	s.core = clone
	s.coreLoaded = true
	s.mu.Unlock()
}

// PlatformExtension returns a clone of the extension stored for a platform.
func (s *LayerStores) PlatformExtension(platformID string) (foundry.PlatformExtension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ext, ok := s.platforms[platformID]
	if !ok {
		return foundry.PlatformExtension{}, false
	}
	return foundry.ClonePlatformExtension(ext), true
}

// SetPlatformExtension stores an extension under its platform id.
func (s *LayerStores) SetPlatformExtension(ext foundry.PlatformExtension) error {
	if ext.PlatformID == "" {
		return fmt.Errorf("state: platform extension missing platform id")
	}
	clone := foundry.ClonePlatformExtension(ext)
	s.mu.Lock()
	s.platforms[ext.PlatformID] = clone
	s.mu.Unlock()
	return nil
}

// RemovePlatformExtension drops the extension for a platform, if present.
func (s *LayerStores) RemovePlatformExtension(platformID string) {
	s.mu.Lock()
	delete(s.platforms, platformID)
	s.mu.Unlock()
}

// ThemeOverride returns a clone of the override stored for a theme.
func (s *LayerStores) ThemeOverride(themeID string) (foundry.ThemeOverride, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.themes[themeID]
	if !ok {
		return foundry.ThemeOverride{}, false
	}
	return foundry.CloneThemeOverride(ov), true
}

// SetThemeOverride stores an override under its theme id.
func (s *LayerStores) SetThemeOverride(ov foundry.ThemeOverride) error {
	if ov.ThemeID == "" {
		return fmt.Errorf("state: theme override missing theme id")
	}
	clone := foundry.CloneThemeOverride(ov)
	s.mu.Lock()
	s.themes[ov.ThemeID] = clone
	s.mu.Unlock()
	return nil
}

// RemoveThemeOverride drops the override for a theme, if present.
func (s *LayerStores) RemoveThemeOverride(themeID string) {
	s.mu.Lock()
	delete(s.themes, themeID)
	s.mu.Unlock()
}

// PlatformExtensions returns a detached copy of every stored extension.
func (s *LayerStores) PlatformExtensions() map[string]foundry.PlatformExtension {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]foundry.PlatformExtension, len(s.platforms))
	for id, ext := range s.platforms {
		out[id] = foundry.ClonePlatformExtension(ext)
	}
	return out
}

// ThemeOverrides returns a detached copy of every stored override.
func (s *LayerStores) ThemeOverrides() map[string]foundry.ThemeOverride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]foundry.ThemeOverride, len(s.themes))
	for id, ov := range s.themes {
		out[id] = foundry.CloneThemeOverride(ov)
	}
	return out
}

// Reset clears all three layers.
func (s *LayerStores) Reset() {
	s.mu.Lock()
	s.core = foundry.CoreDocument{}
	s.coreLoaded = false
	s.platforms = map[string]foundry.PlatformExtension{}
	s.themes = map[string]foundry.ThemeOverride{}
	s.mu.Unlock()
}

// rootMetadata is the shape persisted under SlotRootMetadata.
type rootMetadata struct {
	SystemID   string `json:"systemId"`
	SystemName string `json:"systemName,omitempty"`
	Version    string `json:"version,omitempty"`
}

// Persist writes every layer into the key-value collaborator, one slot per
// core entity array plus one slot per non-core layer map.
func (s *LayerStores) Persist(ctx context.Context, kv KV) error {
	core, loaded := s.Core()
	if !loaded {
		return fmt.Errorf("state: persist: core document not loaded")
	}
	platforms := s.PlatformExtensions()
	themes := s.ThemeOverrides()

	slots := []struct {
		slot  Slot
		value any
	}{
		{SlotTokens, core.Tokens},
		{SlotCollections, core.TokenCollections},
		{SlotDimensions, core.Dimensions},
		{SlotPlatforms, core.Platforms},
		{SlotThemes, core.Themes},
		{SlotTaxonomies, core.Taxonomies},
		{SlotValueTypes, core.ResolvedValueTypes},
		{SlotPlatformExtensions, platforms},
		{SlotThemeOverrides, themes},
		{SlotRootMetadata, rootMetadata{SystemID: core.SystemID, SystemName: core.SystemName, Version: core.Version}},
	}
	for _, entry := range slots {
		payload, err := json.Marshal(entry.value)
		if err != nil {
			return fmt.Errorf("state: persist slot %q: %w", entry.slot, err)
		}
		if _, err := kv.Set(ctx, entry.slot, payload, Meta{}); err != nil {
			return fmt.Errorf("state: persist slot %q: %w", entry.slot, err)
		}
	}
	return nil
}

// Restore hydrates the stores from the key-value collaborator. Missing slots
// leave the corresponding compartment empty rather than failing.
func (s *LayerStores) Restore(ctx context.Context, kv KV) error {
	var core foundry.CoreDocument
	var root rootMetadata
	if err := restoreSlot(ctx, kv, SlotRootMetadata, &root); err != nil {
		return err
	}
	core.SystemID = root.SystemID
	core.SystemName = root.SystemName
	core.Version = root.Version

	if err := restoreSlot(ctx, kv, SlotTokens, &core.Tokens); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotCollections, &core.TokenCollections); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotDimensions, &core.Dimensions); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotPlatforms, &core.Platforms); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotThemes, &core.Themes); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotTaxonomies, &core.Taxonomies); err != nil {
		return err
	}
	if err := restoreSlot(ctx, kv, SlotValueTypes, &core.ResolvedValueTypes); err != nil {
		return err
	}

	platforms := map[string]foundry.PlatformExtension{}
	if err := restoreSlot(ctx, kv, SlotPlatformExtensions, &platforms); err != nil {
		return err
	}
	themes := map[string]foundry.ThemeOverride{}
	if err := restoreSlot(ctx, kv, SlotThemeOverrides, &themes); err != nil {
		return err
	}

	s.mu.Lock()
	s.core = core
	s.coreLoaded = root.SystemID != "" || len(core.Tokens) > 0
	s.platforms = platforms
	s.themes = themes
	s.mu.Unlock()
	return nil
}

func restoreSlot(ctx context.Context, kv KV, slot Slot, target any) error {
	payload, _, ok, err := kv.Get(ctx, slot)
	if err != nil {
		return fmt.Errorf("state: restore slot %q: %w", slot, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("state: restore slot %q: %w", slot, err)
	}
	return nil
}
