// Package state holds the process-wide layer stores and the key-value
// persistence collaborator they hydrate from. The stores are the only place
// layer documents live in memory; everything else works on clones or on the
// derived merged snapshot.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Slot names one persisted compartment of the key-value collaborator.
type Slot string

const (
	SlotTokens             Slot = "tokens"
	SlotCollections        Slot = "collections"
	SlotDimensions         Slot = "dimensions"
	SlotPlatforms          Slot = "platforms"
	SlotThemes             Slot = "themes"
	SlotTaxonomies         Slot = "taxonomies"
	SlotValueTypes         Slot = "resolved-value-types"
	SlotPlatformExtensions Slot = "platform-extensions"
	SlotThemeOverrides     Slot = "theme-overrides"
	SlotRootMetadata       Slot = "root"
)

// ErrSlotUnknown is returned by implementations that restrict slot names.
var ErrSlotUnknown = errors.New("state: unknown slot")

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	ETag      string            `json:"etag,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// KV loads and saves one JSON payload per named slot. Implementations make
// no persistence assumptions beyond slot-keyed durability.
type KV interface {
	Get(ctx context.Context, slot Slot) (payload json.RawMessage, meta Meta, ok bool, err error)
	Set(ctx context.Context, slot Slot, payload json.RawMessage, meta Meta) (Meta, error)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
