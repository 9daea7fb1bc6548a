package foundry

import (
	"slices"
	"strings"
)

// ModeKey is the set of dimension-mode ids identifying one valuesByMode
// entry. Equality is by set membership; the canonical form sorts ids and is
// safe to use as a map key. The empty key addresses the global entry.
type ModeKey struct {
	canonical string
}

// NewModeKey builds a key from mode ids, deduplicating and ignoring blanks.
func NewModeKey(modeIDs ...string) ModeKey {
	if len(modeIDs) == 0 {
		return ModeKey{}
	}
	ids := make([]string, 0, len(modeIDs))
	for _, id := range modeIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return ModeKey{canonical: strings.Join(ids, "+")}
}

// String returns the canonical sorted representation.
func (k ModeKey) String() string {
	return k.canonical
}

// IsGlobal reports whether the key addresses the mode-independent entry.
func (k ModeKey) IsGlobal() bool {
	return k.canonical == ""
}

// ModeIDs returns the member ids of the key in canonical order.
func (k ModeKey) ModeIDs() []string {
	if k.canonical == "" {
		return nil
	}
	return strings.Split(k.canonical, "+")
}

// Equal reports set equality with other.
func (k ModeKey) Equal(other ModeKey) bool {
	return k.canonical == other.canonical
}

// Contains reports whether modeID is a member of the key.
func (k ModeKey) Contains(modeID string) bool {
	if modeID == "" {
		return false
	}
	return slices.Contains(k.ModeIDs(), modeID)
}

// IntersectsAny reports whether any of modeIDs is a member of the key.
func (k ModeKey) IntersectsAny(modeIDs []string) bool {
	for _, id := range modeIDs {
		if k.Contains(id) {
			return true
		}
	}
	return false
}
