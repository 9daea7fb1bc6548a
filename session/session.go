// Package session manages edit sessions: a working copy of one layer
// document, the staged overrides previewed against it, and a bounded
// undo/redo history.
package session

import (
	"sync"

	"github.com/google/uuid"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// DefaultUndoDepth bounds the undo stack when no depth is configured.
const DefaultUndoDepth = 50

// Mutator applies one edit to the session's working document.
type Mutator func(*foundry.LayerDocument) error

// Session is one edit session against a single layer. All methods are safe
// for concurrent use, though the single-queue orchestration model means
// calls arrive serialized in practice.
type Session struct {
	id      string
	context foundry.SourceContext
	depth   int

	mu       sync.Mutex
	document foundry.LayerDocument
	pending  map[string]foundry.PendingOverride
	undo     []foundry.LayerDocument
	redo     []foundry.LayerDocument
}

func newSession(ctx foundry.SourceContext, document foundry.LayerDocument, depth int) *Session {
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	return &Session{
		id:       uuid.NewString(),
		context:  ctx,
		depth:    depth,
		document: document.Clone(),
		pending:  map[string]foundry.PendingOverride{},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Context returns the layer context the session edits.
func (s *Session) Context() foundry.SourceContext {
	return s.context
}

// Document returns a clone of the current working document.
func (s *Session) Document() foundry.LayerDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document.Clone()
}

// Stage records a pending override for preview. A later stage for the same
// token replaces the earlier one; the session never holds two entries for
// one token id.
func (s *Session) Stage(override foundry.PendingOverride) {
	if override.TokenID == "" {
		return
	}
	s.mu.Lock()
	s.pending[override.TokenID] = override
	s.mu.Unlock()
}

// Unstage drops the pending override for a token, if any.
func (s *Session) Unstage(tokenID string) {
	s.mu.Lock()
	delete(s.pending, tokenID)
	s.mu.Unlock()
}

// Pending returns a copy of the staged overrides keyed by token id.
func (s *Session) Pending() map[string]foundry.PendingOverride {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]foundry.PendingOverride, len(s.pending))
	for id, override := range s.pending {
		out[id] = override
	}
	return out
}

// HasPending reports whether any staged override exists.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Apply commits one mutation to the working document. The prior state is
// pushed onto the undo stack (bounded) and the redo stack is discarded.
func (s *Session) Apply(mutate Mutator) error {
	if mutate == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.document.Clone()
	if err := mutate(&next); err != nil {
		return err
	}

	s.undo = append(s.undo, s.document)
	if len(s.undo) > s.depth {
		s.undo = s.undo[len(s.undo)-s.depth:]
	}
	s.redo = nil
	s.document = next
	return nil
}

// CommitStaged folds every pending override into the working document as one
// undoable mutation and clears the staging area.
func (s *Session) CommitStaged() error {
	s.mu.Lock()
	staged := make([]foundry.PendingOverride, 0, len(s.pending))
	for _, override := range s.pending {
		staged = append(staged, override)
	}
	s.mu.Unlock()
	if len(staged) == 0 {
		return nil
	}

	err := s.Apply(func(doc *foundry.LayerDocument) error {
		for _, override := range staged {
			foldOverride(doc, override)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pending = map[string]foundry.PendingOverride{}
	s.mu.Unlock()
	return nil
}

// Undo restores the previous document state, moving the current one to the
// redo stack. Returns false when there is nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undo) == 0 {
		return false
	}
	previous := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.document)
	s.document = previous
	return true
}

// Redo reapplies the most recently undone state. Returns false when there is
// nothing to redo.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redo) == 0 {
		return false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.document)
	s.document = next
	return true
}

// UndoDepth reports the current undo stack size.
func (s *Session) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo)
}

// foldOverride merges one staged override into the layer document, replacing
// the existing override entry for the token or appending a new one.
func foldOverride(doc *foundry.LayerDocument, staged foundry.PendingOverride) {
	override := foundry.TokenOverride{TokenID: staged.TokenID, ValuesByMode: staged.ValuesByMode}
	switch doc.Kind {
	case foundry.LayerPlatformExtension:
		if doc.Platform != nil {
			doc.Platform.TokenOverrides = upsertOverride(doc.Platform.TokenOverrides, override)
		}
	case foundry.LayerThemeOverride:
		if doc.Theme != nil {
			doc.Theme.TokenOverrides = upsertOverride(doc.Theme.TokenOverrides, override)
		}
	case foundry.LayerCore:
		if doc.Core != nil {
			for i := range doc.Core.Tokens {
				if doc.Core.Tokens[i].ID == staged.TokenID {
					doc.Core.Tokens[i].ValuesByMode = staged.ValuesByMode
					break
				}
			}
		}
	}
}

func upsertOverride(overrides []foundry.TokenOverride, override foundry.TokenOverride) []foundry.TokenOverride {
	for i := range overrides {
		if overrides[i].TokenID == override.TokenID {
			overrides[i] = override
			return overrides
		}
	}
	return append(overrides, override)
}
