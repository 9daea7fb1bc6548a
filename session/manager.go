package session

import (
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// Manager tracks the single active edit session. Entering edit mode begins a
// session; switching context or exiting edit mode ends it.
type Manager struct {
	depth int

	mu     sync.Mutex
	active *Session
}

// NewManager constructs a manager whose sessions carry the given undo depth.
func NewManager(undoDepth int) *Manager {
	return &Manager{depth: undoDepth}
}

// Begin starts a new session for the given context and working document,
// replacing any session already active.
func (m *Manager) Begin(ctx foundry.SourceContext, document foundry.LayerDocument) *Session {
	s := newSession(ctx, document, m.depth)
	m.mu.Lock()
	m.active = s
	m.mu.Unlock()
	return s
}

// Active returns the current session, if any.
func (m *Manager) Active() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Get resolves a session by id, failing with a SessionError for stale or
// unknown ids.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != id {
		return nil, &foundry.SessionError{SessionID: id, Op: "session.get"}
	}
	return m.active, nil
}

// End closes the session with the given id. Ending an unknown session is a
// caller error.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != id {
		return &foundry.SessionError{SessionID: id, Op: "session.end"}
	}
	m.active = nil
	return nil
}

// EndActive closes whatever session is active, if any.
func (m *Manager) EndActive() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}
