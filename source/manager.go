// Package source tracks which layer is active for viewing and editing and
// drives context switches. A switch is asynchronous (the permission refresh
// is I/O); a later switch supersedes an earlier one still in flight, detected
// by comparing generations at completion time.
package source

import (
	"context"
	"log/slog"
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/diff"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/permissions"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/state"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/session"
)

// ConfirmFunc is asked before a switch discards unsaved work. Returning
// false cancels the switch; the default when no func is configured is to
// stay on the current context.
type ConfirmFunc func(ctx context.Context, pendingCount int) bool

// SwitchResult reports what a switch request ended up doing.
type SwitchResult struct {
	// Applied is true when the manager now points at the requested target.
	Applied bool
	// Superseded is true when a later switch overtook this one in flight.
	Superseded bool
	// Cancelled is true when the unsaved-changes confirmation declined.
	Cancelled bool
	// Context is the active context after the request completed.
	Context foundry.SourceContext
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConfirm installs the unsaved-changes confirmation callback.
func WithConfirm(confirm ConfirmFunc) ManagerOption {
	return func(m *Manager) {
		m.confirm = confirm
	}
}

// WithEmitter wires change notifications.
func WithEmitter(emitter *activity.Emitter) ManagerOption {
	return func(m *Manager) {
		m.emitter = emitter
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager owns the active source context, the view mode derived from it, and
// the edit-mode lifecycle.
type Manager struct {
	perms    *permissions.Service
	sessions *session.Manager
	tracker  *diff.Tracker
	stores   *state.LayerStores
	emitter  *activity.Emitter
	logger   *slog.Logger
	confirm  ConfirmFunc

	mu         sync.Mutex
	current    foundry.SourceContext
	viewMode   foundry.ViewMode
	editMode   bool
	generation uint64
}

// NewManager constructs the context manager. The permission service, session
// manager, change tracker, and layer stores are required collaborators.
func NewManager(perms *permissions.Service, sessions *session.Manager, tracker *diff.Tracker, stores *state.LayerStores, opts ...ManagerOption) *Manager {
	m := &Manager{
		perms:    perms,
		sessions: sessions,
		tracker:  tracker,
		stores:   stores,
		logger:   slog.Default(),
		viewMode: foundry.ViewCoreOnly,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Current returns the active context.
func (m *Manager) Current() foundry.SourceContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ViewMode returns the presentation mode derived from the active context.
func (m *Manager) ViewMode() foundry.ViewMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewMode
}

// EditMode reports whether an edit session is active.
func (m *Manager) EditMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editMode
}

// SwitchToPlatform activates the extension layer for platformID. An empty id
// normalizes to Core. Activating a platform implicitly clears any active
// theme: only one non-core layer can be active.
func (m *Manager) SwitchToPlatform(ctx context.Context, platformID string) SwitchResult {
	return m.switchTo(ctx, foundry.PlatformContext(platformID))
}

// SwitchToTheme activates the override layer for themeID. An empty id
// normalizes to Core. Activating a theme implicitly clears any active
// platform.
func (m *Manager) SwitchToTheme(ctx context.Context, themeID string) SwitchResult {
	return m.switchTo(ctx, foundry.ThemeContext(themeID))
}

func (m *Manager) switchTo(ctx context.Context, target foundry.SourceContext) SwitchResult {
	m.mu.Lock()
	from := m.current
	if from == target {
		result := SwitchResult{Applied: true, Context: m.current}
		m.mu.Unlock()
		return result
	}

	// Unsaved pending work blocks the switch unless the caller confirms.
	pendingCount := m.pendingCountLocked()
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	if pendingCount > 0 {
		if m.confirm == nil || !m.confirm(ctx, pendingCount) {
			return SwitchResult{Cancelled: true, Context: m.Current()}
		}
	}

	// Permission refresh for the target's repository is the only suspension
	// point of a switch.
	if binding, ok := m.perms.Bindings().BindingFor(target); ok {
		m.perms.ForceRefresh(ctx, binding.RepositoryURI)
	}

	m.mu.Lock()
	if m.generation != generation {
		// A later switch superseded this one while the refresh ran.
		result := SwitchResult{Superseded: true, Context: m.current}
		m.mu.Unlock()
		return result
	}
	m.current = target
	m.viewMode = defaultViewMode(target)
	m.editMode = false
	m.mu.Unlock()

	m.sessions.EndActive()

	if m.emitter != nil {
		m.emitter.Emit(ctx, activity.BuildContextSwitchedEvent(from.String(), target.String(), activity.EventInput{
			Layer:   target.LayerKind().String(),
			LayerID: target.LayerID(),
		}))
	}
	return SwitchResult{Applied: true, Context: target}
}

// SetViewMode overrides the derived view mode. Layer-only modes are valid
// only while the matching layer is active.
func (m *Manager) SetViewMode(mode foundry.ViewMode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch mode {
	case foundry.ViewPlatformOnly:
		if m.current.Kind() != foundry.SourcePlatform {
			return false
		}
	case foundry.ViewThemeOnly:
		if m.current.Kind() != foundry.SourceTheme {
			return false
		}
	case foundry.ViewMerged:
		if m.current.IsCore() {
			return false
		}
	}
	m.viewMode = mode
	return true
}

// EnterEditMode starts an edit session against the active layer. It fails
// closed when the caller has no write access to the layer's repository.
func (m *Manager) EnterEditMode(ctx context.Context) (*session.Session, error) {
	active := m.Current()
	if !m.perms.CurrentEditPermissions(ctx, active) {
		binding, _ := m.perms.Bindings().BindingFor(active)
		return nil, &foundry.PermissionError{RepositoryURI: binding.RepositoryURI}
	}

	document, err := m.workingDocument(active)
	if err != nil {
		return nil, err
	}
	s := m.sessions.Begin(active, document)

	m.mu.Lock()
	m.editMode = true
	m.mu.Unlock()
	return s, nil
}

// ExitEditMode ends the active edit session, discarding staged overrides.
func (m *Manager) ExitEditMode() {
	m.sessions.EndActive()
	m.mu.Lock()
	m.editMode = false
	m.mu.Unlock()
}

// workingDocument snapshots the active layer's document for an edit session.
func (m *Manager) workingDocument(active foundry.SourceContext) (foundry.LayerDocument, error) {
	switch active.Kind() {
	case foundry.SourcePlatform:
		platformID, _ := active.PlatformID()
		ext, ok := m.stores.PlatformExtension(platformID)
		if !ok {
			core, _ := m.stores.Core()
			ext = foundry.PlatformExtension{SystemID: core.SystemID, PlatformID: platformID}
		}
		return foundry.PlatformLayerDocument(ext), nil
	case foundry.SourceTheme:
		themeID, _ := active.ThemeID()
		ov, ok := m.stores.ThemeOverride(themeID)
		if !ok {
			core, _ := m.stores.Core()
			ov = foundry.ThemeOverride{SystemID: core.SystemID, ThemeID: themeID}
		}
		return foundry.ThemeLayerDocument(ov), nil
	default:
		core, ok := m.stores.Core()
		if !ok {
			return foundry.LayerDocument{}, &foundry.NotFoundError{FilePath: "core document"}
		}
		return foundry.CoreLayerDocument(core), nil
	}
}

// pendingCountLocked sums staged overrides plus dirty entity arrays for the
// active layer. Caller holds m.mu.
func (m *Manager) pendingCountLocked() int {
	count := 0
	if active, ok := m.sessions.Active(); ok {
		count += len(active.Pending())
		count += m.tracker.DiffCount(active.Document())
	}
	return count
}

func defaultViewMode(ctx foundry.SourceContext) foundry.ViewMode {
	switch ctx.Kind() {
	case foundry.SourcePlatform, foundry.SourceTheme:
		return foundry.ViewMerged
	default:
		return foundry.ViewCoreOnly
	}
}
