// Package system wires the engine together: layer stores, permission
// service, context manager, and repository orchestrator, constructed bottom
// up with explicit dependencies and no package-level state.
package system

import (
	"context"
	"log/slog"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/config"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/diff"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/gitrepo"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/orchestrator"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/permissions"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/state"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/resolve"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/session"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/source"
)

// Option configures a System.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	hooks    activity.Hooks
	fallback gitrepo.Repository
	confirm  source.ConfirmFunc
	bindings *permissions.BindingRegistry
}

// WithLogger overrides the default logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHook registers a lifecycle event listener.
func WithHook(hook activity.Hook) Option {
	return func(o *options) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// WithFallbackRepository installs the anonymous client used for public
// repositories when the authenticated read fails.
func WithFallbackRepository(fallback gitrepo.Repository) Option {
	return func(o *options) {
		o.fallback = fallback
	}
}

// WithConfirm installs the unsaved-changes confirmation callback.
func WithConfirm(confirm source.ConfirmFunc) Option {
	return func(o *options) {
		o.confirm = confirm
	}
}

// WithBindings seeds the repository binding registry, usually restored from
// persisted state.
func WithBindings(bindings *permissions.BindingRegistry) Option {
	return func(o *options) {
		o.bindings = bindings
	}
}

// System is the assembled engine.
type System struct {
	cfg      config.Config
	logger   *slog.Logger
	stores   *state.LayerStores
	tracker  *diff.Tracker
	emitter  *activity.Emitter
	perms    *permissions.Service
	sessions *session.Manager
	contexts *source.Manager
	orch     *orchestrator.Orchestrator
}

// New assembles a System against repo using cfg.
func New(cfg config.Config, repo gitrepo.Repository, opts ...Option) *System {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	emitter := activity.NewEmitter(o.hooks, activity.Config{Enabled: true}, o.logger)

	stores := state.NewLayerStores()
	tracker := diff.NewTracker()
	bindings := o.bindings
	if bindings == nil {
		bindings = permissions.NewBindingRegistry()
	}
	perms := permissions.NewService(repo, bindings,
		permissions.WithTTL(cfg.PermissionTTL),
		permissions.WithEmitter(emitter),
		permissions.WithLogger(o.logger),
	)
	sessions := session.NewManager(cfg.UndoDepth)
	contexts := source.NewManager(perms, sessions, tracker, stores,
		source.WithConfirm(o.confirm),
		source.WithEmitter(emitter),
		source.WithLogger(o.logger),
	)
	orch := orchestrator.New(repo, stores, tracker, perms,
		orchestrator.WithFallback(o.fallback),
		orchestrator.WithSizeLimit(cfg.SizeLimit),
		orchestrator.WithQueueCapacity(cfg.QueueCapacity),
		orchestrator.WithDefaultBranch(cfg.DefaultBranch),
		orchestrator.WithEmitter(emitter),
		orchestrator.WithLogger(o.logger),
	)

	return &System{
		cfg:      cfg,
		logger:   o.logger,
		stores:   stores,
		tracker:  tracker,
		emitter:  emitter,
		perms:    perms,
		sessions: sessions,
		contexts: contexts,
		orch:     orch,
	}
}

// Stores exposes the layer stores.
func (s *System) Stores() *state.LayerStores { return s.stores }

// Tracker exposes the baseline tracker.
func (s *System) Tracker() *diff.Tracker { return s.tracker }

// Permissions exposes the write-access service.
func (s *System) Permissions() *permissions.Service { return s.perms }

// Sessions exposes the edit-session manager.
func (s *System) Sessions() *session.Manager { return s.sessions }

// Contexts exposes the source-context manager.
func (s *System) Contexts() *source.Manager { return s.contexts }

// Orchestrator exposes the serialized repository operations.
func (s *System) Orchestrator() *orchestrator.Orchestrator { return s.orch }

// Emitter exposes the lifecycle event fan-out.
func (s *System) Emitter() *activity.Emitter { return s.emitter }

// Resolve merges the loaded layers for the active context, including any
// staged overrides of the active edit session, and fans out the merge
// warnings as events.
func (s *System) Resolve(ctx context.Context) (foundry.Snapshot, error) {
	core, ok := s.stores.Core()
	if !ok {
		return foundry.Snapshot{}, &foundry.NotFoundError{FilePath: "core document"}
	}

	in := resolve.Inputs{
		Core:               core,
		PlatformExtensions: s.stores.PlatformExtensions(),
		ThemeOverrides:     s.stores.ThemeOverrides(),
		Context:            s.contexts.Current(),
	}
	if active, ok := s.sessions.Active(); ok {
		in.Pending = active.Pending()
	}

	snapshot := resolve.Merge(in)
	for _, warning := range snapshot.Warnings {
		s.emitter.Emit(ctx, activity.BuildResolutionWarningEvent(
			string(warning.Code), warning.TokenID, warning.Message, activity.EventInput{
				Layer:   in.Context.LayerKind().String(),
				LayerID: in.Context.LayerID(),
			}))
	}
	return snapshot, nil
}

// ApplyActiveSession writes the active session's document back to the layer
// stores so a subsequent Save persists it. The session stays open.
func (s *System) ApplyActiveSession() error {
	active, ok := s.sessions.Active()
	if !ok {
		return &foundry.SessionError{Op: "session.apply"}
	}
	doc := active.Document()
	if err := doc.Validate(); err != nil {
		return err
	}
	switch doc.Kind {
	case foundry.LayerCore:
		s.stores.SetCore(*doc.Core)
		return nil
	case foundry.LayerPlatformExtension:
		return s.stores.SetPlatformExtension(*doc.Platform)
	default:
		return s.stores.SetThemeOverride(*doc.Theme)
	}
}

// Reset drops all loaded documents, baselines, sessions, and cached
// permissions. Bindings survive; the next Load starts from a clean slate.
func (s *System) Reset() {
	s.sessions.EndActive()
	s.stores.Reset()
	s.tracker.Reset()
	s.perms.InvalidateAll()
}

// Close stops the orchestrator worker.
func (s *System) Close() {
	s.orch.Close()
}
