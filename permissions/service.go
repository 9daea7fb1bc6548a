package permissions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/gitrepo"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
)

// DefaultTTL bounds how long a cached write-access answer stays fresh.
const DefaultTTL = 5 * time.Minute

// Map is the per-layer permission view the UI consumes. Every entry comes
// from the TTL cache.
type Map struct {
	Core      bool            `json:"core"`
	Platforms map[string]bool `json:"platforms"`
	Themes    map[string]bool `json:"themes"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEmitter wires lifecycle events for refreshes and failed checks.
func WithEmitter(emitter *activity.Emitter) ServiceOption {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type cacheEntry struct {
	allowed bool
	expires time.Time
}

// Service answers write-access questions for bound repositories. Answers are
// TTL-cached; concurrent checks for the same repository collapse into one
// probe via singleflight.
type Service struct {
	repo     gitrepo.Repository
	bindings *BindingRegistry
	ttl      time.Duration
	clock    func() time.Time
	emitter  *activity.Emitter
	logger   *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewService constructs the permission service.
func NewService(repo gitrepo.Repository, bindings *BindingRegistry, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		bindings: bindings,
		ttl:      DefaultTTL,
		clock:    time.Now,
		logger:   slog.Default(),
		cache:    map[string]cacheEntry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Bindings exposes the registry the service resolves against.
func (s *Service) Bindings() *BindingRegistry {
	return s.bindings
}

// HasWriteAccess reports whether the caller can push to repositoryURI. A
// failing probe is treated as no access and surfaced as an event, never as
// an error to the caller.
func (s *Service) HasWriteAccess(ctx context.Context, repositoryURI string) bool {
	if repositoryURI == "" {
		return false
	}
	now := s.clock()

	s.mu.Lock()
	entry, ok := s.cache[repositoryURI]
	s.mu.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.allowed
	}

	return s.check(ctx, repositoryURI)
}

// ForceRefresh drops the cache entry for repositoryURI and re-checks.
func (s *Service) ForceRefresh(ctx context.Context, repositoryURI string) bool {
	if repositoryURI == "" {
		return false
	}
	s.Invalidate(repositoryURI)
	allowed := s.check(ctx, repositoryURI)
	if s.emitter != nil {
		s.emitter.Emit(ctx, activity.BuildPermissionRefreshedEvent(activity.EventInput{
			RepositoryURI: repositoryURI,
		}))
	}
	return allowed
}

// Invalidate drops the cache entry for repositoryURI without re-checking.
func (s *Service) Invalidate(repositoryURI string) {
	s.mu.Lock()
	delete(s.cache, repositoryURI)
	s.mu.Unlock()
}

// InvalidateAll drops every cached answer.
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	s.cache = map[string]cacheEntry{}
	s.mu.Unlock()
}

// CurrentEditPermissions resolves the permission for the active context with
// strict precedence: an active platform wins, then an active theme, then
// core. A missing binding means no access.
func (s *Service) CurrentEditPermissions(ctx context.Context, active foundry.SourceContext) bool {
	binding, ok := s.bindings.BindingFor(active)
	if !ok {
		return false
	}
	return s.HasWriteAccess(ctx, binding.RepositoryURI)
}

// EditPermissions assembles the full per-layer permission map from cache,
// probing any repository whose entry has expired.
func (s *Service) EditPermissions(ctx context.Context) Map {
	result := Map{
		Platforms: map[string]bool{},
		Themes:    map[string]bool{},
	}
	if binding, ok := s.bindings.BindingFor(foundry.CoreContext()); ok {
		result.Core = s.HasWriteAccess(ctx, binding.RepositoryURI)
	}
	for _, platformID := range s.bindings.PlatformIDs() {
		if binding, ok := s.bindings.BindingFor(foundry.PlatformContext(platformID)); ok {
			result.Platforms[platformID] = s.HasWriteAccess(ctx, binding.RepositoryURI)
		}
	}
	for _, themeID := range s.bindings.ThemeIDs() {
		if binding, ok := s.bindings.BindingFor(foundry.ThemeContext(themeID)); ok {
			result.Themes[themeID] = s.HasWriteAccess(ctx, binding.RepositoryURI)
		}
	}
	return result
}

// check probes the repository host, collapsing concurrent probes for the
// same repository into one request.
func (s *Service) check(ctx context.Context, repositoryURI string) bool {
	result, err, _ := s.group.Do(repositoryURI, func() (any, error) {
		return s.repo.HasWriteAccessToRepository(ctx, repositoryURI)
	})
	now := s.clock()
	allowed := false
	if err != nil {
		// Fail closed: an unanswerable probe is no access.
		s.logger.Warn("write-access check failed",
			"repository", repositoryURI,
			"error", err,
		)
		if s.emitter != nil {
			s.emitter.Emit(ctx, activity.BuildPermissionCheckFailedEvent(activity.EventInput{
				RepositoryURI: repositoryURI,
			}, err))
		}
	} else {
		allowed, _ = result.(bool)
	}

	s.mu.Lock()
	s.cache[repositoryURI] = cacheEntry{allowed: allowed, expires: now.Add(s.ttl)}
	s.mu.Unlock()
	return allowed
}
