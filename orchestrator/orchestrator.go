// Package orchestrator serializes every repository interaction through a
// single worker. Load, save, and refresh requests are queued and executed one
// at a time, so layer stores and baselines never see interleaved writes.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/diff"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/gitrepo"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/permissions"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/state"
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("orchestrator: closed")

const (
	// DefaultSizeLimit caps a serialized layer document at 1 MiB.
	DefaultSizeLimit = 1 << 20
	// DefaultQueueCapacity bounds how many requests may wait behind the
	// one being executed.
	DefaultQueueCapacity = 32
	// DefaultBranch is used when a binding does not name one.
	DefaultBranch = "main"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFallback installs a credential-less repository client tried once when
// the authenticated read fails.
func WithFallback(fallback gitrepo.Repository) Option {
	return func(o *Orchestrator) {
		o.fallback = fallback
	}
}

// WithSizeLimit overrides the serialized-document cap.
func WithSizeLimit(limit int) Option {
	return func(o *Orchestrator) {
		if limit > 0 {
			o.sizeLimit = limit
		}
	}
}

// WithQueueCapacity overrides the task queue depth.
func WithQueueCapacity(capacity int) Option {
	return func(o *Orchestrator) {
		if capacity > 0 {
			o.queueCapacity = capacity
		}
	}
}

// WithDefaultBranch overrides the branch used for bindings without one.
func WithDefaultBranch(branch string) Option {
	return func(o *Orchestrator) {
		if branch != "" {
			o.defaultBranch = branch
		}
	}
}

// WithEmitter wires lifecycle notifications.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type task struct {
	ctx    context.Context
	run    func(ctx context.Context) error
	result chan error
}

// Orchestrator executes repository operations one at a time.
type Orchestrator struct {
	repo     gitrepo.Repository
	fallback gitrepo.Repository
	stores   *state.LayerStores
	tracker  *diff.Tracker
	perms    *permissions.Service
	emitter  *activity.Emitter
	logger   *slog.Logger

	sizeLimit     int
	queueCapacity int
	defaultBranch string

	tasks     chan task
	done      chan struct{}
	closeOnce sync.Once
}

// New starts the worker and returns the orchestrator. Callers must Close it
// when finished.
func New(repo gitrepo.Repository, stores *state.LayerStores, tracker *diff.Tracker, perms *permissions.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:          repo,
		stores:        stores,
		tracker:       tracker,
		perms:         perms,
		logger:        slog.Default(),
		sizeLimit:     DefaultSizeLimit,
		queueCapacity: DefaultQueueCapacity,
		defaultBranch: DefaultBranch,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.tasks = make(chan task, o.queueCapacity)
	o.done = make(chan struct{})
	go o.worker()
	return o
}

// Close stops the worker. Queued tasks that have not started are failed with
// the context error of their submitters once the queue drains.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

func (o *Orchestrator) worker() {
	for {
		select {
		case <-o.done:
			return
		case t := <-o.tasks:
			if err := t.ctx.Err(); err != nil {
				t.result <- err
				continue
			}
			t.result <- t.run(t.ctx)
		}
	}
}

// enqueue submits fn to the worker and waits for its result.
func (o *Orchestrator) enqueue(ctx context.Context, fn func(ctx context.Context) error) error {
	t := task{ctx: ctx, run: fn, result: make(chan error, 1)}
	select {
	case o.tasks <- t:
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		// The worker is gone; a result may still have landed for a task
		// it finished before exiting.
		select {
		case err := <-t.result:
			return err
		default:
			return ErrClosed
		}
	}
}

// binding resolves the repository binding for target, filling the default
// branch when the binding leaves it empty.
func (o *Orchestrator) binding(target foundry.SourceContext) (foundry.RepositoryBinding, error) {
	b, ok := o.perms.Bindings().BindingFor(target)
	if !ok || b.IsZero() {
		return foundry.RepositoryBinding{}, &foundry.NotFoundError{FilePath: target.String()}
	}
	if b.Branch == "" {
		b.Branch = o.defaultBranch
	}
	return b, nil
}
