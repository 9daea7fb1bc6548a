// Package activity fans typed lifecycle events out to registered hooks. A
// hook that fails or panics is isolated and logged; it never aborts the
// operation that emitted the event and never affects other hooks.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event describes one lifecycle occurrence fanned out to hooks.
type Event struct {
	ID            string
	Verb          string
	ObjectType    string
	ObjectID      string
	Channel       string
	Layer         string
	LayerID       string
	RepositoryURI string
	Metadata      map[string]any
	OccurredAt    time.Time
}

// Hook receives normalized events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. A panicking hook is recovered and reported as an error; remaining
// hooks still run.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := notifyOne(ctx, hook, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func notifyOne(ctx context.Context, hook Hook, event Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("activity: hook panic: %v", recovered)
		}
	}()
	return hook.Notify(ctx, event)
}

// NormalizeEvent trims whitespace, clones metadata, and ensures an id and
// timestamp are present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.ID = strings.TrimSpace(event.ID)
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Layer = strings.TrimSpace(event.Layer)
	normalized.LayerID = strings.TrimSpace(event.LayerID)
	normalized.RepositoryURI = strings.TrimSpace(event.RepositoryURI)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
