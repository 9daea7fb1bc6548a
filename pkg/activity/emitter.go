package activity

import (
	"context"
	"log/slog"
	"strings"
)

// Config controls emission defaults supplied by the constructing service.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans out events to hooks while applying defaults. Hook failures
// are logged and swallowed so emitting is always safe from operation code.
type Emitter struct {
	hooks   Hooks
	logger  *slog.Logger
	enabled bool
	channel string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config, logger *slog.Logger) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "foundry"
	}
	if logger == nil {
		logger = slog.Default()
	}
	normalizedHooks := cloneHooks(hooks)
	return &Emitter{
		hooks:   normalizedHooks,
		logger:  logger,
		enabled: cfg.Enabled && len(normalizedHooks) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, applying the default channel when
// missing. Listener errors are logged, never returned.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if !e.Enabled() {
		return
	}
	if strings.TrimSpace(event.Channel) == "" && e.channel != "" {
		event.Channel = e.channel
	}
	if err := e.hooks.Notify(ctx, event); err != nil {
		e.logger.Warn("activity hook failed",
			"verb", event.Verb,
			"objectType", event.ObjectType,
			"objectId", event.ObjectID,
			"error", err,
		)
	}
}

func cloneHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	return Hooks(normalized)
}
