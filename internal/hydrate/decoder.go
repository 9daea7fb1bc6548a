// Package hydrate converts raw repository file contents into typed layer
// documents. Decoding always round-trips through a map payload so pre-hooks
// can normalise legacy field spellings before the strict decode runs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// Context carries identifiers tied to a repository payload.
type Context struct {
	RepositoryURI string
	FilePath      string
	Kind          foundry.LayerKind
}

// PreHook lets callers mutate or normalise the payload before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated document after
// decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts repository payloads into strongly typed layer documents.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
	custom       CustomDecoder[T]
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeBytes parses raw file content and decodes it via Decode.
func (d *Decoder[T]) DecodeBytes(ctx Context, content []byte) (T, error) {
	var zero T
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		return zero, fmt.Errorf("hydrate: parse %s: %w", ctx.FilePath, err)
	}
	return d.Decode(ctx, payload)
}

// Decode converts payload into the target document applying configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx.FilePath)
	}

	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for %s: %w", ctx.FilePath, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.FilePath, err)
		}
		if next != nil {
			current = next
		}
	}

	var result T
	if d.custom != nil {
		result, err = d.custom(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for %s failed: %w", ctx.FilePath, err)
		}
	} else {
		buffer, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.FilePath, err)
		}
		decoder := json.NewDecoder(bytes.NewReader(buffer))
		for _, configure := range d.configureDec {
			if configure != nil {
				configure(decoder)
			}
		}
		if err := decoder.Decode(&result); err != nil {
			return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.FilePath, err)
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.FilePath, err)
		}
	}

	return result, nil
}

// SniffLayerKind inspects a raw payload's discriminator fields to decide
// which layer document it encodes. Platform extensions carry platformId,
// theme overrides carry themeId, core documents carry neither.
func SniffLayerKind(content []byte) foundry.LayerKind {
	var probe struct {
		SystemID   string `json:"systemId"`
		PlatformID string `json:"platformId"`
		ThemeID    string `json:"themeId"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return foundry.LayerUnknown
	}
	switch {
	case probe.PlatformID != "":
		return foundry.LayerPlatformExtension
	case probe.ThemeID != "":
		return foundry.LayerThemeOverride
	case probe.SystemID != "":
		return foundry.LayerCore
	default:
		return foundry.LayerUnknown
	}
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
