package activity

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestHooksNotifyFansOut(t *testing.T) {
	first := &CaptureHook{}
	second := &CaptureHook{}
	hooks := Hooks{first, second}

	err := hooks.Notify(context.Background(), Event{Verb: "layer.loaded", ObjectType: "layer", ObjectID: "platform-ios"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(first.Recorded()) != 1 || len(second.Recorded()) != 1 {
		t.Fatal("expected both hooks to receive the event")
	}
}

func TestHooksIsolateFailingHook(t *testing.T) {
	failing := &CaptureHook{Err: errors.New("listener boom")}
	healthy := &CaptureHook{}
	hooks := Hooks{failing, healthy}

	err := hooks.Notify(context.Background(), Event{Verb: "layer.saved", ObjectType: "layer"})
	if err == nil {
		t.Fatal("expected joined listener error")
	}
	if len(healthy.Recorded()) != 1 {
		t.Fatal("failing hook must not starve later hooks")
	}
}

func TestHooksRecoverPanickingHook(t *testing.T) {
	panicking := HookFunc(func(context.Context, Event) error {
		panic("listener exploded")
	})
	healthy := &CaptureHook{}
	hooks := Hooks{panicking, healthy}

	err := hooks.Notify(context.Background(), Event{Verb: "layer.saved", ObjectType: "layer"})
	if err == nil || !strings.Contains(err.Error(), "hook panic") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
	if len(healthy.Recorded()) != 1 {
		t.Fatal("panicking hook must not starve later hooks")
	}
}

func TestHooksSkipUnnamedEvents(t *testing.T) {
	capture := &CaptureHook{}
	if err := (Hooks{capture}).Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Recorded()) != 0 {
		t.Fatal("events without verb and object type should be dropped")
	}
}

func TestNormalizeEventFillsDefaults(t *testing.T) {
	normalized := NormalizeEvent(Event{Verb: "  layer.loaded ", ObjectType: "layer"})
	if normalized.ID == "" {
		t.Error("expected generated event id")
	}
	if normalized.OccurredAt.IsZero() {
		t.Error("expected timestamp")
	}
	if normalized.Verb != "layer.loaded" {
		t.Errorf("expected trimmed verb, got %q", normalized.Verb)
	}
}

func TestNormalizeEventDetachesMetadata(t *testing.T) {
	metadata := map[string]any{"from": "core"}
	normalized := NormalizeEvent(Event{Verb: "v", ObjectType: "o", Metadata: metadata})
	metadata["from"] = "mutated"
	if normalized.Metadata["from"] != "core" {
		t.Fatal("normalized event shares metadata with the input")
	}
}

func TestEmitterSwallowsListenerErrors(t *testing.T) {
	failing := &CaptureHook{Err: errors.New("listener boom")}
	emitter := NewEmitter(Hooks{failing}, Config{Enabled: true}, nil)

	// Emit must never fail the calling operation.
	emitter.Emit(context.Background(), BuildLayerSavedEvent(EventInput{Layer: "core"}))
	if len(failing.Recorded()) != 1 {
		t.Fatal("expected the hook to be notified despite its error")
	}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true}, nil)

	emitter.Emit(context.Background(), BuildLayerLoadedEvent(EventInput{Layer: "core"}))
	events := capture.Recorded()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Channel != "foundry" {
		t.Errorf("expected default channel, got %q", events[0].Channel)
	}
}

func TestEmitterDisabled(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: false}, nil)

	emitter.Emit(context.Background(), BuildLayerLoadedEvent(EventInput{Layer: "core"}))
	if len(capture.Recorded()) != 0 {
		t.Fatal("disabled emitter must not notify hooks")
	}
}

func TestEventBuilders(t *testing.T) {
	event := BuildContextSwitchedEvent("core", "platform(platform-ios)", EventInput{Layer: "platform-extension", LayerID: "platform-ios"})
	if event.Verb != "source.context.switched" {
		t.Errorf("verb mismatch: %q", event.Verb)
	}
	if event.Metadata["from"] != "core" || event.Metadata["to"] != "platform(platform-ios)" {
		t.Errorf("metadata mismatch: %#v", event.Metadata)
	}

	failure := BuildPermissionCheckFailedEvent(EventInput{RepositoryURI: "acme/tokens"}, errors.New("status 500"))
	if failure.ObjectID != "acme/tokens" {
		t.Errorf("object id mismatch: %q", failure.ObjectID)
	}
	if failure.Metadata["error"] != "status 500" {
		t.Errorf("cause missing from metadata: %#v", failure.Metadata)
	}

	warning := BuildResolutionWarningEvent("not-themeable", "token-accent", "override ignored", EventInput{Layer: "theme-override"})
	if warning.ObjectID != "token-accent" || warning.Metadata["code"] != "not-themeable" {
		t.Errorf("warning event mismatch: %#v", warning)
	}
}
