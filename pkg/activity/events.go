package activity

import "time"

// EventInput describes the common fields for lifecycle event builders.
type EventInput struct {
	Layer         string
	LayerID       string
	RepositoryURI string
	Channel       string
	Metadata      map[string]any
	OccurredAt    time.Time
}

// BuildContextSwitchedEvent records the active source context changing.
func BuildContextSwitchedEvent(from, to string, input EventInput) Event {
	event := buildEvent("source.context.switched", "source-context", to, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["from"] = from
	event.Metadata["to"] = to
	return event
}

// BuildLayerLoadedEvent records a layer document load from its repository.
func BuildLayerLoadedEvent(input EventInput) Event {
	return buildEvent("layer.loaded", "layer", input.LayerID, input)
}

// BuildLayerBootstrappedEvent records a brand-new branch being seeded with an
// empty schema-compliant document.
func BuildLayerBootstrappedEvent(input EventInput) Event {
	return buildEvent("layer.bootstrapped", "layer", input.LayerID, input)
}

// BuildLayerSavedEvent records a layer document being written back.
func BuildLayerSavedEvent(input EventInput) Event {
	return buildEvent("layer.saved", "layer", input.LayerID, input)
}

// BuildPermissionRefreshedEvent records a write-access cache refresh.
func BuildPermissionRefreshedEvent(input EventInput) Event {
	return buildEvent("permission.refreshed", "repository", input.RepositoryURI, input)
}

// BuildPermissionCheckFailedEvent records a failed write-access probe. The
// failure is surfaced here and treated as no access; it is never thrown at
// the caller.
func BuildPermissionCheckFailedEvent(input EventInput, cause error) Event {
	event := buildEvent("permission.check.failed", "repository", input.RepositoryURI, input)
	event.Metadata = ensureMetadata(event.Metadata)
	if cause != nil {
		event.Metadata["error"] = cause.Error()
	}
	return event
}

// BuildDivergenceDetectedEvent records remote content moving past the local
// baseline.
func BuildDivergenceDetectedEvent(input EventInput) Event {
	return buildEvent("layer.divergence.detected", "layer", input.LayerID, input)
}

// BuildResolutionWarningEvent records a non-fatal merge diagnostic.
func BuildResolutionWarningEvent(code, tokenID, message string, input EventInput) Event {
	event := buildEvent("resolution.warning", "token", tokenID, input)
	event.Metadata = ensureMetadata(event.Metadata)
	event.Metadata["code"] = code
	event.Metadata["message"] = message
	return event
}

func buildEvent(verb, objectType, objectID string, input EventInput) Event {
	return Event{
		Verb:          verb,
		ObjectType:    objectType,
		ObjectID:      objectID,
		Channel:       input.Channel,
		Layer:         input.Layer,
		LayerID:       input.LayerID,
		RepositoryURI: input.RepositoryURI,
		Metadata:      cloneMap(input.Metadata),
		OccurredAt:    input.OccurredAt,
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
