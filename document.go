package foundry

import "encoding/json"

// LayerKind identifies which of the three storage layers a document belongs to.
type LayerKind int

const (
	// LayerUnknown guards against misconfiguration so call sites can detect
	// missing metadata.
	LayerUnknown LayerKind = iota
	// LayerCore is the canonical, schema-authoritative token definition layer.
	LayerCore
	// LayerPlatformExtension holds per-platform overrides and omissions.
	LayerPlatformExtension
	// LayerThemeOverride holds per-theme value overrides for themeable tokens.
	LayerThemeOverride
)

func (k LayerKind) String() string {
	switch k {
	case LayerCore:
		return "core"
	case LayerPlatformExtension:
		return "platform-extension"
	case LayerThemeOverride:
		return "theme-override"
	default:
		return "unknown"
	}
}

// ParseLayerKind converts a wire representation into the corresponding
// LayerKind. Returns LayerUnknown for unrecognised values.
func ParseLayerKind(value string) LayerKind {
	switch value {
	case "core":
		return LayerCore
	case "platform-extension":
		return LayerPlatformExtension
	case "theme-override":
		return LayerThemeOverride
	default:
		return LayerUnknown
	}
}

// TokenValue carries either a literal value or a reference to another token.
// Exactly one of the two fields should be set.
type TokenValue struct {
	Value   any    `json:"value,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
}

// ValueByMode binds one token value to the set of dimension modes it applies
// to. An empty ModeIDs set is the global (mode-independent) entry.
type ValueByMode struct {
	ModeIDs []string   `json:"modeIds"`
	Value   TokenValue `json:"value"`
}

// Key returns the canonical mode-key for this entry.
func (v ValueByMode) Key() ModeKey {
	return NewModeKey(v.ModeIDs...)
}

// Token is a core-owned design token definition. Token ids are unique within
// the core document and are the only identity other layers may reference.
type Token struct {
	ID                  string        `json:"id"`
	DisplayName         string        `json:"displayName,omitempty"`
	Description         string        `json:"description,omitempty"`
	Themeable           bool          `json:"themeable"`
	Private             bool          `json:"private,omitempty"`
	Status              string        `json:"status,omitempty"`
	ResolvedValueTypeID string        `json:"resolvedValueTypeId"`
	TaxonomyRefs        []TaxonomyRef `json:"taxonomies,omitempty"`
	ValuesByMode        []ValueByMode `json:"valuesByMode"`
}

// TaxonomyRef points a token at one term within a taxonomy.
type TaxonomyRef struct {
	TaxonomyID string `json:"taxonomyId"`
	TermID     string `json:"termId"`
}

// TokenCollection groups tokens that share a resolved value type family.
type TokenCollection struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	ResolvedValueTypeIDs []string `json:"resolvedValueTypeIds,omitempty"`
	Private              bool     `json:"private,omitempty"`
}

// Mode is one selectable value of a dimension (e.g. "dark" within "theme").
type Mode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DimensionID string `json:"dimensionId"`
}

// Dimension is an axis of variation whose modes partition token values.
type Dimension struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	Modes         []Mode `json:"modes"`
	DefaultModeID string `json:"defaultMode,omitempty"`
	Required      bool   `json:"required,omitempty"`
}

// SyntaxPatterns drive per-platform token naming during export.
type SyntaxPatterns struct {
	Prefix         string `json:"prefix,omitempty"`
	Suffix         string `json:"suffix,omitempty"`
	Delimiter      string `json:"delimiter,omitempty"`
	Capitalization string `json:"capitalization,omitempty"`
	FormatString   string `json:"formatString,omitempty"`
}

// Platform is core-side metadata describing a target platform. The extension
// document itself lives in its own repository, referenced here.
type Platform struct {
	ID              string          `json:"id"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description,omitempty"`
	SyntaxPatterns  *SyntaxPatterns `json:"syntaxPatterns,omitempty"`
	ExtensionSource *SourceRef      `json:"extensionSource,omitempty"`
}

// Theme is core-side metadata describing a theme. The override document lives
// in its own repository, referenced here.
type Theme struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"displayName"`
	Description    string     `json:"description,omitempty"`
	IsDefault      bool       `json:"isDefault,omitempty"`
	OverrideSource *SourceRef `json:"overrideSource,omitempty"`
}

// SourceRef names the external file a non-core layer document is stored in.
type SourceRef struct {
	RepositoryURI string `json:"repositoryUri"`
	FilePath      string `json:"filePath"`
}

// TaxonomyTerm is one classification value within a taxonomy.
type TaxonomyTerm struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Taxonomy is a named classification axis for tokens.
type Taxonomy struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Terms       []TaxonomyTerm `json:"terms"`
}

// ResolvedValueType declares a value type tokens can resolve to (color,
// dimension, fontFamily, ...).
type ResolvedValueType struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type,omitempty"`
}

// CoreDocument is the single source of truth for entity identity. Platform
// and theme layers only ever reference ids defined here.
type CoreDocument struct {
	SystemID           string              `json:"systemId"`
	SystemName         string              `json:"systemName,omitempty"`
	Description        string              `json:"description,omitempty"`
	Version            string              `json:"version,omitempty"`
	TokenCollections   []TokenCollection   `json:"tokenCollections"`
	Dimensions         []Dimension         `json:"dimensions"`
	Tokens             []Token             `json:"tokens"`
	Platforms          []Platform          `json:"platforms"`
	Themes             []Theme             `json:"themes"`
	Taxonomies         []Taxonomy          `json:"taxonomies"`
	ResolvedValueTypes []ResolvedValueType `json:"resolvedValueTypes"`
}

// TokenOverride replaces matching mode-key entries of one core token.
type TokenOverride struct {
	TokenID      string        `json:"tokenId"`
	ValuesByMode []ValueByMode `json:"valuesByMode"`
}

// PlatformExtension is the per-platform layer document. At most one exists
// per platform id.
type PlatformExtension struct {
	SystemID          string          `json:"systemId"`
	PlatformID        string          `json:"platformId"`
	Version           string          `json:"version,omitempty"`
	FigmaFileKey      string          `json:"figmaFileKey,omitempty"`
	TokenOverrides    []TokenOverride `json:"tokenOverrides,omitempty"`
	OmittedModes      []string        `json:"omittedModes,omitempty"`
	OmittedDimensions []string        `json:"omittedDimensions,omitempty"`
	SyntaxPatterns    *SyntaxPatterns `json:"syntaxPatterns,omitempty"`
}

// ThemeOverride is the per-theme layer document. Overrides are only valid for
// tokens whose Themeable flag is set in core.
type ThemeOverride struct {
	SystemID       string          `json:"systemId"`
	ThemeID        string          `json:"themeId"`
	FigmaFileKey   string          `json:"figmaFileKey,omitempty"`
	TokenOverrides []TokenOverride `json:"tokenOverrides,omitempty"`
}

// RepositoryBinding ties one layer instance to the repository, branch, and
// file path it is persisted at. Exactly one exists per linked layer.
type RepositoryBinding struct {
	RepositoryURI string    `json:"repositoryUri"`
	Branch        string    `json:"branch"`
	FilePath      string    `json:"filePath"`
	Kind          LayerKind `json:"layerKind"`
}

// IsZero reports whether the binding has never been populated.
func (b RepositoryBinding) IsZero() bool {
	return b.RepositoryURI == "" && b.Branch == "" && b.FilePath == ""
}

// PendingOverride is an uncommitted edit staged against the active non-core
// layer. A session holds at most one per token id; a later stage replaces an
// earlier one.
type PendingOverride struct {
	TokenID       string        `json:"tokenId"`
	ValuesByMode  []ValueByMode `json:"valuesByMode"`
	ChangedFields []string      `json:"changedFields,omitempty"`
}

// CloneCoreDocument returns a deep copy detached from the original. Baselines
// and store reads must never alias live documents.
func CloneCoreDocument(doc CoreDocument) CoreDocument {
	return cloneViaJSON(doc)
}

// ClonePlatformExtension returns a deep copy detached from the original.
func ClonePlatformExtension(ext PlatformExtension) PlatformExtension {
	return cloneViaJSON(ext)
}

// CloneThemeOverride returns a deep copy detached from the original.
func CloneThemeOverride(ov ThemeOverride) ThemeOverride {
	return cloneViaJSON(ov)
}

// cloneViaJSON relies on every document type being JSON-round-trippable,
// which the hydrate decoder already guarantees.
func cloneViaJSON[T any](value T) T {
	payload, err := json.Marshal(value)
	if err != nil {
		// Document types are plain data; marshalling cannot fail for them.
		panic("foundry: clone: " + err.Error())
	}
	var clone T
	if err := json.Unmarshal(payload, &clone); err != nil {
		panic("foundry: clone: " + err.Error())
	}
	return clone
}
