package foundry

// ResolutionSource names the layer that supplied an effective value.
type ResolutionSource int

const (
	// FromCore means the core definition was used unmodified.
	FromCore ResolutionSource = iota
	// FromPlatform means the active platform extension replaced the entry.
	FromPlatform
	// FromTheme means the active theme override replaced the entry.
	FromTheme
	// FromPending means a staged, uncommitted edit replaced the entry.
	FromPending
)

func (s ResolutionSource) String() string {
	switch s {
	case FromPlatform:
		return "platform"
	case FromTheme:
		return "theme"
	case FromPending:
		return "pending"
	default:
		return "core"
	}
}

// Provenance records how one mode-key entry of a resolved token was produced.
type Provenance struct {
	ModeKey string           `json:"modeKey"`
	Source  ResolutionSource `json:"source"`
	LayerID string           `json:"layerId,omitempty"`
}

// ResolvedToken is a core token with its valuesByMode replaced by the
// effective entries for the active context. Origins is keyed by the canonical
// mode-key of each surviving entry.
type ResolvedToken struct {
	Token
	Origins map[string]Provenance `json:"origins,omitempty"`
}

// WarningCode classifies non-fatal conditions raised during resolution.
type WarningCode string

const (
	// WarnNotThemeable flags a theme override targeting a token whose
	// themeable flag is false; the override is skipped, never applied.
	WarnNotThemeable WarningCode = "not-themeable"
	// WarnUnknownToken flags an override referencing a token id that does not
	// exist in the core document.
	WarnUnknownToken WarningCode = "unknown-token"
)

// Warning is a non-fatal resolution diagnostic. Warnings never abort a merge.
type Warning struct {
	Code    WarningCode `json:"code"`
	TokenID string      `json:"tokenId,omitempty"`
	Message string      `json:"message"`
}

// Snapshot is the merged presentation view for one active context. It is
// derived and never persisted; recomputing it from unchanged inputs yields a
// structurally identical value.
type Snapshot struct {
	Context            SourceContext       `json:"-"`
	SystemID           string              `json:"systemId"`
	Tokens             []ResolvedToken     `json:"tokens"`
	SyntaxPatterns     *SyntaxPatterns     `json:"syntaxPatterns,omitempty"`
	TokenCollections   []TokenCollection   `json:"tokenCollections"`
	Dimensions         []Dimension         `json:"dimensions"`
	Platforms          []Platform          `json:"platforms"`
	Themes             []Theme             `json:"themes"`
	Taxonomies         []Taxonomy          `json:"taxonomies"`
	ResolvedValueTypes []ResolvedValueType `json:"resolvedValueTypes"`
	Warnings           []Warning           `json:"warnings,omitempty"`
}

// TokenByID looks up one resolved token.
func (s Snapshot) TokenByID(id string) (ResolvedToken, bool) {
	for _, token := range s.Tokens {
		if token.ID == id {
			return token, true
		}
	}
	return ResolvedToken{}, false
}

// ValueFor returns the effective entry for a token and mode-key.
func (s Snapshot) ValueFor(tokenID string, key ModeKey) (ValueByMode, bool) {
	token, ok := s.TokenByID(tokenID)
	if !ok {
		return ValueByMode{}, false
	}
	for _, entry := range token.ValuesByMode {
		if entry.Key().Equal(key) {
			return entry, true
		}
	}
	return ValueByMode{}, false
}

// Select returns the resolved tokens matching a predicate expression run
// through the configured filter engine.
func (s Snapshot) Select(filter Filter, expr string) ([]ResolvedToken, error) {
	if filter == nil {
		return nil, ErrNoFilter
	}
	program, err := filter.Compile(expr)
	if err != nil {
		return nil, err
	}
	var matched []ResolvedToken
	for _, token := range s.Tokens {
		result, err := program.Evaluate(FilterContext{Token: tokenBinding(token), Snapshot: snapshotBinding(s)})
		if err != nil {
			return nil, err
		}
		if truthy(result) {
			matched = append(matched, token)
		}
	}
	return matched, nil
}

func tokenBinding(token ResolvedToken) map[string]any {
	modeKeys := make([]string, 0, len(token.ValuesByMode))
	for _, entry := range token.ValuesByMode {
		modeKeys = append(modeKeys, entry.Key().String())
	}
	return map[string]any{
		"id":          token.ID,
		"displayName": token.DisplayName,
		"themeable":   token.Themeable,
		"private":     token.Private,
		"status":      token.Status,
		"valueType":   token.ResolvedValueTypeID,
		"modeKeys":    modeKeys,
	}
}

func snapshotBinding(s Snapshot) map[string]any {
	return map[string]any{
		"systemId": s.SystemID,
		"context":  s.Context.String(),
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
