// Package schema validates layer documents before they are persisted. Errors
// are aggregated so a caller sees every violation of one attempt, not just
// the first.
package schema

import (
	"fmt"
	"strings"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

// FieldError locates one violation within a document.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Result is the outcome of validating one document.
type Result struct {
	IsValid bool         `json:"isValid"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Messages flattens the errors into the strings the error taxonomy carries.
func (r Result) Messages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	messages := make([]string, 0, len(r.Errors))
	for _, fieldErr := range r.Errors {
		messages = append(messages, fieldErr.String())
	}
	return messages
}

func (r *Result) addf(path, format string, args ...any) {
	r.Errors = append(r.Errors, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) finish() Result {
	r.IsValid = len(r.Errors) == 0
	return *r
}

// ValidateCoreData checks the core document's structural and referential
// integrity: id uniqueness, mode membership, and value-type references.
func ValidateCoreData(doc foundry.CoreDocument) Result {
	var result Result
	if doc.SystemID == "" {
		result.addf("systemId", "must not be empty")
	}

	valueTypes := make(map[string]struct{}, len(doc.ResolvedValueTypes))
	for i, valueType := range doc.ResolvedValueTypes {
		if valueType.ID == "" {
			result.addf(fmt.Sprintf("resolvedValueTypes[%d].id", i), "must not be empty")
			continue
		}
		if _, dup := valueTypes[valueType.ID]; dup {
			result.addf(fmt.Sprintf("resolvedValueTypes[%d].id", i), "duplicate id %q", valueType.ID)
		}
		valueTypes[valueType.ID] = struct{}{}
	}

	modes := make(map[string]struct{})
	dimensions := make(map[string]struct{}, len(doc.Dimensions))
	for i, dimension := range doc.Dimensions {
		if dimension.ID == "" {
			result.addf(fmt.Sprintf("dimensions[%d].id", i), "must not be empty")
			continue
		}
		if _, dup := dimensions[dimension.ID]; dup {
			result.addf(fmt.Sprintf("dimensions[%d].id", i), "duplicate id %q", dimension.ID)
		}
		dimensions[dimension.ID] = struct{}{}
		for j, mode := range dimension.Modes {
			if mode.ID == "" {
				result.addf(fmt.Sprintf("dimensions[%d].modes[%d].id", i, j), "must not be empty")
				continue
			}
			// "+" separates mode ids in the canonical key form, so an id
			// carrying it would collide with a multi-mode key.
			if strings.Contains(mode.ID, "+") {
				result.addf(fmt.Sprintf("dimensions[%d].modes[%d].id", i, j), "must not contain %q", "+")
			}
			if _, dup := modes[mode.ID]; dup {
				result.addf(fmt.Sprintf("dimensions[%d].modes[%d].id", i, j), "duplicate mode id %q", mode.ID)
			}
			modes[mode.ID] = struct{}{}
		}
		if dimension.DefaultModeID != "" {
			if _, ok := modes[dimension.DefaultModeID]; !ok {
				result.addf(fmt.Sprintf("dimensions[%d].defaultMode", i), "unknown mode %q", dimension.DefaultModeID)
			}
		}
	}

	taxonomies := make(map[string]map[string]struct{}, len(doc.Taxonomies))
	for i, taxonomy := range doc.Taxonomies {
		if taxonomy.ID == "" {
			result.addf(fmt.Sprintf("taxonomies[%d].id", i), "must not be empty")
			continue
		}
		terms := make(map[string]struct{}, len(taxonomy.Terms))
		for _, term := range taxonomy.Terms {
			terms[term.ID] = struct{}{}
		}
		taxonomies[taxonomy.ID] = terms
	}

	tokens := make(map[string]struct{}, len(doc.Tokens))
	for i, token := range doc.Tokens {
		path := fmt.Sprintf("tokens[%d]", i)
		if token.ID == "" {
			result.addf(path+".id", "must not be empty")
			continue
		}
		if _, dup := tokens[token.ID]; dup {
			result.addf(path+".id", "duplicate token id %q", token.ID)
		}
		tokens[token.ID] = struct{}{}
		if token.ResolvedValueTypeID == "" {
			result.addf(path+".resolvedValueTypeId", "must not be empty")
		} else if _, ok := valueTypes[token.ResolvedValueTypeID]; !ok && len(doc.ResolvedValueTypes) > 0 {
			result.addf(path+".resolvedValueTypeId", "unknown value type %q", token.ResolvedValueTypeID)
		}
		if len(token.ValuesByMode) == 0 {
			result.addf(path+".valuesByMode", "must contain at least one entry")
		}
		result.Errors = append(result.Errors, validateValuesByMode(path, token.ValuesByMode, modes)...)
		for j, ref := range token.TaxonomyRefs {
			terms, ok := taxonomies[ref.TaxonomyID]
			if !ok {
				result.addf(fmt.Sprintf("%s.taxonomies[%d]", path, j), "unknown taxonomy %q", ref.TaxonomyID)
				continue
			}
			if _, ok := terms[ref.TermID]; !ok {
				result.addf(fmt.Sprintf("%s.taxonomies[%d]", path, j), "unknown term %q in taxonomy %q", ref.TermID, ref.TaxonomyID)
			}
		}
	}

	return result.finish()
}

// ValidatePlatformExtension checks an extension document structurally and,
// when core is supplied, referentially against it.
func ValidatePlatformExtension(ext foundry.PlatformExtension, core *foundry.CoreDocument) Result {
	var result Result
	if ext.SystemID == "" {
		result.addf("systemId", "must not be empty")
	}
	if ext.PlatformID == "" {
		result.addf("platformId", "must not be empty")
	}
	result.Errors = append(result.Errors, validateOverrides("tokenOverrides", ext.TokenOverrides, core, false)...)

	if core != nil {
		if ext.SystemID != "" && core.SystemID != "" && ext.SystemID != core.SystemID {
			result.addf("systemId", "does not match core system %q", core.SystemID)
		}
		modes, dimensions := coreModeIndex(*core)
		for i, modeID := range ext.OmittedModes {
			if _, ok := modes[modeID]; !ok {
				result.addf(fmt.Sprintf("omittedModes[%d]", i), "unknown mode %q", modeID)
			}
		}
		for i, dimID := range ext.OmittedDimensions {
			if _, ok := dimensions[dimID]; !ok {
				result.addf(fmt.Sprintf("omittedDimensions[%d]", i), "unknown dimension %q", dimID)
			}
		}
	}
	return result.finish()
}

// ValidateThemeOverrideFile checks a theme override document. With core
// supplied it also enforces the themeability invariant: overrides may only
// target tokens whose themeable flag is set.
func ValidateThemeOverrideFile(ov foundry.ThemeOverride, core *foundry.CoreDocument) Result {
	var result Result
	if ov.SystemID == "" {
		result.addf("systemId", "must not be empty")
	}
	if ov.ThemeID == "" {
		result.addf("themeId", "must not be empty")
	}
	result.Errors = append(result.Errors, validateOverrides("tokenOverrides", ov.TokenOverrides, core, true)...)
	if core != nil && ov.SystemID != "" && core.SystemID != "" && ov.SystemID != core.SystemID {
		result.addf("systemId", "does not match core system %q", core.SystemID)
	}
	return result.finish()
}

func validateOverrides(path string, overrides []foundry.TokenOverride, core *foundry.CoreDocument, requireThemeable bool) []FieldError {
	var errs []FieldError
	var tokens map[string]foundry.Token
	var modes map[string]struct{}
	if core != nil {
		tokens = make(map[string]foundry.Token, len(core.Tokens))
		for _, token := range core.Tokens {
			tokens[token.ID] = token
		}
		modes, _ = coreModeIndex(*core)
	}

	seen := make(map[string]struct{}, len(overrides))
	for i, override := range overrides {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		if override.TokenID == "" {
			errs = append(errs, FieldError{Path: entryPath + ".tokenId", Message: "must not be empty"})
			continue
		}
		if _, dup := seen[override.TokenID]; dup {
			errs = append(errs, FieldError{Path: entryPath + ".tokenId", Message: fmt.Sprintf("duplicate override for token %q", override.TokenID)})
		}
		seen[override.TokenID] = struct{}{}
		if len(override.ValuesByMode) == 0 {
			errs = append(errs, FieldError{Path: entryPath + ".valuesByMode", Message: "must contain at least one entry"})
		}
		if tokens != nil {
			token, ok := tokens[override.TokenID]
			if !ok {
				errs = append(errs, FieldError{Path: entryPath + ".tokenId", Message: fmt.Sprintf("unknown token %q", override.TokenID)})
			} else if requireThemeable && !token.Themeable {
				errs = append(errs, FieldError{Path: entryPath + ".tokenId", Message: fmt.Sprintf("token %q is not themeable", override.TokenID)})
			}
			errs = append(errs, validateValuesByMode(entryPath, override.ValuesByMode, modes)...)
		}
	}
	return errs
}

func validateValuesByMode(path string, entries []foundry.ValueByMode, modes map[string]struct{}) []FieldError {
	var errs []FieldError
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		key := entry.Key()
		if _, dup := seen[key.String()]; dup {
			errs = append(errs, FieldError{
				Path:    fmt.Sprintf("%s.valuesByMode[%d]", path, i),
				Message: fmt.Sprintf("duplicate mode-key %q", key),
			})
		}
		seen[key.String()] = struct{}{}
		if entry.Value.Value == nil && entry.Value.TokenID == "" {
			errs = append(errs, FieldError{
				Path:    fmt.Sprintf("%s.valuesByMode[%d].value", path, i),
				Message: "must carry a literal value or a token reference",
			})
		}
		if modes == nil {
			continue
		}
		for _, modeID := range key.ModeIDs() {
			if _, ok := modes[modeID]; !ok {
				errs = append(errs, FieldError{
					Path:    fmt.Sprintf("%s.valuesByMode[%d].modeIds", path, i),
					Message: fmt.Sprintf("unknown mode %q", modeID),
				})
			}
		}
	}
	return errs
}

func coreModeIndex(core foundry.CoreDocument) (modes map[string]struct{}, dimensions map[string]struct{}) {
	modes = make(map[string]struct{})
	dimensions = make(map[string]struct{}, len(core.Dimensions))
	for _, dimension := range core.Dimensions {
		dimensions[dimension.ID] = struct{}{}
		for _, mode := range dimension.Modes {
			modes[mode.ID] = struct{}{}
		}
	}
	return modes, dimensions
}
