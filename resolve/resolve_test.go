package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

func TestMergeFromFixture(t *testing.T) {
	fx := loadResolveFixture(t, "resolve_cases.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			snapshot := Merge(Inputs{
				Core:               fx.Core,
				PlatformExtensions: fx.PlatformExtensions,
				ThemeOverrides:     fx.ThemeOverrides,
				Context:            tc.Context.value(t),
				Pending:            tc.Pending,
			})

			for _, want := range tc.Expect {
				key := foundry.NewModeKey(splitModeKey(want.ModeKey)...)
				entry, ok := snapshot.ValueFor(want.TokenID, key)
				if !ok {
					t.Errorf("missing entry %s[%s]", want.TokenID, want.ModeKey)
					continue
				}
				if !reflect.DeepEqual(want.Value, entry.Value.Value) {
					t.Errorf("value mismatch for %s[%s]: want %#v got %#v", want.TokenID, want.ModeKey, want.Value, entry.Value.Value)
				}
				token, _ := snapshot.TokenByID(want.TokenID)
				origin := token.Origins[key.String()]
				if origin.Source.String() != want.Source {
					t.Errorf("source mismatch for %s[%s]: want %q got %q", want.TokenID, want.ModeKey, want.Source, origin.Source)
				}
				if want.LayerID != "" && origin.LayerID != want.LayerID {
					t.Errorf("layer id mismatch for %s[%s]: want %q got %q", want.TokenID, want.ModeKey, want.LayerID, origin.LayerID)
				}
			}

			for _, gone := range tc.Absent {
				key := foundry.NewModeKey(splitModeKey(gone.ModeKey)...)
				if _, ok := snapshot.ValueFor(gone.TokenID, key); ok {
					t.Errorf("entry %s[%s] should have been filtered", gone.TokenID, gone.ModeKey)
				}
				if token, ok := snapshot.TokenByID(gone.TokenID); ok {
					if _, ok := token.Origins[key.String()]; ok {
						t.Errorf("origin for filtered entry %s[%s] should be gone", gone.TokenID, gone.ModeKey)
					}
				}
			}

			for _, want := range tc.Warnings {
				if !hasWarning(snapshot.Warnings, foundry.WarningCode(want.Code), want.TokenID) {
					t.Errorf("missing warning %s for %s in %#v", want.Code, want.TokenID, snapshot.Warnings)
				}
			}
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	fx := loadResolveFixture(t, "resolve_cases.json")
	in := Inputs{
		Core:               fx.Core,
		PlatformExtensions: fx.PlatformExtensions,
		ThemeOverrides:     fx.ThemeOverrides,
		Context:            foundry.PlatformContext("platform-ios"),
	}

	first := Merge(in)
	second := Merge(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical snapshots")
	}
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	fx := loadResolveFixture(t, "resolve_cases.json")
	before, err := json.Marshal(fx.Core)
	if err != nil {
		t.Fatalf("marshal core: %v", err)
	}

	Merge(Inputs{
		Core:               fx.Core,
		PlatformExtensions: fx.PlatformExtensions,
		ThemeOverrides:     fx.ThemeOverrides,
		Context:            foundry.PlatformContext("platform-ios"),
		Pending: map[string]foundry.PendingOverride{
			"token-surface": {
				TokenID: "token-surface",
				ValuesByMode: []foundry.ValueByMode{
					{ModeIDs: []string{"mode-light"}, Value: foundry.TokenValue{Value: "#eeeeee"}},
				},
			},
		},
	})

	after, err := json.Marshal(fx.Core)
	if err != nil {
		t.Fatalf("marshal core: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("merge mutated the core document")
	}
}

func TestEffectiveSyntaxPatternsOverlay(t *testing.T) {
	fx := loadResolveFixture(t, "resolve_cases.json")

	ext := fx.PlatformExtensions["platform-ios"]
	ext.SyntaxPatterns = &foundry.SyntaxPatterns{Prefix: "ios", FormatString: "{prefix}-{name}"}
	fx.PlatformExtensions["platform-ios"] = ext

	snapshot := Merge(Inputs{
		Core:               fx.Core,
		PlatformExtensions: fx.PlatformExtensions,
		Context:            foundry.PlatformContext("platform-ios"),
	})

	got := snapshot.SyntaxPatterns
	if got == nil {
		t.Fatal("expected effective syntax patterns")
	}
	if got.Prefix != "ios" {
		t.Errorf("extension prefix should win, got %q", got.Prefix)
	}
	if got.Delimiter != "-" {
		t.Errorf("core delimiter should survive, got %q", got.Delimiter)
	}
	if got.FormatString != "{prefix}-{name}" {
		t.Errorf("extension format string should apply, got %q", got.FormatString)
	}
}

type resolveFixture struct {
	Description        string                               `json:"description"`
	Core               foundry.CoreDocument                 `json:"core"`
	PlatformExtensions map[string]foundry.PlatformExtension `json:"platformExtensions"`
	ThemeOverrides     map[string]foundry.ThemeOverride     `json:"themeOverrides"`
	Cases              []resolveFixtureCase                 `json:"cases"`
}

type resolveFixtureCase struct {
	Name     string                             `json:"name"`
	Context  fixtureContext                     `json:"context"`
	Pending  map[string]foundry.PendingOverride `json:"pending"`
	Expect   []fixtureEntry                     `json:"expect"`
	Absent   []fixtureEntry                     `json:"absent"`
	Warnings []fixtureWarning                   `json:"warnings"`
}

type fixtureContext struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (c fixtureContext) value(t *testing.T) foundry.SourceContext {
	t.Helper()
	switch c.Kind {
	case "core":
		return foundry.CoreContext()
	case "platform":
		return foundry.PlatformContext(c.ID)
	case "theme":
		return foundry.ThemeContext(c.ID)
	default:
		t.Fatalf("unknown context kind %q", c.Kind)
		return foundry.SourceContext{}
	}
}

type fixtureEntry struct {
	TokenID string `json:"tokenId"`
	ModeKey string `json:"modeKey"`
	Value   any    `json:"value"`
	Source  string `json:"source"`
	LayerID string `json:"layerId"`
}

type fixtureWarning struct {
	Code    string `json:"code"`
	TokenID string `json:"tokenId"`
}

func loadResolveFixture(t *testing.T, name string) resolveFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	var fx resolveFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return fx
}

func splitModeKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, "+")
}

func hasWarning(warnings []foundry.Warning, code foundry.WarningCode, tokenID string) bool {
	for _, warning := range warnings {
		if warning.Code == code && warning.TokenID == tokenID {
			return true
		}
	}
	return false
}
