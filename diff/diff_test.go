package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

func coreDoc() foundry.LayerDocument {
	return foundry.CoreLayerDocument(foundry.CoreDocument{
		SystemID: "sys-acme",
		Tokens: []foundry.Token{
			{
				ID:                  "token-surface",
				ResolvedValueTypeID: "color",
				ValuesByMode: []foundry.ValueByMode{
					{ModeIDs: []string{"mode-light"}, Value: foundry.TokenValue{Value: "#ffffff"}},
				},
			},
		},
		Dimensions: []foundry.Dimension{
			{ID: "dim-color-scheme", Modes: []foundry.Mode{{ID: "mode-light"}}},
		},
	})
}

func extensionDoc() foundry.LayerDocument {
	return foundry.PlatformLayerDocument(foundry.PlatformExtension{
		SystemID:   "sys-acme",
		PlatformID: "platform-ios",
		TokenOverrides: []foundry.TokenOverride{
			{
				TokenID: "token-surface",
				ValuesByMode: []foundry.ValueByMode{
					{ModeIDs: []string{"mode-light"}, Value: foundry.TokenValue{Value: "#f2f2f7"}},
				},
			},
		},
	})
}

func TestDiffCountZeroAgainstOwnBaseline(t *testing.T) {
	tracker := NewTracker()
	doc := coreDoc()
	tracker.SetBaseline(doc)
	assert.Equal(t, 0, tracker.DiffCount(doc))
}

func TestDiffCountCountsChangedArraysOnce(t *testing.T) {
	tracker := NewTracker()
	tracker.SetBaseline(coreDoc())

	changed := coreDoc()
	changed.Core.Tokens[0].ValuesByMode[0].Value = foundry.TokenValue{Value: "#fafafa"}
	changed.Core.Tokens = append(changed.Core.Tokens, foundry.Token{ID: "token-extra", ResolvedValueTypeID: "color"})
	assert.Equal(t, 1, tracker.DiffCount(changed), "many token edits still count as one changed array")

	changed.Core.Dimensions = append(changed.Core.Dimensions, foundry.Dimension{ID: "dim-density"})
	assert.Equal(t, 2, tracker.DiffCount(changed))
}

func TestDiffCountWithoutBaselineComparesAgainstEmpty(t *testing.T) {
	tracker := NewTracker()
	// Tokens and dimensions are both non-empty, so two arrays differ from
	// the implicit empty baseline.
	assert.Equal(t, 2, tracker.DiffCount(coreDoc()))
}

func TestDiffCountTreatsNilAsEmpty(t *testing.T) {
	tracker := NewTracker()
	baseline := extensionDoc()
	baseline.Platform.OmittedModes = []string{}
	tracker.SetBaseline(baseline)

	current := extensionDoc()
	current.Platform.OmittedModes = nil
	assert.Equal(t, 0, tracker.DiffCount(current))
}

func TestPlatformDiffSections(t *testing.T) {
	tracker := NewTracker()
	tracker.SetBaseline(extensionDoc())

	changed := extensionDoc()
	changed.Platform.OmittedModes = []string{"mode-dark"}
	changed.Platform.SyntaxPatterns = &foundry.SyntaxPatterns{Prefix: "ios"}
	assert.Equal(t, 2, tracker.DiffCount(changed))
}

func TestDivergedRequiresBaseline(t *testing.T) {
	tracker := NewTracker()
	assert.False(t, tracker.Diverged(extensionDoc()), "no baseline means nothing to diverge from")

	tracker.SetBaseline(extensionDoc())
	assert.False(t, tracker.Diverged(extensionDoc()))

	remote := extensionDoc()
	remote.Platform.TokenOverrides[0].ValuesByMode[0].Value = foundry.TokenValue{Value: "#000000"}
	assert.True(t, tracker.Diverged(remote))
}

func TestBaselinesAreIndependentPerLayer(t *testing.T) {
	tracker := NewTracker()
	tracker.SetBaseline(extensionDoc())

	other := foundry.PlatformLayerDocument(foundry.PlatformExtension{
		SystemID:   "sys-acme",
		PlatformID: "platform-android",
		OmittedDimensions: []string{
			"dim-density",
		},
	})
	assert.Equal(t, 1, tracker.DiffCount(other), "android layer has no baseline and one non-empty section")

	ios := extensionDoc()
	assert.Equal(t, 0, tracker.DiffCount(ios))
}

func TestBaselineIsDetached(t *testing.T) {
	tracker := NewTracker()
	doc := extensionDoc()
	tracker.SetBaseline(doc)

	// Mutating the original after SetBaseline must not move the baseline.
	doc.Platform.TokenOverrides[0].TokenID = "mutated"

	stored, ok := tracker.Baseline(foundry.LayerPlatformExtension, "platform-ios")
	require.True(t, ok)
	assert.Equal(t, "token-surface", stored.Platform.TokenOverrides[0].TokenID)
}

func TestClearAndReset(t *testing.T) {
	tracker := NewTracker()
	tracker.SetBaseline(extensionDoc())
	tracker.SetBaseline(coreDoc())

	tracker.Clear(foundry.LayerPlatformExtension, "platform-ios")
	_, ok := tracker.Baseline(foundry.LayerPlatformExtension, "platform-ios")
	assert.False(t, ok)
	_, ok = tracker.Baseline(foundry.LayerCore, "")
	assert.True(t, ok)

	tracker.Reset()
	_, ok = tracker.Baseline(foundry.LayerCore, "")
	assert.False(t, ok)
}
