package system

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/config"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/gitrepo"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/orchestrator"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/permissions"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
)

func eventVerbs(events []activity.Event) []string {
	out := make([]string, len(events))
	for i, event := range events {
		out[i] = event.Verb
	}
	return out
}

func coreFixture() foundry.CoreDocument {
	return foundry.CoreDocument{
		SystemID:   "sys-acme",
		SystemName: "Acme",
		Version:    "1.0.0",
		Dimensions: []foundry.Dimension{
			{
				ID: "dim-color-scheme",
				Modes: []foundry.Mode{
					{ID: "mode-light", Name: "Light", DimensionID: "dim-color-scheme"},
					{ID: "mode-dark", Name: "Dark", DimensionID: "dim-color-scheme"},
				},
				DefaultModeID: "mode-light",
			},
		},
		ResolvedValueTypes: []foundry.ResolvedValueType{
			{ID: "color", DisplayName: "Color"},
		},
		Tokens: []foundry.Token{
			{
				ID:                  "token-surface",
				Themeable:           true,
				ResolvedValueTypeID: "color",
				ValuesByMode: []foundry.ValueByMode{
					{ModeIDs: []string{"mode-light"}, Value: foundry.TokenValue{Value: "#ffffff"}},
					{ModeIDs: []string{"mode-dark"}, Value: foundry.TokenValue{Value: "#111111"}},
				},
			},
		},
	}
}

func newSystem(t *testing.T) (*System, *gitrepo.MemoryRepository, *activity.CaptureHook) {
	t.Helper()
	repo := gitrepo.NewMemoryRepository()
	repo.SetWritable("acme/tokens", true)

	content, err := json.Marshal(coreFixture())
	require.NoError(t, err)
	repo.Put("acme/tokens", "main", "tokens/core.json", content)

	bindings := permissions.NewBindingRegistry()
	require.NoError(t, bindings.LinkCore(foundry.RepositoryBinding{
		RepositoryURI: "acme/tokens", Branch: "main", FilePath: "tokens/core.json", Kind: foundry.LayerCore,
	}))
	require.NoError(t, bindings.LinkPlatform("platform-ios", foundry.RepositoryBinding{
		RepositoryURI: "acme/tokens", Branch: "main", FilePath: "tokens/ios.json", Kind: foundry.LayerPlatformExtension,
	}))

	events := &activity.CaptureHook{}
	s := New(config.Default(), repo, WithBindings(bindings), WithHook(events))
	t.Cleanup(s.Close)
	return s, repo, events
}

func TestEditAndSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, repo, events := newSystem(t)

	require.NoError(t, s.Orchestrator().Load(ctx, foundry.CoreContext()))
	require.NoError(t, s.Orchestrator().Load(ctx, foundry.PlatformContext("platform-ios")))

	// The extension file did not exist, so loading it seeds the branch.
	assert.Contains(t, eventVerbs(events.Recorded()), "layer.bootstrapped")

	result := s.Contexts().SwitchToPlatform(ctx, "platform-ios")
	require.True(t, result.Applied)

	session, err := s.Contexts().EnterEditMode(ctx)
	require.NoError(t, err)
	session.Stage(foundry.PendingOverride{
		TokenID: "token-surface",
		ValuesByMode: []foundry.ValueByMode{
			{ModeIDs: []string{"mode-light"}, Value: foundry.TokenValue{Value: "#f5f5f7"}},
		},
	})

	// Staged values win the merge before they are committed anywhere.
	snapshot, err := s.Resolve(ctx)
	require.NoError(t, err)
	entry, ok := snapshot.ValueFor("token-surface", foundry.NewModeKey("mode-light"))
	require.True(t, ok)
	assert.Equal(t, "#f5f5f7", entry.Value.Value)

	token, ok := snapshot.TokenByID("token-surface")
	require.True(t, ok)
	origin := token.Origins[foundry.NewModeKey("mode-light").String()]
	assert.Equal(t, foundry.FromPending, origin.Source)

	require.NoError(t, session.CommitStaged())
	require.NoError(t, s.ApplyActiveSession())

	receipt, err := s.Orchestrator().Save(ctx, foundry.PlatformContext("platform-ios"), orchestrator.SaveOptions{
		Message: "Soften light surface on iOS",
	})
	require.NoError(t, err)
	require.NotNil(t, receipt.PullRequest)
	assert.Len(t, repo.PullRequests(), 1)
	assert.Contains(t, eventVerbs(events.Recorded()), "layer.saved")
}

func TestResolveRequiresCore(t *testing.T) {
	s, _, _ := newSystem(t)

	_, err := s.Resolve(context.Background())
	assert.True(t, foundry.IsNotFound(err))
}

func TestResolveEmitsWarnings(t *testing.T) {
	ctx := context.Background()
	s, _, events := newSystem(t)
	require.NoError(t, s.Orchestrator().Load(ctx, foundry.CoreContext()))

	ext := foundry.PlatformExtension{
		SystemID:   "sys-acme",
		PlatformID: "platform-ios",
		Version:    "1.0.0",
		TokenOverrides: []foundry.TokenOverride{
			{TokenID: "token-ghost"},
		},
	}
	require.NoError(t, s.Stores().SetPlatformExtension(ext))
	require.True(t, s.Contexts().SwitchToPlatform(ctx, "platform-ios").Applied)

	snapshot, err := s.Resolve(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, snapshot.Warnings)
	assert.Equal(t, foundry.WarnUnknownToken, snapshot.Warnings[0].Code)
	assert.Contains(t, eventVerbs(events.Recorded()), "resolution.warning")
}

func TestApplyActiveSessionWithoutSession(t *testing.T) {
	s, _, _ := newSystem(t)

	err := s.ApplyActiveSession()
	var sessionErr *foundry.SessionError
	assert.ErrorAs(t, err, &sessionErr)
}

func TestResetDropsLoadedState(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSystem(t)
	require.NoError(t, s.Orchestrator().Load(ctx, foundry.CoreContext()))
	_, ok := s.Stores().Core()
	require.True(t, ok)

	s.Reset()

	_, ok = s.Stores().Core()
	assert.False(t, ok)
	_, active := s.Sessions().Active()
	assert.False(t, active)
}
