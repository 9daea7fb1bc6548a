package foundry

import "testing"

func TestSourceContextNormalization(t *testing.T) {
	if got := PlatformContext(""); !got.IsCore() {
		t.Fatalf("empty platform id should normalize to core, got %s", got)
	}
	if got := ThemeContext(""); !got.IsCore() {
		t.Fatalf("empty theme id should normalize to core, got %s", got)
	}
	if got := PlatformContext("  "); !got.IsCore() {
		t.Fatalf("blank platform id should normalize to core, got %s", got)
	}
}

func TestSourceContextAccessors(t *testing.T) {
	cases := []struct {
		name     string
		ctx      SourceContext
		kind     SourceKind
		layerID  string
		layer    LayerKind
		rendered string
	}{
		{name: "core", ctx: CoreContext(), kind: SourceCore, layerID: "", layer: LayerCore, rendered: "core"},
		{name: "platform", ctx: PlatformContext("platform-ios"), kind: SourcePlatform, layerID: "platform-ios", layer: LayerPlatformExtension, rendered: "platform(platform-ios)"},
		{name: "theme", ctx: ThemeContext("theme-brand"), kind: SourceTheme, layerID: "theme-brand", layer: LayerThemeOverride, rendered: "theme(theme-brand)"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.ctx.Kind() != tc.kind {
				t.Errorf("kind mismatch: want %v got %v", tc.kind, tc.ctx.Kind())
			}
			if tc.ctx.LayerID() != tc.layerID {
				t.Errorf("layer id mismatch: want %q got %q", tc.layerID, tc.ctx.LayerID())
			}
			if tc.ctx.LayerKind() != tc.layer {
				t.Errorf("layer kind mismatch: want %v got %v", tc.layer, tc.ctx.LayerKind())
			}
			if tc.ctx.String() != tc.rendered {
				t.Errorf("string mismatch: want %q got %q", tc.rendered, tc.ctx.String())
			}
		})
	}
}

func TestSourceContextIDAccess(t *testing.T) {
	platform := PlatformContext("platform-web")
	if id, ok := platform.PlatformID(); !ok || id != "platform-web" {
		t.Fatalf("expected platform id, got %q ok=%v", id, ok)
	}
	if _, ok := platform.ThemeID(); ok {
		t.Fatal("platform context should have no theme id")
	}
	theme := ThemeContext("theme-dark")
	if id, ok := theme.ThemeID(); !ok || id != "theme-dark" {
		t.Fatalf("expected theme id, got %q ok=%v", id, ok)
	}
	if _, ok := theme.PlatformID(); ok {
		t.Fatal("theme context should have no platform id")
	}
}
