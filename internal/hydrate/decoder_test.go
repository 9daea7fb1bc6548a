package hydrate

import (
	"strings"
	"testing"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

func TestSniffLayerKind(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    foundry.LayerKind
	}{
		{name: "platform extension", content: `{"systemId":"sys","platformId":"platform-ios"}`, want: foundry.LayerPlatformExtension},
		{name: "theme override", content: `{"systemId":"sys","themeId":"theme-brand"}`, want: foundry.LayerThemeOverride},
		{name: "core", content: `{"systemId":"sys","tokens":[]}`, want: foundry.LayerCore},
		{name: "no discriminator", content: `{"tokens":[]}`, want: foundry.LayerUnknown},
		{name: "invalid json", content: `{`, want: foundry.LayerUnknown},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := SniffLayerKind([]byte(tc.content)); got != tc.want {
				t.Errorf("kind mismatch: want %v got %v", tc.want, got)
			}
		})
	}
}

func TestDecodeBytesCoreDocument(t *testing.T) {
	content := []byte(`{
		"systemId": "sys-acme",
		"systemName": "Acme",
		"tokens": [
			{"id": "token-surface", "themeable": true, "resolvedValueTypeId": "color",
			 "valuesByMode": [{"modeIds": ["mode-light"], "value": {"value": "#ffffff"}}]}
		]
	}`)

	doc, err := NewDecoder[foundry.CoreDocument]().DecodeBytes(Context{FilePath: "core.json"}, content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.SystemID != "sys-acme" {
		t.Errorf("system id mismatch: %q", doc.SystemID)
	}
	if len(doc.Tokens) != 1 || doc.Tokens[0].ID != "token-surface" {
		t.Fatalf("unexpected tokens: %#v", doc.Tokens)
	}
	if !doc.Tokens[0].Themeable {
		t.Error("themeable flag lost in decode")
	}
}

func TestDecodeBytesInvalidJSON(t *testing.T) {
	_, err := NewDecoder[foundry.CoreDocument]().DecodeBytes(Context{FilePath: "core.json"}, []byte("{nope"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "core.json") {
		t.Errorf("error should name the file, got %v", err)
	}
}

func TestDecodeHookOrder(t *testing.T) {
	pre := WithPreHook[foundry.ThemeOverride](func(_ Context, payload map[string]any) (map[string]any, error) {
		payload["themeId"] = "theme-from-hook"
		return payload, nil
	})
	post := WithPostHook[foundry.ThemeOverride](func(_ Context, doc *foundry.ThemeOverride) error {
		doc.SystemID = "sys-post"
		return nil
	})

	doc, err := NewDecoder[foundry.ThemeOverride](pre, post).DecodeBytes(Context{FilePath: "theme.json"}, []byte(`{"systemId":"sys","themeId":"theme-brand"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ThemeID != "theme-from-hook" {
		t.Errorf("pre-hook result lost: %q", doc.ThemeID)
	}
	if doc.SystemID != "sys-post" {
		t.Errorf("post-hook result lost: %q", doc.SystemID)
	}
}

func TestDecodeDisallowUnknownFields(t *testing.T) {
	content := []byte(`{"systemId":"sys","platformId":"platform-ios","bogus":true}`)

	if _, err := NewDecoder[foundry.PlatformExtension]().DecodeBytes(Context{FilePath: "ext.json"}, content); err != nil {
		t.Fatalf("lenient decode should succeed: %v", err)
	}
	_, err := NewDecoder[foundry.PlatformExtension](
		WithDisallowUnknownFields[foundry.PlatformExtension](),
	).DecodeBytes(Context{FilePath: "ext.json"}, content)
	if err == nil {
		t.Fatal("expected unknown-field rejection")
	}
}

func TestDecodeCustomDecoder(t *testing.T) {
	custom := WithCustomDecoder[foundry.ThemeOverride](func(_ Context, payload map[string]any) (foundry.ThemeOverride, error) {
		id, _ := payload["themeId"].(string)
		return foundry.ThemeOverride{ThemeID: strings.ToUpper(id)}, nil
	})

	doc, err := NewDecoder[foundry.ThemeOverride](custom).DecodeBytes(Context{FilePath: "theme.json"}, []byte(`{"themeId":"theme-brand"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ThemeID != "THEME-BRAND" {
		t.Errorf("custom decoder not applied: %q", doc.ThemeID)
	}
}
