package overlay

import (
	"reflect"
	"testing"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
)

func TestMergeFillsMissingFields(t *testing.T) {
	strong := foundry.SyntaxPatterns{Prefix: "ios", FormatString: "{prefix}-{name}"}
	weak := foundry.SyntaxPatterns{Prefix: "acme", Delimiter: "-", Capitalization: "camel"}

	got := Merge(strong, weak)
	want := foundry.SyntaxPatterns{
		Prefix:         "ios",
		Delimiter:      "-",
		Capitalization: "camel",
		FormatString:   "{prefix}-{name}",
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merge mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeZeroInput(t *testing.T) {
	var zero foundry.SyntaxPatterns
	if got := Merge[foundry.SyntaxPatterns](); got != zero {
		t.Fatalf("expected zero value, got %#v", got)
	}
}

func TestMergeNestedPointersAndMaps(t *testing.T) {
	type inner struct {
		Label  string
		Values map[string]string
	}
	type outer struct {
		Name  string
		Tags  []string
		Inner *inner
	}

	strong := outer{Inner: &inner{Values: map[string]string{"a": "strong"}}}
	weak := outer{
		Name: "weak",
		Tags: []string{"base"},
		Inner: &inner{
			Label:  "weak label",
			Values: map[string]string{"a": "weak", "b": "kept"},
		},
	}

	got := Merge(strong, weak)
	if got.Name != "weak" {
		t.Errorf("empty name should defer to weak, got %q", got.Name)
	}
	if !reflect.DeepEqual([]string{"base"}, got.Tags) {
		t.Errorf("nil slice should defer to weak, got %#v", got.Tags)
	}
	if got.Inner == nil {
		t.Fatal("expected merged inner struct")
	}
	if got.Inner.Label != "weak label" {
		t.Errorf("inner label should defer to weak, got %q", got.Inner.Label)
	}
	wantValues := map[string]string{"a": "strong", "b": "kept"}
	if !reflect.DeepEqual(wantValues, got.Inner.Values) {
		t.Errorf("map merge mismatch:\nwant: %#v\n got: %#v", wantValues, got.Inner.Values)
	}
}

func TestMergeDetachesFromInputs(t *testing.T) {
	weak := foundry.Platform{
		ID:             "platform-ios",
		SyntaxPatterns: &foundry.SyntaxPatterns{Prefix: "acme"},
	}
	strong := foundry.Platform{ID: "platform-ios"}

	got := Merge(strong, weak)
	if got.SyntaxPatterns == nil {
		t.Fatal("expected syntax patterns from the weak layer")
	}
	got.SyntaxPatterns.Prefix = "mutated"
	if weak.SyntaxPatterns.Prefix != "acme" {
		t.Fatal("merge result shares memory with its input")
	}
}
