package foundry

import (
	"reflect"
	"testing"
)

func TestNewModeKeyCanonicalizes(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want string
	}{
		{name: "sorted", in: []string{"mode-b", "mode-a"}, want: "mode-a+mode-b"},
		{name: "deduplicated", in: []string{"mode-a", "mode-a", "mode-b"}, want: "mode-a+mode-b"},
		{name: "trimmed", in: []string{" mode-a ", "mode-b"}, want: "mode-a+mode-b"},
		{name: "blank entries dropped", in: []string{"", "mode-a", "  "}, want: "mode-a"},
		{name: "empty is global", in: nil, want: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := NewModeKey(tc.in...)
			if got.String() != tc.want {
				t.Errorf("canonical form mismatch: want %q got %q", tc.want, got.String())
			}
		})
	}
}

func TestModeKeyEqualIsSetEquality(t *testing.T) {
	a := NewModeKey("mode-dark", "mode-compact")
	b := NewModeKey("mode-compact", "mode-dark", "mode-compact")
	if !a.Equal(b) {
		t.Fatalf("expected %q to equal %q", a, b)
	}
	c := NewModeKey("mode-dark")
	if a.Equal(c) {
		t.Fatalf("expected %q to differ from %q", a, c)
	}
}

func TestModeKeyGlobal(t *testing.T) {
	global := NewModeKey()
	if !global.IsGlobal() {
		t.Fatal("expected empty key to be global")
	}
	if got := global.ModeIDs(); len(got) != 0 {
		t.Fatalf("expected no mode ids, got %#v", got)
	}
	if NewModeKey("mode-a").IsGlobal() {
		t.Fatal("expected non-empty key to not be global")
	}
}

func TestModeKeyMembership(t *testing.T) {
	key := NewModeKey("mode-a", "mode-b")
	if !key.Contains("mode-a") {
		t.Error("expected key to contain mode-a")
	}
	if key.Contains("mode-c") {
		t.Error("expected key to not contain mode-c")
	}
	if !key.IntersectsAny([]string{"mode-c", "mode-b"}) {
		t.Error("expected key to intersect mode-b")
	}
	if key.IntersectsAny([]string{"mode-c"}) {
		t.Error("expected key to not intersect mode-c")
	}
}

func TestModeKeyModeIDsDetached(t *testing.T) {
	key := NewModeKey("mode-b", "mode-a")
	ids := key.ModeIDs()
	want := []string{"mode-a", "mode-b"}
	if !reflect.DeepEqual(want, ids) {
		t.Fatalf("mode ids mismatch:\nwant: %#v\n got: %#v", want, ids)
	}
	ids[0] = "mutated"
	if key.String() != "mode-a+mode-b" {
		t.Fatalf("mutating the returned slice changed the key: %q", key)
	}
}
