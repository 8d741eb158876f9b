package script

import (
	"testing"
)

type fakeSet struct{ items []string }

func (s *fakeSet) Add(v string) bool {
	for _, item := range s.items {
		if item == v {
			return false
		}
	}
	s.items = append(s.items, v)
	return true
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{3, true},
		{0.0, false},
		{"", false},
		{"x", true},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1}, true},
		{struct{}{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestIterateMapInKeyOrder(t *testing.T) {
	items, err := Iterate(map[string]any{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if len(items) != 3 || items[0] != 1 || items[1] != 2 || items[2] != 3 {
		t.Errorf("Iterate = %v", items)
	}
	if items, err := Iterate([]string{"x", "y"}); err != nil || len(items) != 2 || items[1] != "y" {
		t.Errorf("Iterate([]string) = %v, %v", items, err)
	}
}

func TestAdd(t *testing.T) {
	if got := Add(1, 2); got != 3 {
		t.Errorf("Add(1, 2) = %v", got)
	}
	if got := Add(1, 0.5); got != 1.5 {
		t.Errorf("Add(1, 0.5) = %v", got)
	}
	if got := Add("a", 1); got != "a1" {
		t.Errorf("Add(a, 1) = %v", got)
	}
	if got := Add(nil, "x"); got != "x" {
		t.Errorf("Add(nil, x) = %v", got)
	}
}

func TestMerge(t *testing.T) {
	got, err := Merge(map[string]any{"a": 1, "b": 1}, nil, map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(got) != 2 || got["a"] != 1 || got["b"] != 2 {
		t.Errorf("Merge = %v", got)
	}
	if _, err := Merge("nope"); err == nil {
		t.Error("expected an error spreading a string")
	}
}

func TestJSData(t *testing.T) {
	got, err := JSData(map[string]any{"b": []any{1, "</script>"}, "a": "x"})
	if err != nil {
		t.Fatalf("JSData failed: %v", err)
	}
	want := "const a = \"x\";\nconst b = [1,\"\\u003c/script\\u003e\"];\n"
	if got != want {
		t.Errorf("JSData = %q, want %q", got, want)
	}
}

func TestCSSVars(t *testing.T) {
	got, err := CSSVars(map[string]any{"size": 2, "accent": "red"})
	if err != nil {
		t.Fatalf("CSSVars failed: %v", err)
	}
	if want := ":root { --accent: red; --size: 2; }\n"; got != want {
		t.Errorf("CSSVars = %q, want %q", got, want)
	}
}

func TestBridge(t *testing.T) {
	got, err := Bridge(1, `type="module"`, "go(a)", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("Bridge failed: %v", err)
	}
	want := `<script type="application/json" id="lumen-data-1">{"a":1}</script>` +
		`<script type="module">const { a } = JSON.parse(document.getElementById("lumen-data-1").textContent);` + "\n" +
		`go(a)</script>`
	if got != want {
		t.Errorf("Bridge = %q, want %q", got, want)
	}
}

func TestHoist(t *testing.T) {
	set := &fakeSet{}
	Hoist(set, "<style>a{}</style>")
	Hoist(set, "<style>a{}</style>")
	Hoist(nil, "ignored")
	Hoist(set, "")
	if len(set.items) != 1 {
		t.Errorf("set = %v", set.items)
	}
}
