package script

import (
	"errors"
	"strings"
	"testing"
)

const buildScript = `import Header from "./header.html";
import { formatDate, slugify as slug } from "../lib/util"
import * as site from "../data/site.json"
import type { Post } from "./types"
import { type Meta, title } from "./meta"
import "./global.css"

// getStaticPaths is documented in the README
const greeting = "getStaticPaths"

export async function getStaticPaths() {
  return [{ params: { id: "1" } }]
}

const posts = [1, 2]`

func TestAnalyzeImports(t *testing.T) {
	a, err := Analyze(buildScript)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	want := []struct {
		spec       string
		sideEffect bool
		bindings   []Binding
	}{
		{"./header.html", false, []Binding{{DefaultBinding, "default", "Header"}}},
		{"../lib/util", false, []Binding{{NamedBinding, "formatDate", "formatDate"}, {NamedBinding, "slugify", "slug"}}},
		{"../data/site.json", false, []Binding{{NamespaceBinding, "*", "site"}}},
		{"./meta", false, []Binding{{NamedBinding, "title", "title"}}},
		{"./global.css", true, nil},
	}
	if len(a.Imports) != len(want) {
		t.Fatalf("got %d imports, want %d: %+v", len(a.Imports), len(want), a.Imports)
	}
	for i, w := range want {
		imp := a.Imports[i]
		if imp.Specifier != w.spec || imp.SideEffect != w.sideEffect {
			t.Errorf("import %d = %q (side effect %v), want %q (%v)", i, imp.Specifier, imp.SideEffect, w.spec, w.sideEffect)
		}
		if len(imp.Bindings) != len(w.bindings) {
			t.Errorf("import %d has %d bindings, want %d", i, len(imp.Bindings), len(w.bindings))
			continue
		}
		for j := range w.bindings {
			if imp.Bindings[j] != w.bindings[j] {
				t.Errorf("import %d binding %d = %+v, want %+v", i, j, imp.Bindings[j], w.bindings[j])
			}
		}
	}

	if got := a.Imports[0].Source; got != `import Header from "./header.html";` {
		t.Errorf("Source = %q", got)
	}
}

func TestAnalyzeStaticPathsAndRemainder(t *testing.T) {
	a, err := Analyze(buildScript)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	wantFn := "export async function getStaticPaths() {\n  return [{ params: { id: \"1\" } }]\n}"
	if a.GetStaticPaths != wantFn {
		t.Errorf("GetStaticPaths = %q, want %q", a.GetStaticPaths, wantFn)
	}

	for _, keep := range []string{"// getStaticPaths is documented in the README", `const greeting = "getStaticPaths"`, "const posts = [1, 2]"} {
		if !strings.Contains(a.Remainder, keep) {
			t.Errorf("Remainder lost %q:\n%s", keep, a.Remainder)
		}
	}
	for _, gone := range []string{"import", "export", "return"} {
		if strings.Contains(a.Remainder, gone) {
			t.Errorf("Remainder still contains %q:\n%s", gone, a.Remainder)
		}
	}
}

func TestAnalyzeTypeOnlyImports(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		dropped  bool
		bindings int
	}{
		{"type clause", `import type { Post } from "./types"`, true, 0},
		{"all named bindings typed", `import { type Post, type Tag as T } from "./types"`, true, 0},
		{"one value binding", `import { type Post, title } from "./types"`, false, 1},
		{"default and typed", `import meta, { type Post } from "./types"`, false, 1},
		{"empty braces", `import {} from "./types"`, false, 0},
		{"binding named type", `import { type } from "./types"`, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Analyze(tt.src + "\nconst x = 1")
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if tt.dropped {
				if len(a.Imports) != 0 {
					t.Errorf("Imports = %+v, want none", a.Imports)
				}
			} else if len(a.Imports) != 1 || len(a.Imports[0].Bindings) != tt.bindings {
				t.Errorf("Imports = %+v, want one with %d bindings", a.Imports, tt.bindings)
			}
			if a.Remainder != "const x = 1" {
				t.Errorf("Remainder = %q", a.Remainder)
			}
		})
	}
}

func TestAnalyzeWithoutStaticPaths(t *testing.T) {
	a, err := Analyze("function getStaticPaths() { return [] }\nconst x = 1")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.GetStaticPaths != "" {
		t.Errorf("non-exported function captured: %q", a.GetStaticPaths)
	}
	if !strings.HasPrefix(a.Remainder, "function getStaticPaths()") {
		t.Errorf("Remainder = %q", a.Remainder)
	}
}

func TestAnalyzeSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unclosed paren", "const a = 1\nconst b = (2 +\n", 2},
		{"bad operator", "const a = 1 +* 2", 1},
		{"missing from", "import { a } \"x\"", 1},
		{"unterminated string", "const s = \"open", 1},
		{"unclosed function", "export function getStaticPaths() {\n  return []\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(tt.src)
			if err == nil {
				t.Fatal("expected a syntax error")
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *SyntaxError: %v", err, err)
			}
			if se.Line != tt.line {
				t.Errorf("Line = %d, want %d (%v)", se.Line, tt.line, err)
			}
			if !strings.Contains(se.Frame, "^") {
				t.Errorf("Frame has no caret:\n%s", se.Frame)
			}
		})
	}
}

func TestIndent(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"statements", "const a = 1\nconst b = 2", "  const a = 1\n  const b = 2"},
		{"blank line kept empty", "const a = 1\n\nconst b = 2", "  const a = 1\n\n  const b = 2"},
		{"multi-line raw string", "const s = `one\ntwo`\nconst n = 1", "  const s = `one\ntwo`\n  const n = 1"},
		{"quote in line comment", "// don't\nconst a = \"x\"", "  // don't\n  const a = \"x\""},
		{"block comment", "/* a\n`b */\nconst c = 1", "  /* a\n  `b */\n  const c = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Indent(tt.src, "  "); got != tt.want {
				t.Errorf("Indent = %q, want %q", got, tt.want)
			}
		})
	}
}
