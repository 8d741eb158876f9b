package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recera/lumen/internal/script"
	"github.com/recera/lumen/internal/template/ir"
	"github.com/recera/lumen/pkg/render"
)

// renderPages compiles templates keyed by path and renders page.
func renderPages(t *testing.T, templates map[string]string, page string, in render.Input) string {
	t.Helper()
	rt := render.New()
	for path, src := range templates {
		out, err := Compile(path, src, Options{})
		if err != nil {
			t.Fatalf("Compile(%s) failed: %v", path, err)
		}
		if err := rt.Register(path, out.Module); err != nil {
			t.Fatalf("Register(%s) failed: %v\n%s", path, err, out.Module)
		}
	}
	html, ok, err := rt.Render(context.Background(), page, in)
	if err != nil || !ok {
		t.Fatalf("Render(%s) = %v, %v", page, ok, err)
	}
	return html
}

func TestStaticMarkupIdentity(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"element", `<div class="a"><p>Hello &amp; bye</p></div>`},
		{"void and bare attributes", `<form><input type="checkbox" checked><br><img src="x.png" alt></form>`},
		{"comment", `<ul><!-- items --><li>1</li></ul>`},
		{"raw text", `<style>p > a { color: red }</style>`},
		{"escaped entities", `<p title="a &quot;b&quot;">1 &lt; 2</p>`},
		{"svg", `<svg viewBox="0 0 10 10"><path d="M0 0"></path></svg>`},
		{"document", `<!DOCTYPE html><html lang="en"><head><title>t</title></head><body><main>x</main></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderPages(t, map[string]string{"pages/index.html": tt.src}, "index", render.Input{})
			if got != tt.src {
				t.Errorf("render =\n%s\nwant\n%s", got, tt.src)
			}
		})
	}
}

func TestCompileDirectives(t *testing.T) {
	src := `<script is:build>
const items = ["a", "b"]
const show = true
</script>
<ul><li each="{ item in items }">{item}</li></ul>
<p if="{ !show }">no</p>
<p else-if="{ show }">yes</p>
<p else>never</p>`

	got := renderPages(t, map[string]string{"pages/list.html": src}, "list", render.Input{})
	want := "<ul><li>a</li><li>b</li></ul>\n<p>yes</p>"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestCompileComponents(t *testing.T) {
	card := `<div class="card"><h2>{props.title}</h2><slot>fallback</slot></div>`
	page := `<script is:build>
import card from "../components/card.html"
</script>
<html><head><title>x</title></head><body><card-component title="Hi"><b>in</b></card-component><card-component title="{ 'B' }" /></body></html>`

	got := renderPages(t, map[string]string{
		"components/card.html": card,
		"pages/index.html":     page,
	}, "index", render.Input{})
	want := `<html><head><title>x</title></head><body>` +
		`<div class="card"><h2>Hi</h2><b>in</b></div>` +
		`<div class="card"><h2>B</h2>fallback</div></body></html>`
	if got != want {
		t.Errorf("render =\n%s\nwant\n%s", got, want)
	}
}

func TestCompileEscapedComponentProp(t *testing.T) {
	page := `<script is:build>
import card from "../components/card.html"
</script>
<card-component title="{{ lit }}" /><card-component title="a {{ lit }}" />`
	got := renderPages(t, map[string]string{
		"components/card.html": `<p>{props.title}</p>`,
		"pages/index.html":     page,
	}, "index", render.Input{})
	if want := "<p>{ lit }</p><p>a { lit }</p>"; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestCompileTypeOnlyNamedImport(t *testing.T) {
	page := `<script is:build>
import { type Post, type Tag } from "../types"
const title = "T"
</script>
<h1>{title}</h1>`
	out, err := Compile("pages/index.html", page, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if strings.Contains(out.Module, "../types") {
		t.Errorf("module kept the type-only import:\n%s", out.Module)
	}
	if got := renderPages(t, map[string]string{"pages/index.html": page}, "index", render.Input{}); got != "<h1>T</h1>" {
		t.Errorf("render = %q", got)
	}
}

func TestCompileBridgedScriptPerInstance(t *testing.T) {
	widget := `<p>w</p><script pass:data="{ {n: props.n} }">start(n)</script>`
	page := `<script is:build>
import widget from "../components/widget.html"
</script>
<html><head></head><body><widget-component n="{ 1 }" /><widget-component n="{ 1 }" /></body></html>`

	got := renderPages(t, map[string]string{
		"components/widget.html": widget,
		"pages/index.html":       page,
	}, "index", render.Input{})
	for _, want := range []string{
		`<script type="application/json" id="lumen-data-1">{"n":1}</script>`,
		`<script type="application/json" id="lumen-data-2">{"n":1}</script>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render is missing %s\n%s", want, got)
		}
	}
	if n := strings.Count(got, "start(n)"); n != 2 {
		t.Errorf("got %d bridged scripts, want one per instance\n%s", n, got)
	}
}

func TestCompileStaticPaths(t *testing.T) {
	src := `<script is:build>
export function getStaticPaths() {
  return [{params: {id: "1"}, props: {title: "A"}}]
}
const { title } = props
</script>
<h1>{title}</h1>`

	out, err := Compile("pages/post/[id].html", src, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.Contains(out.Module, "export function getStaticPaths()") {
		t.Errorf("module lost getStaticPaths:\n%s", out.Module)
	}
	got := renderPages(t, map[string]string{"pages/post/[id].html": src}, "post/1", render.Input{})
	if got != "<h1>A</h1>" {
		t.Errorf("render = %q", got)
	}
}

func TestCompileHoisting(t *testing.T) {
	src := `<script is:build>
import "./site.css"
const msg = "hi"
</script>
<html><head></head><body><p>x</p>
<script pass:data="{ {msg} }">console.log(msg)</script>
<script is:blocking>window.early = 1</script>
<style pass:data="{ {color: 'red'} }">p{color:var(--color)}</style></body></html>`

	got := renderPages(t, map[string]string{"pages/index.html": src}, "index", render.Input{})
	for _, want := range []string{
		`<head><link rel="stylesheet" href="./site.css"><script>window.early = 1</script></head>`,
		`<script type="application/json" id="lumen-data-1">{"msg":"hi"}</script>`,
		`<script type="module">const { msg } = JSON.parse(document.getElementById("lumen-data-1").textContent);` + "\nconsole.log(msg)</script></body>",
		"<style>:root { --color: red; }\np{color:var(--color)}</style>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render is missing %s\n%s", want, got)
		}
	}
}

func TestCompileModuleLayout(t *testing.T) {
	src := `<script is:build>
import card from "./card.html"
const n = 1
</script>
<p>{n}</p>`
	out, err := Compile("pages/a.html", src, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := `import card from "./card.html"

export default function render() {
  const n = 1
  let __out = ""
  __out += "<p>"
  __out += __text(n)
  __out += "</p>"
  return __out
}
`
	if out.Module != want {
		t.Errorf("module =\n%s\nwant\n%s", out.Module, want)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(error) bool
	}{
		{
			name: "unbraced if",
			src:  `<p if="condition">x</p>`,
			check: func(err error) bool {
				var de *ir.DirectiveError
				return errors.As(err, &de) && de.Directive == "if" && strings.Contains(err.Error(), "braced")
			},
		},
		{
			name: "malformed each",
			src:  `<li each="{ items }">x</li>`,
			check: func(err error) bool {
				var ee *ir.EachSyntaxError
				return errors.As(err, &ee)
			},
		},
		{
			name: "unbraced client pass:data",
			src:  `<script pass:data="msg">x</script>`,
			check: func(err error) bool {
				var de *ir.DirectiveError
				return errors.As(err, &de) && de.Tag == "script"
			},
		},
		{
			name: "build script syntax",
			src:  "<script is:build>\nconst = 1\n</script><p></p>",
			check: func(err error) bool {
				var se *script.SyntaxError
				return errors.As(err, &se) && se.Line == 1
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("pages/x.html", tt.src, Options{})
			if err == nil || !tt.check(err) {
				t.Errorf("Compile error = %v", err)
			}
		})
	}

	if _, err := Compile("pages/x.html", `<p if="{ condition }">x</p>`, Options{}); err != nil {
		t.Errorf("braced if failed: %v", err)
	}
}

type memStore map[string][]byte

func (m memStore) Get(key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memStore) Put(key string, module []byte, template string) error {
	m[key] = module
	return nil
}

func TestProcessDirectory(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, ".lumen")
	files := map[string]string{
		"pages/index.html":     `<h1>home</h1>`,
		"components/card.html": `<div><slot></slot></div>`,
		"assets/readme.txt":    `ignored`,
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	store := memStore{}
	opts := Options{Cache: store}
	results, err := ProcessDirectory(root, outDir, opts)
	if err != nil {
		t.Fatalf("ProcessDirectory failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("compiled %d templates, want 2", len(results))
	}
	for _, r := range results {
		if r.Cached {
			t.Errorf("%s: first compile reported cached", r.Rel)
		}
		if _, err := os.Stat(r.Target); err != nil {
			t.Errorf("%s: module not written: %v", r.Rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "pages", "index.lumen")); err != nil {
		t.Errorf("pages/index.lumen missing: %v", err)
	}

	again, err := ProcessDirectory(root, outDir, opts)
	if err != nil {
		t.Fatalf("second ProcessDirectory failed: %v", err)
	}
	for _, r := range again {
		if !r.Cached {
			t.Errorf("%s: second compile missed the cache", r.Rel)
		}
	}
}
