package parse

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/recera/lumen/internal/template/directive"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"static fragment", "<p>Hello</p>", "<p>Hello</p>"},
		{"interpolations survive", `<a href="/p/{post.slug}">{post.title}</a>`, `<a href="/p/{post.slug}">{post.title}</a>`},
		{"byte order mark", "\uFEFF<p>x</p>", "<p>x</p>"},
		{"self-closing component", `<card-component title="a/b" /><p>x</p>`, `<card-component title="a/b"></card-component><p>x</p>`},
		{"comment hides script", "<!-- <script>x()</script> --><p>a</p>", "<!-- <script>x()</script> --><p>a</p>"},
		{"svg script untouched", "<svg><script>x()</script></svg>", "<svg><script>x()</script></svg>"},
		{"local src becomes module", `<script src="/app.js" defer></script>`, `<script src="/app.js" type="module"></script>`},
		{"remote src untouched", `<script src="https://cdn.example/x.js" defer></script>`, `<script src="https://cdn.example/x.js" defer></script>`},
		{"explicit type kept", `<script src="/a.js" type="text/javascript"></script>`, `<script src="/a.js" type="text/javascript"></script>`},
		{
			"full document",
			`<!DOCTYPE html><html><head><title>T</title></head><body><p>a</p></body></html>`,
			`<!DOCTYPE html><html><head><title>T</title></head><body><p>a</p></body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.input, nil)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if res.Template != tt.want {
				t.Errorf("Template = %q, want %q", res.Template, tt.want)
			}
			if len(res.ClientScripts) != 0 || res.BuildScript != nil {
				t.Errorf("unexpected scripts classified: %+v", res)
			}
		})
	}
}

func TestParseBuildScripts(t *testing.T) {
	src := "<script is:build>\n  const a = 1\n</script><p>{a}</p><script is:build>const b = 2</script>"
	res, err := Parse(src, directive.Default())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.BuildScript == nil {
		t.Fatal("expected a build script")
	}
	if want := "const a = 1\nconst b = 2"; res.BuildScript.Content != want {
		t.Errorf("BuildScript.Content = %q, want %q", res.BuildScript.Content, want)
	}
	if res.Template != "<p>{a}</p>" {
		t.Errorf("Template = %q", res.Template)
	}
}

func TestParseBuildScriptBeforeDocument(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"build script",
			"<script is:build>\nconst n = 1\n</script>\n<html><head><title>t</title></head><body>{n}</body></html>",
			"<html><head><title>t</title></head><body>{n}</body></html>",
		},
		{
			"build and blocking scripts",
			"<script is:build>const n = 1</script>\n<script is:blocking>early()</script>\n<html><head><title>t</title></head><body></body></html>",
			"<html><head><title>t</title></head><body></body></html>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.input, nil)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if res.BuildScript == nil {
				t.Fatal("expected a build script")
			}
			if res.Template != tt.want {
				t.Errorf("Template = %q, want %q", res.Template, tt.want)
			}
		})
	}
}

func TestParseScriptTaxonomy(t *testing.T) {
	src := `<p>x</p>` +
		`<script is:inline data-id="1">inline()</script>` +
		`<script is:blocking>block()</script>` +
		`<script pass:data="{ {a} }">client(a)</script>` +
		`<script is:inline pass:data="{ {b} }">keep(b)</script>`
	res, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := `<p>x</p><script data-id="1">inline()</script><script pass:data="{ {b} }">keep(b)</script>`
	if res.Template != want {
		t.Errorf("Template = %q, want %q", res.Template, want)
	}

	if len(res.InlineScripts) != 2 {
		t.Fatalf("got %d inline scripts, want 2", len(res.InlineScripts))
	}
	if got := res.InlineScripts[0]; got.Attrs != `data-id="1"` || got.Content != "inline()" {
		t.Errorf("inline[0] = %+v", got)
	}
	if got := res.InlineScripts[1]; got.Attrs != `pass:data="{ {b} }"` || got.PassDataExpr != "{ {b} }" {
		t.Errorf("inline[1] = %+v", got)
	}

	if len(res.BlockingScripts) != 1 || !res.BlockingScripts[0].InjectInHead {
		t.Fatalf("blocking scripts = %+v", res.BlockingScripts)
	}
	if res.BlockingScripts[0].Content != "block()" {
		t.Errorf("blocking content = %q", res.BlockingScripts[0].Content)
	}

	if len(res.ClientScripts) != 1 {
		t.Fatalf("got %d client scripts, want 1", len(res.ClientScripts))
	}
	client := res.ClientScripts[0]
	if client.Attrs != "" || client.PassDataExpr != "{ {a} }" || client.Content != "client(a)" {
		t.Errorf("client = %+v", client)
	}
}

func TestParseHeadScriptWithAttributes(t *testing.T) {
	src := `<html><head><script data-theme="dark">theme()</script></head><body><script>app()</script></body></html>`
	res, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := `<html><head><script data-theme="dark">theme()</script></head><body></body></html>`
	if res.Template != want {
		t.Errorf("Template = %q, want %q", res.Template, want)
	}
	if len(res.ClientScripts) != 1 || res.ClientScripts[0].Content != "app()" {
		t.Errorf("client scripts = %+v", res.ClientScripts)
	}
}

func TestParseCustomMarkers(t *testing.T) {
	table := directive.Default()
	table.Build = "server"
	res, err := Parse(`<script server>const x = 1</script><p>x</p>`, table)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.BuildScript == nil || res.BuildScript.Content != "const x = 1" {
		t.Errorf("BuildScript = %+v", res.BuildScript)
	}
}

func TestExpandSelfClosing(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<x-y />`, `<x-y></x-y>`},
		{`<x-y a=">" b='/>'/>`, `<x-y a=">" b='/>'></x-y>`},
		{`<br/><img src="a.png" />`, `<br/><img src="a.png" />`},
		{`<foo-component></foo-component>`, `<foo-component></foo-component>`},
		{`a < b-c`, `a < b-c`},
		{`<base-layout title="t">`, `<base-layout title="t">`},
	}
	for _, tt := range tests {
		if got := expandSelfClosing(tt.in); got != tt.want {
			t.Errorf("expandSelfClosing(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNodes(t *testing.T) {
	nodes, err := Nodes("<p>a</p> <span>b</span>")
	if err != nil {
		t.Fatalf("Nodes failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}
	if nodes[0].Data != "p" || nodes[1].Type != html.TextNode || nodes[2].Data != "span" {
		t.Errorf("unexpected nodes: %q %q %q", nodes[0].Data, nodes[1].Data, nodes[2].Data)
	}

	doc, err := Nodes("<!DOCTYPE html><html><body></body></html>")
	if err != nil {
		t.Fatalf("Nodes failed: %v", err)
	}
	if len(doc) != 2 || doc[0].Type != html.DoctypeNode {
		t.Errorf("document nodes = %d", len(doc))
	}
}

func TestRenderEscaping(t *testing.T) {
	nodes, err := Nodes(`<p title="a &amp; &quot;b&quot;">1 &lt; 2 &amp; 'q'</p><style>a > b {}</style>`)
	if err != nil {
		t.Fatalf("Nodes failed: %v", err)
	}
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(Render(n))
	}
	want := `<p title="a &amp; &quot;b&quot;">1 &lt; 2 &amp; 'q'</p><style>a > b {}</style>`
	if b.String() != want {
		t.Errorf("Render = %q, want %q", b.String(), want)
	}
}
