package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recera/lumen/pkg/render"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var blog = map[string]string{
	"lumen.yaml": "site: https://example.com\nglobals:\n  brand: Lumen\n",
	"src/pages/index.html": `<script is:build>
import card from "../components/card.html"
</script>
<html><head><title>{brand}</title></head><body><card-component title="Hi">body</card-component></body></html>`,
	"src/components/card.html": `<div class="card"><h2>{props.title}</h2><slot></slot></div>`,
	"src/pages/post/[id].html": `<script is:build>
export function getStaticPaths() {
  return [{params: {id: "1"}, props: {title: "First"}}, {params: {id: "2"}, props: {title: "Second"}}]
}
</script>
<h1>{props.title}</h1>`,
	"src/pages/greet.html": `<p>{props.name} {params.lang}</p>`,
}

func TestRenderCommand(t *testing.T) {
	root := writeProject(t, blog)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"page with component", []string{"render", "index"}, `<html><head><title>Lumen</title></head><body><div class="card"><h2>Hi</h2>body</div></body></html>`},
		{"static path", []string{"render", "post/2"}, "<h1>Second</h1>"},
		{"props and params", []string{"render", "greet", "--props", `{"name":"Ada"}`, "--param", "lang=en"}, "<p>Ada en</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(tt.args, "--cwd", root)...)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			if got := strings.TrimSuffix(out, "\n"); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	root := writeProject(t, blog)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing page", []string{"render", "nope"}, "page not found"},
		{"unknown static path", []string{"render", "post/9"}, "page not found"},
		{"bad param", []string{"render", "greet", "--param", "lang"}, "invalid --param"},
		{"bad props", []string{"render", "greet", "--props", "{"}, "invalid --props"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--cwd", root)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestPathsCommand(t *testing.T) {
	root := writeProject(t, blog)

	out, err := execute(t, "paths", "post/[id]", "--cwd", root)
	if err != nil {
		t.Fatalf("paths failed: %v", err)
	}
	var paths []render.StaticPath
	if err := json.Unmarshal([]byte(out), &paths); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(paths) != 2 || paths[0].Params["id"] != "1" || paths[1].Props["title"] != "Second" {
		t.Errorf("paths = %+v", paths)
	}

	out, err = execute(t, "paths", "greet", "--cwd", root)
	if err != nil || strings.TrimSpace(out) != "[]" {
		t.Errorf("paths of a plain page = %q, %v", out, err)
	}
}

func TestCompileCommand(t *testing.T) {
	root := writeProject(t, blog)

	out, err := execute(t, "compile", root)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	for _, want := range []string{"Compiled 4 templates (0 cached)", "pages/index.html", "components/card.html"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(root, ".lumen", "modules", "pages", "index.lumen")); err != nil {
		t.Errorf("module not written: %v", err)
	}

	out, err = execute(t, "compile", root)
	if err != nil || !strings.Contains(out, "(4 cached)") {
		t.Errorf("second compile = %q, %v", out, err)
	}

	os.WriteFile(filepath.Join(root, "src", "pages", "bad.html"), []byte(`<p if="x">y</p>`), 0644)
	if _, err := execute(t, "compile", root); err == nil {
		t.Error("compile of an invalid template succeeded")
	}
}

func TestDevServer_Rebuild(t *testing.T) {
	root := writeProject(t, blog)
	p, err := loadProject(root, true)
	if err != nil {
		t.Fatalf("loadProject failed: %v", err)
	}
	defer p.close()

	s := newDevServer(p)
	if err := s.rebuild(nil); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	ts := httptest.NewServer(s.handler())
	defer ts.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get("/post/1"); code != http.StatusOK || !strings.HasPrefix(body, "<h1>First</h1>") {
		t.Errorf("GET /post/1 = %d %q", code, body)
	}
	if code, body := get("/"); code != http.StatusOK || !strings.Contains(body, `/__lumen/reload`) {
		t.Errorf("GET / = %d, reload script missing:\n%s", code, body)
	}
	if code, _ := get("/missing"); code != http.StatusNotFound {
		t.Errorf("GET /missing = %d, want 404", code)
	}

	greet := filepath.Join(root, "src", "pages", "greet.html")
	os.WriteFile(greet, []byte(`<p>changed</p>`), 0644)
	if err := s.rebuild([]string{greet}); err != nil {
		t.Fatalf("rebuild after change failed: %v", err)
	}
	if _, body := get("/greet"); !strings.HasPrefix(body, "<p>changed</p>") {
		t.Errorf("GET /greet after change = %q", body)
	}

	os.WriteFile(greet, []byte(`<p if="x">broken</p>`), 0644)
	if err := s.rebuild([]string{greet}); err == nil {
		t.Fatal("rebuild of a broken template succeeded")
	}
	if _, body := get("/greet"); !strings.HasPrefix(body, "<p>changed</p>") {
		t.Errorf("previous runtime stopped serving: %q", body)
	}
}
