package render

import (
	"context"
	"path"
	"sort"
	"strings"
)

// Entry is a registered component: a *Module, a Loader or a RenderFunc.
type Entry interface {
	entry()
}

// Loader produces an Entry on first use.
type Loader func(ctx context.Context) (Entry, error)

// RenderFunc renders a component implemented in Go.
type RenderFunc func(ctx context.Context, c *Context) (string, error)

func (Loader) entry()     {}
func (RenderFunc) entry() {}

// Ref is an imported component together with the path it was registered under.
// Compiled modules receive Refs for their component imports.
type Ref struct {
	Path  string
	Entry Entry
}

type page struct {
	path  string
	entry Entry
}

// registry maps page keys to pages. Keys keep registration order so that the
// first dynamic pattern registered wins.
type registry struct {
	pages map[string]*page
	keys  []string
}

func newRegistry() *registry {
	return &registry{pages: make(map[string]*page)}
}

func (r *registry) add(p string, e Entry) {
	pg := &page{path: p, entry: e}
	for _, k := range []string{PageKey(p), p} {
		if _, ok := r.pages[k]; !ok {
			r.keys = append(r.keys, k)
		}
		r.pages[k] = pg
	}
}

func (r *registry) addAll(entries map[string]Entry) {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r.add(p, entries[p])
	}
}

// PageKey derives the canonical key of a page path: everything after a pages/
// segment, else the full path when it has several segments, else the last
// segment. Template extensions are dropped.
func PageKey(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+filepathToSlash(p)), "/")
	p = trimExt(p)
	if i := strings.Index("/"+p, "/pages/"); i >= 0 {
		return p[i+len("pages/"):]
	}
	return p
}

func trimExt(p string) string {
	for _, ext := range []string{".html", ".lumen"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// resolve finds the page for name, trying the exact key, name/index, the
// home alias for index, then dynamic patterns. A name ending in /index is
// retried with the suffix stripped.
func (r *registry) resolve(name string) (*page, string, map[string]string, bool) {
	name = strings.Trim(name, "/")
	if pg, key, params, ok := r.lookup(name); ok {
		return pg, key, params, true
	}
	if stripped, ok := strings.CutSuffix(name, "/index"); ok {
		return r.lookup(stripped)
	}
	return nil, "", nil, false
}

func (r *registry) lookup(name string) (*page, string, map[string]string, bool) {
	if pg, ok := r.pages[name]; ok {
		return pg, name, map[string]string{}, true
	}
	if name != "" {
		if pg, ok := r.pages[name+"/index"]; ok {
			return pg, name + "/index", map[string]string{}, true
		}
	}
	if name == "index" || name == "" {
		if pg, ok := r.pages["home"]; ok {
			return pg, "home", map[string]string{}, true
		}
	}
	segments := splitPath(name)
	for _, key := range r.keys {
		if !strings.Contains(key, "[") {
			continue
		}
		if params, ok := matchPattern(splitPath(key), segments); ok {
			return r.pages[key], key, params, true
		}
	}
	return nil, "", nil, false
}

// matchPattern matches request segments against a key whose [name] segments
// bind parameters. Segment counts and literal segments must match exactly.
func matchPattern(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range pattern {
		if name, ok := paramName(seg); ok {
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

func paramName(segment string) (string, bool) {
	if len(segment) > 2 && strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]") {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}
