// Package render renders compiled components into HTML documents.
//
// A Runtime owns a page registry and the globals visible to every component.
// Rendering walks the component tree depth first; the styles, scripts and
// head scripts collected along the way are injected into the root document.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/recera/lumen/internal/script"
)

// Runtime renders registered pages.
type Runtime struct {
	mu       sync.RWMutex
	globals  map[string]any
	modules  map[string]any
	registry *registry
	site     string
	logger   *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithGlobals merges globals into every render scope.
func WithGlobals(globals map[string]any) Option {
	return func(rt *Runtime) {
		for k, v := range globals {
			rt.globals[k] = v
		}
	}
}

// WithSite sets the value bound to site.
func WithSite(site string) Option {
	return func(rt *Runtime) { rt.site = site }
}

// WithLogger sets the logger used for render warnings.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) { rt.logger = l }
}

// New creates an empty Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		globals:  make(map[string]any),
		modules:  make(map[string]any),
		registry: newRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Globals returns a copy of the globals.
func (rt *Runtime) Globals() map[string]any {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make(map[string]any, len(rt.globals))
	for k, v := range rt.globals {
		out[k] = v
	}
	return out
}

// SetGlobal sets one global.
func (rt *Runtime) SetGlobal(key string, value any) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.globals[key] = value
}

// RegisterPages stores each entry under its canonical key and its raw path.
func (rt *Runtime) RegisterPages(entries map[string]Entry) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.registry.addAll(entries)
}

// Register loads compiled module text and registers it under path.
func (rt *Runtime) Register(path, src string) error {
	m, err := LoadModule(src)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	rt.RegisterPages(map[string]Entry{path: m})
	return nil
}

// RegisterModule makes value importable under specifier. Named imports read
// keys of a map value; a default import reads its "default" key, or the value
// itself when there is none.
func (rt *Runtime) RegisterModule(specifier string, value any) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.modules[specifier] = value
}

// Reload returns a new Runtime holding exactly entries. Globals, data modules,
// site and logger are handed over from rt; no page of rt survives.
func (rt *Runtime) Reload(entries map[string]Entry) *Runtime {
	rt.mu.RLock()
	next := New(WithGlobals(rt.globals), WithSite(rt.site), WithLogger(rt.logger))
	for k, v := range rt.modules {
		next.modules[k] = v
	}
	rt.mu.RUnlock()
	next.RegisterPages(entries)
	return next
}

// Reset drops every page, global and data module.
func (rt *Runtime) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.globals = make(map[string]any)
	rt.modules = make(map[string]any)
	rt.registry = newRegistry()
}

// Keys returns the canonical keys of all registered pages.
func (rt *Runtime) Keys() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	seen := make(map[string]bool)
	var keys []string
	for _, pg := range rt.registry.pages {
		k := PageKey(pg.path)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Render renders the page registered as component. It reports false, with no
// error, when no page matches or when the page's static paths do not include
// the requested params. Errors raised while rendering are returned as is,
// wrapped with the page key.
func (rt *Runtime) Render(ctx context.Context, component string, in Input) (string, bool, error) {
	root := in.Styles == nil
	if root {
		in.Styles, in.Scripts, in.HeadScripts = NewOrderedSet(), NewOrderedSet(), NewOrderedSet()
	}
	if in.Scripts == nil {
		in.Scripts = NewOrderedSet()
	}

	rt.mu.RLock()
	pg, key, params, ok := rt.registry.resolve(component)
	rt.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	t := &tree{rt: rt, ctx: ctx}
	entry, err := t.load(pg.entry)
	if err != nil {
		return "", true, fmt.Errorf("loading %s: %w", key, err)
	}
	for k, v := range in.Params {
		params[k] = v
	}

	props := in.Props
	if m, ok := entry.(*Module); ok && props == nil && m.HasStaticPaths() {
		scope, err := rt.scope(m, pg.path)
		if err != nil {
			return "", true, fmt.Errorf("rendering %s: %w", key, err)
		}
		paths, err := rt.staticPaths(ctx, m, scope)
		if err != nil {
			return "", true, fmt.Errorf("rendering %s: %w", key, err)
		}
		sp, ok := matchStaticPath(paths, params)
		if !ok {
			rt.logger.Warn("no static path matches params", "page", key, "params", params)
			return "", false, nil
		}
		props = sp.Props
	}

	u := in.URL
	if u == nil && in.RoutePath != "" {
		u = &url.URL{Path: in.RoutePath}
	}
	c := &Context{
		Props:       props,
		Slots:       in.Slots,
		Request:     in.Request,
		URL:         u,
		Params:      params,
		Site:        rt.site,
		Styles:      in.Styles,
		Scripts:     in.Scripts,
		HeadScripts: in.HeadScripts,
		tree:        t,
	}
	out, err := t.invoke(entry, pg.path, c)
	if err != nil {
		return "", true, fmt.Errorf("rendering %s: %w", key, err)
	}
	if root {
		out = finalize(out, in.Styles, in.Scripts, in.HeadScripts)
	}
	return out, true, nil
}

// RenderComponent renders component as a child: it shares the sets in in,
// allocating fresh ones when in carries none, and never injects them.
// component is a page key, a *Ref or an Entry.
func (rt *Runtime) RenderComponent(ctx context.Context, component any, props map[string]any, slots map[string]string, in Input) (string, error) {
	if in.Styles == nil {
		in.Styles = NewOrderedSet()
	}
	if in.Scripts == nil {
		in.Scripts = NewOrderedSet()
	}
	t := &tree{rt: rt, ctx: ctx}
	return t.component(component, props, slots, in)
}

// Paths returns the static paths of the page registered as component. A page
// without getStaticPaths has none.
func (rt *Runtime) Paths(ctx context.Context, component string) ([]StaticPath, bool, error) {
	rt.mu.RLock()
	pg, key, _, ok := rt.registry.resolve(component)
	rt.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	t := &tree{rt: rt, ctx: ctx}
	entry, err := t.load(pg.entry)
	if err != nil {
		return nil, true, fmt.Errorf("loading %s: %w", key, err)
	}
	m, ok := entry.(*Module)
	if !ok || !m.HasStaticPaths() {
		return nil, true, nil
	}
	scope, err := rt.scope(m, pg.path)
	if err != nil {
		return nil, true, err
	}
	paths, err := rt.staticPaths(ctx, m, scope)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", key, err)
	}
	return paths, true, nil
}

// scope returns the globals, helpers and import bindings of a module.
func (rt *Runtime) scope(m *Module, path string) (map[string]any, error) {
	vars := rt.Globals()
	for k, v := range script.Helpers() {
		vars[k] = v
	}
	imports, err := rt.bindImports(m, path)
	if err != nil {
		return nil, err
	}
	for k, v := range imports {
		vars[k] = v
	}
	return vars, nil
}

// tree is the state of one render call tree.
type tree struct {
	rt     *Runtime
	ctx    context.Context
	mu     sync.Mutex
	lastID int
}

func (t *tree) nextID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastID++
	return t.lastID
}

func (t *tree) load(e Entry) (Entry, error) {
	for {
		l, ok := e.(Loader)
		if !ok {
			return e, nil
		}
		loaded, err := l(t.ctx)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, fmt.Errorf("loader returned no module")
		}
		e = loaded
	}
}

func (t *tree) invoke(e Entry, path string, c *Context) (string, error) {
	switch e := e.(type) {
	case *Module:
		vars, err := t.rt.scope(e, path)
		if err != nil {
			return "", err
		}
		for k, v := range c.vars() {
			vars[k] = v
		}
		return e.program.Render(t.ctx, vars)
	case RenderFunc:
		return e(t.ctx, c)
	case Loader:
		loaded, err := t.load(e)
		if err != nil {
			return "", err
		}
		return t.invoke(loaded, path, c)
	}
	return "", fmt.Errorf("unsupported entry %T", e)
}

// component renders a child component sharing the sets in in.
func (t *tree) component(component any, props map[string]any, slots map[string]string, in Input) (string, error) {
	var (
		entry Entry
		path  string
	)
	params := in.Params
	switch c := component.(type) {
	case *Ref:
		entry, path = c.Entry, c.Path
	case Entry:
		entry = c
	case string:
		t.rt.mu.RLock()
		pg, _, found, ok := t.rt.registry.resolve(c)
		t.rt.mu.RUnlock()
		if !ok {
			return "", fmt.Errorf("component %q is not registered", c)
		}
		entry, path = pg.entry, pg.path
		if len(found) > 0 {
			params = found
		}
	case nil:
		return "", fmt.Errorf("component is not defined")
	default:
		return "", fmt.Errorf("cannot render %T as a component", component)
	}
	entry, err := t.load(entry)
	if err != nil {
		return "", err
	}
	ctx := &Context{
		Props:   props,
		Slots:   slots,
		Request: in.Request,
		URL:     in.URL,
		Params:  params,
		Site:    t.rt.site,
		Styles:  in.Styles,
		Scripts: in.Scripts,
		tree:    t,
	}
	out, err := t.invoke(entry, path, ctx)
	if err != nil && path != "" {
		return "", fmt.Errorf("%s: %w", PageKey(path), err)
	}
	return out, err
}

// renderComponentFunc is the renderComponent binding of compiled modules:
// renderComponent(component, props, slots, context).
func (t *tree) renderComponentFunc() script.Func {
	return func(args ...any) (any, error) {
		arg := func(i int) any {
			if i < len(args) {
				return args[i]
			}
			return nil
		}
		props, err := script.Merge(arg(1))
		if err != nil {
			return nil, err
		}
		slots := make(map[string]string)
		if m, ok := arg(2).(map[string]any); ok {
			for k, v := range m {
				slots[k] = script.ToText(v)
			}
		}
		return t.component(arg(0), props, slots, inputFromContext(arg(3)))
	}
}
