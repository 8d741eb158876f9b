package render

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/recera/lumen/internal/script"
)

// Module is a compiled component module.
type Module struct {
	program *script.Program
}

func (*Module) entry() {}

// LoadModule loads compiled module text.
func LoadModule(src string) (*Module, error) {
	prog, err := script.Load(src)
	if err != nil {
		return nil, err
	}
	return FromProgram(prog), nil
}

// FromProgram wraps an already loaded program.
func FromProgram(prog *script.Program) *Module {
	return &Module{program: prog}
}

// HasStaticPaths reports whether the module exports getStaticPaths.
func (m *Module) HasStaticPaths() bool {
	return m.program.Exports(script.StaticPathsFunc)
}

// bindImports resolves the module's imports relative to from and returns the
// bindings they introduce. Side-effect imports bind nothing.
func (rt *Runtime) bindImports(m *Module, from string) (map[string]any, error) {
	vars := make(map[string]any)
	for _, imp := range m.program.Imports() {
		if imp.SideEffect {
			continue
		}
		value, err := rt.resolveImport(imp.Specifier, from)
		if err != nil {
			return nil, err
		}
		for _, b := range imp.Bindings {
			switch b.Kind {
			case script.DefaultBinding:
				if ref, ok := value.(*Ref); ok {
					vars[b.Local] = ref
				} else {
					vars[b.Local] = memberOrSelf(value, "default")
				}
			case script.NamespaceBinding:
				vars[b.Local] = value
			case script.NamedBinding:
				vars[b.Local] = member(value, b.Imported)
			}
		}
	}
	return vars, nil
}

// resolveImport looks specifier up among registered data modules, then among
// registered pages and components, relative to the importing path.
func (rt *Runtime) resolveImport(specifier, from string) (any, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if v, ok := rt.modules[specifier]; ok {
		return v, nil
	}
	candidates := []string{specifier}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		candidates = append(candidates, path.Join(path.Dir(filepathToSlash(from)), specifier))
	}
	for _, c := range candidates {
		for _, p := range []string{c, trimExt(c), trimExt(c) + ".html"} {
			if v, ok := rt.modules[p]; ok {
				return v, nil
			}
			if pg, ok := rt.registry.pages[p]; ok {
				return &Ref{Path: pg.path, Entry: pg.entry}, nil
			}
		}
	}
	return nil, fmt.Errorf("cannot resolve import %q from %s", specifier, from)
}

func memberOrSelf(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		if d, ok := m[key]; ok {
			return d
		}
	}
	return v
}

func member(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return nil
}

// staticPaths calls the module's getStaticPaths with the module scope bound.
func (rt *Runtime) staticPaths(ctx context.Context, m *Module, scope map[string]any) ([]StaticPath, error) {
	out, err := m.program.Call(ctx, script.StaticPathsFunc, scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", script.StaticPathsFunc, err)
	}
	return parseStaticPaths(out)
}
