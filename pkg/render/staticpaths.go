package render

import (
	"fmt"

	"github.com/recera/lumen/internal/script"
)

// StaticPath is one (params, props) pair a dynamic page can render.
type StaticPath struct {
	Params map[string]string `json:"params"`
	Props  map[string]any    `json:"props,omitempty"`
}

func parseStaticPaths(v any) ([]StaticPath, error) {
	items, err := script.Iterate(v)
	if err != nil {
		return nil, fmt.Errorf("static paths must be a list: %w", err)
	}
	paths := make([]StaticPath, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("static path %d: expected an object, got %T", i, item)
		}
		sp := StaticPath{Params: stringMap(m["params"])}
		if props, ok := m["props"].(map[string]any); ok {
			sp.Props = props
		}
		paths = append(paths, sp)
	}
	return paths, nil
}

// matchStaticPath returns the first path whose params have exactly the keys of
// params with equal stringified values.
func matchStaticPath(paths []StaticPath, params map[string]string) (StaticPath, bool) {
	for _, sp := range paths {
		if sameParams(sp.Params, params) {
			return sp, true
		}
	}
	return StaticPath{}, false
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func stringMap(v any) map[string]string {
	out := make(map[string]string)
	switch m := v.(type) {
	case map[string]string:
		for k, val := range m {
			out[k] = val
		}
	case map[string]any:
		for k, val := range m {
			out[k] = script.ToText(val)
		}
	}
	return out
}
