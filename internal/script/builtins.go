package script

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/recera/lumen/internal/template/scan"
)

// Helper names bound into every module scope. Compiled templates call them.
const (
	MergeFunc   = "__merge"
	JSDataFunc  = "__jsdata"
	CSSVarsFunc = "__cssvars"
	HoistFunc   = "__hoist"
	BridgeFunc  = "__bridge"
)

// DataIDPrefix prefixes the element id of bridged client script data.
const DataIDPrefix = "lumen-data-"

// Adder is a de-duplicating collection of rendered fragments.
type Adder interface {
	Add(string) bool
}

// Helpers returns the helper functions compiled templates rely on.
func Helpers() map[string]any {
	return map[string]any{
		scan.TextFunc: ToText,
		MergeFunc:     Merge,
		JSDataFunc:    JSData,
		CSSVarsFunc:   CSSVars,
		HoistFunc:     Hoist,
		BridgeFunc:    Bridge,
	}
}

// ToText renders a value for output. nil renders as the empty string.
func ToText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// Truthy reports whether v counts as true in a condition. nil, false, zero
// numbers, empty strings and empty collections are false.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32:
		return rv.Float() != 0
	}
	return true
}

// Iterate returns the elements of a slice or array, or the values of a map
// ordered by key. nil iterates as empty.
func Iterate(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = rv.MapIndex(k).Interface()
		}
		return items, nil
	}
	return nil, fmt.Errorf("value of type %T is not iterable", v)
}

// Add implements `+=`: numbers are summed, anything else is concatenated as text.
func Add(a, b any) any {
	if x, xint, ok := number(a); ok {
		if y, yint, ok := number(b); ok {
			if xint && yint {
				return int(x) + int(y)
			}
			return x + y
		}
	}
	return ToText(a) + ToText(b)
}

func number(v any) (float64, bool, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true, true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), false, true
	}
	return 0, false, false
}

// Merge shallow-merges maps left to right. nil arguments are skipped.
func Merge(values ...any) (map[string]any, error) {
	out := make(map[string]any)
	for _, v := range values {
		if v == nil {
			continue
		}
		m, err := toMap(v)
		if err != nil {
			return nil, fmt.Errorf("cannot spread %T into props", v)
		}
		for k, val := range m {
			out[k] = val
		}
	}
	return out, nil
}

// JSData renders one `const key = <json>;` line per key, in key order.
func JSData(v any) (string, error) {
	m, err := toMap(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, k := range sortedKeys(m) {
		raw, err := json.Marshal(m[k])
		if err != nil {
			return "", fmt.Errorf("failed to serialize %s: %w", k, err)
		}
		fmt.Fprintf(&b, "const %s = %s;\n", k, raw)
	}
	return b.String(), nil
}

// CSSVars renders the keys of v as custom properties on :root.
func CSSVars(v any) (string, error) {
	m, err := toMap(v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(":root {")
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(&b, " --%s: %s;", k, ToText(m[k]))
	}
	b.WriteString(" }\n")
	return b.String(), nil
}

// Hoist adds content to set. A nil set is ignored, which is the case for
// child renders that do not aggregate head content.
func Hoist(set any, content string) string {
	if s, ok := set.(Adder); ok && content != "" {
		s.Add(content)
	}
	return ""
}

// Bridge renders a client script whose pass-data object is delivered as JSON in
// a companion element and destructured at the top of the script.
func Bridge(id any, attrs, content string, data any) (string, error) {
	m, err := toMap(data)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to serialize pass:data: %w", err)
	}
	elementID := DataIDPrefix + ToText(id)

	var b strings.Builder
	fmt.Fprintf(&b, `<script type="application/json" id="%s">%s</script>`, elementID, raw)
	b.WriteString("<script")
	if attrs != "" {
		b.WriteString(" ")
		b.WriteString(attrs)
	}
	b.WriteString(">")
	fmt.Fprintf(&b, "const { %s } = JSON.parse(document.getElementById(%q).textContent);\n",
		strings.Join(sortedKeys(m), ", "), elementID)
	b.WriteString(content)
	b.WriteString("</script>")
	return b.String(), nil
}

func toMap(v any) (map[string]any, error) {
	switch v := v.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, nil
	case reflect.Struct:
		m := make(map[string]any)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				m[t.Field(i).Name] = rv.Field(i).Interface()
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("expected an object, got %T", v)
}

// member reads key from a map or struct value, or returns nil.
func member(v any, key string) any {
	m, err := toMap(v)
	if err != nil {
		return nil
	}
	return m[key]
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
