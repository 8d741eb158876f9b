// Package directive classifies template attributes into structural
// directives, framework-foreign passthrough attributes and plain HTML.
package directive

import (
	"strings"
	"unicode"
)

// Structural directive names.
const (
	If       = "if"
	ElseIf   = "else-if"
	Else     = "else"
	Each     = "each"
	Props    = "props"
	PassData = "pass:data"
	Slot     = "slot"
)

// Kind is the classification of an attribute name.
type Kind int

const (
	// Plain attributes are serialized and interpolated.
	Plain Kind = iota
	// Structural attributes are consumed by the compiler.
	Structural
	// Passthrough attributes belong to another framework and are never interpolated.
	Passthrough
)

func (k Kind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Passthrough:
		return "passthrough"
	default:
		return "plain"
	}
}

// Table holds the configurable directive vocabulary.
type Table struct {
	// Prefix is the structural alternate spelling, e.g. "data-" for data-if.
	Prefix string
	// Names are the structural directives recognised on elements.
	Names []string
	// PassthroughPrefixes mark framework-foreign attributes (x-, @, :).
	PassthroughPrefixes []string
	// PassthroughNames are exact framework-foreign attribute names.
	PassthroughNames []string
	// ComponentSuffixes mark component and layout tags.
	ComponentSuffixes []string

	// Script taxonomy markers.
	Build    string
	Inline   string
	Blocking string
	// Raw disables interpolation for an element's subtree.
	Raw string
}

// Default returns the stock directive table.
func Default() *Table {
	return &Table{
		Prefix:              "data-",
		Names:               []string{If, ElseIf, Else, Each, Props, PassData},
		PassthroughPrefixes: []string{"x-", "@", ":", "hx-"},
		PassthroughNames:    []string{"x-data", "x-init"},
		ComponentSuffixes:   []string{"-component", "-layout"},
		Build:               "is:build",
		Inline:              "is:inline",
		Blocking:            "is:blocking",
		Raw:                 "is:raw",
	}
}

// Is reports whether attr spells the directive name, bare or prefixed.
func (t *Table) Is(attr, name string) bool {
	attr = strings.ToLower(attr)
	return attr == name || (t.Prefix != "" && attr == t.Prefix+name)
}

// Directive returns the canonical structural name spelled by attr.
func (t *Table) Directive(attr string) (string, bool) {
	for _, name := range t.Names {
		if t.Is(attr, name) {
			return name, true
		}
	}
	return "", false
}

// Classify decides how attr is treated by the compiler.
func (t *Table) Classify(attr string) Kind {
	if _, ok := t.Directive(attr); ok {
		return Structural
	}
	lower := strings.ToLower(attr)
	for _, name := range t.PassthroughNames {
		if lower == name {
			return Passthrough
		}
	}
	for _, prefix := range t.PassthroughPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return Passthrough
		}
	}
	return Plain
}

// IsMarker reports whether attr is one of the script taxonomy markers or the
// pass-data directive.
func (t *Table) IsMarker(attr string) bool {
	switch strings.ToLower(attr) {
	case t.Build, t.Inline, t.Blocking:
		return true
	}
	return t.Is(attr, PassData)
}

// IsComponent reports whether tag names a component or layout.
func (t *Table) IsComponent(tag string) bool {
	_, ok := t.ComponentBinding(tag)
	return ok
}

// ComponentBinding converts a component tag to the camelCase name of the
// binding it refers to: blog-card-component -> blogCard.
func (t *Table) ComponentBinding(tag string) (string, bool) {
	tag = strings.ToLower(tag)
	for _, suffix := range t.ComponentSuffixes {
		if strings.HasSuffix(tag, suffix) && len(tag) > len(suffix) {
			return CamelCase(strings.TrimSuffix(tag, suffix)), true
		}
	}
	return "", false
}

// CamelCase converts kebab-case to camelCase.
func CamelCase(kebab string) string {
	var b strings.Builder
	upper := false
	for _, r := range kebab {
		if r == '-' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
