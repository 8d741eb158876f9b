package script

import (
	"sort"
	"strings"
)

// StaticPathsFunc is the export name of the static-path data function.
const StaticPathsFunc = "getStaticPaths"

// Analysis is the result of analyzing a build script.
type Analysis struct {
	// Imports are the static imports in source order, type-only imports excluded.
	Imports []Import
	// GetStaticPaths is the exact source of the exported getStaticPaths
	// function, or empty.
	GetStaticPaths string
	// Remainder is the script with every import and getStaticPaths removed.
	Remainder string
}

// Analyze extracts imports and getStaticPaths from a build script. Any syntax
// error is returned as a *SyntaxError and no partial result is produced.
func Analyze(src string) (*Analysis, error) {
	f, err := Parse(src)
	if err != nil {
		return nil, err
	}

	a := &Analysis{}
	var cuts []span
	for _, s := range f.Body {
		switch s := s.(type) {
		case *ImportDecl:
			cuts = append(cuts, s.span)
			if !s.Import.TypeOnly {
				a.Imports = append(a.Imports, s.Import)
			}
		case *FuncDecl:
			if s.Exported && !s.Default && s.Name == StaticPathsFunc {
				a.GetStaticPaths = src[s.Start:s.End]
				cuts = append(cuts, s.span)
			}
		}
	}

	sort.Slice(cuts, func(i, j int) bool { return cuts[i].Start < cuts[j].Start })
	var b strings.Builder
	last := 0
	for _, c := range cuts {
		b.WriteString(src[last:c.Start])
		last = c.End
	}
	b.WriteString(src[last:])
	a.Remainder = strings.TrimSpace(b.String())
	return a, nil
}

// Indent prefixes each non-empty line of src with prefix. Lines that start
// inside a multi-line string are left alone so the string keeps its value.
func Indent(src, prefix string) string {
	p := &parser{src: src}
	var b strings.Builder
	atLine := true
	for i := 0; i < len(src); {
		c := src[i]
		if atLine && c != '\n' {
			b.WriteString(prefix)
		}
		atLine = false
		next := i + 1
		switch {
		case c == '\n':
			atLine = true
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			if end := strings.IndexByte(src[i:], '\n'); end >= 0 {
				next = i + end
			} else {
				next = len(src)
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			next = len(src)
			if end := strings.Index(src[i+2:], "*/"); end >= 0 {
				next = i + 2 + end + 2
			}
			b.WriteString(strings.ReplaceAll(src[i:next], "\n", "\n"+prefix))
			i = next
			continue
		case c == '"' || c == '\'' || c == '`':
			end, err := p.skipString(i)
			if err != nil {
				end = len(src)
			}
			next = end
		}
		b.WriteString(src[i:next])
		i = next
	}
	return b.String()
}
