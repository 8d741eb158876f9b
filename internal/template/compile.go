// Package template compiles component templates into modules the render
// runtime executes.
//
// A template is HTML with build scripts, directives and { expression }
// interpolations. Compile runs the whole pipeline: scripts are classified,
// the build script is analyzed, the remaining markup is lowered to IR and the
// IR is emitted as the body of the module's render function.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/recera/lumen/internal/script"
	"github.com/recera/lumen/internal/template/directive"
	"github.com/recera/lumen/internal/template/emit"
	"github.com/recera/lumen/internal/template/ir"
	"github.com/recera/lumen/internal/template/parse"
	"github.com/recera/lumen/pkg/render"
)

// OutVar is the accumulator the render function returns.
const OutVar = "__out"

// Options configures compilation.
type Options struct {
	Table    *directive.Table
	Resolver ir.PathResolver
	// Cache, when set, stores compiled modules keyed by template source.
	Cache Store
	// Salt is mixed into cache keys so that configuration changes miss.
	Salt string
}

// Output is a compiled template together with its intermediate results.
type Output struct {
	Module   string
	Parse    *parse.Result
	Analysis *script.Analysis
	IR       []ir.Node
}

// Compile compiles the template src read from path.
func Compile(path, src string, opts Options) (*Output, error) {
	table := opts.Table
	if table == nil {
		table = directive.Default()
	}

	res, err := parse.Parse(src, table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	analysis := &script.Analysis{}
	if res.BuildScript != nil {
		if analysis, err = script.Analyze(res.BuildScript.Content); err != nil {
			return nil, fmt.Errorf("%s: build script: %w", path, err)
		}
	}

	nodes, err := parse.Nodes(res.Template)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	body, err := ir.Lower(nodes, ir.Options{Table: table, Resolver: opts.Resolver})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	hoists, err := hoist(res, analysis, opts.Resolver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	program := append(hoists, body...)

	module := assemble(analysis, emit.EmitIndented(program, OutVar, 1))
	if _, err := script.Load(module); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Output{Module: module, Parse: res, Analysis: analysis, IR: program}, nil
}

// hoist turns stylesheet imports, client scripts and blocking scripts into
// additions to the render-wide sets.
func hoist(res *parse.Result, analysis *script.Analysis, resolver ir.PathResolver) ([]ir.Node, error) {
	var nodes []ir.Node
	for _, imp := range analysis.Imports {
		if !imp.SideEffect || !strings.HasSuffix(imp.Specifier, ".css") {
			continue
		}
		href := imp.Specifier
		if resolver != nil {
			if r, ok := resolver.Resolve(href); ok {
				href = r
			}
		}
		link := `<link rel="stylesheet" href="` + parse.EscapeAttr(href) + `">`
		nodes = append(nodes, &ir.Hoist{Set: render.StylesKey, Content: strconv.Quote(link)})
	}

	for _, s := range res.ClientScripts {
		content, err := scriptContent(s, true)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &ir.Hoist{Set: render.ScriptsKey, Content: content})
	}
	for _, s := range res.BlockingScripts {
		content, err := scriptContent(s, false)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &ir.Hoist{Set: render.HeadScriptsKey, Content: content})
	}
	return nodes, nil
}

// scriptContent returns the expression rendering a hoisted script. Scripts
// with pass:data are bridged so their data is serialized at render time.
// Every bridged instance takes a fresh nextPassDataId, so the scripts set
// keeps one copy per component instance even when the data is equal.
func scriptContent(s parse.ScriptEntry, module bool) (string, error) {
	attrs := s.Attrs
	if module && !hasTypeAttr(attrs) {
		attrs = strings.TrimSpace(`type="module" ` + attrs)
	}
	if s.PassDataExpr == "" {
		open := "<script"
		if attrs != "" {
			open += " " + attrs
		}
		return strconv.Quote(open + ">" + s.Content + "</script>"), nil
	}
	data, err := ir.PassDataExpr("script", s.PassDataExpr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s(), %s, %s, %s)",
		script.BridgeFunc, render.NextPassDataIDKey, strconv.Quote(attrs), strconv.Quote(s.Content), data), nil
}

func hasTypeAttr(attrs string) bool {
	return attrs == "type" || strings.HasPrefix(attrs, "type=") || strings.Contains(attrs, " type=")
}

// assemble lays out the module: imports, getStaticPaths, then the render
// function running the rest of the build script before the emitted body.
func assemble(a *script.Analysis, body string) string {
	var b strings.Builder
	for _, imp := range a.Imports {
		b.WriteString(imp.Source)
		b.WriteByte('\n')
	}
	if a.GetStaticPaths != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(a.GetStaticPaths)
		b.WriteByte('\n')
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString("export default function render() {\n")
	if a.Remainder != "" {
		b.WriteString(script.Indent(a.Remainder, "  "))
		b.WriteByte('\n')
	}
	b.WriteString("  let " + OutVar + " = \"\"\n")
	b.WriteString(body)
	b.WriteString("  return " + OutVar + "\n}\n")
	return b.String()
}
