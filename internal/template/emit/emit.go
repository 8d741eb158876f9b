// Package emit renders IR into module-language source.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/recera/lumen/internal/script"
	"github.com/recera/lumen/internal/template/ir"
	"github.com/recera/lumen/pkg/render"
)

// Emit renders nodes as statements appending to outVar.
func Emit(nodes []ir.Node, outVar string) string {
	return EmitIndented(nodes, outVar, 0)
}

// EmitIndented is Emit with every statement indented depth levels.
func EmitIndented(nodes []ir.Node, outVar string, depth int) string {
	w := &writer{depth: depth}
	w.nodes(nodes, outVar)
	return w.b.String()
}

type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	w.b.WriteString(strings.Repeat("  ", w.depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) block(nodes []ir.Node, out string) {
	w.depth++
	w.nodes(nodes, out)
	w.depth--
}

func (w *writer) nodes(nodes []ir.Node, out string) {
	for _, n := range nodes {
		w.node(n, out)
	}
}

func (w *writer) node(n ir.Node, out string) {
	switch n := n.(type) {
	case *ir.Append:
		content := n.Content
		if n.Literal {
			if content == "" {
				return
			}
			content = strconv.Quote(content)
		}
		w.line("%s += %s", target(n.OutVar, out), content)

	case *ir.For:
		w.line("for (const %s of %s) {", n.Item, n.Items)
		w.block(n.Body, out)
		w.line("}")

	case *ir.If:
		w.line("if (%s) {", n.Condition)
		w.block(n.Body, out)
		for _, br := range n.ElseIf {
			w.line("} else if (%s) {", br.Condition)
			w.block(br.Body, out)
		}
		if n.Else != nil {
			w.line("} else {")
			w.block(n.Else, out)
		}
		w.line("}")

	case *ir.Slot:
		w.line("%s += %s", target(n.OutVar, out), ir.SlotExpr(n.Name, n.Fallback))

	case *ir.SlotVar:
		w.line("let %s = \"\"", n.VarName)

	case *ir.Component:
		slots := make([]string, 0, len(n.Slots))
		for _, s := range n.Slots {
			w.nodes(s.Body, s.Var)
			slots = append(slots, strconv.Quote(s.Name)+": "+s.Var)
		}
		w.line("%s += %s(%s, %s, {%s}, %s)",
			target(n.OutVar, out), render.RenderComponentKey, n.BaseName, n.Props,
			strings.Join(slots, ", "), contextObject())

	case *ir.ScriptPassData:
		data := script.JSDataFunc + "(" + n.Expr + ")"
		if n.IsModule {
			w.line("%s += %s", target(n.OutVar, out), data)
		} else {
			w.line("%s += %s + %s", target(n.OutVar, out), strconv.Quote("{\n"), data)
		}

	case *ir.StylePassData:
		w.line("%s += %s(%s)", target(n.OutVar, out), script.CSSVarsFunc, n.Expr)

	case *ir.Hoist:
		w.line("%s(%s, %s)", script.HoistFunc, n.Set, n.Content)

	default:
		panic(fmt.Sprintf("emit: unknown IR node %T", n))
	}
}

// contextObject builds the context passed to child components from the one
// shared list of context bindings.
func contextObject() string {
	pairs := make([]string, 0, len(render.ContextBindings))
	for _, b := range render.ContextBindings {
		pairs = append(pairs, strconv.Quote(b.Key)+": "+b.Local)
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func target(own, out string) string {
	if own != "" {
		return own
	}
	return out
}
