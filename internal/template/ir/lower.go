package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/recera/lumen/internal/script"
	"github.com/recera/lumen/internal/template/directive"
	"github.com/recera/lumen/internal/template/parse"
	"github.com/recera/lumen/internal/template/scan"
)

// Names the generated code relies on.
const (
	// PropsVar is the binding holding the component's props.
	PropsVar = "props"
	// SlotsVar is the binding holding caller-provided slot content.
	SlotsVar = "slots"
	// SlotVarPrefix prefixes slot accumulator names.
	SlotVarPrefix = "__slot_"
)

var (
	eachPattern  = regexp.MustCompile(`^([A-Za-z_$][\w$]*)\s+in\s+([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	attrMode     = scan.Options{AttributeMode: true}
)

// Options configures lowering.
type Options struct {
	Table    *directive.Table
	Resolver PathResolver
}

// Lowerer lowers DOM nodes into IR. Slot accumulator names are unique across
// every call on the same Lowerer.
type Lowerer struct {
	table    *directive.Table
	resolver PathResolver
	slots    int
}

// NewLowerer returns a Lowerer for one compilation unit.
func NewLowerer(opts Options) *Lowerer {
	table := opts.Table
	if table == nil {
		table = directive.Default()
	}
	return &Lowerer{table: table, resolver: opts.Resolver}
}

// Lower lowers a sibling list of DOM nodes.
func Lower(nodes []*html.Node, opts Options) ([]Node, error) {
	return NewLowerer(opts).Lower(nodes)
}

// Lower lowers a sibling list of DOM nodes.
func (l *Lowerer) Lower(nodes []*html.Node) ([]Node, error) {
	return l.lowerList(nodes)
}

func (l *Lowerer) lowerList(nodes []*html.Node) ([]Node, error) {
	var out []Node
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.Type == html.ElementNode {
			if l.has(n, directive.If) {
				chain, consumed, err := l.lowerChain(nodes[i:])
				if err != nil {
					return nil, err
				}
				out = append(out, chain)
				i += consumed - 1
				continue
			}
			for _, d := range []string{directive.ElseIf, directive.Else} {
				if l.has(n, d) {
					return nil, &DirectiveError{Directive: d, Tag: n.Data, Reason: "must follow an element with if or else-if"}
				}
			}
		}
		lowered, err := l.lowerNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}
	return mergeLiterals(out), nil
}

// lowerChain consumes an if element and the else-if/else siblings that follow
// it, skipping whitespace-only text between them. It returns the number of
// siblings consumed.
func (l *Lowerer) lowerChain(nodes []*html.Node) (*If, int, error) {
	first := nodes[0]
	cond, err := l.condition(first, directive.If)
	if err != nil {
		return nil, 0, err
	}
	body, err := l.lowerNode(first)
	if err != nil {
		return nil, 0, err
	}
	chain := &If{Condition: cond, Body: body}

	consumed := 1
	for k := 1; k < len(nodes); k++ {
		n := nodes[k]
		if isBlank(n) {
			continue
		}
		if n.Type != html.ElementNode {
			break
		}
		if l.has(n, directive.ElseIf) {
			cond, err := l.condition(n, directive.ElseIf)
			if err != nil {
				return nil, 0, err
			}
			body, err := l.lowerNode(n)
			if err != nil {
				return nil, 0, err
			}
			chain.ElseIf = append(chain.ElseIf, Branch{Condition: cond, Body: body})
			consumed = k + 1
			continue
		}
		if l.has(n, directive.Else) {
			body, err := l.lowerNode(n)
			if err != nil {
				return nil, 0, err
			}
			if body == nil {
				body = []Node{}
			}
			chain.Else = body
			consumed = k + 1
		}
		break
	}
	return chain, consumed, nil
}

func (l *Lowerer) condition(n *html.Node, name string) (string, error) {
	val, _ := l.value(n, name)
	expr, ok := scan.Braced(val)
	if !ok || expr == "" {
		return "", &DirectiveError{Directive: name, Tag: n.Data, Reason: reasonBraced}
	}
	return expr, nil
}

func (l *Lowerer) lowerNode(n *html.Node) ([]Node, error) {
	switch n.Type {
	case html.TextNode:
		return lowerText(n), nil
	case html.CommentNode:
		return literal("<!--" + n.Data + "-->"), nil
	case html.DoctypeNode:
		return literal("<!DOCTYPE " + n.Data + ">"), nil
	case html.ElementNode:
		if l.table.Raw != "" && hasAttr(n, l.table.Raw) {
			removeAttr(n, l.table.Raw)
			return literal(parse.Render(n)), nil
		}
		if n.Data == "slot" {
			return l.lowerSlot(n), nil
		}
		if binding, ok := l.table.ComponentBinding(n.Data); ok {
			return l.lowerComponent(n, binding)
		}
		return l.lowerElement(n)
	}
	return nil, nil
}

func lowerText(n *html.Node) []Node {
	if p := n.Parent; p != nil && p.Type == html.ElementNode && parse.IsRawText(p.Data) {
		return literal(n.Data)
	}
	if !scan.HasInterpolation(n.Data, scan.Options{}) {
		return literal(parse.EscapeText(n.Data))
	}
	return []Node{&Append{Content: scan.Compile(n.Data, scan.Options{}, parse.EscapeText)}}
}

func (l *Lowerer) lowerElement(n *html.Node) ([]Node, error) {
	var (
		loop        *For
		passData    string
		hasPassData bool
		err         error
	)
	body := literal("<" + n.Data)
	for _, a := range n.Attr {
		name := parse.AttrName(a)
		if d, ok := l.table.Directive(name); ok {
			switch d {
			case directive.If, directive.ElseIf, directive.Else:
				continue
			case directive.Each:
				if loop, err = l.each(n, a.Val); err != nil {
					return nil, err
				}
				continue
			case directive.PassData:
				if n.Data != "script" && n.Data != "style" {
					return nil, &DirectiveError{Directive: d, Tag: n.Data, Reason: "only script and style elements accept pass:data"}
				}
				if passData, err = l.passData(n, a.Val); err != nil {
					return nil, err
				}
				hasPassData = true
				continue
			}
		}
		body = append(body, l.attribute(name, a.Val)...)
	}
	body = append(body, literal(">")...)

	if !parse.IsVoid(n.Data) {
		var module bool
		if hasPassData {
			if n.Data == "style" {
				body = append(body, &StylePassData{Expr: passData})
			} else {
				t, _ := attrValue(n, "type")
				module = strings.EqualFold(t, "module")
				body = append(body, &ScriptPassData{Expr: passData, IsModule: module})
			}
		}
		children, err := l.lowerList(childNodes(n))
		if err != nil {
			return nil, err
		}
		body = append(body, children...)
		if hasPassData && n.Data == "script" && !module {
			body = append(body, literal("\n}")...)
		}
		body = append(body, literal("</"+n.Data+">")...)
	}

	body = mergeLiterals(body)
	if loop != nil {
		loop.Body = body
		return []Node{loop}, nil
	}
	return body, nil
}

func (l *Lowerer) attribute(name, val string) []Node {
	if val == "" {
		return literal(" " + name)
	}
	if l.table.Classify(name) == directive.Passthrough || !scan.HasInterpolation(val, attrMode) {
		text := val
		if l.table.Classify(name) != directive.Passthrough {
			text = l.resolve(literalText(val))
		}
		return literal(" " + name + `="` + parse.EscapeAttr(text) + `"`)
	}
	nodes := literal(" " + name + `="`)
	nodes = append(nodes, &Append{Content: scan.Compile(val, attrMode, parse.EscapeAttr)})
	return append(nodes, literal(`"`)...)
}

func (l *Lowerer) resolve(val string) string {
	if l.resolver == nil {
		return val
	}
	if r, ok := l.resolver.Resolve(val); ok {
		return r
	}
	return val
}

func (l *Lowerer) each(n *html.Node, val string) (*For, error) {
	expr, ok := scan.Braced(val)
	if !ok {
		return nil, &DirectiveError{Directive: directive.Each, Tag: n.Data, Reason: reasonBraced}
	}
	m := eachPattern.FindStringSubmatch(expr)
	if m == nil {
		return nil, &EachSyntaxError{Tag: n.Data, Expr: expr}
	}
	return &For{Item: m[1], Items: m[2]}, nil
}

func (l *Lowerer) passData(n *html.Node, val string) (string, error) {
	return PassDataExpr(n.Data, val)
}

// PassDataExpr validates a pass:data value on tag and returns its object
// expression with shorthand keys expanded.
func PassDataExpr(tag, val string) (string, error) {
	expr, ok := scan.Braced(val)
	if !ok || expr == "" {
		return "", &DirectiveError{Directive: directive.PassData, Tag: tag, Reason: reasonBraced}
	}
	return normalizeObject(expr), nil
}

func (l *Lowerer) lowerSlot(n *html.Node) []Node {
	name := "default"
	if v, ok := attrValue(n, "name"); ok && v != "" {
		name = v
	}
	return []Node{&Slot{Name: name, Fallback: l.fallback(childNodes(n))}}
}

// fallback compiles slot fallback content into a single expression. Nested
// slots become `slots[name] ?? fallback` expressions.
func (l *Lowerer) fallback(nodes []*html.Node) string {
	var c concat
	for _, n := range nodes {
		switch n.Type {
		case html.TextNode:
			if p := n.Parent; p != nil && p.Type == html.ElementNode && parse.IsRawText(p.Data) {
				c.text(n.Data)
			} else if scan.HasInterpolation(n.Data, scan.Options{}) {
				c.expr(scan.Compile(n.Data, scan.Options{}, parse.EscapeText))
			} else {
				c.text(parse.EscapeText(n.Data))
			}
		case html.CommentNode:
			c.text("<!--" + n.Data + "-->")
		case html.ElementNode:
			if n.Data == "slot" {
				name := "default"
				if v, ok := attrValue(n, "name"); ok && v != "" {
					name = v
				}
				c.expr("(" + SlotExpr(name, l.fallback(childNodes(n))) + ")")
				continue
			}
			c.text("<" + n.Data + parse.FormatAttrs(n.Attr) + ">")
			if parse.IsVoid(n.Data) {
				continue
			}
			if inner := l.fallback(childNodes(n)); inner != `""` {
				c.expr(inner)
			}
			c.text("</" + n.Data + ">")
		}
	}
	return c.String()
}

// SlotExpr returns the expression selecting slot name or its fallback.
func SlotExpr(name, fallback string) string {
	return SlotsVar + "[" + strconv.Quote(name) + "] ?? (" + fallback + ")"
}

func (l *Lowerer) lowerComponent(n *html.Node, binding string) ([]Node, error) {
	var (
		loop  *For
		props propsBuilder
		err   error
	)
	for _, a := range n.Attr {
		name := parse.AttrName(a)
		if d, ok := l.table.Directive(name); ok {
			switch d {
			case directive.If, directive.ElseIf, directive.Else:
				continue
			case directive.Each:
				if loop, err = l.each(n, a.Val); err != nil {
					return nil, err
				}
				continue
			case directive.Props:
				if a.Val == "" {
					props.spread(PropsVar)
					continue
				}
				expr, ok := scan.Braced(a.Val)
				if !ok || expr == "" {
					return nil, &DirectiveError{Directive: d, Tag: n.Data, Reason: reasonBraced}
				}
				props.spread(expr)
				continue
			case directive.PassData:
				return nil, &DirectiveError{Directive: d, Tag: n.Data, Reason: "only script and style elements accept pass:data"}
			}
		}
		if l.table.Is(name, directive.Slot) {
			continue
		}
		props.set(directive.CamelCase(name), l.propValue(a.Val))
	}

	slots, err := l.lowerSlots(n)
	if err != nil {
		return nil, err
	}
	call := &Component{BaseName: binding, Props: props.String(), Slots: slots}
	if loop != nil {
		loop.Body = []Node{call}
		return []Node{loop}, nil
	}
	return []Node{call}, nil
}

// propValue keeps a fully braced value as a raw expression and compiles
// anything else into a string.
func (l *Lowerer) propValue(val string) string {
	if expr, ok := singleInterpolation(val); ok {
		return expr
	}
	if !scan.HasInterpolation(val, attrMode) {
		return strconv.Quote(l.resolve(literalText(val)))
	}
	return scan.Compile(val, attrMode, nil)
}

// singleInterpolation returns the expression of an attribute value made of one
// interpolation and optional surrounding whitespace. Escaped `{{ }}` pairs are
// literals, never expressions.
func singleInterpolation(val string) (string, bool) {
	expr, found := "", false
	for _, seg := range scan.Tokenize(val, attrMode) {
		switch {
		case seg.Kind == scan.Interpolation && !found && seg.Expression != "":
			expr, found = seg.Expression, true
		case seg.Kind == scan.Literal && !seg.Escaped && strings.TrimSpace(seg.Text) == "":
		default:
			return "", false
		}
	}
	return expr, found
}

// lowerSlots partitions a component's children by their slot attribute and
// lowers each group into its own accumulator.
func (l *Lowerer) lowerSlots(n *html.Node) ([]SlotContent, error) {
	groups := make(map[string][]*html.Node)
	var order []string
	for _, c := range childNodes(n) {
		name := "default"
		if c.Type == html.ElementNode {
			for _, a := range c.Attr {
				if l.table.Is(parse.AttrName(a), directive.Slot) {
					name = a.Val
					removeAttr(c, parse.AttrName(a))
					break
				}
			}
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], c)
	}

	var slots []SlotContent
	for _, name := range order {
		nodes := groups[name]
		if allBlank(nodes) {
			continue
		}
		v := l.nextSlotVar()
		body, err := l.lowerList(nodes)
		if err != nil {
			return nil, err
		}
		for _, node := range body {
			if s, ok := node.(*Slot); ok {
				s.OutVar = v
			}
		}
		slots = append(slots, SlotContent{
			Name: name,
			Var:  v,
			Body: append([]Node{&SlotVar{VarName: v}}, body...),
		})
	}
	return slots, nil
}

func (l *Lowerer) nextSlotVar() string {
	v := fmt.Sprintf("%s%d", SlotVarPrefix, l.slots)
	l.slots++
	return v
}

func (l *Lowerer) has(n *html.Node, name string) bool {
	_, ok := l.value(n, name)
	return ok
}

func (l *Lowerer) value(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if l.table.Is(parse.AttrName(a), name) {
			return a.Val, true
		}
	}
	return "", false
}

// propsBuilder builds a props object expression. Spreads and explicit keys
// are merged in attribute order.
type propsBuilder struct {
	groups  []string
	entries []string
	spreads bool
}

func (b *propsBuilder) set(key, value string) {
	b.entries = append(b.entries, strconv.Quote(key)+": "+value)
}

func (b *propsBuilder) spread(expr string) {
	b.flush()
	b.groups = append(b.groups, expr)
	b.spreads = true
}

func (b *propsBuilder) flush() {
	if len(b.entries) > 0 {
		b.groups = append(b.groups, "{"+strings.Join(b.entries, ", ")+"}")
		b.entries = nil
	}
}

func (b *propsBuilder) String() string {
	b.flush()
	if !b.spreads {
		if len(b.groups) == 0 {
			return "{}"
		}
		return b.groups[0]
	}
	return script.MergeFunc + "(" + strings.Join(b.groups, ", ") + ")"
}

// concat joins literal text and expressions into one concatenation.
type concat struct {
	parts []string
	lit   strings.Builder
}

func (c *concat) text(s string) { c.lit.WriteString(s) }

func (c *concat) expr(e string) {
	c.flush()
	c.parts = append(c.parts, e)
}

func (c *concat) flush() {
	if c.lit.Len() > 0 {
		c.parts = append(c.parts, strconv.Quote(c.lit.String()))
		c.lit.Reset()
	}
}

func (c *concat) String() string {
	c.flush()
	if len(c.parts) == 0 {
		return `""`
	}
	return strings.Join(c.parts, " + ")
}

// normalizeObject expands shorthand keys in an object literal so that
// `{a, b: 1}` becomes `{"a": a, b: 1}`.
func normalizeObject(src string) string {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "{") || matchClose(s, 0) != len(s)-1 {
		return s
	}
	var entries []string
	for _, e := range splitTopLevel(s[1:len(s)-1], ',') {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case identPattern.MatchString(e):
			entries = append(entries, strconv.Quote(e)+": "+e)
		default:
			entries = append(entries, e)
		}
	}
	return "{" + strings.Join(entries, ", ") + "}"
}

// matchClose returns the index of the bracket closing s[open], or -1.
func matchClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'', '`':
			i = skipQuoted(s, i)
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' || c == '\'' || c == '`':
			i = skipQuoted(s, i)
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// skipQuoted returns the index of the quote closing the string at i.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return len(s)
}

func literal(s string) []Node {
	return []Node{&Append{Content: s, Literal: true}}
}

// literalText returns the text of a value without interpolations, with
// escaped `{{ }}` pairs unescaped.
func literalText(val string) string {
	var b strings.Builder
	for _, seg := range scan.Tokenize(val, attrMode) {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func mergeLiterals(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if a, ok := n.(*Append); ok && a.Literal && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*Append); ok && prev.Literal && prev.OutVar == a.OutVar {
				out[len(out)-1] = &Append{Content: prev.Content + a.Content, Literal: true, OutVar: a.OutVar}
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

func childNodes(n *html.Node) []*html.Node {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes
}

func isBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(n.Data) == ""
}

func allBlank(nodes []*html.Node) bool {
	for _, n := range nodes {
		if !isBlank(n) {
			return false
		}
	}
	return true
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrValue(n, key)
	return ok
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(parse.AttrName(a), key) {
			return a.Val, true
		}
	}
	return "", false
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(parse.AttrName(a), key) {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}
