// Package parse classifies the script blocks of a template, removes or
// rewrites them in the DOM, and serializes what remains.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/recera/lumen/internal/template/directive"
)

// BuildScript is the merged content of all build-scoped script blocks.
type BuildScript struct {
	Content string
}

// ScriptEntry is one classified script element.
type ScriptEntry struct {
	// Attrs are the remaining attributes, normalized to `key="value"` pairs.
	Attrs string
	// Content is the literal script body.
	Content string
	// PassDataExpr is the raw pass:data value, if any. It is validated later.
	PassDataExpr string
	// InjectInHead marks scripts hoisted into the document head.
	InjectInHead bool
}

// Result is the parser output for one template file.
type Result struct {
	BuildScript     *BuildScript
	ClientScripts   []ScriptEntry
	InlineScripts   []ScriptEntry
	BlockingScripts []ScriptEntry
	Template        string
	// Document is true when the input was a full <html> document.
	Document bool
}

var htmlTagPattern = regexp.MustCompile(`(?i)<html[\s>]`)

// IsDocument reports whether src should be parsed as a full document.
func IsDocument(src string) bool {
	return htmlTagPattern.MatchString(src)
}

// Parse classifies every script in src and returns the remaining template.
func Parse(src string, table *directive.Table) (*Result, error) {
	if table == nil {
		table = directive.Default()
	}
	src = strings.TrimPrefix(src, "\uFEFF")
	src = expandSelfClosing(src)

	res := &Result{Document: IsDocument(src)}
	doc, err := parseDocument(src, res.Document)
	if err != nil {
		return nil, err
	}

	var build []string
	for _, n := range collectScripts(doc) {
		head := inHead(n)
		switch {
		case hasAttr(n, table.Build):
			build = append(build, strings.TrimSpace(textContent(n)))
			detach(n, head)
		case hasAttr(n, table.Inline):
			res.InlineScripts = append(res.InlineScripts, newEntry(n, table, true))
			removeAttr(n, table.Inline)
		case hasAttr(n, table.Blocking):
			entry := newEntry(n, table, head)
			entry.InjectInHead = true
			res.BlockingScripts = append(res.BlockingScripts, entry)
			detach(n, head)
		case hasAttr(n, "src"):
			if !isRemote(attrValue(n, "src")) && !hasAttr(n, "type") {
				n.Attr = append(n.Attr, html.Attribute{Key: "type", Val: "module"})
				removeAttr(n, "defer")
			}
		case head && len(n.Attr) > 0:
		default:
			res.ClientScripts = append(res.ClientScripts, newEntry(n, table, head))
			detach(n, head)
		}
	}
	if len(build) > 0 {
		res.BuildScript = &BuildScript{Content: strings.Join(build, "\n")}
	}

	if res.Document {
		res.Template = strings.TrimSpace(Render(doc))
	} else {
		res.Template = strings.TrimSpace(renderChildren(findElement(doc, "body")))
	}
	return res, nil
}

// Nodes parses a serialized template and returns the top-level nodes to lower:
// the document's children for full documents, the body's children otherwise.
func Nodes(template string) ([]*html.Node, error) {
	document := IsDocument(template)
	doc, err := parseDocument(template, document)
	if err != nil {
		return nil, err
	}
	parent := doc
	if !document {
		parent = findElement(doc, "body")
	}
	var nodes []*html.Node
	if parent == nil {
		return nodes, nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes, nil
}

// detach removes a classified script. In the head it also removes the
// whitespace text that followed it, which the parser moves into the head
// when the script precedes <html> in the source.
func detach(n *html.Node, head bool) {
	if next := n.NextSibling; head && next != nil && next.Type == html.TextNode && strings.TrimSpace(next.Data) == "" {
		n.Parent.RemoveChild(next)
	}
	n.Parent.RemoveChild(n)
}

func parseDocument(src string, document bool) (*html.Node, error) {
	if !document {
		src = "<html><head></head><body>" + src + "</body></html>"
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template html: %w", err)
	}
	return doc, nil
}

func newEntry(n *html.Node, table *directive.Table, keepPassData bool) ScriptEntry {
	entry := ScriptEntry{Content: textContent(n)}
	var attrs []html.Attribute
	for _, a := range n.Attr {
		name := AttrName(a)
		if table.Is(name, directive.PassData) {
			entry.PassDataExpr = a.Val
			if keepPassData {
				attrs = append(attrs, a)
			}
			continue
		}
		if table.IsMarker(name) {
			continue
		}
		attrs = append(attrs, a)
	}
	entry.Attrs = strings.TrimSpace(FormatAttrs(attrs))
	return entry
}

// collectScripts returns every script element in document order, skipping
// svg and math subtrees.
func collectScripts(doc *html.Node) []*html.Node {
	var scripts []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Namespace != "" {
				return
			}
			if n.Data == "script" {
				scripts = append(scripts, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scripts
}

func renderChildren(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Render(c))
	}
	return b.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func inHead(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "head" {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(AttrName(a), key) {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(AttrName(a), key) {
			return a.Val
		}
	}
	return ""
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(AttrName(a), key) {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// expandSelfClosing rewrites `<foo-bar ... />` as `<foo-bar ...></foo-bar>`.
// The HTML parser ignores the self-closing flag on non-void elements and would
// otherwise nest every following sibling inside the custom element.
func expandSelfClosing(src string) string {
	var b strings.Builder
	i := 0
	for i < len(src) {
		lt := strings.IndexByte(src[i:], '<')
		if lt < 0 {
			b.WriteString(src[i:])
			break
		}
		lt += i
		b.WriteString(src[i:lt])

		j := lt + 1
		for j < len(src) && isTagChar(src[j]) {
			j++
		}
		name := src[lt+1 : j]
		if name == "" || !isLetter(name[0]) || !strings.Contains(name, "-") {
			b.WriteByte('<')
			i = lt + 1
			continue
		}

		end, slash := scanTagEnd(src, j)
		if end < 0 {
			b.WriteString(src[lt:])
			break
		}
		if slash >= 0 {
			b.WriteString(strings.TrimRight(src[lt:slash], " \t\r\n"))
			b.WriteString("></")
			b.WriteString(name)
			b.WriteByte('>')
		} else {
			b.WriteString(src[lt : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// scanTagEnd finds the `>` closing a start tag whose name ends at pos. It also
// returns the index of a trailing `/` when the tag is self-closing, or -1.
func scanTagEnd(src string, pos int) (int, int) {
	var quote byte
	for k := pos; k < len(src); k++ {
		c := src[k]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			slash := -1
			for m := k - 1; m >= pos; m-- {
				if src[m] == ' ' || src[m] == '\t' || src[m] == '\r' || src[m] == '\n' {
					continue
				}
				if src[m] == '/' {
					slash = m
				}
				break
			}
			return k, slash
		}
	}
	return -1, -1
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTagChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.'
}
