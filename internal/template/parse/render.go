package parse

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have children or a closing tag.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"keygen": true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// rawTextElements hold text that the HTML parser does not unescape.
var rawTextElements = map[string]bool{
	"script":    true,
	"style":     true,
	"xmp":       true,
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"noscript":  true,
	"plaintext": true,
}

// IsVoid reports whether tag is a void element.
func IsVoid(tag string) bool { return voidElements[tag] }

// IsRawText reports whether tag holds unescaped raw text.
func IsRawText(tag string) bool { return rawTextElements[tag] }

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
)

// EscapeText escapes text node content. Only the characters that would change
// the document structure are touched, so authored markup survives unchanged.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// EscapeAttr escapes a double-quoted attribute value.
func EscapeAttr(s string) string { return attrEscaper.Replace(s) }

// AttrName returns the source spelling of an attribute key.
func AttrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

// FormatAttrs serializes attributes as ` key="value"` pairs. Empty values are
// written bare.
func FormatAttrs(attrs []html.Attribute) string {
	var b strings.Builder
	for _, a := range attrs {
		b.WriteByte(' ')
		writeAttr(&b, a)
	}
	return b.String()
}

func writeAttr(b *strings.Builder, a html.Attribute) {
	b.WriteString(AttrName(a))
	if a.Val == "" {
		return
	}
	b.WriteString(`="`)
	b.WriteString(EscapeAttr(a.Val))
	b.WriteByte('"')
}

// Render serializes n and its subtree.
func Render(n *html.Node) string {
	var b strings.Builder
	render(&b, n)
	return b.String()
}

func render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c)
		}
	case html.DoctypeNode:
		b.WriteString("<!DOCTYPE ")
		b.WriteString(n.Data)
		b.WriteByte('>')
	case html.CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->")
	case html.TextNode:
		if n.Parent != nil && n.Parent.Type == html.ElementNode && IsRawText(n.Parent.Data) {
			b.WriteString(n.Data)
			return
		}
		b.WriteString(EscapeText(n.Data))
	case html.ElementNode:
		b.WriteByte('<')
		b.WriteString(n.Data)
		b.WriteString(FormatAttrs(n.Attr))
		b.WriteByte('>')
		if IsVoid(n.Data) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteByte('>')
	}
}
