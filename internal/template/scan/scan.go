// Package scan splits template text and attribute values into literal and
// `{ expression }` interpolation segments.
package scan

import (
	"strconv"
	"strings"
)

// TextFunc is the helper every compiled interpolation is wrapped in. The
// interpreter binds a function of this name that renders a value as text.
const TextFunc = "__text"

// Kind identifies a segment type.
type Kind int

const (
	// Literal is plain text.
	Literal Kind = iota
	// Interpolation is a `{ expression }` span.
	Interpolation
)

func (k Kind) String() string {
	if k == Interpolation {
		return "interpolation"
	}
	return "literal"
}

// Segment is one piece of scanned text.
type Segment struct {
	Kind Kind
	// Text is the literal value. For an escaped `{{ x }}` pair it is `{ x }`.
	Text string
	// Expression is the trimmed source of an interpolation.
	Expression string
	// Start is the byte offset of the segment in the scanned text.
	Start int
	// Escaped marks a literal produced from a `{{ ... }}` pair in attribute mode.
	Escaped bool
}

// Options configures scanning.
type Options struct {
	// AttributeMode enables `{{ literal }}` escapes.
	AttributeMode bool
}

// Scanner yields segments lazily. It is finite and can be restarted with Reset.
type Scanner struct {
	src  string
	opts Options
	pos  int
}

// NewScanner returns a scanner positioned at the start of text.
func NewScanner(text string, opts Options) *Scanner {
	return &Scanner{src: text, opts: opts}
}

// Reset rewinds the scanner to the beginning of its input.
func (s *Scanner) Reset() {
	s.pos = 0
}

// Next returns the next segment, or false once the input is exhausted.
func (s *Scanner) Next() (Segment, bool) {
	if s.pos >= len(s.src) {
		return Segment{}, false
	}
	start := s.pos
	for i := s.pos; i < len(s.src); i++ {
		if s.src[i] != '{' {
			continue
		}
		if s.opts.AttributeMode && strings.HasPrefix(s.src[i:], "{{") {
			end := strings.Index(s.src[i+2:], "}}")
			if end < 0 {
				break
			}
			if i > start {
				s.pos = i
				return Segment{Kind: Literal, Text: s.src[start:i], Start: start}, true
			}
			inner := s.src[i+2 : i+2+end]
			s.pos = i + 2 + end + 2
			return Segment{Kind: Literal, Text: "{" + inner + "}", Start: i, Escaped: true}, true
		}
		close := matchBrace(s.src, i)
		if close < 0 {
			break
		}
		if i > start {
			s.pos = i
			return Segment{Kind: Literal, Text: s.src[start:i], Start: start}, true
		}
		s.pos = close + 1
		return Segment{
			Kind:       Interpolation,
			Text:       s.src[i : close+1],
			Expression: strings.TrimSpace(s.src[i+1 : close]),
			Start:      i,
		}, true
	}
	s.pos = len(s.src)
	return Segment{Kind: Literal, Text: s.src[start:], Start: start}, true
}

// Tokenize scans text into segments.
func Tokenize(text string, opts Options) []Segment {
	var segs []Segment
	s := NewScanner(text, opts)
	for {
		seg, ok := s.Next()
		if !ok {
			return segs
		}
		segs = append(segs, seg)
	}
}

// Escape returns the source form of a segment.
func Escape(seg Segment) string {
	if seg.Kind == Literal && seg.Escaped {
		return "{" + seg.Text + "}"
	}
	return seg.Text
}

// Join reconstructs the scanned source from its segments.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(Escape(seg))
	}
	return b.String()
}

// HasInterpolation reports whether text contains at least one interpolation.
func HasInterpolation(text string, opts Options) bool {
	s := NewScanner(text, opts)
	for {
		seg, ok := s.Next()
		if !ok {
			return false
		}
		if seg.Kind == Interpolation {
			return true
		}
	}
}

// Braced reports whether value is exactly one `{ expression }` span (surrounding
// whitespace allowed) and returns the inner expression.
func Braced(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	if matchBrace(trimmed, 0) != len(trimmed)-1 {
		return "", false
	}
	return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
}

// Compile turns text into an expression that concatenates quoted literals and
// TextFunc calls. escape, when non-nil, is applied to literal text.
func Compile(text string, opts Options, escape func(string) string) string {
	var parts []string
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, strconv.Quote(lit.String()))
			lit.Reset()
		}
	}
	s := NewScanner(text, opts)
	for {
		seg, ok := s.Next()
		if !ok {
			break
		}
		if seg.Kind == Literal {
			if escape != nil {
				lit.WriteString(escape(seg.Text))
			} else {
				lit.WriteString(seg.Text)
			}
			continue
		}
		flush()
		if seg.Expression == "" {
			continue
		}
		parts = append(parts, TextFunc+"("+seg.Expression+")")
	}
	flush()
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, " + ")
}

// matchBrace returns the index of the `}` closing the `{` at open, or -1.
// Braces inside quoted strings do not count.
func matchBrace(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
