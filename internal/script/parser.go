package script

import (
	"fmt"
	"strings"

	exprparser "github.com/expr-lang/expr/parser"
)

// Parse parses module source into statements. Every expression is checked
// with the expr-lang parser, so a returned File is syntactically complete.
func Parse(src string) (*File, error) {
	p := &parser{src: src, file: &File{}}
	body, err := p.stmts(false)
	if err != nil {
		return nil, err
	}
	p.file.Body = body
	return p.file, nil
}

type parser struct {
	src  string
	pos  int
	file *File
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return newSyntaxError(p.src, pos, fmt.Sprintf(format, args...))
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

// space skips blanks and comments, and newlines too when newlines is set.
// It reports whether a line break was crossed.
func (p *parser) space(newlines bool) bool {
	crossed := false
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '\n':
			if !newlines {
				return crossed
			}
			crossed = true
			p.pos++
		case c == '/' && p.peekAt(1) == '/':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.peekAt(1) == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return crossed
			}
			if strings.Contains(p.src[p.pos:p.pos+end+2], "\n") {
				crossed = true
			}
			p.pos += end + 4
		default:
			return crossed
		}
	}
	return crossed
}

// word returns the identifier at the cursor without consuming it.
func (p *parser) word() string {
	i := p.pos
	for i < len(p.src) && isIdentChar(p.src[i]) {
		i++
	}
	return p.src[p.pos:i]
}

func (p *parser) keyword(w string) bool {
	if p.word() != w {
		return false
	}
	p.pos += len(w)
	return true
}

func (p *parser) ident() (string, error) {
	w := p.word()
	if w == "" || isDigit(w[0]) {
		return "", p.errorf(p.pos, "expected identifier")
	}
	p.pos += len(w)
	return w, nil
}

func (p *parser) expect(c byte) error {
	p.space(true)
	if p.peek() != c {
		return p.errorf(p.pos, "expected %q", c)
	}
	p.pos++
	return nil
}

// end finishes a statement at `;`, a line break, a closing brace or the end of
// input. It returns the offset where the statement ends.
func (p *parser) end() (int, error) {
	last := p.pos
	if p.space(false) {
		return last, nil
	}
	switch p.peek() {
	case ';':
		p.pos++
		return p.pos, nil
	case '\n', '}', 0:
		return last, nil
	}
	return 0, p.errorf(p.pos, "unexpected %q", p.peek())
}

func (p *parser) stmts(block bool) ([]Stmt, error) {
	var out []Stmt
	for {
		p.space(true)
		switch {
		case p.eof():
			if block {
				return nil, p.errorf(p.pos, "unexpected end of input, expected }")
			}
			return out, nil
		case p.peek() == ';':
			p.pos++
			continue
		case p.peek() == '}':
			if !block {
				return nil, p.errorf(p.pos, "unexpected }")
			}
			p.pos++
			return out, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// body parses a braced block or a single statement.
func (p *parser) body() ([]Stmt, error) {
	p.space(true)
	if p.peek() == '{' {
		p.pos++
		return p.stmts(true)
	}
	s, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return []Stmt{s}, nil
}

func (p *parser) stmt() (Stmt, error) {
	start := p.pos
	switch w := p.word(); w {
	case "import":
		if c := p.peekAfter(len(w)); c != '(' && c != '.' {
			return p.importDecl(start)
		}
	case "export":
		p.pos += len(w)
		p.space(true)
		if p.keyword("default") {
			p.space(true)
			return p.funcDecl(start, true, true)
		}
		switch p.word() {
		case "function", "async":
			return p.funcDecl(start, true, false)
		case "const", "let", "var":
			return p.varDecl(start)
		}
		return nil, p.errorf(p.pos, "unsupported export")
	case "async", "function":
		return p.funcDecl(start, false, false)
	case "const", "let", "var":
		return p.varDecl(start)
	case "if":
		return p.ifStmt(start)
	case "for":
		return p.forOf(start)
	case "return":
		return p.returnStmt(start)
	case "":
		if p.peek() == '{' {
			p.pos++
			body, err := p.stmts(true)
			if err != nil {
				return nil, err
			}
			return &Block{span: span{start, p.pos}, Body: body}, nil
		}
	default:
		s, ok, err := p.assign(start, w)
		if ok || err != nil {
			return s, err
		}
	}

	x, err := p.expr(stopStatement)
	if err != nil {
		return nil, err
	}
	return &ExprStmt{span: span{start, p.pos}, X: x}, nil
}

// peekAfter returns the first significant byte after skipping n bytes.
func (p *parser) peekAfter(n int) byte {
	save := p.pos
	p.pos += n
	p.space(true)
	c := p.peek()
	p.pos = save
	return c
}

func (p *parser) importDecl(start int) (Stmt, error) {
	p.pos += len("import")
	p.space(true)
	imp := Import{Start: start}

	if q := p.peek(); q == '"' || q == '\'' {
		spec, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		imp.Specifier, imp.SideEffect = spec, true
	} else {
		if p.word() == "type" {
			save := p.pos
			p.pos += len("type")
			p.space(true)
			if w := p.word(); (w != "" && w != "from") || p.peek() == '{' || p.peek() == '*' {
				imp.TypeOnly = true
			} else {
				p.pos = save
			}
		}
		if err := p.importClause(&imp); err != nil {
			return nil, err
		}
		p.space(true)
		if !p.keyword("from") {
			return nil, p.errorf(p.pos, "expected from")
		}
		p.space(true)
		spec, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		imp.Specifier = spec
	}

	save := p.pos
	p.space(false)
	if p.keyword("with") || p.keyword("assert") {
		p.space(true)
		if p.peek() != '{' {
			return nil, p.errorf(p.pos, "expected import attributes")
		}
		if err := p.skipBraces(); err != nil {
			return nil, err
		}
		save = p.pos
	}
	p.pos = save

	end, err := p.end()
	if err != nil {
		return nil, err
	}
	if imp.TypeOnly {
		imp.Bindings = nil
	}
	imp.End = end
	imp.Source = p.src[start:end]
	return &ImportDecl{span: span{start, end}, Import: imp}, nil
}

func (p *parser) importClause(imp *Import) error {
	p.space(true)
	if c := p.peek(); c != '{' && c != '*' {
		name, err := p.ident()
		if err != nil {
			return err
		}
		imp.Bindings = append(imp.Bindings, Binding{Kind: DefaultBinding, Imported: "default", Local: name})
		p.space(true)
		if p.peek() != ',' {
			return nil
		}
		p.pos++
		p.space(true)
	}

	switch p.peek() {
	case '*':
		p.pos++
		p.space(true)
		if !p.keyword("as") {
			return p.errorf(p.pos, "expected as")
		}
		p.space(true)
		name, err := p.ident()
		if err != nil {
			return err
		}
		imp.Bindings = append(imp.Bindings, Binding{Kind: NamespaceBinding, Imported: "*", Local: name})
	case '{':
		p.pos++
		typed := 0
		for {
			p.space(true)
			if p.peek() == '}' {
				p.pos++
				// Only type bindings: nothing exists at run time.
				if typed > 0 && len(imp.Bindings) == 0 {
					imp.TypeOnly = true
				}
				return nil
			}
			typeOnly := false
			if p.word() == "type" {
				save := p.pos
				p.pos += len("type")
				p.space(true)
				if w := p.word(); w != "" && w != "as" {
					typeOnly = true
				} else {
					p.pos = save
				}
			}
			var imported string
			var err error
			if q := p.peek(); q == '"' || q == '\'' {
				imported, err = p.stringLit()
			} else {
				imported, err = p.ident()
			}
			if err != nil {
				return err
			}
			local := imported
			p.space(true)
			if p.keyword("as") {
				p.space(true)
				if local, err = p.ident(); err != nil {
					return err
				}
				p.space(true)
			}
			if typeOnly {
				typed++
			} else {
				imp.Bindings = append(imp.Bindings, Binding{Kind: NamedBinding, Imported: imported, Local: local})
			}
			switch p.peek() {
			case ',':
				p.pos++
			case '}':
			default:
				return p.errorf(p.pos, "expected , or }")
			}
		}
	default:
		return p.errorf(p.pos, "expected import bindings")
	}
	return nil
}

func (p *parser) funcDecl(start int, exported, def bool) (Stmt, error) {
	fn := &FuncDecl{Exported: exported, Default: def}
	if p.keyword("async") {
		fn.Async = true
		p.space(true)
	}
	if !p.keyword("function") {
		return nil, p.errorf(p.pos, "expected function")
	}
	p.space(true)
	if p.peek() != '(' {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.Name = name
	} else if !def {
		return nil, p.errorf(p.pos, "function name required")
	}

	if err := p.expect('('); err != nil {
		return nil, err
	}
	for {
		p.space(true)
		if p.peek() == ')' {
			p.pos++
			break
		}
		param, err := p.ident()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
		p.space(true)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.errorf(p.pos, "expected , or )")
		}
	}

	if err := p.expect('{'); err != nil {
		return nil, err
	}
	body, err := p.stmts(true)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.span = span{start, p.pos}
	return fn, nil
}

func (p *parser) varDecl(start int) (Stmt, error) {
	d := &VarDecl{Kind: p.word()}
	p.pos += len(d.Kind)
	p.space(true)

	destructure := p.peek() == '{'
	if destructure {
		p.pos++
		if err := p.pattern(d); err != nil {
			return nil, err
		}
	} else {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		d.Name = name
	}

	p.space(false)
	switch {
	case p.peek() == '=' && p.peekAt(1) != '=':
		p.pos++
		value, err := p.expr(stopStatement)
		if err != nil {
			return nil, err
		}
		d.Value = value
		d.span = span{start, p.pos}
	case destructure || d.Kind == "const":
		return nil, p.errorf(p.pos, "missing initializer in %s declaration", d.Kind)
	default:
		end, err := p.end()
		if err != nil {
			return nil, err
		}
		d.span = span{start, end}
	}
	return d, nil
}

// pattern parses `a, b: c, d = 1 }` after the opening brace.
func (p *parser) pattern(d *VarDecl) error {
	for {
		p.space(true)
		if p.peek() == '}' {
			p.pos++
			return nil
		}
		key, err := p.ident()
		if err != nil {
			return err
		}
		t := Target{Key: key, Local: key}
		p.space(true)
		if p.peek() == ':' {
			p.pos++
			p.space(true)
			if t.Local, err = p.ident(); err != nil {
				return err
			}
			p.space(true)
		}
		if p.peek() == '=' {
			p.pos++
			if t.Default, err = p.expr(stopItem); err != nil {
				return err
			}
			p.space(true)
		}
		d.Pattern = append(d.Pattern, t)
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return p.errorf(p.pos, "expected , or }")
		}
	}
}

func (p *parser) assign(start int, name string) (Stmt, bool, error) {
	if isDigit(name[0]) {
		return nil, false, nil
	}
	save := p.pos
	p.pos += len(name)
	p.space(false)
	op := ""
	switch {
	case strings.HasPrefix(p.src[p.pos:], "+="):
		op = "+="
	case p.peek() == '=' && p.peekAt(1) != '=' && p.peekAt(1) != '>':
		op = "="
	}
	if op == "" {
		p.pos = save
		return nil, false, nil
	}
	p.pos += len(op)
	value, err := p.expr(stopStatement)
	if err != nil {
		return nil, true, err
	}
	return &Assign{span: span{start, p.pos}, Name: name, Op: op, Value: value}, true, nil
}

func (p *parser) ifStmt(start int) (*IfStmt, error) {
	p.pos += len("if")
	if err := p.expect('('); err != nil {
		return nil, err
	}
	cond, err := p.expr(stopParen)
	if err != nil {
		return nil, err
	}
	then, err := p.body()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{Cond: cond, Then: then}

	save := p.pos
	p.space(true)
	if p.keyword("else") {
		p.space(true)
		if p.word() == "if" {
			elif, err := p.ifStmt(p.pos)
			if err != nil {
				return nil, err
			}
			s.Else = []Stmt{elif}
		} else if s.Else, err = p.body(); err != nil {
			return nil, err
		}
	} else {
		p.pos = save
	}
	s.span = span{start, p.pos}
	return s, nil
}

func (p *parser) forOf(start int) (Stmt, error) {
	p.pos += len("for")
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.space(true)
	switch kind := p.word(); kind {
	case "const", "let", "var":
		p.pos += len(kind)
	default:
		return nil, p.errorf(p.pos, "expected const, let or var")
	}
	p.space(true)
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.space(true)
	if !p.keyword("of") {
		if p.word() == "in" {
			return nil, p.errorf(p.pos, "for...in is not supported, use for...of")
		}
		return nil, p.errorf(p.pos, "expected of")
	}
	iter, err := p.expr(stopParen)
	if err != nil {
		return nil, err
	}
	body, err := p.body()
	if err != nil {
		return nil, err
	}
	return &ForOf{span: span{start, p.pos}, Name: name, Iter: iter, Body: body}, nil
}

func (p *parser) returnStmt(start int) (Stmt, error) {
	p.pos += len("return")
	r := &Return{}
	crossed := p.space(false)
	switch {
	case crossed, p.eof(), p.peek() == '\n', p.peek() == '}':
	case p.peek() == ';':
		p.pos++
	default:
		value, err := p.expr(stopStatement)
		if err != nil {
			return nil, err
		}
		r.Value = value
	}
	r.span = span{start, p.pos}
	return r, nil
}

func (p *parser) stringLit() (string, error) {
	q := p.peek()
	if q != '"' && q != '\'' {
		return "", p.errorf(p.pos, "expected string")
	}
	end, err := p.skipString(p.pos)
	if err != nil {
		return "", err
	}
	raw := p.src[p.pos+1 : end-1]
	p.pos = end
	return unescaper.Replace(raw), nil
}

var unescaper = strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`, `\n`, "\n", `\t`, "\t")

// skipString returns the offset just past the string literal starting at pos.
func (p *parser) skipString(pos int) (int, error) {
	q := p.src[pos]
	for i := pos + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '\\':
			i++
		case '\n':
			if q != '`' {
				return 0, p.errorf(pos, "unterminated string")
			}
		case q:
			return i + 1, nil
		}
	}
	return 0, p.errorf(pos, "unterminated string")
}

// skipBraces skips a balanced `{ ... }` group starting at the cursor.
func (p *parser) skipBraces() error {
	open := p.pos
	depth := 0
	for !p.eof() {
		c := p.src[p.pos]
		if c == '"' || c == '\'' || c == '`' {
			end, err := p.skipString(p.pos)
			if err != nil {
				return err
			}
			p.pos = end
			continue
		}
		p.pos++
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return p.errorf(open, "unclosed %q", '{')
}

type stop int

const (
	// stopStatement ends at `;`, a line break that ends the statement, or an
	// unmatched `}` which is left for the enclosing block.
	stopStatement stop = iota
	// stopParen ends at the unmatched `)`, which is consumed.
	stopParen
	// stopItem ends at `,` or an unmatched `}`, neither consumed.
	stopItem
)

// expr captures the source of one expression. Brackets, strings and comments
// are tracked so that terminators inside them are ignored.
func (p *parser) expr(mode stop) (*Expr, error) {
	p.space(true)
	start := p.pos
	var b strings.Builder
	var stack []byte
	closed := false

loop:
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == '"' || c == '\'' || c == '`':
			end, err := p.skipString(p.pos)
			if err != nil {
				return nil, err
			}
			b.WriteString(p.src[p.pos:end])
			p.pos = end
			continue
		case c == '/' && p.peekAt(1) == '/':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		case c == '/' && p.peekAt(1) == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				return nil, p.errorf(p.pos, "unterminated comment")
			}
			p.pos += end + 4
			b.WriteByte(' ')
			continue
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				if mode == stopParen && c == ')' {
					p.pos++
					closed = true
					break loop
				}
				if c == '}' && mode != stopParen {
					break loop
				}
				return nil, p.errorf(p.pos, "unexpected %q", c)
			}
			if open := stack[len(stack)-1]; open != opening(c) {
				return nil, p.errorf(p.pos, "mismatched %q", c)
			}
			stack = stack[:len(stack)-1]
		case len(stack) == 0 && c == ';' && mode == stopStatement:
			p.pos++
			break loop
		case len(stack) == 0 && c == ',' && mode == stopItem:
			break loop
		case len(stack) == 0 && c == '\n' && mode == stopStatement:
			if !continues(b.String(), p.src[p.pos+1:]) {
				break loop
			}
		}
		b.WriteByte(c)
		p.pos++
	}

	if len(stack) > 0 {
		return nil, p.errorf(start, "unclosed %q", stack[len(stack)-1])
	}
	if mode == stopParen && !closed {
		return nil, p.errorf(p.pos, "expected )")
	}
	return p.newExpr(b.String(), start)
}

func (p *parser) newExpr(text string, pos int) (*Expr, error) {
	src := normalize(strings.TrimSpace(text))
	if src == "" {
		return nil, p.errorf(pos, "expected expression")
	}
	if _, err := exprparser.Parse(src); err != nil {
		return nil, p.errorf(pos, "invalid expression %q: %s", src, firstLine(err.Error()))
	}
	e := &Expr{Src: src, Pos: pos}
	p.file.exprs = append(p.file.exprs, e)
	return e, nil
}

func opening(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}

// continues reports whether an expression broken by a newline goes on: the
// line ends in an operator or the next line starts with one.
func continues(prev, rest string) bool {
	prev = strings.TrimRight(prev, " \t\r")
	if prev == "" {
		return true
	}
	if strings.IndexByte("+-*/%=&|?:,.([{<>!^~", prev[len(prev)-1]) >= 0 {
		return true
	}
	next := skipComments(rest)
	return next != "" && strings.IndexByte(".?:+*/%&|=<>^", next[0]) >= 0
}

func skipComments(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "//"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			return s
		}
	}
}

// normalize rewrites strict equality to expr-lang equality and drops `await`,
// which has no meaning in a synchronous interpreter.
func normalize(src string) string {
	if !strings.Contains(src, "===") && !strings.Contains(src, "!==") && !strings.Contains(src, "await") {
		return src
	}
	var b strings.Builder
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			end := stringEnd(src, i)
			b.WriteString(src[i:end])
			i = end
			continue
		case strings.HasPrefix(src[i:], "===") || strings.HasPrefix(src[i:], "!=="):
			b.WriteString(src[i : i+2])
			i += 3
			continue
		case strings.HasPrefix(src[i:], "await") && (i == 0 || !isIdentChar(src[i-1])) &&
			i+5 < len(src) && strings.IndexByte(" \t\r\n(", src[i+5]) >= 0:
			i += len("await")
			for i < len(src) && strings.IndexByte(" \t\r\n", src[i]) >= 0 {
				i++
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func stringEnd(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
