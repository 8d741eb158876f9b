package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
)

// Func is the shape of every module function visible to expressions.
type Func func(args ...any) (any, error)

// Program is a loaded module with all expressions compiled.
type Program struct {
	file    *File
	imports []Import
	funcs   map[string]*FuncDecl
	render  *FuncDecl
}

// Load parses src and compiles every expression it contains.
func Load(src string) (*Program, error) {
	f, err := Parse(src)
	if err != nil {
		return nil, err
	}
	for _, e := range f.exprs {
		prog, err := expr.Compile(e.Src)
		if err != nil {
			return nil, newSyntaxError(src, e.Pos, fmt.Sprintf("invalid expression %q: %s", e.Src, firstLine(err.Error())))
		}
		e.program = prog
	}

	p := &Program{file: f, funcs: make(map[string]*FuncDecl)}
	for _, s := range f.Body {
		switch s := s.(type) {
		case *ImportDecl:
			if !s.Import.TypeOnly {
				p.imports = append(p.imports, s.Import)
			}
		case *FuncDecl:
			if s.Default {
				p.render = s
			} else if s.Exported {
				p.funcs[s.Name] = s
			}
		}
	}
	return p, nil
}

// Imports returns the module's static imports. The caller binds them into the
// variables passed to Call and Render.
func (p *Program) Imports() []Import { return p.imports }

// Exports reports whether the module exports a function called name.
func (p *Program) Exports(name string) bool {
	_, ok := p.funcs[name]
	return ok
}

// Call evaluates the module's top-level statements with vars in scope, then
// invokes the exported function name.
func (p *Program) Call(ctx context.Context, name string, vars map[string]any, args ...any) (any, error) {
	fn, ok := p.funcs[name]
	if !ok {
		return nil, fmt.Errorf("module does not export %s", name)
	}
	return p.call(ctx, fn, vars, args)
}

// Render invokes the default export and returns its result as text.
func (p *Program) Render(ctx context.Context, vars map[string]any) (string, error) {
	if p.render == nil {
		return "", errors.New("module has no default export")
	}
	out, err := p.call(ctx, p.render, vars, nil)
	if err != nil {
		return "", err
	}
	return ToText(out), nil
}

func (p *Program) call(ctx context.Context, fn *FuncDecl, vars map[string]any, args []any) (any, error) {
	m := &machine{ctx: ctx}
	module := newScope(vars).child()
	if _, _, err := m.run(p.file.Body, module); err != nil {
		return nil, err
	}
	return m.closure(fn, module)(args...)
}

type machine struct {
	ctx context.Context
}

// run executes stmts in sc. Function declarations are hoisted. It returns the
// value of a return statement and whether one was reached.
func (m *machine) run(stmts []Stmt, sc *scope) (any, bool, error) {
	for _, s := range stmts {
		if fn, ok := s.(*FuncDecl); ok && fn.Name != "" {
			sc.declare(fn.Name, m.closure(fn, sc), false)
		}
	}
	for _, s := range stmts {
		if err := m.ctx.Err(); err != nil {
			return nil, false, err
		}
		v, returned, err := m.exec(s, sc)
		if err != nil || returned {
			return v, returned, err
		}
	}
	return nil, false, nil
}

func (m *machine) exec(s Stmt, sc *scope) (any, bool, error) {
	switch s := s.(type) {
	case *ImportDecl, *FuncDecl:
		return nil, false, nil

	case *VarDecl:
		var value any
		if s.Value != nil {
			v, err := m.eval(s.Value, sc)
			if err != nil {
				return nil, false, err
			}
			value = v
		}
		constant := s.Kind == "const"
		if s.Pattern == nil {
			sc.declare(s.Name, value, constant)
			return nil, false, nil
		}
		for _, t := range s.Pattern {
			field := member(value, t.Key)
			if field == nil && t.Default != nil {
				v, err := m.eval(t.Default, sc)
				if err != nil {
					return nil, false, err
				}
				field = v
			}
			sc.declare(t.Local, field, constant)
		}
		return nil, false, nil

	case *Assign:
		value, err := m.eval(s.Value, sc)
		if err != nil {
			return nil, false, err
		}
		if s.Op == "+=" {
			cur, _ := sc.lookup(s.Name)
			value = Add(cur, value)
		}
		return nil, false, sc.set(s.Name, value)

	case *IfStmt:
		cond, err := m.eval(s.Cond, sc)
		if err != nil {
			return nil, false, err
		}
		if Truthy(cond) {
			return m.run(s.Then, sc.child())
		}
		if s.Else != nil {
			return m.run(s.Else, sc.child())
		}
		return nil, false, nil

	case *ForOf:
		iterable, err := m.eval(s.Iter, sc)
		if err != nil {
			return nil, false, err
		}
		items, err := Iterate(iterable)
		if err != nil {
			return nil, false, fmt.Errorf("for %s of %s: %w", s.Name, s.Iter.Src, err)
		}
		for _, item := range items {
			body := sc.child()
			body.declare(s.Name, item, true)
			v, returned, err := m.run(s.Body, body)
			if err != nil || returned {
				return v, returned, err
			}
		}
		return nil, false, nil

	case *Return:
		if s.Value == nil {
			return nil, true, nil
		}
		v, err := m.eval(s.Value, sc)
		return v, true, err

	case *Block:
		return m.run(s.Body, sc.child())

	case *ExprStmt:
		_, err := m.eval(s.X, sc)
		return nil, false, err
	}
	return nil, false, fmt.Errorf("unsupported statement %T", s)
}

func (m *machine) eval(e *Expr, sc *scope) (any, error) {
	if e.program == nil {
		prog, err := expr.Compile(e.Src)
		if err != nil {
			return nil, err
		}
		e.program = prog
	}
	out, err := expr.Run(e.program, sc.env())
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", e.Src, err)
	}
	return out, nil
}

// closure turns a declaration into a Func bound to the defining scope.
func (m *machine) closure(fn *FuncDecl, sc *scope) Func {
	return func(args ...any) (any, error) {
		if err := m.ctx.Err(); err != nil {
			return nil, err
		}
		local := sc.child()
		for i, name := range fn.Params {
			var v any
			if i < len(args) {
				v = args[i]
			}
			local.declare(name, v, false)
		}
		v, _, err := m.run(fn.Body, local)
		return v, err
	}
}

type scope struct {
	vars   map[string]any
	consts map[string]bool
	parent *scope
}

func newScope(vars map[string]any) *scope {
	s := &scope{vars: make(map[string]any, len(vars))}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

func (s *scope) child() *scope {
	return &scope{vars: make(map[string]any), parent: s}
}

func (s *scope) declare(name string, v any, constant bool) {
	s.vars[name] = v
	if constant {
		if s.consts == nil {
			s.consts = make(map[string]bool)
		}
		s.consts[name] = true
	} else if s.consts != nil {
		delete(s.consts, name)
	}
}

func (s *scope) lookup(name string) (any, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := c.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) set(name string, v any) error {
	for c := s; c != nil; c = c.parent {
		if _, ok := c.vars[name]; ok {
			if c.consts[name] {
				return fmt.Errorf("assignment to constant %s", name)
			}
			c.vars[name] = v
			return nil
		}
	}
	return fmt.Errorf("assignment to undeclared variable %s", name)
}

// env flattens the scope chain into the map expr-lang evaluates against.
func (s *scope) env() map[string]any {
	var chain []*scope
	for c := s; c != nil; c = c.parent {
		chain = append(chain, c)
	}
	env := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			env[k] = v
		}
	}
	return env
}
