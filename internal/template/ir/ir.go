// Package ir defines the intermediate representation between the template DOM
// and emitted module code, and lowers parsed HTML into it.
package ir

// Node is one IR node. The set of node types is closed.
type Node interface {
	node()
}

// Append writes content to the output accumulator. Content is raw text when
// Literal is set and an expression otherwise.
type Append struct {
	Content string
	Literal bool
	OutVar  string
}

// For repeats Body once per element of Items, binding Item.
type For struct {
	Item  string
	Items string
	Body  []Node
}

// Branch is one conditional arm.
type Branch struct {
	Condition string
	Body      []Node
}

// If is a conditional chain. The first true condition wins; Else runs when
// none matched and is nil when the chain has no else.
type If struct {
	Condition string
	Body      []Node
	ElseIf    []Branch
	Else      []Node
}

// Slot writes the caller-provided slot content, or Fallback when the slot was
// not provided. Fallback is an expression.
type Slot struct {
	Name     string
	Fallback string
	OutVar   string
}

// SlotVar declares a fresh accumulator for a slot.
type SlotVar struct {
	VarName string
}

// SlotContent is the lowered content for one named slot of a component call.
// Body starts with the SlotVar declaring Var.
type SlotContent struct {
	Name string
	Var  string
	Body []Node
}

// Component renders a child component and appends its output.
type Component struct {
	// BaseName is the binding that references the component module.
	BaseName string
	// Props is an expression producing the props object.
	Props  string
	Slots  []SlotContent
	OutVar string
}

// ScriptPassData declares one constant per key of Expr at the top of a script
// body. Non-module scripts get the declarations inside a block.
type ScriptPassData struct {
	Expr     string
	IsModule bool
	OutVar   string
}

// StylePassData writes the keys of Expr as CSS custom properties.
type StylePassData struct {
	Expr   string
	OutVar string
}

// Hoist adds the value of Content to the render-wide set named Set.
type Hoist struct {
	Set     string
	Content string
}

func (*Append) node()         {}
func (*For) node()            {}
func (*If) node()             {}
func (*Slot) node()           {}
func (*SlotVar) node()        {}
func (*Component) node()      {}
func (*ScriptPassData) node() {}
func (*StylePassData) node()  {}
func (*Hoist) node()          {}
