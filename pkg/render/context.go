package render

import (
	"net/url"
)

// Names bound into every component's scope.
const (
	PropsKey           = "props"
	SlotsKey           = "slots"
	RenderComponentKey = "renderComponent"
	RequestKey         = "request"
	URLKey             = "url"
	ParamsKey          = "params"
	SiteKey            = "site"
	StylesKey          = "styles"
	ScriptsKey         = "scripts"
	HeadScriptsKey     = "headScripts"
	NextPassDataIDKey  = "nextPassDataId"
)

// Binding pairs a context key with the local name holding its value in a
// compiled component.
type Binding struct {
	Key   string
	Local string
}

// ContextBindings is the context forwarded from a component to the children it
// renders. The emitter builds child calls from this list and RenderComponent
// reads it back. headScripts is not forwarded: only the root aggregates head
// injections.
var ContextBindings = []Binding{
	{Key: RequestKey, Local: RequestKey},
	{Key: URLKey, Local: URLKey},
	{Key: ParamsKey, Local: ParamsKey},
	{Key: StylesKey, Local: StylesKey},
	{Key: ScriptsKey, Local: ScriptsKey},
}

// Input is the caller-supplied part of a render.
type Input struct {
	Props     map[string]any
	Slots     map[string]string
	Request   any
	URL       *url.URL
	Params    map[string]string
	RoutePath string

	// Styles being non-nil marks a nested render that shares its caller's
	// sets. A root render leaves all three nil.
	Styles      *OrderedSet
	Scripts     *OrderedSet
	HeadScripts *OrderedSet
}

// PropsInput treats a bare map as props.
func PropsInput(props map[string]any) Input {
	return Input{Props: props}
}

// Context is everything a component sees while rendering.
type Context struct {
	Props       map[string]any
	Slots       map[string]string
	Request     any
	URL         *url.URL
	Params      map[string]string
	Site        string
	Styles      *OrderedSet
	Scripts     *OrderedSet
	HeadScripts *OrderedSet

	tree *tree
}

// RenderComponent renders a child component sharing this context's sets.
func (c *Context) RenderComponent(component any, props map[string]any, slots map[string]string) (string, error) {
	in := Input{
		Request: c.Request,
		URL:     c.URL,
		Params:  c.Params,
		Styles:  c.Styles,
		Scripts: c.Scripts,
	}
	return c.tree.component(component, props, slots, in)
}

// NextPassDataID returns the next bridged-script id of this render tree.
func (c *Context) NextPassDataID() int {
	return c.tree.nextID()
}

// vars builds the scope a module's render function runs in.
func (c *Context) vars() map[string]any {
	slots := make(map[string]any, len(c.Slots))
	for k, v := range c.Slots {
		slots[k] = v
	}
	params := make(map[string]any, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	props := c.Props
	if props == nil {
		props = map[string]any{}
	}

	vars := map[string]any{
		PropsKey:           props,
		SlotsKey:           slots,
		RequestKey:         c.Request,
		URLKey:             urlValue(c.URL),
		ParamsKey:          params,
		SiteKey:            c.Site,
		StylesKey:          setValue(c.Styles),
		ScriptsKey:         setValue(c.Scripts),
		HeadScriptsKey:     setValue(c.HeadScripts),
		RenderComponentKey: c.tree.renderComponentFunc(),
		NextPassDataIDKey:  func() int { return c.tree.nextID() },
	}
	return vars
}

// setValue keeps a nil set an untyped nil so expressions see null.
func setValue(s *OrderedSet) any {
	if s == nil {
		return nil
	}
	return s
}

func urlValue(u *url.URL) any {
	if u == nil {
		return nil
	}
	return u
}

// inputFromContext reads the forwarded context object built by compiled code.
func inputFromContext(v any) Input {
	m, _ := v.(map[string]any)
	var in Input
	for _, b := range ContextBindings {
		val := m[b.Key]
		switch b.Key {
		case RequestKey:
			in.Request = val
		case URLKey:
			in.URL, _ = val.(*url.URL)
		case ParamsKey:
			in.Params = stringMap(val)
		case StylesKey:
			in.Styles, _ = val.(*OrderedSet)
		case ScriptsKey:
			in.Scripts, _ = val.(*OrderedSet)
		}
	}
	return in
}
