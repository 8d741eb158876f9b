package ir

import "fmt"

const reasonBraced = "value must be a single braced expression like { value }"

// DirectiveError reports a directive whose value has the wrong shape.
type DirectiveError struct {
	Directive string
	Tag       string
	Reason    string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("invalid %s directive on <%s>: %s", e.Directive, e.Tag, e.Reason)
}

// EachSyntaxError reports an each directive that is not `{ item in items }`.
type EachSyntaxError struct {
	Tag  string
	Expr string
}

func (e *EachSyntaxError) Error() string {
	return fmt.Sprintf("invalid each expression %q on <%s>: expected { item in items.path }", e.Expr, e.Tag)
}
