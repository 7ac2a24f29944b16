package extract

import (
	"fmt"
)

// SnippetFunc is a host-supplied evaluation function invoked by name through
// the udf capability. It receives the running value and the shared crawl
// context and returns a value or a failure. Isolation from the host process
// is by contract only: the function is registered explicitly at startup and
// gets no access beyond its two arguments. This is best effort, not a
// security boundary.
type SnippetFunc func(input any, ctx *Context) (any, error)

// UDF dispatches to registered snippet functions. The param names the
// snippet. When the step's argument is empty the chain evaluator substitutes
// the shared context, which arrives here as *Context; any other argument is
// exposed to the snippet under the "value" context key.
type UDF struct {
	snippets map[string]SnippetFunc
}

func NewUDF() *UDF {
	return &UDF{snippets: make(map[string]SnippetFunc)}
}

func (u *UDF) RegisterSnippet(name string, fn SnippetFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("snippet needs a name and a function")
	}
	if _, ok := u.snippets[name]; ok {
		return fmt.Errorf("duplicate snippet name %q", name)
	}
	u.snippets[name] = fn
	return nil
}

func (*UDF) Name() string  { return "udf" }
func (*UDF) PerItem() bool { return false }

func (*UDF) ConsumesContext() bool { return true }

func (u *UDF) Extract(input any, param string, arg any) (any, error) {
	fn, ok := u.snippets[param]
	if !ok {
		return nil, fmt.Errorf("snippet %q not registered", param)
	}
	ctx, ok := arg.(*Context)
	if !ok {
		ctx = NewContext(nil)
		if arg != nil && arg != "" {
			ctx.Set("value", arg)
		}
	}
	return fn(input, ctx)
}
