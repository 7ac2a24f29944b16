// Package extract implements the named extraction capabilities and the
// chain evaluator that applies an ordered list of (operation, param, arg)
// steps to an evolving value.
package extract

import (
	"fmt"
)

// Extractor is a single named extraction capability. Implementations must be
// stateless with respect to their inputs: the same (input, param, arg) always
// yields the same value.
type Extractor interface {
	Name() string
	// PerItem reports whether a list input is distributed element-wise
	// through Extract, or handed over whole.
	PerItem() bool
	Extract(input any, param string, arg any) (any, error)
}

// ContextConsumer marks capabilities whose empty argument is replaced by the
// shared crawl context at evaluation time.
type ContextConsumer interface {
	ConsumesContext() bool
}

// UnknownOperationError reports a chain step referencing a capability name
// that was never registered.
type UnknownOperationError struct {
	Op string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown extract operation %q", e.Op)
}

// StepError wraps a failure raised inside a capability. It is returned as the
// chain's value, not as an error: one failing step degrades only the result
// it would have produced.
type StepError struct {
	Op    string
	Param string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("extract step %s(%s): %v", e.Op, e.Param, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Registry maps capability names to registered extractors. Registration is
// explicit: there is no implicit enumeration of available capabilities.
type Registry struct {
	extractors map[string]Extractor
}

func NewRegistry(extractors ...Extractor) (*Registry, error) {
	r := &Registry{
		extractors: make(map[string]Extractor, len(extractors)),
	}
	for _, ex := range extractors {
		if err := r.Register(ex); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(ex Extractor) error {
	name := ex.Name()
	if name == "" {
		return fmt.Errorf("extractor has empty name")
	}
	if _, ok := r.extractors[name]; ok {
		return fmt.Errorf("duplicate extractor name %q", name)
	}
	r.extractors[name] = ex
	return nil
}

func (r *Registry) Get(name string) (Extractor, error) {
	ex, ok := r.extractors[name]
	if !ok {
		return nil, &UnknownOperationError{Op: name}
	}
	return ex, nil
}

// EvalChain applies steps in order to input. An unregistered operation aborts
// the whole chain with UnknownOperationError: later steps assume the shape
// the missing one would have produced. A failure inside a capability becomes
// the chain's result as a *StepError value and stops the chain.
func (r *Registry) EvalChain(input any, steps []Step, ctx *Context) (any, error) {
	value := input
	for i := range steps {
		step := &steps[i]
		ex, err := r.Get(step.Op)
		if err != nil {
			return nil, err
		}
		arg := any(step.Arg)
		if step.Arg == "" && consumesContext(ex) && ctx != nil {
			arg = ctx
		}
		out, err := applyExtractor(ex, value, step.Param, arg)
		if err != nil {
			return &StepError{Op: step.Op, Param: step.Param, Err: err}, nil
		}
		value = out
	}
	return value, nil
}

func applyExtractor(ex Extractor, value any, param string, arg any) (any, error) {
	if list, ok := value.([]any); ok && ex.PerItem() {
		out := make([]any, 0, len(list))
		for _, item := range list {
			v, err := ex.Extract(item, param, arg)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return ex.Extract(value, param, arg)
}

func consumesContext(ex Extractor) bool {
	cc, ok := ex.(ContextConsumer)
	return ok && cc.ConsumesContext()
}
