// Package spider holds the declarative crawl rules: the extraction rule
// tree, the per-host routing table and the request description they bind to.
package spider

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/wenzapen/unicrawler/extract"
)

// Reserved rule and result key names.
const (
	// SchemaName marks a rule whose chain must evaluate to true; anything
	// else aborts the whole tree evaluation.
	SchemaName = "__schema__"
	// RequestKey is the result key whose value triggers recursive
	// re-crawling of the identifiers it contains.
	RequestKey = "__request__"
	// ResultKey is the result key the recursive outcomes are attached
	// under, at the same level as RequestKey.
	ResultKey = "__result__"
)

// ParseCallback inspects or rewrites the result of every rule evaluation.
// Returning a non-nil map replaces the result; returning an error vetoes it
// and surfaces as ErrInvalidSchema.
type ParseCallback func(rule *ParseRule, result map[string]any, ctx *extract.Context) (map[string]any, error)

var parseCallback atomic.Value // ParseCallback

// SetParseCallback installs the process-wide parse callback. Passing nil
// removes it.
func SetParseCallback(cb ParseCallback) {
	parseCallback.Store(cb)
}

func currentParseCallback() ParseCallback {
	cb, _ := parseCallback.Load().(ParseCallback)
	return cb
}

// ParseRule is one named extraction step plus nested child steps, forming a
// tree. The shared context is created once per rule tree and passed by
// reference to every node and every invocation, unless the caller supplies
// an override for a single evaluation.
type ParseRule struct {
	Name         string         `json:"name"`
	Chain        []extract.Step `json:"chain_rules"`
	Children     []*ParseRule   `json:"child_rules,omitempty"`
	IterChildren bool           `json:"iter_parse_child,omitempty"`

	ctx *extract.Context
}

func NewParseRule(name string, chain []extract.Step, children ...*ParseRule) *ParseRule {
	return &ParseRule{
		Name:     name,
		Chain:    chain,
		Children: children,
		ctx:      extract.NewContext(nil),
	}
}

// AddChild appends child, keeping sibling order.
func (p *ParseRule) AddChild(child *ParseRule) *ParseRule {
	p.Children = append(p.Children, child)
	return p
}

// Context returns the rule tree's shared context, creating it on first use
// after deserialization.
func (p *ParseRule) Context() *extract.Context {
	if p.ctx == nil {
		p.ctx = extract.NewContext(nil)
	}
	return p.ctx
}

func (p *ParseRule) UnmarshalJSON(data []byte) error {
	type plain ParseRule
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ParseRule(raw)
	if p.Name == "" {
		return fmt.Errorf("parse rule needs a non-empty name")
	}
	p.ctx = extract.NewContext(nil)
	return nil
}

// Evaluate runs the rule's chain on input, then its children on the chain's
// output, producing {name: value}. Siblings evaluate left to right and each
// one receives this node's own chain output, never a sibling's result.
// Capability failures arrive embedded as *extract.StepError values; unknown
// operations and schema violations abort the whole evaluation.
func (p *ParseRule) Evaluate(reg *extract.Registry, input any, ctx *extract.Context) (map[string]any, error) {
	if ctx == nil {
		ctx = p.Context()
	}
	value, err := reg.EvalChain(input, p.Chain, ctx)
	if err != nil {
		return nil, err
	}
	if p.Name == SchemaName {
		if ok, isBool := value.(bool); !isBool || !ok {
			return nil, fmt.Errorf("%w: rule %q evaluated to %v", ErrSchemaViolation, p.Name, value)
		}
	}

	result := make(map[string]any, 1)
	switch {
	case len(p.Children) == 0:
		result[p.Name] = value
	case p.IterChildren:
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("rule %q iterates children but produced %T, not a list", p.Name, value)
		}
		perItem := make([]any, 0, len(items))
		for _, item := range items {
			merged := make(map[string]any, len(p.Children))
			for _, child := range p.Children {
				childResult, err := child.Evaluate(reg, item, ctx)
				if err != nil {
					return nil, err
				}
				merged[child.Name] = childResult[child.Name]
			}
			perItem = append(perItem, merged)
		}
		result[p.Name] = perItem
	default:
		nested := make(map[string]any, len(p.Children))
		for _, child := range p.Children {
			childResult, err := child.Evaluate(reg, value, ctx)
			if err != nil {
				return nil, err
			}
			nested[child.Name] = childResult[child.Name]
		}
		result[p.Name] = nested
	}

	if cb := currentParseCallback(); cb != nil {
		replaced, err := cb(p, result, ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidSchema, p.Name, err)
		}
		if replaced != nil {
			result = replaced
		}
	}
	return result, nil
}
