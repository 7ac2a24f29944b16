package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Str bundles frequently used string and list utilities. The param names the
// operation, the arg parameterizes it:
//
//	split  split a string around arg (whitespace fields when arg is empty)
//	join   join a string list with arg
//	index  pick element arg (negative counts from the end) or slice "a:b"
//	chain  flatten one level of nested lists
//
// Lists are handled whole so index and chain can see the full value.
type Str struct{}

func (Str) Name() string  { return "str" }
func (Str) PerItem() bool { return false }

func (Str) Extract(input any, param string, arg any) (any, error) {
	sarg := argString(arg)
	switch param {
	case "split":
		text, err := inputString(input)
		if err != nil {
			return nil, err
		}
		var parts []string
		if sarg == "" {
			parts = strings.Fields(text)
		} else {
			parts = strings.Split(text, sarg)
		}
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, p)
		}
		return out, nil
	case "join":
		list, ok := input.([]any)
		if !ok {
			return nil, fmt.Errorf("str join wants a list, got %T", input)
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			s, err := inputString(item)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, sarg), nil
	case "index":
		return indexOp(input, sarg)
	case "chain":
		list, ok := input.([]any)
		if !ok {
			return nil, fmt.Errorf("str chain wants a list, got %T", input)
		}
		var out []any
		for _, item := range list {
			inner, ok := item.([]any)
			if !ok {
				return nil, fmt.Errorf("str chain wants nested lists, got %T", item)
			}
			out = append(out, inner...)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported str operation %q", param)
	}
}

func indexOp(input any, arg string) (any, error) {
	list, ok := input.([]any)
	if !ok {
		return nil, fmt.Errorf("str index wants a list, got %T", input)
	}
	if start, stop, isSlice := strings.Cut(arg, ":"); isSlice {
		lo, err := sliceBound(start, 0, len(list))
		if err != nil {
			return nil, err
		}
		hi, err := sliceBound(stop, len(list), len(list))
		if err != nil {
			return nil, err
		}
		if lo > hi {
			lo = hi
		}
		return append([]any{}, list[lo:hi]...), nil
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("str index arg %q: %w", arg, err)
	}
	if idx < 0 {
		idx += len(list)
	}
	if idx < 0 || idx >= len(list) {
		return nil, fmt.Errorf("str index %s out of range for %d elements", arg, len(list))
	}
	return list[idx], nil
}

func sliceBound(s string, def, length int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("str slice bound %q: %w", s, err)
	}
	if n < 0 {
		n += length
	}
	if n < 0 {
		n = 0
	}
	if n > length {
		n = length
	}
	return n, nil
}
