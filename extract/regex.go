package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// regexCache keeps compiled patterns so repeated evaluation of the same step
// does not recompile. Serialization always carries the source pattern.
var regexCache sync.Map // pattern string -> *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// Regex matches the input against the param pattern. The arg selects the
// operation:
//
//	""         all matches (first group when the pattern has groups)
//	$N         group N of every match
//	@repl      replace every match with repl
//	-          split around matches
type Regex struct{}

func (Regex) Name() string  { return "re" }
func (Regex) PerItem() bool { return true }

func (Regex) Extract(input any, param string, arg any) (any, error) {
	text, err := inputString(input)
	if err != nil {
		return nil, err
	}
	re, err := compilePattern(param)
	if err != nil {
		return nil, err
	}
	op := argString(arg)
	switch {
	case op == "":
		return findAll(re, text), nil
	case strings.HasPrefix(op, "@"):
		return re.ReplaceAllString(text, op[1:]), nil
	case strings.HasPrefix(op, "$"):
		group, err := strconv.Atoi(op[1:])
		if err != nil {
			return nil, fmt.Errorf("regex group arg %q: %w", op, err)
		}
		matches := re.FindAllStringSubmatch(text, -1)
		out := make([]any, 0, len(matches))
		for _, m := range matches {
			if group >= len(m) {
				return nil, fmt.Errorf("regex group %d out of range for %q", group, param)
			}
			out = append(out, m[group])
		}
		return out, nil
	case op == "-":
		parts := re.Split(text, -1)
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported regex operation %q", op)
	}
}

func findAll(re *regexp.Regexp, text string) []any {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]any, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			out = append(out, m[1])
		} else {
			out = append(out, m[0])
		}
	}
	return out
}
