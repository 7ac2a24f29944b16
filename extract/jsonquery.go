package extract

import (
	"fmt"
	"strconv"
	"strings"

	simplejson "github.com/bitly/go-simplejson"
)

// JSONQuery resolves a dotted path against a JSON document or an already
// decoded value. Integer path segments index into arrays. The arg is unused.
type JSONQuery struct{}

func (JSONQuery) Name() string  { return "json" }
func (JSONQuery) PerItem() bool { return true }

func (JSONQuery) Extract(input any, param string, arg any) (any, error) {
	js, err := toSimpleJSON(input)
	if err != nil {
		return nil, err
	}
	for _, seg := range strings.Split(param, ".") {
		if seg == "" {
			continue
		}
		if idx, err := strconv.Atoi(seg); err == nil {
			js = js.GetIndex(idx)
			continue
		}
		next, ok := js.CheckGet(seg)
		if !ok {
			return nil, fmt.Errorf("json path %q: key %q not found", param, seg)
		}
		js = next
	}
	return js.Interface(), nil
}

func toSimpleJSON(input any) (*simplejson.Json, error) {
	switch v := input.(type) {
	case string:
		return simplejson.NewJson([]byte(v))
	case []byte:
		return simplejson.NewJson(v)
	default:
		js := simplejson.New()
		js.SetPath(nil, v)
		return js, nil
	}
}
