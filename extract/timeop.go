package extract

import (
	"fmt"
	"strconv"
	"time"
)

const defaultTimeLayout = "2006-01-02 15:04:05"

// Time converts between formatted time strings and unix seconds. The param
// selects the direction: encode turns a time string into a unix timestamp,
// decode formats a timestamp. The arg is a Go reference layout, defaulting
// to "2006-01-02 15:04:05". Zone is the fixed offset used for both
// directions; the zero value means local time.
type Time struct {
	Zone *time.Location
}

func (Time) Name() string  { return "time" }
func (Time) PerItem() bool { return true }

func (t Time) Extract(input any, param string, arg any) (any, error) {
	layout := argString(arg)
	if layout == "" {
		layout = defaultTimeLayout
	}
	loc := t.Zone
	if loc == nil {
		loc = time.Local
	}
	switch param {
	case "encode":
		text, err := inputString(input)
		if err != nil {
			return nil, err
		}
		parsed, err := time.ParseInLocation(layout, text, loc)
		if err != nil {
			return nil, err
		}
		return parsed.Unix(), nil
	case "decode":
		ts, err := toUnixSeconds(input)
		if err != nil {
			return nil, err
		}
		return time.Unix(ts, 0).In(loc).Format(layout), nil
	default:
		return nil, fmt.Errorf("unsupported time operation %q", param)
	}
}

func toUnixSeconds(input any) (int64, error) {
	switch v := input.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", v, err)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("want timestamp, got %T", input)
	}
}
