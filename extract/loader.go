package extract

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Loader decodes a structured document. The param names the format: json,
// toml or yaml. The whole input is decoded at once, list inputs included.
type Loader struct{}

func (Loader) Name() string  { return "loader" }
func (Loader) PerItem() bool { return false }

func (Loader) Extract(input any, param string, arg any) (any, error) {
	text, err := inputString(input)
	if err != nil {
		return nil, err
	}
	switch param {
	case "json", "":
		var out any
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return nil, err
		}
		return out, nil
	case "toml":
		var out map[string]any
		if err := toml.Unmarshal([]byte(text), &out); err != nil {
			return nil, err
		}
		return out, nil
	case "yaml":
		var out any
		if err := yaml.Unmarshal([]byte(text), &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported loader format %q", param)
	}
}
