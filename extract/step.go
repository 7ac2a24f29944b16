package extract

import (
	"encoding/json"
	"fmt"
)

// Step is one (operation, param, arg) triple of a chain. On the wire a step
// is a three element array, matching the chain_rules format.
type Step struct {
	Op    string
	Param string
	Arg   string
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{s.Op, s.Param, s.Arg})
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("chain step wants [op, param, arg], got %d elements", len(parts))
	}
	s.Op = parts[0]
	s.Param = parts[1]
	if len(parts) == 3 {
		s.Arg = parts[2]
	} else {
		s.Arg = ""
	}
	return nil
}
