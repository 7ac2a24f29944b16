package extract

import (
	"fmt"
)

func argString(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func inputString(input any) (string, error) {
	switch v := input.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("want string input, got %T", input)
	}
}
