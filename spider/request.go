package spider

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// RequestArgs is the opaque request description a crawler rule fetches with.
// Timeout and Retry are in seconds and attempts; zero values fall back to
// the fetcher's defaults.
type RequestArgs struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Timeout int               `json:"timeout,omitempty"`
	Retry   int               `json:"retry,omitempty"`
}

// Unique keys a request for visited-set dedupe.
func (r RequestArgs) Unique() string {
	block := md5.Sum([]byte(r.URL + r.Method))
	return hex.EncodeToString(block[:])
}

// Merge overlays the non-zero fields of other on top of r. Used when a
// recursive request supplies only a URL and the rest comes from the matched
// crawler rule.
func (r RequestArgs) Merge(other RequestArgs) RequestArgs {
	out := r
	if other.Method != "" {
		out.Method = other.Method
	}
	if other.URL != "" {
		out.URL = other.URL
	}
	if len(other.Headers) > 0 {
		out.Headers = other.Headers
	}
	if other.Body != "" {
		out.Body = other.Body
	}
	if other.Timeout > 0 {
		out.Timeout = other.Timeout
	}
	if other.Retry > 0 {
		out.Retry = other.Retry
	}
	return out
}

// EnsureRequest normalizes the accepted request shapes: a bare URL string, a
// JSON request-args document, a RequestArgs value, or a generic map. The
// method defaults to GET.
func EnsureRequest(request any) (RequestArgs, error) {
	var args RequestArgs
	switch v := request.(type) {
	case RequestArgs:
		args = v
	case *RequestArgs:
		args = *v
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "http") {
			args = RequestArgs{URL: s}
		} else if err := json.Unmarshal([]byte(s), &args); err != nil {
			return args, fmt.Errorf("request %q is neither a url nor request args: %w", s, err)
		}
	case map[string]any:
		raw, err := json.Marshal(v)
		if err != nil {
			return args, err
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return args, err
		}
	default:
		return args, fmt.Errorf("unsupported request type %T", request)
	}
	if args.URL == "" {
		return args, fmt.Errorf("request has no url")
	}
	if args.Method == "" {
		args.Method = "GET"
	} else {
		args.Method = strings.ToUpper(args.Method)
	}
	return args, nil
}

// GetHost extracts the routing key from a url-like identifier: the authority
// for http(s) identifiers, empty otherwise.
func GetHost(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
