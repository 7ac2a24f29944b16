// Package collect adapts an HTTP client behind the small fetcher interface
// the crawl engine consumes.
package collect

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wenzapen/unicrawler/spider"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Response is the fetch metadata handed to rule evaluation through the
// shared context.
type Response struct {
	StatusCode int
	Header     http.Header
	URL        string
}

// TransportError wraps any fetch failure, timeouts and connection errors
// included, after all retry attempts are exhausted.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher performs one request and returns the decoded body text plus a
// response handle.
type Fetcher interface {
	Fetch(ctx context.Context, args spider.RequestArgs) (string, *Response, error)
}

// HTTPFetch is the default fetcher: per-request timeout and retry counts
// with global defaults, charset-detected decoding to UTF-8, optional proxy
// rotation, an optional global throttle bucket and an optional TTL response
// cache for repeated GETs.
type HTTPFetch struct {
	options
}

func New(opts ...Option) *HTTPFetch {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &HTTPFetch{options: options}
}

func (f *HTTPFetch) Fetch(ctx context.Context, args spider.RequestArgs) (string, *Response, error) {
	if args.Method == "" {
		args.Method = http.MethodGet
	}
	cacheKey := args.Method + " " + args.URL
	if f.cache != nil && args.Method == http.MethodGet {
		if hit, ok := f.cache.Get(cacheKey); ok {
			page := hit.(*cachedPage)
			f.logger.Debug("response cache hit", zap.String("url", args.URL))
			return page.text, page.resp, nil
		}
	}

	timeout := f.timeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Second
	}
	attempts := args.Retry + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if f.throttle != nil {
			f.throttle.Wait(1)
		}
		text, resp, err := f.once(ctx, args, timeout)
		if err == nil {
			if f.cache != nil && args.Method == http.MethodGet {
				f.cache.SetDefault(cacheKey, &cachedPage{text: text, resp: resp})
			}
			return text, resp, nil
		}
		lastErr = err
		f.logger.Debug("fetch attempt failed",
			zap.String("url", args.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", nil, &TransportError{URL: args.URL, Attempts: attempts, Err: lastErr}
}

func (f *HTTPFetch) once(ctx context.Context, args spider.RequestArgs, timeout time.Duration) (string, *Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if args.Body != "" {
		body = strings.NewReader(args.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, args.Method, args.URL, body)
	if err != nil {
		return "", nil, err
	}
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	client := &http.Client{}
	if f.proxy != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = f.proxy
		client.Transport = transport
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	bodyReader := bufio.NewReader(resp.Body)
	e := determineEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	text, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", nil, err
	}
	return string(text), &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		URL:        resp.Request.URL.String(),
	}, nil
}

func determineEncoding(r *bufio.Reader) encoding.Encoding {
	peek, err := r.Peek(1024)
	if err != nil && len(peek) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(peek, "")
	return e
}

type cachedPage struct {
	text string
	resp *Response
}
