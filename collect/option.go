package collect

import (
	"time"

	"github.com/juju/ratelimit"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/wenzapen/unicrawler/proxy"
)

type options struct {
	timeout   time.Duration
	userAgent string
	proxy     proxy.ProxyFunc
	throttle  *ratelimit.Bucket
	cache     *gocache.Cache
	logger    *zap.Logger
}

var defaultOptions = options{
	timeout:   60 * time.Second,
	userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	logger:    zap.NewNop(),
}

type Option func(opts *options)

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.userAgent = ua
	}
}

func WithProxy(p proxy.ProxyFunc) Option {
	return func(opts *options) {
		opts.proxy = p
	}
}

// WithThrottle caps overall request throughput across every destination at
// ratePerSecond, independent of per-destination limits.
func WithThrottle(ratePerSecond float64, capacity int64) Option {
	return func(opts *options) {
		opts.throttle = ratelimit.NewBucketWithRate(ratePerSecond, capacity)
	}
}

// WithCache reuses GET responses for ttl instead of refetching them.
func WithCache(ttl time.Duration) Option {
	return func(opts *options) {
		opts.cache = gocache.New(ttl, 2*ttl)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
