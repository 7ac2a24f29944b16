package engine

import (
	"go.uber.org/zap"

	"github.com/wenzapen/unicrawler/collect"
	"github.com/wenzapen/unicrawler/extract"
	"github.com/wenzapen/unicrawler/limiter"
	"github.com/wenzapen/unicrawler/spider"
)

type options struct {
	Logger    *zap.Logger
	Store     spider.RuleStore
	Fetcher   collect.Fetcher
	Registry  *extract.Registry
	Pool      *limiter.Pool
	Limit     limiter.RateLimiter
	Strategy  spider.Strategy
	MaxDepth  int
	Recursion bool
}

var defaultOptions = options{
	Logger:    zap.NewNop(),
	Strategy:  spider.StrategySearch,
	MaxDepth:  5,
	Recursion: true,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithStore(store spider.RuleStore) Option {
	return func(opts *options) {
		opts.Store = store
	}
}

func WithFetcher(fetcher collect.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithRegistry(registry *extract.Registry) Option {
	return func(opts *options) {
		opts.Registry = registry
	}
}

// WithPool installs the per-destination rate gate shared by all crawls.
func WithPool(pool *limiter.Pool) Option {
	return func(opts *options) {
		opts.Pool = pool
	}
}

// WithLimiter installs a pacing limiter applied to every fetch regardless of
// destination.
func WithLimiter(limit limiter.RateLimiter) Option {
	return func(opts *options) {
		opts.Limit = limit
	}
}

func WithStrategy(strategy spider.Strategy) Option {
	return func(opts *options) {
		opts.Strategy = strategy
	}
}

func WithMaxDepth(maxDepth int) Option {
	return func(opts *options) {
		opts.MaxDepth = maxDepth
	}
}

// WithRecursion toggles sentinel-triggered recursive crawling.
func WithRecursion(recursion bool) Option {
	return func(opts *options) {
		opts.Recursion = recursion
	}
}
