package etcdstore

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	endpoints   []string
	prefix      string
	dialTimeout time.Duration
	opTimeout   time.Duration
	logger      *zap.Logger
}

var defaultOptions = options{
	endpoints:   []string{"127.0.0.1:2379"},
	prefix:      "/unicrawler/hosts/",
	dialTimeout: 5 * time.Second,
	opTimeout:   5 * time.Second,
	logger:      zap.NewNop(),
}

type Option func(opts *options)

func WithEndpoints(endpoints ...string) Option {
	return func(opts *options) {
		opts.endpoints = endpoints
	}
}

func WithPrefix(prefix string) Option {
	return func(opts *options) {
		opts.prefix = prefix
	}
}

func WithDialTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.dialTimeout = timeout
	}
}

func WithOpTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.opTimeout = timeout
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
