package jsonstore

import "go.uber.org/zap"

type options struct {
	path   string
	logger *zap.Logger
}

var defaultOptions = options{
	logger: zap.NewNop(),
}

type Option func(opts *options)

// WithPath sets the backing file. Empty keeps the store in memory only.
func WithPath(path string) Option {
	return func(opts *options) {
		opts.path = path
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
