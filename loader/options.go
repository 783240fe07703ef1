package loader

import "log/slog"

const DefaultLimit = 10

type config struct {
	limit  int
	skip   int
	logger *slog.Logger
}

type Option = func(*config)

// WithLimit sets the page size. It must be at least 1.
func WithLimit(limit int) Option {
	return func(c *config) {
		c.limit = limit
	}
}

// WithSkip sets the starting offset. It must not be negative.
func WithSkip(skip int) Option {
	return func(c *config) {
		c.skip = skip
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
