package utils

import (
	"context"
	"time"
)

// Query timeout tiers for the comparison fetches. The grid join is the only
// query expected to run long.
const (
	defaultQueryTimeout = 30 * time.Second
	fastQueryTimeout    = 10 * time.Second
	slowQueryTimeout    = 60 * time.Second
)

// DefaultQueryContext returns a context for ordinary database reads.
func DefaultQueryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultQueryTimeout)
}

// FastQueryContext returns a context for simple lookups that should be fast.
func FastQueryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), fastQueryTimeout)
}

// SlowQueryContext returns a context for heavy joins that may take longer.
func SlowQueryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), slowQueryTimeout)
}
