package repo

import (
	"context"
	"fmt"
)

// MetricFetcher retrieves the raw sample sequence for a metric under one
// deployment label. Implementations fail with a *FetchError on network,
// timeout, or no-data conditions; the batch engine treats those as retryable.
type MetricFetcher interface {
	Fetch(ctx context.Context, metric, label, timeRange string) ([]float64, error)
}

// FetchError wraps a failed metric fetch with enough context to report it
// per metric in a batch result.
type FetchError struct {
	Metric string
	Label  string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (label %q): %v", e.Metric, e.Label, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
