package extractor

import (
	"context"
	"fmt"

	"github.com/formflow-dev/formflow/pkg/form"
	"golang.org/x/time/rate"
)

// RateLimited wraps an Extractor with a client-side token bucket so bursts
// of turns cannot exceed the hosted model's request quota.
type RateLimited struct {
	inner   Extractor
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter of requestsPerSecond and burst.
func NewRateLimited(inner Extractor, requestsPerSecond float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Name returns the wrapped extractor's name.
func (r *RateLimited) Name() string {
	return r.inner.Name()
}

// Extract waits for limiter capacity, then delegates.
func (r *RateLimited) Extract(ctx context.Context, message string, fields form.Registry, searchContext string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.Extract(ctx, message, fields, searchContext)
}

// ExtractField waits for limiter capacity, then delegates.
func (r *RateLimited) ExtractField(ctx context.Context, field form.MissingField, message, validationMessage string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.ExtractField(ctx, field, message, validationMessage)
}
