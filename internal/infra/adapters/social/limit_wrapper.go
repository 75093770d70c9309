package social

import (
	"context"

	"golang.org/x/time/rate"

	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SocialFetcher = (*limitedFetcher)(nil)

// limitedFetcher throttles outgoing platform requests so verification bursts
// do not trip the platform's own rate limits.
type limitedFetcher struct {
	inner   adapter.SocialFetcher
	limiter *rate.Limiter
}

func NewLimitedFetcher(inner adapter.SocialFetcher, perSecond float64, burst int) adapter.SocialFetcher {
	if perSecond <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (l *limitedFetcher) Name() string { return l.inner.Name() }

func (l *limitedFetcher) FetchCounters(ctx context.Context, handle string) (model.Counters, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return model.Counters{}, err
	}
	return l.inner.FetchCounters(ctx, handle)
}

func (l *limitedFetcher) CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return false, err
	}
	return l.inner.CheckInteraction(ctx, handle, postRef, kind)
}
