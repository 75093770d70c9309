package social

import (
	"context"
	"fmt"

	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
)

var _ adapter.SocialFetcher = (*MultiFetcher)(nil)

// MultiFetcher tries each underlying channel in a fixed priority order (API
// first, scrape proxy after) and returns the first success. If every channel
// errors, the combined error propagates and the caller treats the claim as
// unverified.
type MultiFetcher struct {
	chain []adapter.SocialFetcher
}

func NewMultiFetcher(fetchers ...adapter.SocialFetcher) *MultiFetcher {
	var chain []adapter.SocialFetcher
	for _, f := range fetchers {
		if f != nil {
			chain = append(chain, f)
		}
	}
	return &MultiFetcher{chain: chain}
}

func (m *MultiFetcher) Name() string { return "multi" }

func (m *MultiFetcher) FetchCounters(ctx context.Context, handle string) (model.Counters, error) {
	var lastErr error
	for _, f := range m.chain {
		counters, err := f.FetchCounters(ctx, handle)
		if err == nil {
			return counters, nil
		}
		lastErr = fmt.Errorf("%s: %w", f.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no social channel configured")
	}
	return model.Counters{}, lastErr
}

func (m *MultiFetcher) CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error) {
	var lastErr error
	for _, f := range m.chain {
		found, err := f.CheckInteraction(ctx, handle, postRef, kind)
		if err == nil {
			return found, nil
		}
		lastErr = fmt.Errorf("%s: %w", f.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no social channel configured")
	}
	return false, lastErr
}
