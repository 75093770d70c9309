package adapter

import (
	"context"

	"social-boost-platform/internal/domain/model"
)

// SocialFetcher obtains public signals about an account from the social
// platform. No freshness or availability is guaranteed; callers must treat
// errors as unverified, never as succeeded.
type SocialFetcher interface {
	Name() string

	// FetchCounters returns the account's current public counters.
	FetchCounters(ctx context.Context, handle string) (model.Counters, error)

	// CheckInteraction is the fallback direct check: does the target post
	// appear in the account's recent likes/retweets/replies.
	CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error)
}
