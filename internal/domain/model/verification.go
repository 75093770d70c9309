package model

import "time"

// Counters is a point-in-time snapshot of a social account's public counters.
// Only held inside a VerificationSession, never persisted long-term.
type Counters struct {
	Posts    int64 `json:"posts"`
	Likes    int64 `json:"likes"`
	Retweets int64 `json:"retweets"`
}

// For returns the counter relevant to the given action kind:
// like-count for likes, retweet-count for retweets, post-count for replies.
func (c Counters) For(kind ActionKind) int64 {
	switch kind {
	case ActionLike:
		return c.Likes
	case ActionRetweet:
		return c.Retweets
	case ActionReply:
		return c.Posts
	}
	return 0
}

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionSucceeded SessionStatus = "succeeded"
	SessionFailed    SessionStatus = "failed"
	SessionExpired   SessionStatus = "expired"
)

// VerificationSession captures the baseline counters when a performer starts
// a claim. Short-lived workflow state, not a ledger record: it expires after
// a fixed window and exactly one live session exists per (job, performer).
type VerificationSession struct {
	ID          string        `json:"id"`
	JobID       string        `json:"job_id"`
	PerformerID string        `json:"performer_id"`
	Handle      string        `json:"handle"`
	Action      ActionKind    `json:"action"`
	Baseline    Counters      `json:"baseline"`
	StartedAt   time.Time     `json:"started_at"`
	Status      SessionStatus `json:"status"`
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Verification methods, in the order they are attempted.
const (
	MethodCounterDiff      = "counter_diff"
	MethodDirectCheck      = "direct_check"
	MethodAllMethodsFailed = "all_methods_failed"
)

// MethodLedger marks a replayed claim answered from the completion ledger
// instead of a fresh verification pass.
const MethodLedger = "ledger"

// VerificationOutcome is the engine's decision on a claimed action. Only
// Success gates rewards; Confidence is informational for auditing.
type VerificationOutcome struct {
	Success    bool
	Confidence Confidence
	Method     string
	Details    string
}

// JudgeCounterDelta applies the counter-diff decision rule to the movement of
// the relevant counter between baseline and the fresh snapshot.
func JudgeCounterDelta(delta int64) VerificationOutcome {
	switch {
	case delta == 1:
		return VerificationOutcome{Success: true, Confidence: ConfidenceHigh, Method: MethodCounterDiff,
			Details: "counter increased by exactly one"}
	case delta > 1:
		// Concurrent unrelated activity by the same account is plausible.
		return VerificationOutcome{Success: true, Confidence: ConfidenceMedium, Method: MethodCounterDiff,
			Details: "counter increased by more than one"}
	case delta == 0:
		return VerificationOutcome{Success: false, Confidence: ConfidenceHigh, Method: MethodCounterDiff,
			Details: "counter unchanged, action not observed"}
	default:
		// A regression (e.g. an unlike elsewhere) is anomalous but must not
		// be silently accepted.
		return VerificationOutcome{Success: false, Confidence: ConfidenceMedium, Method: MethodCounterDiff,
			Details: "counter decreased, anomalous activity"}
	}
}
