package model

import "time"

// Completion is the off-chain ledger record that performer PerformerID was
// rewarded for job JobID. Unique on (JobID, PerformerID) at the storage
// layer; never updated; deleted in bulk only by a confirmed withdrawal.
type Completion struct {
	JobID       string
	PerformerID string
	Reward      Amount
	CompletedAt time.Time
}

// Performer is the identity a reward accrues to. The social handle is a hard
// precondition for verification; an empty handle blocks session start.
type Performer struct {
	ID           string // UUID
	Wallet       string // hex address withdrawals pay out to
	SocialHandle string
	CreatedAt    time.Time
}
