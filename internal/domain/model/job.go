package model

import "time"

type ActionKind string

const (
	ActionLike    ActionKind = "like"
	ActionRetweet ActionKind = "retweet"
	ActionReply   ActionKind = "reply"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionLike, ActionRetweet, ActionReply:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusActive    JobStatus = "active"    // accepting completions
	JobStatusExhausted JobStatus = "exhausted" // max actions reached
)

// Job is an escrowed campaign: the creator pays PricePerAction for up to
// MaxActions performances of Action on PostRef. Immutable once created except
// for Status and CompletedActions, which move only through confirmed
// completions.
type Job struct {
	ID               string // UUID
	CreatorID        string // UUID
	CreatorWallet    string // hex address funding the escrow
	PostRef          string // platform post identifier (tweet id/url)
	Action           ActionKind
	PricePerAction   Amount
	MaxActions       int
	CompletedActions int
	Budget           Amount // PricePerAction * MaxActions
	Fee              Amount // platform fee on top of Budget
	ReplyText        string // required reply content, reply jobs only
	Status           JobStatus
	CreatedAt        time.Time
	TxHash           string // escrow creation transaction
	// OnChainID is the contract-side job identifier extracted from the
	// JobCreated event. Nil means the funds moved but event decoding failed;
	// the record is flagged for the reconciler rather than rolled back.
	OnChainID *int64
}

// Total is the full escrowed cost: budget plus platform fee.
func (j *Job) Total() Amount {
	return j.Budget + j.Fee
}

// Exhausted reports whether every paid action slot has been consumed.
func (j *Job) Exhausted() bool {
	return j.CompletedActions >= j.MaxActions
}
