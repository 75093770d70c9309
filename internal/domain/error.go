package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Business-rule rejections (user-actionable, not retried automatically)
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrInsufficientGas   = errors.New("insufficient gas balance for fees")
	ErrBelowThreshold    = errors.New("earned balance below withdrawal threshold")
	ErrJobExhausted      = errors.New("job has no remaining action slots")
	ErrHandleUnavailable = errors.New("no social handle on file for performer")

	// Verification
	ErrVerificationFailed = errors.New("action could not be verified")
	ErrSessionNotFound    = errors.New("verification session not found")
	ErrSessionExpired     = errors.New("verification session outside its time window")

	// Ledger
	ErrDuplicateCompletion = errors.New("completion already recorded for this job and performer")

	// Chain
	ErrChainUnavailable     = errors.New("all rpc endpoints exhausted")
	ErrChainExecutionFailed = errors.New("transaction mined but reverted")

	// Economic-effect mismatches: fatal, require manual reconciliation and
	// must never be silently treated as success.
	ErrTransferUnverified = errors.New("on-chain balance delta does not match escrowed total")
	ErrSyncIncomplete     = errors.New("on-chain earnings still below threshold after sync")

	ErrInvalidExecContext = errors.New("invalid query execution context")
)
