// File: internal/usecase/verification_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
	"social-boost-platform/internal/domain/ports/repository"
	"social-boost-platform/internal/infra/metrics"
)

// Compile-time check
var _ VerificationUseCase = (*verificationUC)(nil)

// CompletionResult is what completeJob returns to the performer.
type CompletionResult struct {
	Reward           model.Amount
	EarnedBalance    model.Amount
	AlreadyCompleted bool
	Outcome          model.VerificationOutcome
}

type VerificationUseCase interface {
	// Start captures the performer's baseline counters and opens a session.
	// A missing social handle is a hard precondition failure, never bypassed.
	Start(ctx context.Context, jobID, performerID string) (string, error)
	// Complete re-reads the counters, decides the outcome, and on success
	// records the completion exactly once per (job, performer).
	Complete(ctx context.Context, jobID, sessionID string) (*CompletionResult, error)
}

// RateLimiter is the guard in front of Start; the redis implementation
// satisfies it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type verificationUC struct {
	jobs        repository.JobRepository
	performers  repository.PerformerRepository
	completions repository.CompletionRepository
	sessions    repository.SessionRepository
	tm          repository.TransactionManager
	fetcher     adapter.SocialFetcher
	limiter     RateLimiter
	rateLimit   int

	window   time.Duration
	minDwell time.Duration
	log      *zerolog.Logger
}

func NewVerificationUseCase(
	jobs repository.JobRepository,
	performers repository.PerformerRepository,
	completions repository.CompletionRepository,
	sessions repository.SessionRepository,
	tm repository.TransactionManager,
	fetcher adapter.SocialFetcher,
	limiter RateLimiter,
	rateLimit int,
	window, minDwell time.Duration,
	logger *zerolog.Logger,
) *verificationUC {
	return &verificationUC{
		jobs:        jobs,
		performers:  performers,
		completions: completions,
		sessions:    sessions,
		tm:          tm,
		fetcher:     fetcher,
		limiter:     limiter,
		rateLimit:   rateLimit,
		window:      window,
		minDwell:    minDwell,
		log:         logger,
	}
}

func (u *verificationUC) Start(ctx context.Context, jobID, performerID string) (string, error) {
	job, err := u.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return "", fmt.Errorf("job %s: %w", jobID, err)
	}
	if job.Status != model.JobStatusActive || job.Exhausted() {
		return "", fmt.Errorf("job %s: %w", jobID, domain.ErrJobExhausted)
	}

	performer, err := u.performers.FindByID(ctx, nil, performerID)
	if err != nil {
		return "", fmt.Errorf("performer %s: %w", performerID, err)
	}
	if performer.SocialHandle == "" {
		return "", fmt.Errorf("performer %s: %w", performerID, domain.ErrHandleUnavailable)
	}

	// Already rewarded for this job: no point opening a session.
	if _, err := u.completions.Find(ctx, nil, jobID, performerID); err == nil {
		return "", fmt.Errorf("job %s performer %s: %w", jobID, performerID, domain.ErrDuplicateCompletion)
	} else if err != domain.ErrNotFound {
		return "", err
	}

	if u.limiter != nil {
		ok, err := u.limiter.Allow(ctx, "rate_limit:verify_start:"+performerID, u.rateLimit, u.window)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("performer %s: %w: too many verification starts", performerID, domain.ErrInvalidArgument)
		}
	}

	baseline, err := u.fetcher.FetchCounters(ctx, performer.SocialHandle)
	if err != nil {
		return "", fmt.Errorf("baseline counters for %s: %w", performer.SocialHandle, err)
	}

	sess := &model.VerificationSession{
		ID:          uuid.NewString(),
		JobID:       jobID,
		PerformerID: performerID,
		Handle:      performer.SocialHandle,
		Action:      job.Action,
		Baseline:    baseline,
		StartedAt:   time.Now(),
		Status:      model.SessionPending,
	}
	if err := u.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	u.log.Debug().Str("session_id", sess.ID).Str("job_id", jobID).
		Str("handle", performer.SocialHandle).Msg("verification session started")
	return sess.ID, nil
}

func (u *verificationUC) Complete(ctx context.Context, jobID, sessionID string) (*CompletionResult, error) {
	sess, err := u.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.JobID != jobID {
		return nil, fmt.Errorf("session %s does not belong to job %s: %w", sessionID, jobID, domain.ErrInvalidArgument)
	}

	// A claim that already settled is replayed from the ledger. Re-verifying
	// cannot change a paid reward, and neither can expiry turn it into an
	// error.
	if existing, err := u.completions.Find(ctx, nil, jobID, sess.PerformerID); err == nil {
		balance, berr := u.completions.EarnedBalance(ctx, nil, sess.PerformerID)
		if berr != nil {
			return nil, berr
		}
		return &CompletionResult{
			Reward:           existing.Reward,
			EarnedBalance:    balance,
			AlreadyCompleted: true,
			Outcome: model.VerificationOutcome{Success: true, Confidence: model.ConfidenceHigh,
				Method: model.MethodLedger, Details: "completion already recorded"},
		}, nil
	} else if err != domain.ErrNotFound {
		return nil, err
	}

	elapsed := time.Since(sess.StartedAt)
	if elapsed > u.window {
		_ = u.sessions.Delete(ctx, sessionID)
		return nil, fmt.Errorf("session %s: started %s ago, window %s: %w",
			sessionID, elapsed.Round(time.Second), u.window, domain.ErrSessionExpired)
	}
	if elapsed < u.minDwell {
		// Anti-instant-claim guard: the action could not plausibly have
		// happened yet. The session stays live for a later retry.
		return nil, fmt.Errorf("session %s: %s elapsed, minimum dwell %s: %w",
			sessionID, elapsed.Round(time.Second), u.minDwell, domain.ErrSessionExpired)
	}

	outcome := u.verify(ctx, sess)
	metrics.VerificationOutcome(outcome.Method, outcome.Success, string(outcome.Confidence))

	if !outcome.Success {
		// Keep the session: the performer can do the action and retry against
		// the same baseline inside the window. Restarting would re-baseline
		// after the action and make the claim unverifiable.
		u.log.Info().Str("session_id", sessionID).Str("method", outcome.Method).
			Str("details", outcome.Details).Msg("verification failed")
		return nil, fmt.Errorf("%s: %w", outcome.Details, domain.ErrVerificationFailed)
	}

	// The resolved session is left to expire on its own TTL so a repeated
	// call answers with the recorded state instead of a missing session.
	return u.reward(ctx, sess, outcome)
}

// verify runs the strategies in priority order: counter-diff first, then the
// direct-interaction check when the fresh fetch fails. A fetch failure never
// defaults to success.
func (u *verificationUC) verify(ctx context.Context, sess *model.VerificationSession) model.VerificationOutcome {
	fresh, err := u.fetcher.FetchCounters(ctx, sess.Handle)
	if err == nil {
		delta := fresh.For(sess.Action) - sess.Baseline.For(sess.Action)
		return model.JudgeCounterDelta(delta)
	}
	u.log.Warn().Err(err).Str("handle", sess.Handle).Msg("counter fetch failed, trying direct check")

	job, jerr := u.jobs.FindByID(ctx, nil, sess.JobID)
	if jerr == nil {
		found, derr := u.fetcher.CheckInteraction(ctx, sess.Handle, job.PostRef, sess.Action)
		if derr == nil {
			if found {
				return model.VerificationOutcome{Success: true, Confidence: model.ConfidenceMedium,
					Method: model.MethodDirectCheck, Details: "target post found in recent interactions"}
			}
			return model.VerificationOutcome{Success: false, Confidence: model.ConfidenceMedium,
				Method: model.MethodDirectCheck, Details: "target post not found in recent interactions"}
		}
		u.log.Warn().Err(derr).Str("handle", sess.Handle).Msg("direct interaction check failed")
	}

	return model.VerificationOutcome{Success: false, Confidence: model.ConfidenceLow,
		Method: model.MethodAllMethodsFailed, Details: "no verification channel reachable"}
}

// reward records the completion and consumes a job slot in one transaction.
// The ledger's uniqueness constraint is the only at-most-once guard: a
// concurrent duplicate loses at the database and is answered with the
// already-recorded state rather than a second reward.
func (u *verificationUC) reward(ctx context.Context, sess *model.VerificationSession, outcome model.VerificationOutcome) (*CompletionResult, error) {
	var reward model.Amount
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx any) error {
		job, err := u.jobs.ConsumeSlot(ctx, qx, sess.JobID)
		if err != nil {
			return err
		}
		reward = job.PricePerAction
		return u.completions.Save(ctx, qx, &model.Completion{
			JobID:       sess.JobID,
			PerformerID: sess.PerformerID,
			Reward:      reward,
			CompletedAt: time.Now(),
		})
	})
	if err == domain.ErrDuplicateCompletion {
		existing, ferr := u.completions.Find(ctx, nil, sess.JobID, sess.PerformerID)
		if ferr != nil {
			return nil, ferr
		}
		balance, berr := u.completions.EarnedBalance(ctx, nil, sess.PerformerID)
		if berr != nil {
			return nil, berr
		}
		return &CompletionResult{
			Reward:           existing.Reward,
			EarnedBalance:    balance,
			AlreadyCompleted: true,
			Outcome:          outcome,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	balance, err := u.completions.EarnedBalance(ctx, nil, sess.PerformerID)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("job_id", sess.JobID).Str("performer_id", sess.PerformerID).
		Str("reward", reward.StringFull()).Str("method", outcome.Method).Msg("completion recorded")
	return &CompletionResult{Reward: reward, EarnedBalance: balance, Outcome: outcome}, nil
}
