package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo keeps verification sessions in Redis so any service instance
// can resolve any session. Keys carry a TTL slightly past the session window;
// expiry doubles as garbage collection.
type SessionRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionRepo(client RedisClient, window time.Duration) *SessionRepo {
	// Keep the record around a little past the window so verifyCompletion can
	// report "expired" instead of "not found" near the boundary.
	return &SessionRepo{client: client, ttl: window + time.Minute}
}

func sessionKey(id string) string {
	return fmt.Sprintf("verify_session:%s", id)
}

func liveKey(jobID, performerID string) string {
	return fmt.Sprintf("verify_live:%s:%s", jobID, performerID)
}

// Save stores the session and supersedes any previous live session for the
// same (job, performer): the old record is deleted, not left to race.
func (s *SessionRepo) Save(ctx context.Context, sess *model.VerificationSession) error {
	lk := liveKey(sess.JobID, sess.PerformerID)
	if prev, err := s.client.Get(ctx, lk); err == nil && prev != "" && prev != sess.ID {
		_ = s.client.Del(ctx, sessionKey(prev))
	} else if err != nil && !IsNil(err) {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl); err != nil {
		return err
	}
	return s.client.Set(ctx, lk, sess.ID, s.ttl)
}

func (s *SessionRepo) Find(ctx context.Context, id string) (*model.VerificationSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	var sess model.VerificationSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionRepo) Delete(ctx context.Context, id string) error {
	sess, err := s.Find(ctx, id)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return nil
		}
		return err
	}
	return s.client.Del(ctx, sessionKey(id), liveKey(sess.JobID, sess.PerformerID))
}
