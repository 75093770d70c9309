package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"social-boost-platform/internal/domain"
	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/usecase"
)

type createJobRequest struct {
	CreatorID     string `json:"creator_id"`
	CreatorWallet string `json:"creator_wallet"`
	PostRef       string `json:"post_ref"`
	Action        string `json:"action"`
	Price         string `json:"price"` // decimal token amount, e.g. "0.01"
	MaxActions    int    `json:"max_actions"`
	ReplyText     string `json:"reply_text,omitempty"`
}

type createJobResponse struct {
	JobID     string `json:"job_id"`
	OnChainID *int64 `json:"on_chain_id"`
	TxHash    string `json:"tx_hash"`
	TotalCost string `json:"total_cost"`
	Degraded  bool   `json:"degraded,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	price, err := model.ParseAmount(req.Price)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.jobUC.Create(r.Context(), usecase.CreateJobRequest{
		CreatorID:     req.CreatorID,
		CreatorWallet: req.CreatorWallet,
		PostRef:       req.PostRef,
		Action:        model.ActionKind(req.Action),
		Price:         price,
		MaxActions:    req.MaxActions,
		ReplyText:     req.ReplyText,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createJobResponse{
		JobID:     res.Job.ID,
		OnChainID: res.Job.OnChainID,
		TxHash:    res.TxHash,
		TotalCost: res.TotalCost.String(),
		Degraded:  res.Degraded,
	})
}

type startVerificationRequest struct {
	PerformerID string `json:"performer_id"`
}

type startVerificationResponse struct {
	SessionID        string `json:"session_id,omitempty"`
	AlreadyCompleted bool   `json:"already_completed,omitempty"`
}

func (s *Server) handleStartVerification(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	var req startVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sessionID, err := s.verifyUC.Start(r.Context(), jobID, req.PerformerID)
	if err != nil {
		// The reward already settled; there is nothing left to verify and
		// nothing for the performer to correct.
		if errors.Is(err, domain.ErrDuplicateCompletion) {
			writeJSON(w, http.StatusOK, startVerificationResponse{AlreadyCompleted: true})
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startVerificationResponse{SessionID: sessionID})
}

type completeJobRequest struct {
	SessionID string `json:"session_id"`
}

type completeJobResponse struct {
	Reward           string `json:"reward"`
	EarnedBalance    string `json:"earned_balance"`
	AlreadyCompleted bool   `json:"already_completed,omitempty"`
	Confidence       string `json:"confidence"`
	Method           string `json:"method"`
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	var req completeJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.verifyUC.Complete(r.Context(), jobID, req.SessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completeJobResponse{
		Reward:           res.Reward.String(),
		EarnedBalance:    res.EarnedBalance.String(),
		AlreadyCompleted: res.AlreadyCompleted,
		Confidence:       string(res.Outcome.Confidence),
		Method:           res.Outcome.Method,
	})
}

type withdrawRequest struct {
	PerformerID string `json:"performer_id"`
}

type withdrawResponse struct {
	TxHash string `json:"tx_hash"`
	Amount string `json:"amount"`
	Synced int    `json:"synced"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.withdrawUC.Withdraw(r.Context(), req.PerformerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawResponse{
		TxHash: res.TxHash,
		Amount: res.Amount.String(),
		Synced: res.Synced,
	})
}

// writeError maps the domain taxonomy to HTTP statuses. Rejections keep
// their specific message: these are financial operations and the caller
// needs to know exactly which precondition failed.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientGas),
		errors.Is(err, domain.ErrBelowThreshold),
		errors.Is(err, domain.ErrJobExhausted),
		errors.Is(err, domain.ErrHandleUnavailable),
		errors.Is(err, domain.ErrDuplicateCompletion):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrVerificationFailed), errors.Is(err, domain.ErrSessionExpired):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrChainUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransferUnverified),
		errors.Is(err, domain.ErrSyncIncomplete),
		errors.Is(err, domain.ErrChainExecutionFailed):
		// Economic-effect mismatches need an operator; expose them as 502 so
		// callers do not blind-retry.
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
