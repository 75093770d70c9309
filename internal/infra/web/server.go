package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"social-boost-platform/internal/usecase"
)

// Server exposes the engine's four operations over HTTP. Thin layer: all
// decisions live in the use cases; this only decodes, dispatches and maps
// errors to status codes.
type Server struct {
	jobUC      usecase.JobUseCase
	verifyUC   usecase.VerificationUseCase
	withdrawUC usecase.WithdrawalUseCase
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	verifyUC usecase.VerificationUseCase,
	withdrawUC usecase.WithdrawalUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		jobUC:      jobUC,
		verifyUC:   verifyUC,
		withdrawUC: withdrawUC,
		apiKey:     apiKey,
		log:        logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/jobs", s.handleCreateJob)
		r.Post("/jobs/{jobID}/verifications", s.handleStartVerification)
		r.Post("/jobs/{jobID}/complete", s.handleCompleteJob)
		r.Post("/withdrawals", s.handleWithdraw)
	})
	return r
}

// authMiddleware provides simple Bearer token authentication for the API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
