package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/middleman-hub/middleman-hub/internal/application/mediation"
	"github.com/middleman-hub/middleman-hub/internal/application/profile"
	appTicket "github.com/middleman-hub/middleman-hub/internal/application/ticket"
	"github.com/middleman-hub/middleman-hub/internal/domain/claim"
	"github.com/middleman-hub/middleman-hub/internal/domain/identity"
	"github.com/middleman-hub/middleman-hub/internal/domain/platform"
	"github.com/middleman-hub/middleman-hub/internal/domain/review"
	"github.com/middleman-hub/middleman-hub/internal/domain/ticket"
	"github.com/middleman-hub/middleman-hub/internal/domain/trade"
)

// Server holds dependencies for HTTP handlers. The HTTP surface is the
// gateway-facing API: the chat gateway translates platform interactions
// into these calls.
type Server struct {
	ticketSvc    *appTicket.Service
	mediationSvc *mediation.Service
	profileSvc   *profile.Service
	apiKeyHash   string
}

func NewServer(
	ticketSvc *appTicket.Service,
	mediationSvc *mediation.Service,
	profileSvc *profile.Service,
	apiKeyHash string,
) *Server {
	return &Server{
		ticketSvc:    ticketSvc,
		mediationSvc: mediationSvc,
		profileSvc:   profileSvc,
		apiKeyHash:   apiKeyHash,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireKey)

		r.Post("/tickets", s.openTicket)

		r.Route("/tickets/channel/{channelId}", func(r chi.Router) {
			r.Get("/", s.getTicket)
			r.Post("/trade", s.submitTrade)
			r.Post("/confirm", s.confirmTrade)
			r.Post("/help", s.requestHelp)
			r.Post("/claim", s.claimTicket)
			r.Post("/close-request", s.requestClose)
			r.Post("/finalize-vote", s.castFinalizeVote)
			r.Post("/force-close", s.forceClose)
			r.Post("/reviews", s.submitReview)
		})

		r.Get("/mediators/{mediatorId}/profile", s.mediatorProfile)
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondDomainError maps domain sentinels onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalid):
		respondError(w, http.StatusBadRequest, "INVALID_IDENTIFIER", err.Error())
	case errors.Is(err, review.ErrInvalidStars):
		respondError(w, http.StatusBadRequest, "INVALID_STARS", err.Error())
	case errors.Is(err, ticket.ErrSelfTrade):
		respondError(w, http.StatusBadRequest, "SELF_TRADE", err.Error())
	case errors.Is(err, trade.ErrHandleRequired):
		respondError(w, http.StatusBadRequest, "GAME_HANDLE_REQUIRED", err.Error())
	case errors.Is(err, trade.ErrMissingData):
		respondError(w, http.StatusUnprocessableEntity, "MISSING_TRADE_DATA", err.Error())
	case errors.Is(err, ticket.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, platform.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, "GAME_IDENTITY_NOT_FOUND", err.Error())
	case errors.Is(err, mediation.ErrUnauthorizedParticipant), errors.Is(err, ticket.ErrNotParticipant):
		respondError(w, http.StatusForbidden, "UNAUTHORIZED_PARTICIPANT", err.Error())
	case errors.Is(err, claim.ErrAlreadyClaimed):
		respondError(w, http.StatusConflict, "ALREADY_CLAIMED", err.Error())
	case errors.Is(err, ticket.ErrNotConfirmed):
		respondError(w, http.StatusConflict, "NOT_CONFIRMED", err.Error())
	case errors.Is(err, claim.ErrNoClaim):
		respondError(w, http.StatusConflict, "NO_MEDIATOR_CLAIM", err.Error())
	case errors.Is(err, ticket.ErrAlreadyClosed):
		respondError(w, http.StatusConflict, "ALREADY_CLOSED", err.Error())
	case errors.Is(err, ticket.ErrOpenTicketExists):
		respondError(w, http.StatusConflict, "OPEN_TICKET_EXISTS", err.Error())
	case errors.Is(err, review.ErrDuplicate):
		respondError(w, http.StatusConflict, "DUPLICATE_REVIEW", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
