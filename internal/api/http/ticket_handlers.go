package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/middleman-hub/middleman-hub/internal/application/mediation"
	appTicket "github.com/middleman-hub/middleman-hub/internal/application/ticket"
)

type actorRequest struct {
	ActorID    string `json:"actorId"`
	IsMediator bool   `json:"isMediator"`
	IsAdmin    bool   `json:"isAdmin"`
}

func (s *Server) openTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GuildID        string `json:"guildId"`
		ChannelID      string `json:"channelId"`
		OwnerID        string `json:"ownerId"`
		CounterpartyID string `json:"counterpartyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	t, err := s.ticketSvc.OpenTrade(r.Context(), appTicket.OpenTradeInput{
		GuildID:        req.GuildID,
		ChannelID:      req.ChannelID,
		OwnerID:        req.OwnerID,
		CounterpartyID: req.CounterpartyID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.ticketSvc.GetByChannel(r.Context(), chi.URLParam(r, "channelId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	participants, err := s.ticketSvc.Participants(r.Context(), t.TicketID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticket":       t,
		"participants": participants,
	})
}

func (s *Server) submitTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID    string `json:"actorId"`
		GameHandle string `json:"gameHandle"`
		Items      string `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.SubmitTrade(r.Context(), mediation.SubmitTradeInput{
		ChannelID:  chi.URLParam(r, "channelId"),
		ActorID:    req.ActorID,
		GameHandle: req.GameHandle,
		Items:      req.Items,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) confirmTrade(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.Confirm(r.Context(), mediation.ConfirmInput{
		ChannelID: chi.URLParam(r, "channelId"),
		ActorID:   req.ActorID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) requestHelp(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.RequestHelp(r.Context(), mediation.HelpInput{
		ChannelID: chi.URLParam(r, "channelId"),
		ActorID:   req.ActorID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) claimTicket(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.Claim(r.Context(), mediation.ClaimInput{
		ChannelID:  chi.URLParam(r, "channelId"),
		ActorID:    req.ActorID,
		IsMediator: req.IsMediator,
		IsAdmin:    req.IsAdmin,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) requestClose(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.RequestClose(r.Context(), mediation.CloseRequestInput{
		ChannelID:  chi.URLParam(r, "channelId"),
		ActorID:    req.ActorID,
		IsMediator: req.IsMediator,
		IsAdmin:    req.IsAdmin,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) castFinalizeVote(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.CastFinalizeVote(r.Context(), mediation.FinalizeVoteInput{
		ChannelID: chi.URLParam(r, "channelId"),
		ActorID:   req.ActorID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) forceClose(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	err := s.mediationSvc.ForceClose(r.Context(), mediation.ForceCloseInput{
		ChannelID:  chi.URLParam(r, "channelId"),
		ActorID:    req.ActorID,
		IsMediator: req.IsMediator,
		IsAdmin:    req.IsAdmin,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"closed": true})
}

func (s *Server) submitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string  `json:"actorId"`
		Stars   int     `json:"stars"`
		Text    *string `json:"text,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	res, err := s.mediationSvc.SubmitReview(r.Context(), mediation.ReviewInput{
		ChannelID: chi.URLParam(r, "channelId"),
		ActorID:   req.ActorID,
		Stars:     req.Stars,
		Text:      req.Text,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, res)
}

func (s *Server) mediatorProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.profileSvc.Profile(r.Context(), chi.URLParam(r, "mediatorId"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prof)
}
