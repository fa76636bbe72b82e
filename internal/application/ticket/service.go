package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/middleman-hub/middleman-hub/internal/domain/identity"
	"github.com/middleman-hub/middleman-hub/internal/domain/ticket"
)

// Service manages ticket lifecycle records and participant membership.
type Service struct {
	repo   ticket.Repository
	logger zerolog.Logger
}

// NewService creates a ticket service.
func NewService(repo ticket.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "ticket").Logger(),
	}
}

// OpenTradeInput opens a mediated-trade ticket for an owner and a
// named counterparty.
type OpenTradeInput struct {
	GuildID        string
	ChannelID      string
	OwnerID        string
	CounterpartyID string
}

// OpenTrade creates a MIDDLEMAN ticket with both traders as
// participants. At most one open ticket of a type per owner: the rule
// lives here, not in the store.
func (s *Service) OpenTrade(ctx context.Context, in OpenTradeInput) (*ticket.Ticket, error) {
	guildID, err := identity.Normalize(in.GuildID)
	if err != nil {
		return nil, fmt.Errorf("guild id: %w", err)
	}
	channelID, err := identity.Normalize(in.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("channel id: %w", err)
	}
	ownerID, err := identity.Normalize(in.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner id: %w", err)
	}
	counterpartyID, err := identity.Normalize(in.CounterpartyID)
	if err != nil {
		return nil, fmt.Errorf("counterparty id: %w", err)
	}
	if ownerID == counterpartyID {
		return nil, ticket.ErrSelfTrade
	}

	open, err := s.repo.CountOpenByOwner(ctx, ownerID, ticket.TypeMiddleman)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ticket.ErrOpenTicketExists
	}

	now := time.Now().UTC()
	t := &ticket.Ticket{
		TicketID:  uuid.New(),
		GuildID:   guildID,
		ChannelID: channelID,
		OwnerID:   ownerID,
		Type:      ticket.TypeMiddleman,
		Status:    ticket.StatusOpen,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	for _, p := range []string{ownerID, counterpartyID} {
		if err := s.repo.AddParticipant(ctx, t.TicketID, p); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Str("channel_id", channelID).
		Str("owner_id", ownerID).
		Msg("trade ticket opened")
	return t, nil
}

// GetByChannel resolves the ticket bound to a channel.
func (s *Service) GetByChannel(ctx context.Context, channelID string) (*ticket.Ticket, error) {
	canonical, err := identity.Normalize(channelID)
	if err != nil {
		return nil, fmt.Errorf("channel id: %w", err)
	}
	t, err := s.repo.GetByChannel(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ticket.ErrNotFound
	}
	return t, nil
}

// Participants lists the canonical participant ids of a ticket.
func (s *Service) Participants(ctx context.Context, ticketID uuid.UUID) ([]string, error) {
	return s.repo.ListParticipants(ctx, ticketID)
}
