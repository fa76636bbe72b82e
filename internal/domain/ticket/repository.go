package ticket

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for tickets and participant membership.
// Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, ticketID uuid.UUID) (*Ticket, error)
	GetByChannel(ctx context.Context, channelID string) (*Ticket, error)

	// SetStatus stamps ClosedAt exactly when the ticket transitions to
	// CLOSED and never touches channel or owner. Updating an already
	// closed ticket is a no-op; an unknown id is ErrNotFound.
	SetStatus(ctx context.Context, ticketID uuid.UUID, status Status, now time.Time) error

	CountOpenByOwner(ctx context.Context, ownerID string, t Type) (int, error)

	AddParticipant(ctx context.Context, ticketID uuid.UUID, participantID string) error
	ListParticipants(ctx context.Context, ticketID uuid.UUID) ([]string, error)

	SetPanelMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error
	SetFinalizeMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error

	SetRelockAt(ctx context.Context, ticketID uuid.UUID, relockAt *time.Time) error
	ListDueRelocks(ctx context.Context, now time.Time, limit int) ([]*Ticket, error)
}
