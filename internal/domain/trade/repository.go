package trade

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for trade declarations. At most one
// row exists per (ticket, participant); lookups return (nil, nil) when
// no row matches.
type Repository interface {
	// Upsert replaces any prior declaration for the pair and forces
	// Confirmed back to false: new content never carries a stale
	// confirmation.
	Upsert(ctx context.Context, d *Declaration) error
	SetConfirmed(ctx context.Context, ticketID uuid.UUID, participantID string) error
	ResetConfirmed(ctx context.Context, ticketID uuid.UUID, participantID string) error
	Get(ctx context.Context, ticketID uuid.UUID, participantID string) (*Declaration, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Declaration, error)
}
