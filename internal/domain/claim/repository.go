package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for mediator claims, keyed by ticket.
// Lookups return (nil, nil) when no row matches.
type Repository interface {
	// CreateOrReclaim inserts the claim or, when one already exists,
	// returns it untouched. The store does not enforce mediator
	// exclusivity beyond the key; the orchestrator rejects a different
	// mediator before calling this.
	CreateOrReclaim(ctx context.Context, ticketID uuid.UUID, mediatorID string, now time.Time) (*Claim, error)
	GetByTicket(ctx context.Context, ticketID uuid.UUID) (*Claim, error)

	// MarkClosed sets ClosedAt (and the forced flag) only if unset and
	// reports whether this call was the one that closed it.
	MarkClosed(ctx context.Context, ticketID uuid.UUID, forced bool, now time.Time) (bool, error)

	// MarkVouched sets the vouched flag only if unset and reports
	// whether this call won; the flag is the sole guard against double
	// counting a claim in the derived vouch aggregate.
	MarkVouched(ctx context.Context, ticketID uuid.UUID) (bool, error)

	// CountVouchedByMediator derives the vouch count from claim rows on
	// every read; there is no maintained counter to drift.
	CountVouchedByMediator(ctx context.Context, mediatorID string) (int, error)
}
