package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for reviews. The (ticket, reviewer)
// uniqueness is enforced here: a duplicate insert fails with
// ErrDuplicate and never overwrites the stored review.
type Repository interface {
	Submit(ctx context.Context, r *Review) error
	CountByTicket(ctx context.Context, ticketID uuid.UUID) (int, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*Review, error)
	RatingAggregateFor(ctx context.Context, mediatorID string) (RatingAggregate, error)
}
