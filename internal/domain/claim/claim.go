package claim

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyClaimed = errors.New("ticket already claimed by another mediator")
	ErrNoClaim        = errors.New("ticket has no mediator claim")
)

// Claim assigns exactly one neutral mediator to a ticket. ClosedAt and
// Vouched are write-once guard flags: under concurrent completion
// triggers the first writer wins and every later write is a no-op.
type Claim struct {
	TicketID   uuid.UUID  `json:"ticketId"`
	MediatorID string     `json:"mediatorId"`
	ClaimedAt  time.Time  `json:"claimedAt"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	Vouched    bool       `json:"vouched"`
	Forced     bool       `json:"forced"`
}

// IsClosed reports whether the claim has been closed.
func (c *Claim) IsClosed() bool {
	return c.ClosedAt != nil
}
