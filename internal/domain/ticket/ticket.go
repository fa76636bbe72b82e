package ticket

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type describes what kind of interaction a ticket hosts.
type Type string

const (
	TypePurchase  Type = "PURCHASE"
	TypeSupport   Type = "SUPPORT"
	TypeMiddleman Type = "MIDDLEMAN"
)

// Status describes ticket lifecycle state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusClaimed   Status = "CLAIMED"
	StatusClosed    Status = "CLOSED"
)

var statusRank = map[Status]int{
	StatusOpen:      0,
	StatusConfirmed: 1,
	StatusClaimed:   2,
	StatusClosed:    3,
}

var (
	ErrNotFound          = errors.New("ticket not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	ErrAlreadyClosed     = errors.New("ticket already closed")
	ErrOpenTicketExists  = errors.New("owner already has an open ticket of this type")
	ErrNotParticipant    = errors.New("caller is not a ticket participant")
	ErrNotConfirmed      = errors.New("trade is not yet confirmed by all participants")
	ErrSelfTrade         = errors.New("cannot open a trade with yourself")
)

// Ticket is the unit container for one mediated interaction and its channel.
type Ticket struct {
	ID                int64      `json:"id"`
	TicketID          uuid.UUID  `json:"ticketId"`
	GuildID           string     `json:"guildId"`
	ChannelID         string     `json:"channelId"`
	OwnerID           string     `json:"ownerId"`
	Type              Type       `json:"type"`
	Status            Status     `json:"status"`
	PanelMessageID    *string    `json:"panelMessageId,omitempty"`
	FinalizeMessageID *string    `json:"finalizeMessageId,omitempty"`
	RelockAt          *time.Time `json:"relockAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
}

// CanTransitionTo reports whether moving to target keeps the lifecycle
// monotonic. Status only ever moves forward; a forced close may skip
// intermediate states but nothing ever moves back or out of CLOSED.
func (t *Ticket) CanTransitionTo(target Status) bool {
	from, ok := statusRank[t.Status]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	return to > from
}

// IsClosed reports whether the ticket has reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed
}

// AtLeast reports whether the ticket has reached the given status.
func (t *Ticket) AtLeast(s Status) bool {
	return statusRank[t.Status] >= statusRank[s]
}

// HasParticipant checks membership against canonical participant ids.
func HasParticipant(participants []string, id string) bool {
	for _, p := range participants {
		if p == id {
			return true
		}
	}
	return false
}
