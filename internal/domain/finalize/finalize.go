package finalize

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Vote records that a participant currently agrees the trade is
// complete. Votes exist or they do not; they are never mutated, only
// cleared by orchestration resets.
type Vote struct {
	TicketID      uuid.UUID `json:"ticketId"`
	ParticipantID string    `json:"participantId"`
	VotedAt       time.Time `json:"votedAt"`
}

// Repository defines persistence for finalization votes.
type Repository interface {
	// Vote is an idempotent upsert; a repeat vote keeps the original
	// timestamp.
	Vote(ctx context.Context, ticketID uuid.UUID, participantID string, now time.Time) error
	ClearAll(ctx context.Context, ticketID uuid.UUID) error
	List(ctx context.Context, ticketID uuid.UUID) ([]*Vote, error)
}

// Voted reports whether the participant has a vote in the set.
func Voted(votes []*Vote, participantID string) bool {
	for _, v := range votes {
		if v.ParticipantID == participantID {
			return true
		}
	}
	return false
}
