package trade

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingData    = errors.New("no trade data submitted")
	ErrHandleRequired = errors.New("game handle is required")
)

// Declaration is one participant's side of a mediated trade: the game
// identity they verified and the items they intend to hand over.
type Declaration struct {
	ID            int64     `json:"id"`
	TicketID      uuid.UUID `json:"ticketId"`
	ParticipantID string    `json:"participantId"`
	GameHandle    string    `json:"gameHandle"`
	GameUserID    string    `json:"gameUserId"`
	Items         string    `json:"items"`
	Confirmed     bool      `json:"confirmed"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AllConfirmed reports whether every participant in the set has a
// confirmed declaration. The participant list, not a literal two, is
// the arity: tickets discover their participant count at runtime.
func AllConfirmed(decls []*Declaration, participants []string) bool {
	if len(participants) == 0 {
		return false
	}
	byParticipant := make(map[string]*Declaration, len(decls))
	for _, d := range decls {
		byParticipant[d.ParticipantID] = d
	}
	for _, p := range participants {
		d := byParticipant[p]
		if d == nil || !d.Confirmed {
			return false
		}
	}
	return true
}
