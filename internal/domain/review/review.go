package review

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicate    = errors.New("reviewer already submitted a review for this ticket")
	ErrInvalidStars = errors.New("star rating must be between 0 and 5")
)

// Review is one participant's rating of the mediator for one ticket.
// Exactly one per (ticket, reviewer); immutable once stored.
type Review struct {
	ID         int64     `json:"id"`
	ReviewID   uuid.UUID `json:"reviewId"`
	TicketID   uuid.UUID `json:"ticketId"`
	ReviewerID string    `json:"reviewerId"`
	MediatorID string    `json:"mediatorId"`
	Stars      int       `json:"stars"`
	Text       *string   `json:"text,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ValidateStars checks the 0-5 inclusive range.
func ValidateStars(stars int) error {
	if stars < 0 || stars > 5 {
		return ErrInvalidStars
	}
	return nil
}

// RatingAggregate is the derived star summary for a mediator,
// recomputed from review rows on every read.
type RatingAggregate struct {
	Sum   int `json:"sum"`
	Count int `json:"count"`
}

// Average returns the mean star rating, or 0 with no reviews.
func (a RatingAggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Sum) / float64(a.Count)
}
