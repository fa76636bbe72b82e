package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/middleman-hub/middleman-hub/internal/domain/finalize"
)

// FinalizeRepository implements finalize.Repository.
type FinalizeRepository struct {
	pool *pgxpool.Pool
}

func NewFinalizeRepository(pool *pgxpool.Pool) *FinalizeRepository {
	return &FinalizeRepository{pool: pool}
}

func (r *FinalizeRepository) Vote(ctx context.Context, ticketID uuid.UUID, participantID string, now time.Time) error {
	// repeat votes keep the original timestamp
	_, err := r.pool.Exec(ctx, `
		INSERT INTO finalize_votes (ticket_id, participant_id, voted_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (ticket_id, participant_id) DO NOTHING
	`, ticketID, participantID, now)
	return err
}

func (r *FinalizeRepository) ClearAll(ctx context.Context, ticketID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM finalize_votes WHERE ticket_id=$1`, ticketID)
	return err
}

func (r *FinalizeRepository) List(ctx context.Context, ticketID uuid.UUID) ([]*finalize.Vote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticket_id, participant_id, voted_at
		FROM finalize_votes WHERE ticket_id=$1 ORDER BY voted_at
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*finalize.Vote
	for rows.Next() {
		var v finalize.Vote
		if err := rows.Scan(&v.TicketID, &v.ParticipantID, &v.VotedAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
