package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/middleman-hub/middleman-hub/internal/domain/claim"
)

// ClaimRepository implements claim.Repository.
type ClaimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

func (r *ClaimRepository) CreateOrReclaim(ctx context.Context, ticketID uuid.UUID, mediatorID string, now time.Time) (*claim.Claim, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ticket_claims (ticket_id, mediator_id, claimed_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (ticket_id) DO NOTHING
	`, ticketID, mediatorID, now)
	if err != nil {
		return nil, err
	}
	// return whatever row holds the key, ours or the one that beat us
	return r.GetByTicket(ctx, ticketID)
}

func (r *ClaimRepository) GetByTicket(ctx context.Context, ticketID uuid.UUID) (*claim.Claim, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT ticket_id, mediator_id, claimed_at, closed_at, vouched, forced
		FROM ticket_claims WHERE ticket_id=$1
	`, ticketID)
	return scanClaim(row)
}

func (r *ClaimRepository) MarkClosed(ctx context.Context, ticketID uuid.UUID, forced bool, now time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE ticket_claims SET closed_at=$3, forced=$2
		WHERE ticket_id=$1 AND closed_at IS NULL
	`, ticketID, forced, now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (r *ClaimRepository) MarkVouched(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE ticket_claims SET vouched=TRUE
		WHERE ticket_id=$1 AND vouched=FALSE
	`, ticketID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (r *ClaimRepository) CountVouchedByMediator(ctx context.Context, mediatorID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM ticket_claims WHERE mediator_id=$1 AND vouched=TRUE
	`, mediatorID).Scan(&n)
	return n, err
}

func scanClaim(row pgx.Row) (*claim.Claim, error) {
	var c claim.Claim
	var closedAt *time.Time
	if err := row.Scan(&c.TicketID, &c.MediatorID, &c.ClaimedAt, &closedAt, &c.Vouched, &c.Forced); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.ClosedAt = closedAt
	return &c, nil
}
