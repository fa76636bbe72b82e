package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/middleman-hub/middleman-hub/internal/domain/review"
)

// ReviewRepository implements review.Repository.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Submit(ctx context.Context, rv *review.Review) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews
		(review_id, ticket_id, reviewer_id, mediator_id, stars, review_text, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, rv.ReviewID, rv.TicketID, rv.ReviewerID, rv.MediatorID, rv.Stars, rv.Text, rv.CreatedAt).Scan(&rv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return review.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *ReviewRepository) CountByTicket(ctx context.Context, ticketID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE ticket_id=$1`, ticketID).Scan(&n)
	return n, err
}

func (r *ReviewRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*review.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, review_id, ticket_id, reviewer_id, mediator_id, stars, review_text, created_at
		FROM reviews WHERE ticket_id=$1 ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*review.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *ReviewRepository) RatingAggregateFor(ctx context.Context, mediatorID string) (review.RatingAggregate, error) {
	var agg review.RatingAggregate
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(stars),0), COUNT(*) FROM reviews WHERE mediator_id=$1
	`, mediatorID).Scan(&agg.Sum, &agg.Count)
	return agg, err
}

func scanReview(row pgx.Row) (*review.Review, error) {
	var rv review.Review
	var text *string
	if err := row.Scan(&rv.ID, &rv.ReviewID, &rv.TicketID, &rv.ReviewerID, &rv.MediatorID,
		&rv.Stars, &text, &rv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rv.Text = text
	return &rv, nil
}
