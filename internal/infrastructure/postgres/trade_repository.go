package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/middleman-hub/middleman-hub/internal/domain/trade"
)

// TradeRepository implements trade.Repository.
type TradeRepository struct {
	pool *pgxpool.Pool
}

func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

func (r *TradeRepository) Upsert(ctx context.Context, d *trade.Declaration) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trade_declarations
		(ticket_id, participant_id, game_handle, game_user_id, items, confirmed, updated_at)
		VALUES ($1,$2,$3,$4,$5,FALSE,$6)
		ON CONFLICT (ticket_id, participant_id) DO UPDATE
		SET game_handle=$3, game_user_id=$4, items=$5, confirmed=FALSE, updated_at=$6
	`, d.TicketID, d.ParticipantID, d.GameHandle, d.GameUserID, d.Items, d.UpdatedAt)
	return err
}

func (r *TradeRepository) SetConfirmed(ctx context.Context, ticketID uuid.UUID, participantID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE trade_declarations SET confirmed=TRUE
		WHERE ticket_id=$1 AND participant_id=$2
	`, ticketID, participantID)
	return err
}

func (r *TradeRepository) ResetConfirmed(ctx context.Context, ticketID uuid.UUID, participantID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE trade_declarations SET confirmed=FALSE
		WHERE ticket_id=$1 AND participant_id=$2
	`, ticketID, participantID)
	return err
}

func (r *TradeRepository) Get(ctx context.Context, ticketID uuid.UUID, participantID string) (*trade.Declaration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, participant_id, game_handle, game_user_id, items, confirmed, updated_at
		FROM trade_declarations WHERE ticket_id=$1 AND participant_id=$2
	`, ticketID, participantID)
	return scanDeclaration(row)
}

func (r *TradeRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*trade.Declaration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_id, participant_id, game_handle, game_user_id, items, confirmed, updated_at
		FROM trade_declarations WHERE ticket_id=$1 ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*trade.Declaration
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDeclaration(row pgx.Row) (*trade.Declaration, error) {
	var d trade.Declaration
	if err := row.Scan(&d.ID, &d.TicketID, &d.ParticipantID, &d.GameHandle, &d.GameUserID,
		&d.Items, &d.Confirmed, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
