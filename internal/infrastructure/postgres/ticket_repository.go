package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/middleman-hub/middleman-hub/internal/domain/ticket"
)

// TicketRepository implements ticket.Repository.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, ticket_id, guild_id, channel_id, owner_id, ticket_type, status,
	panel_message_id, finalize_message_id, relock_at, created_at, closed_at`

func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tickets
		(ticket_id, guild_id, channel_id, owner_id, ticket_type, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, t.TicketID, t.GuildID, t.ChannelID, t.OwnerID, string(t.Type), string(t.Status), t.CreatedAt)
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID uuid.UUID) (*ticket.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id=$1`, ticketID)
	return scanTicket(row)
}

func (r *TicketRepository) GetByChannel(ctx context.Context, channelID string) (*ticket.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE channel_id=$1`, channelID)
	return scanTicket(row)
}

// SetStatus leaves an already closed ticket untouched and stamps
// closed_at exactly on the transition to CLOSED. The status guard in
// the WHERE clause is what makes a lost race harmless.
func (r *TicketRepository) SetStatus(ctx context.Context, ticketID uuid.UUID, status ticket.Status, now time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE tickets
		SET status=$2,
		    closed_at=CASE WHEN $2::text='CLOSED' THEN $3 ELSE closed_at END
		WHERE ticket_id=$1 AND status <> 'CLOSED'
	`, ticketID, string(status), now)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_id=$1)`, ticketID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ticket.ErrNotFound
	}
	return nil
}

func (r *TicketRepository) CountOpenByOwner(ctx context.Context, ownerID string, t ticket.Type) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tickets
		WHERE owner_id=$1 AND ticket_type=$2 AND status <> 'CLOSED'
	`, ownerID, string(t)).Scan(&n)
	return n, err
}

func (r *TicketRepository) AddParticipant(ctx context.Context, ticketID uuid.UUID, participantID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ticket_participants (ticket_id, participant_id)
		VALUES ($1,$2)
		ON CONFLICT (ticket_id, participant_id) DO NOTHING
	`, ticketID, participantID)
	return err
}

func (r *TicketRepository) ListParticipants(ctx context.Context, ticketID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT participant_id FROM ticket_participants WHERE ticket_id=$1 ORDER BY id
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *TicketRepository) SetPanelMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickets SET panel_message_id=$2 WHERE ticket_id=$1`, ticketID, messageID)
	return err
}

func (r *TicketRepository) SetFinalizeMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickets SET finalize_message_id=$2 WHERE ticket_id=$1`, ticketID, messageID)
	return err
}

func (r *TicketRepository) SetRelockAt(ctx context.Context, ticketID uuid.UUID, relockAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickets SET relock_at=$2 WHERE ticket_id=$1`, ticketID, relockAt)
	return err
}

func (r *TicketRepository) ListDueRelocks(ctx context.Context, now time.Time, limit int) ([]*ticket.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE relock_at IS NOT NULL AND relock_at <= $1
		ORDER BY relock_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (*ticket.Ticket, error) {
	var t ticket.Ticket
	var typ, status string
	var panelMsg, finalizeMsg *string
	var relockAt, closedAt *time.Time
	if err := row.Scan(&t.ID, &t.TicketID, &t.GuildID, &t.ChannelID, &t.OwnerID, &typ, &status,
		&panelMsg, &finalizeMsg, &relockAt, &t.CreatedAt, &closedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t.Type = ticket.Type(typ)
	t.Status = ticket.Status(status)
	t.PanelMessageID = panelMsg
	t.FinalizeMessageID = finalizeMsg
	t.RelockAt = relockAt
	t.ClosedAt = closedAt
	return &t, nil
}
