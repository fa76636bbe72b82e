// Package mediation implements the trade-mediation state machine: it
// validates transitions, coordinates the ticket/trade/claim/finalize/
// review stores and emits side effects to the chat platform.
//
// Every operation is invoked concurrently with no mutual exclusion,
// including two invocations on the same ticket. The discipline is
// optimistic read-modify-write: transition decisions are re-derived
// from freshly read state immediately before branching, and every
// store mutation is safe to apply twice. The claim's closedAt/vouched
// flags turn completion races into "first idempotent write wins".
package mediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/middleman-hub/middleman-hub/internal/application/guard"
	"github.com/middleman-hub/middleman-hub/internal/application/profile"
	"github.com/middleman-hub/middleman-hub/internal/domain/claim"
	"github.com/middleman-hub/middleman-hub/internal/domain/finalize"
	"github.com/middleman-hub/middleman-hub/internal/domain/identity"
	"github.com/middleman-hub/middleman-hub/internal/domain/platform"
	"github.com/middleman-hub/middleman-hub/internal/domain/review"
	"github.com/middleman-hub/middleman-hub/internal/domain/ticket"
	"github.com/middleman-hub/middleman-hub/internal/domain/trade"
)

var ErrUnauthorizedParticipant = errors.New("caller is not authorized for this action")

// Config carries the channel/role wiring of the workflow. The reviews
// channel always has a value: config.Load falls back to an explicit,
// overridable default rather than a hidden constant.
type Config struct {
	MediatorRoleID   string
	ReviewsChannelID string
	LogChannelID     string
	// MediatorChannelID receives ready-for-mediation pings; empty falls
	// back to the trade channel itself.
	MediatorChannelID string
	HelpUnlockWindow  time.Duration
}

// Service is the trade orchestrator.
type Service struct {
	ticketRepo ticket.Repository
	tradeRepo  trade.Repository
	claimRepo  claim.Repository
	voteRepo   finalize.Repository
	reviewRepo review.Repository

	verifier  platform.IdentityVerifier
	messenger platform.Messenger
	stats     platform.StatsRecorder
	logSink   platform.LogSink

	guard    *guard.Engine
	profiles *profile.Service
	queue    Enqueuer

	cfg    Config
	logger zerolog.Logger

	// non-authoritative fast path over the persisted message ids;
	// reconstructible from the ticket row after a restart.
	mu            sync.Mutex
	panelCache    map[uuid.UUID]string
	finalizeCache map[uuid.UUID]string
}

// Enqueuer paces best-effort outbound deliveries.
type Enqueuer interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

// NewService creates the orchestrator.
func NewService(
	ticketRepo ticket.Repository,
	tradeRepo trade.Repository,
	claimRepo claim.Repository,
	voteRepo finalize.Repository,
	reviewRepo review.Repository,
	verifier platform.IdentityVerifier,
	messenger platform.Messenger,
	stats platform.StatsRecorder,
	logSink platform.LogSink,
	guardEngine *guard.Engine,
	profiles *profile.Service,
	queue Enqueuer,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	return &Service{
		ticketRepo:    ticketRepo,
		tradeRepo:     tradeRepo,
		claimRepo:     claimRepo,
		voteRepo:      voteRepo,
		reviewRepo:    reviewRepo,
		verifier:      verifier,
		messenger:     messenger,
		stats:         stats,
		logSink:       logSink,
		guard:         guardEngine,
		profiles:      profiles,
		queue:         queue,
		cfg:           cfg,
		logger:        logger.With().Str("service", "mediation").Logger(),
		panelCache:    make(map[uuid.UUID]string),
		finalizeCache: make(map[uuid.UUID]string),
	}
}

// SubmitTradeInput is one participant's trade declaration.
type SubmitTradeInput struct {
	ChannelID  string
	ActorID    string
	GameHandle string
	Items      string
}

// SubmitTradeResult carries the stored declaration plus non-blocking
// risk warnings.
type SubmitTradeResult struct {
	Declaration *trade.Declaration
	Warnings    []guard.Warning
}

// SubmitTrade verifies the supplied game identity and upserts the
// participant's declaration. Resubmission always resets confirmation,
// even when the content is unchanged.
func (s *Service) SubmitTrade(ctx context.Context, in SubmitTradeInput) (*SubmitTradeResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !ticket.HasParticipant(participants, actor) {
		return nil, ErrUnauthorizedParticipant
	}

	handle := strings.TrimSpace(in.GameHandle)
	if handle == "" {
		return nil, trade.ErrHandleRequired
	}
	verified, err := s.verifier.Verify(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("verify game handle: %w", err)
	}

	now := time.Now().UTC()
	wasConfirmed := false
	if prior, err := s.tradeRepo.Get(ctx, t.TicketID, actor); err != nil {
		return nil, err
	} else if prior != nil {
		wasConfirmed = prior.Confirmed
	}

	d := &trade.Declaration{
		TicketID:      t.TicketID,
		ParticipantID: actor,
		GameHandle:    verified.CanonicalName,
		GameUserID:    verified.ExternalID,
		Items:         strings.TrimSpace(in.Items),
		UpdatedAt:     now,
	}
	if err := s.tradeRepo.Upsert(ctx, d); err != nil {
		return nil, err
	}
	// the orchestrator, not the store, owns the ordering: new content
	// never carries a stale confirmation
	if err := s.tradeRepo.ResetConfirmed(ctx, t.TicketID, actor); err != nil {
		return nil, err
	}

	// a resubmission after full confirmation re-enters an unconfirmed
	// state; any finalize votes from the previous round are stale
	if wasConfirmed && t.AtLeast(ticket.StatusConfirmed) {
		if err := s.voteRepo.ClearAll(ctx, t.TicketID); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to clear stale finalize votes")
		}
	}

	s.renderPanel(ctx, t, participants)

	var warnings []guard.Warning
	if s.guard != nil {
		warnings = s.guard.Evaluate(map[string]interface{}{
			"is_recent_account": verified.IsRecentAccount,
			"item_length":       len(d.Items),
			"handle_length":     len(verified.CanonicalName),
		})
	}
	if len(warnings) > 0 {
		s.sendWarnings(ctx, t.ChannelID, actor, warnings)
	}

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Str("participant_id", actor).
		Msg("trade data submitted")
	return &SubmitTradeResult{Declaration: d, Warnings: warnings}, nil
}

// ConfirmInput confirms the caller's own declaration.
type ConfirmInput struct {
	ChannelID string
	ActorID   string
}

// ConfirmResult reports what the confirm press did.
type ConfirmResult struct {
	// AlreadyConfirmed marks a repeat press: a benign no-op reply,
	// not an error.
	AlreadyConfirmed bool
	// FullyConfirmed is set when this press completed the set and the
	// ticket moved to CONFIRMED.
	FullyConfirmed bool
}

// Confirm locks in the caller's declaration. When every participant
// has a confirmed declaration the ticket transitions to CONFIRMED and
// the channel becomes mediator-only.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !ticket.HasParticipant(participants, actor) {
		return nil, ErrUnauthorizedParticipant
	}

	d, err := s.tradeRepo.Get(ctx, t.TicketID, actor)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, trade.ErrMissingData
	}
	if d.Confirmed {
		return &ConfirmResult{AlreadyConfirmed: true}, nil
	}
	if err := s.tradeRepo.SetConfirmed(ctx, t.TicketID, actor); err != nil {
		return nil, err
	}

	// re-read both sides; the branch below must see the freshest state,
	// not what this operation observed earlier
	decls, err := s.tradeRepo.ListByTicket(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}
	if !trade.AllConfirmed(decls, participants) {
		s.renderPanel(ctx, t, participants)
		return &ConfirmResult{}, nil
	}

	if err := s.voteRepo.ClearAll(ctx, t.TicketID); err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to clear stale finalize votes")
	}
	if t.CanTransitionTo(ticket.StatusConfirmed) {
		if err := s.ticketRepo.SetStatus(ctx, t.TicketID, ticket.StatusConfirmed, time.Now().UTC()); err != nil {
			return nil, err
		}
		t.Status = ticket.StatusConfirmed
	}

	// the single point where the channel becomes mediator-only
	s.setSendPermissions(ctx, t, participants, false)
	s.notifyMediatorRole(t)
	s.renderPanel(ctx, t, participants)

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Msg("trade fully confirmed; channel locked")
	return &ConfirmResult{FullyConfirmed: true}, nil
}

// HelpInput temporarily restores messaging for the participants.
type HelpInput struct {
	ChannelID string
	ActorID   string
}

// HelpResult reports when the channel re-locks.
type HelpResult struct {
	RelockAt time.Time
}

// RequestHelp unlocks the channel independent of trade state and
// schedules an automatic re-lock via the persisted relock deadline.
func (s *Service) RequestHelp(ctx context.Context, in HelpInput) (*HelpResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !ticket.HasParticipant(participants, actor) {
		return nil, ErrUnauthorizedParticipant
	}

	s.setSendPermissions(ctx, t, participants, true)

	relockAt := time.Now().UTC().Add(s.cfg.HelpUnlockWindow)
	if err := s.ticketRepo.SetRelockAt(ctx, t.TicketID, &relockAt); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Time("relock_at", relockAt).
		Msg("help requested; channel unlocked")
	return &HelpResult{RelockAt: relockAt}, nil
}

// ProcessDueRelocks re-applies the locked-channel invariant on tickets
// whose help window expired. State may have changed while the channel
// was open, so completeness is re-checked before the disabled panel is
// restored: the invariant is "locked iff fully confirmed or closed".
func (s *Service) ProcessDueRelocks(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	now := time.Now().UTC()
	due, err := s.ticketRepo.ListDueRelocks(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, t := range due {
		if err := s.ticketRepo.SetRelockAt(ctx, t.TicketID, nil); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to clear relock deadline")
			continue
		}
		participants, err := s.ticketRepo.ListParticipants(ctx, t.TicketID)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to list participants for relock")
			continue
		}
		if t.IsClosed() {
			s.setSendPermissions(ctx, t, participants, false)
			processed++
			continue
		}
		decls, err := s.tradeRepo.ListByTicket(ctx, t.TicketID)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to read declarations for relock")
			continue
		}
		if trade.AllConfirmed(decls, participants) {
			s.setSendPermissions(ctx, t, participants, false)
			s.renderPanel(ctx, t, participants)
		}
		processed++
	}
	return processed, nil
}

// ClaimInput assigns the calling mediator to the ticket.
type ClaimInput struct {
	ChannelID  string
	ActorID    string
	IsMediator bool
	IsAdmin    bool
}

// ClaimResult carries the assignment and the mediator's live profile.
type ClaimResult struct {
	Claim     *claim.Claim
	Reclaimed bool
	Profile   *profile.MediatorProfile
}

// Claim assigns a mediator. The same mediator re-claiming is an
// idempotent no-op; a different mediator is rejected until the claim
// is closed (claims are never released, only closed).
func (s *Service) Claim(ctx context.Context, in ClaimInput) (*ClaimResult, error) {
	if !in.IsMediator && !in.IsAdmin {
		return nil, ErrUnauthorizedParticipant
	}
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !t.AtLeast(ticket.StatusConfirmed) {
		return nil, ticket.ErrNotConfirmed
	}

	existing, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.MediatorID != actor {
		return nil, claim.ErrAlreadyClaimed
	}

	c, err := s.claimRepo.CreateOrReclaim(ctx, t.TicketID, actor, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if c.MediatorID != actor {
		// lost a create race to another mediator
		return nil, claim.ErrAlreadyClaimed
	}

	if t.CanTransitionTo(ticket.StatusClaimed) {
		if err := s.ticketRepo.SetStatus(ctx, t.TicketID, ticket.StatusClaimed, time.Now().UTC()); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to mark ticket claimed")
		} else {
			t.Status = ticket.StatusClaimed
		}
	}

	prof := s.mediatorProfile(ctx, actor)
	s.renderPanel(ctx, t, participants)

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Str("mediator_id", actor).
		Bool("reclaimed", existing != nil).
		Msg("ticket claimed")
	return &ClaimResult{Claim: c, Reclaimed: existing != nil, Profile: prof}, nil
}

// CloseRequestInput asks for the finalization prompt.
type CloseRequestInput struct {
	ChannelID  string
	ActorID    string
	IsMediator bool
	IsAdmin    bool
}

// CloseRequestResult shows each participant's current vote state.
type CloseRequestResult struct {
	Participants []string
	Voted        []string
}

// RequestClose renders the finalization prompt. Requires a fully
// confirmed trade.
func (s *Service) RequestClose(ctx context.Context, in CloseRequestInput) (*CloseRequestResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !s.mayDriveClosure(ctx, t, participants, actor, in.IsAdmin) {
		return nil, ErrUnauthorizedParticipant
	}

	decls, err := s.tradeRepo.ListByTicket(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}
	if !t.AtLeast(ticket.StatusConfirmed) || !trade.AllConfirmed(decls, participants) {
		return nil, ticket.ErrNotConfirmed
	}

	votes, err := s.voteRepo.List(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}
	s.renderFinalizePrompt(ctx, t, participants, votes, false)

	return &CloseRequestResult{Participants: participants, Voted: voterIDs(votes)}, nil
}

// FinalizeVoteInput casts one participant's "trade is complete" vote.
type FinalizeVoteInput struct {
	ChannelID string
	ActorID   string
}

// FinalizeVoteResult reports round progress.
type FinalizeVoteResult struct {
	Completed    bool
	Votes        int
	Participants int
}

// CastFinalizeVote records the vote and, once the set of distinct
// voters equals the set of participants, finalizes the trade. The
// check is set cardinality, never a hard-coded two.
func (s *Service) CastFinalizeVote(ctx context.Context, in FinalizeVoteInput) (*FinalizeVoteResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if t.IsClosed() {
		return nil, ticket.ErrAlreadyClosed
	}
	if !ticket.HasParticipant(participants, actor) {
		return nil, ErrUnauthorizedParticipant
	}
	if !t.AtLeast(ticket.StatusConfirmed) {
		return nil, ticket.ErrNotConfirmed
	}

	if err := s.voteRepo.Vote(ctx, t.TicketID, actor, time.Now().UTC()); err != nil {
		return nil, err
	}
	votes, err := s.voteRepo.List(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}

	// first vote of the round marks the ticket CLAIMED; an
	// observability marker, not a gate, so failure only logs
	if len(votes) == 1 && t.CanTransitionTo(ticket.StatusClaimed) {
		if err := s.ticketRepo.SetStatus(ctx, t.TicketID, ticket.StatusClaimed, time.Now().UTC()); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to mark ticket claimed on first vote")
		} else {
			t.Status = ticket.StatusClaimed
		}
	}

	s.renderFinalizePrompt(ctx, t, participants, votes, false)

	distinct := voterIDs(votes)
	res := &FinalizeVoteResult{Votes: len(distinct), Participants: len(participants)}
	if len(distinct) != len(participants) {
		return res, nil
	}

	if err := s.finalizeTrade(ctx, t, participants, false); err != nil {
		// a concurrent voter finished first; the trade is closed either way
		if errors.Is(err, ticket.ErrAlreadyClosed) {
			res.Completed = true
			return res, nil
		}
		return nil, err
	}
	res.Completed = true
	return res, nil
}

// ForceCloseInput closes the trade on mediator/admin authority.
type ForceCloseInput struct {
	ChannelID  string
	ActorID    string
	IsMediator bool
	IsAdmin    bool
}

// ForceClose finalizes the trade without participant votes. Only the
// claiming mediator or an admin may force.
func (s *Service) ForceClose(ctx context.Context, in ForceCloseInput) error {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return fmt.Errorf("actor id: %w", err)
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return err
	}
	c, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil {
		return err
	}
	if c == nil {
		return claim.ErrNoClaim
	}
	if !in.IsAdmin && (!in.IsMediator || c.MediatorID != actor) {
		return ErrUnauthorizedParticipant
	}
	return s.finalizeTrade(ctx, t, participants, true)
}

// finalizeTrade closes the trade exactly once. The claim's closedAt is
// the idempotence guard: MarkClosed elects a single winner and every
// other invocation aborts with ErrAlreadyClosed before any side effect.
func (s *Service) finalizeTrade(ctx context.Context, t *ticket.Ticket, participants []string, forced bool) error {
	c, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil {
		return err
	}
	if c == nil {
		return claim.ErrNoClaim
	}
	if c.IsClosed() {
		return ticket.ErrAlreadyClosed
	}

	now := time.Now().UTC()
	won, err := s.claimRepo.MarkClosed(ctx, t.TicketID, forced, now)
	if err != nil {
		return err
	}
	if !won {
		return ticket.ErrAlreadyClosed
	}

	decls, err := s.tradeRepo.ListByTicket(ctx, t.TicketID)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to read declarations for summary")
	}
	summary := buildSummary(t, decls, c.MediatorID, forced)
	if err := s.messenger.SendMessage(ctx, t.ChannelID, summary); err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to post completion summary")
	}
	if s.cfg.LogChannelID != "" {
		if err := s.logSink.Publish(ctx, s.cfg.LogChannelID, summary); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to mirror completion summary")
		}
	}

	if err := s.ticketRepo.SetStatus(ctx, t.TicketID, ticket.StatusClosed, now); err != nil {
		return err
	}
	t.Status = ticket.StatusClosed
	t.ClosedAt = &now

	for _, p := range participants {
		if err := s.stats.IncrementCompletedTrade(ctx, p, counterpartyOf(participants, p)); err != nil {
			s.logger.Warn().Err(err).
				Str("ticket_id", t.TicketID.String()).
				Str("participant_id", p).
				Msg("failed to increment completed-trade counter")
		}
	}

	// permanent lock
	s.setSendPermissions(ctx, t, participants, false)
	s.renderPanel(ctx, t, participants)
	s.renderFinalizePrompt(ctx, t, participants, nil, true)

	if err := s.voteRepo.ClearAll(ctx, t.TicketID); err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to clear finalize votes after close")
	}

	s.requestReviews(t, participants)

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Str("mediator_id", c.MediatorID).
		Bool("forced", forced).
		Msg("trade finalized")
	return nil
}

// ReviewInput rates the ticket's mediator.
type ReviewInput struct {
	ChannelID string
	ActorID   string
	Stars     int
	Text      *string
}

// ReviewResult reports the stored review; Duplicate marks the benign
// "already reviewed" reply.
type ReviewResult struct {
	Duplicate bool
	Review    *review.Review
	Vouched   bool
	Profile   *profile.MediatorProfile
}

// SubmitReview stores one immutable review per (ticket, reviewer) and,
// once every participant has reviewed, vouches the claim exactly once.
func (s *Service) SubmitReview(ctx context.Context, in ReviewInput) (*ReviewResult, error) {
	actor, err := identity.Normalize(in.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor id: %w", err)
	}
	if err := review.ValidateStars(in.Stars); err != nil {
		return nil, err
	}
	t, participants, err := s.loadTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if !ticket.HasParticipant(participants, actor) {
		return nil, ErrUnauthorizedParticipant
	}
	c, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, claim.ErrNoClaim
	}

	r := &review.Review{
		ReviewID:   uuid.New(),
		TicketID:   t.TicketID,
		ReviewerID: actor,
		MediatorID: c.MediatorID,
		Stars:      in.Stars,
		Text:       in.Text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.reviewRepo.Submit(ctx, r); err != nil {
		if errors.Is(err, review.ErrDuplicate) {
			return &ReviewResult{Duplicate: true}, nil
		}
		return nil, err
	}

	prof := s.mediatorProfile(ctx, c.MediatorID)
	s.renderPanel(ctx, t, participants)

	if err := s.messenger.SendMessage(ctx, s.cfg.ReviewsChannelID, buildReviewPost(t, r, prof)); err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to publish review")
	}

	// both completion triggers (finalize-driven elsewhere, review-driven
	// here) funnel through the single vouched flag; re-read the claim so
	// the decision uses fresh state
	vouched := false
	count, err := s.reviewRepo.CountByTicket(ctx, t.TicketID)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to count reviews")
	} else if count == len(participants) {
		fresh, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
		if err == nil && fresh != nil && !fresh.Vouched {
			won, err := s.claimRepo.MarkVouched(ctx, t.TicketID)
			if err != nil {
				s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to vouch claim")
			}
			vouched = won
		}
	}

	s.logger.Info().
		Str("ticket_id", t.TicketID.String()).
		Str("reviewer_id", actor).
		Int("stars", in.Stars).
		Msg("review submitted")
	return &ReviewResult{Review: r, Vouched: vouched, Profile: prof}, nil
}

func (s *Service) loadTicket(ctx context.Context, channelID string) (*ticket.Ticket, []string, error) {
	canonical, err := identity.Normalize(channelID)
	if err != nil {
		return nil, nil, fmt.Errorf("channel id: %w", err)
	}
	t, err := s.ticketRepo.GetByChannel(ctx, canonical)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, ticket.ErrNotFound
	}
	participants, err := s.ticketRepo.ListParticipants(ctx, t.TicketID)
	if err != nil {
		return nil, nil, err
	}
	return t, participants, nil
}

func (s *Service) mayDriveClosure(ctx context.Context, t *ticket.Ticket, participants []string, actor string, isAdmin bool) bool {
	if isAdmin || ticket.HasParticipant(participants, actor) {
		return true
	}
	c, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil || c == nil {
		return false
	}
	return c.MediatorID == actor
}

func (s *Service) mediatorProfile(ctx context.Context, mediatorID string) *profile.MediatorProfile {
	prof, err := s.profiles.Profile(ctx, mediatorID)
	if err != nil {
		s.logger.Warn().Err(err).Str("mediator_id", mediatorID).Msg("failed to load mediator profile")
		return nil
	}
	return prof
}

func (s *Service) setSendPermissions(ctx context.Context, t *ticket.Ticket, participants []string, allowed bool) {
	for _, p := range participants {
		if err := s.messenger.SetSendPermission(ctx, t.ChannelID, p, allowed); err != nil {
			s.logger.Warn().Err(err).
				Str("ticket_id", t.TicketID.String()).
				Str("participant_id", p).
				Bool("allowed", allowed).
				Msg("failed to set send permission")
		}
	}
}

func (s *Service) notifyMediatorRole(t *ticket.Ticket) {
	if s.cfg.MediatorRoleID == "" {
		return
	}
	channelID := s.cfg.MediatorChannelID
	if channelID == "" {
		channelID = t.ChannelID
	}
	content := fmt.Sprintf("<@&%s> A trade in <#%s> is confirmed and ready for mediation.", s.cfg.MediatorRoleID, t.ChannelID)
	s.deliver("mediator-ping", func(ctx context.Context) error {
		return s.messenger.SendMessage(ctx, channelID, content)
	})
}

func (s *Service) requestReviews(t *ticket.Ticket, participants []string) {
	mentions := make([]string, 0, len(participants))
	for _, p := range participants {
		mentions = append(mentions, mention(p))
	}
	content := fmt.Sprintf("%s the trade is complete. Please rate your middleman with the review action.", strings.Join(mentions, " "))
	s.deliver("review-request", func(ctx context.Context) error {
		return s.messenger.SendMessage(ctx, t.ChannelID, content)
	})
}

func (s *Service) sendWarnings(ctx context.Context, channelID, actor string, warnings []guard.Warning) {
	lines := make([]string, 0, len(warnings)+1)
	lines = append(lines, fmt.Sprintf("%s heads up:", mention(actor)))
	for _, w := range warnings {
		lines = append(lines, "• "+w.Message)
	}
	if err := s.messenger.SendMessage(ctx, channelID, strings.Join(lines, "\n")); err != nil {
		s.logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to send guard warning")
	}
}

// deliver routes a best-effort send through the dispatch queue when one
// is configured, otherwise sends inline.
func (s *Service) deliver(name string, fn func(ctx context.Context) error) {
	if s.queue != nil {
		s.queue.Enqueue(name, fn)
		return
	}
	if err := fn(context.Background()); err != nil {
		s.logger.Warn().Err(err).Str("task", name).Msg("delivery failed")
	}
}

func (s *Service) renderPanel(ctx context.Context, t *ticket.Ticket, participants []string) {
	decls, err := s.tradeRepo.ListByTicket(ctx, t.TicketID)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to read declarations for panel")
		return
	}
	c, err := s.claimRepo.GetByTicket(ctx, t.TicketID)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to read claim for panel")
		return
	}
	var prof *profile.MediatorProfile
	if c != nil {
		prof = s.mediatorProfile(ctx, c.MediatorID)
	}
	content := buildPanel(t, participants, decls, c, prof)

	s.mu.Lock()
	cached, ok := s.panelCache[t.TicketID]
	s.mu.Unlock()
	msgID := t.PanelMessageID
	if ok {
		msgID = &cached
	}

	id, err := s.messenger.RenderOrUpdatePanel(ctx, t.ChannelID, msgID, content)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to render status panel")
		return
	}
	s.mu.Lock()
	s.panelCache[t.TicketID] = id
	s.mu.Unlock()
	if t.PanelMessageID == nil || *t.PanelMessageID != id {
		if err := s.ticketRepo.SetPanelMessageID(ctx, t.TicketID, id); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to persist panel message id")
		}
		t.PanelMessageID = &id
	}
}

func (s *Service) renderFinalizePrompt(ctx context.Context, t *ticket.Ticket, participants []string, votes []*finalize.Vote, completed bool) {
	content := buildFinalizePrompt(participants, votes, completed)

	s.mu.Lock()
	cached, ok := s.finalizeCache[t.TicketID]
	s.mu.Unlock()
	msgID := t.FinalizeMessageID
	if ok {
		msgID = &cached
	}

	id, err := s.messenger.RenderOrUpdatePanel(ctx, t.ChannelID, msgID, content)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to render finalization prompt")
		return
	}
	s.mu.Lock()
	s.finalizeCache[t.TicketID] = id
	s.mu.Unlock()
	if t.FinalizeMessageID == nil || *t.FinalizeMessageID != id {
		if err := s.ticketRepo.SetFinalizeMessageID(ctx, t.TicketID, id); err != nil {
			s.logger.Warn().Err(err).Str("ticket_id", t.TicketID.String()).Msg("failed to persist finalization message id")
		}
		t.FinalizeMessageID = &id
	}
}

func voterIDs(votes []*finalize.Vote) []string {
	seen := make(map[string]struct{}, len(votes))
	out := make([]string, 0, len(votes))
	for _, v := range votes {
		if _, ok := seen[v.ParticipantID]; ok {
			continue
		}
		seen[v.ParticipantID] = struct{}{}
		out = append(out, v.ParticipantID)
	}
	return out
}

func counterpartyOf(participants []string, p string) string {
	others := make([]string, 0, len(participants)-1)
	for _, q := range participants {
		if q != p {
			others = append(others, q)
		}
	}
	return strings.Join(others, ",")
}

func mention(id string) string {
	return "<@" + id + ">"
}

func buildPanel(t *ticket.Ticket, participants []string, decls []*trade.Declaration, c *claim.Claim, prof *profile.MediatorProfile) platform.PanelContent {
	byParticipant := make(map[string]*trade.Declaration, len(decls))
	for _, d := range decls {
		byParticipant[d.ParticipantID] = d
	}

	lines := make([]string, 0, len(participants)+3)
	for _, p := range participants {
		d := byParticipant[p]
		switch {
		case d == nil:
			lines = append(lines, fmt.Sprintf("%s · no trade data yet", mention(p)))
		case d.Confirmed:
			lines = append(lines, fmt.Sprintf("%s · %s: %s ✅", mention(p), d.GameHandle, d.Items))
		default:
			lines = append(lines, fmt.Sprintf("%s · %s: %s ⏳", mention(p), d.GameHandle, d.Items))
		}
	}
	if c != nil {
		line := fmt.Sprintf("Middleman: %s", mention(c.MediatorID))
		if prof != nil {
			line += fmt.Sprintf(" · ⭐ %.1f (%d reviews) · 🤝 %d vouches", prof.Rating.Average(), prof.Rating.Count, prof.VouchCount)
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("Status: %s", t.Status))

	return platform.PanelContent{
		Title:    "Middleman Trade",
		Lines:    lines,
		Disabled: t.AtLeast(ticket.StatusConfirmed),
	}
}

func buildFinalizePrompt(participants []string, votes []*finalize.Vote, completed bool) platform.PanelContent {
	lines := make([]string, 0, len(participants)+1)
	for _, p := range participants {
		if completed || finalize.Voted(votes, p) {
			lines = append(lines, fmt.Sprintf("%s ✅", mention(p)))
		} else {
			lines = append(lines, fmt.Sprintf("%s ⏳", mention(p)))
		}
	}
	if completed {
		lines = append(lines, "Trade closed.")
	}
	return platform.PanelContent{
		Title:    "Close Trade",
		Lines:    lines,
		Disabled: completed,
	}
}

func buildSummary(t *ticket.Ticket, decls []*trade.Declaration, mediatorID string, forced bool) string {
	lines := []string{"**Trade complete**"}
	for _, d := range decls {
		lines = append(lines, fmt.Sprintf("%s traded %s (%s)", mention(d.ParticipantID), d.Items, d.GameHandle))
	}
	lines = append(lines, fmt.Sprintf("Mediated by %s", mention(mediatorID)))
	if forced {
		lines = append(lines, "Closed by the mediator.")
	}
	return strings.Join(lines, "\n")
}

func buildReviewPost(t *ticket.Ticket, r *review.Review, prof *profile.MediatorProfile) string {
	lines := []string{
		fmt.Sprintf("%s rated %s %d/5", mention(r.ReviewerID), mention(r.MediatorID), r.Stars),
	}
	if r.Text != nil && strings.TrimSpace(*r.Text) != "" {
		lines = append(lines, fmt.Sprintf("%q", strings.TrimSpace(*r.Text)))
	}
	if prof != nil {
		lines = append(lines, fmt.Sprintf("Current rating: ⭐ %.1f over %d reviews · 🤝 %d vouches", prof.Rating.Average(), prof.Rating.Count, prof.VouchCount))
	}
	lines = append(lines, fmt.Sprintf("Ticket %s", t.TicketID))
	return strings.Join(lines, "\n")
}
