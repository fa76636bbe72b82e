// Package profile exposes the read-side reputation projection for
// mediators. Nothing here is stored: vouch counts come from claim rows
// and rating aggregates from review rows, recomputed on every read so
// there is no counter to drift from its source facts.
package profile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/middleman-hub/middleman-hub/internal/domain/claim"
	"github.com/middleman-hub/middleman-hub/internal/domain/identity"
	"github.com/middleman-hub/middleman-hub/internal/domain/review"
)

// MediatorProfile is the live reputation view of one mediator.
type MediatorProfile struct {
	MediatorID string                 `json:"mediatorId"`
	VouchCount int                    `json:"vouchCount"`
	Rating     review.RatingAggregate `json:"rating"`
}

// Service computes mediator profiles.
type Service struct {
	claimRepo  claim.Repository
	reviewRepo review.Repository
	logger     zerolog.Logger
}

// NewService creates a profile service.
func NewService(claimRepo claim.Repository, reviewRepo review.Repository, logger zerolog.Logger) *Service {
	return &Service{
		claimRepo:  claimRepo,
		reviewRepo: reviewRepo,
		logger:     logger.With().Str("service", "profile").Logger(),
	}
}

// Profile returns the current derived aggregates for a mediator.
func (s *Service) Profile(ctx context.Context, mediatorID string) (*MediatorProfile, error) {
	canonical, err := identity.Normalize(mediatorID)
	if err != nil {
		return nil, fmt.Errorf("mediator id: %w", err)
	}
	vouches, err := s.claimRepo.CountVouchedByMediator(ctx, canonical)
	if err != nil {
		return nil, err
	}
	rating, err := s.reviewRepo.RatingAggregateFor(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return &MediatorProfile{
		MediatorID: canonical,
		VouchCount: vouches,
		Rating:     rating,
	}, nil
}
