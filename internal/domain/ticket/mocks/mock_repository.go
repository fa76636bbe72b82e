package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/middleman-hub/middleman-hub/internal/domain/ticket"
)

// MockRepository is a mock implementation of ticket.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, ticketID uuid.UUID) (*ticket.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockRepository) GetByChannel(ctx context.Context, channelID string) (*ticket.Ticket, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockRepository) SetStatus(ctx context.Context, ticketID uuid.UUID, status ticket.Status, now time.Time) error {
	args := m.Called(ctx, ticketID, status, now)
	return args.Error(0)
}

func (m *MockRepository) CountOpenByOwner(ctx context.Context, ownerID string, t ticket.Type) (int, error) {
	args := m.Called(ctx, ownerID, t)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) AddParticipant(ctx context.Context, ticketID uuid.UUID, participantID string) error {
	args := m.Called(ctx, ticketID, participantID)
	return args.Error(0)
}

func (m *MockRepository) ListParticipants(ctx context.Context, ticketID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) SetPanelMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error {
	args := m.Called(ctx, ticketID, messageID)
	return args.Error(0)
}

func (m *MockRepository) SetFinalizeMessageID(ctx context.Context, ticketID uuid.UUID, messageID string) error {
	args := m.Called(ctx, ticketID, messageID)
	return args.Error(0)
}

func (m *MockRepository) SetRelockAt(ctx context.Context, ticketID uuid.UUID, relockAt *time.Time) error {
	args := m.Called(ctx, ticketID, relockAt)
	return args.Error(0)
}

func (m *MockRepository) ListDueRelocks(ctx context.Context, now time.Time, limit int) ([]*ticket.Ticket, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Ticket), args.Error(1)
}
