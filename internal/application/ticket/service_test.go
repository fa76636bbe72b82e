package ticket

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainTicket "github.com/middleman-hub/middleman-hub/internal/domain/ticket"
	ticketMocks "github.com/middleman-hub/middleman-hub/internal/domain/ticket/mocks"
)

func TestOpenTrade(t *testing.T) {
	repo := new(ticketMocks.MockRepository)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	repo.On("CountOpenByOwner", ctx, "100", domainTicket.TypeMiddleman).Return(0, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*ticket.Ticket")).Return(nil)
	repo.On("AddParticipant", ctx, mock.Anything, "100").Return(nil)
	repo.On("AddParticipant", ctx, mock.Anything, "200").Return(nil)

	tk, err := svc.OpenTrade(ctx, OpenTradeInput{
		GuildID:        "1",
		ChannelID:      "555",
		OwnerID:        "<@100>",
		CounterpartyID: "<@!200>",
	})
	require.NoError(t, err)
	assert.Equal(t, "100", tk.OwnerID)
	assert.Equal(t, "555", tk.ChannelID)
	assert.Equal(t, domainTicket.TypeMiddleman, tk.Type)
	assert.Equal(t, domainTicket.StatusOpen, tk.Status)
	repo.AssertExpectations(t)
}

func TestOpenTradeRejectsSecondOpenTicket(t *testing.T) {
	repo := new(ticketMocks.MockRepository)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	repo.On("CountOpenByOwner", ctx, "100", domainTicket.TypeMiddleman).Return(1, nil)

	_, err := svc.OpenTrade(ctx, OpenTradeInput{
		GuildID:        "1",
		ChannelID:      "555",
		OwnerID:        "100",
		CounterpartyID: "200",
	})
	require.ErrorIs(t, err, domainTicket.ErrOpenTicketExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOpenTradeRejectsSelfTrade(t *testing.T) {
	repo := new(ticketMocks.MockRepository)
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.OpenTrade(context.Background(), OpenTradeInput{
		GuildID:        "1",
		ChannelID:      "555",
		OwnerID:        "100",
		CounterpartyID: "<@000100>",
	})
	require.ErrorIs(t, err, domainTicket.ErrSelfTrade)
	repo.AssertNotCalled(t, "CountOpenByOwner", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetByChannel(t *testing.T) {
	repo := new(ticketMocks.MockRepository)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	want := &domainTicket.Ticket{ChannelID: "555"}
	repo.On("GetByChannel", ctx, "555").Return(want, nil)

	got, err := svc.GetByChannel(ctx, "<#555>")
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestGetByChannelNotFound(t *testing.T) {
	repo := new(ticketMocks.MockRepository)
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	repo.On("GetByChannel", ctx, "555").Return(nil, nil)

	_, err := svc.GetByChannel(ctx, "555")
	require.True(t, errors.Is(err, domainTicket.ErrNotFound))
}
