// Package platform declares the chat-platform and game-platform
// collaborators the mediation workflow consumes. Implementations live
// with the bot gateway; this core only depends on these interfaces.
package platform

//go:generate mockgen -source=platform.go -destination=mocks/mock_platform.go -package=mocks

import (
	"context"
	"errors"
)

var ErrIdentityNotFound = errors.New("game identity not found")

// VerifiedIdentity is the game platform's answer for a handle lookup.
type VerifiedIdentity struct {
	CanonicalName   string
	ExternalID      string
	IsRecentAccount bool
}

// IdentityVerifier resolves a user-supplied game handle against the
// third-party platform. Returns ErrIdentityNotFound for unknown handles.
type IdentityVerifier interface {
	Verify(ctx context.Context, handle string) (*VerifiedIdentity, error)
}

// PanelContent is the renderable state of a status or finalization
// panel. Rendering details (embeds, components) belong to the gateway.
type PanelContent struct {
	Title    string
	Lines    []string
	Disabled bool
}

// Messenger is the channel/permission surface of the chat platform.
// RenderOrUpdatePanel edits the message identified by messageID when
// set and reachable, otherwise posts a new one and returns its id; the
// caller persists that id so a restarted process updates rather than
// duplicates.
type Messenger interface {
	SetSendPermission(ctx context.Context, channelID, participantID string, allowed bool) error
	RenderOrUpdatePanel(ctx context.Context, channelID string, messageID *string, content PanelContent) (string, error)
	SendMessage(ctx context.Context, channelID, content string) error
}

// StatsRecorder increments per-member completed-trade counters.
// Failures are logged by callers, never fatal to trade closure.
type StatsRecorder interface {
	IncrementCompletedTrade(ctx context.Context, participantID, counterpartyID string) error
}

// LogSink mirrors operational messages to a log channel, best effort.
type LogSink interface {
	Publish(ctx context.Context, channelID, content string) error
}
