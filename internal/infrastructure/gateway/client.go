// Package gateway is the HTTP client for the bot gateway's callback
// API. It implements the platform collaborator interfaces by POSTing
// outbound actions; the gateway translates them into chat-platform
// calls.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/middleman-hub/middleman-hub/internal/domain/platform"
)

// Client talks to the gateway callback API. It satisfies
// platform.IdentityVerifier, platform.Messenger, platform.StatsRecorder
// and platform.LogSink.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

func (c *Client) Verify(ctx context.Context, handle string) (*platform.VerifiedIdentity, error) {
	var out platform.VerifiedIdentity
	status, err := c.post(ctx, "/verify", map[string]interface{}{"handle": handle}, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.ErrIdentityNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gateway verify: unexpected status %d", status)
	}
	return &out, nil
}

func (c *Client) SetSendPermission(ctx context.Context, channelID, participantID string, allowed bool) error {
	status, err := c.post(ctx, "/channels/"+channelID+"/permissions", map[string]interface{}{
		"participantId": participantID,
		"allowed":       allowed,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("gateway permissions: unexpected status %d", status)
	}
	return nil
}

func (c *Client) RenderOrUpdatePanel(ctx context.Context, channelID string, messageID *string, content platform.PanelContent) (string, error) {
	var out struct {
		MessageID string `json:"messageId"`
	}
	status, err := c.post(ctx, "/channels/"+channelID+"/panels", map[string]interface{}{
		"messageId": messageID,
		"title":     content.Title,
		"lines":     content.Lines,
		"disabled":  content.Disabled,
	}, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("gateway panel: unexpected status %d", status)
	}
	return out.MessageID, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	status, err := c.post(ctx, "/channels/"+channelID+"/messages", map[string]interface{}{
		"content": content,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return fmt.Errorf("gateway message: unexpected status %d", status)
	}
	return nil
}

func (c *Client) IncrementCompletedTrade(ctx context.Context, participantID, counterpartyID string) error {
	status, err := c.post(ctx, "/stats/completed-trade", map[string]interface{}{
		"participantId":  participantID,
		"counterpartyId": counterpartyID,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("gateway stats: unexpected status %d", status)
	}
	return nil
}

func (c *Client) Publish(ctx context.Context, channelID, content string) error {
	return c.SendMessage(ctx, channelID, content)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
