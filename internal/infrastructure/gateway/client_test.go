package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/middleman-hub/middleman-hub/internal/domain/platform"
)

func TestVerifyMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", zerolog.Nop())
	_, err := c.Verify(context.Background(), "ghost")
	assert.ErrorIs(t, err, platform.ErrIdentityNotFound)
}

func TestVerifyDecodesIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alpha", body["handle"])
		respondJSONTest(w, platform.VerifiedIdentity{CanonicalName: "Alpha", ExternalID: "42", IsRecentAccount: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zerolog.Nop())
	id, err := c.Verify(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", id.CanonicalName)
	assert.Equal(t, "42", id.ExternalID)
	assert.True(t, id.IsRecentAccount)
}

func TestRenderOrUpdatePanelReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/500/panels", r.URL.Path)
		respondJSONTest(w, map[string]string{"messageId": "777"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zerolog.Nop())
	id, err := c.RenderOrUpdatePanel(context.Background(), "500", nil, platform.PanelContent{Title: "Middleman Trade"})
	require.NoError(t, err)
	assert.Equal(t, "777", id)
}

func TestSendMessageSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", zerolog.Nop())
	err := c.SendMessage(context.Background(), "500", "hello")
	assert.Error(t, err)
}

func respondJSONTest(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
