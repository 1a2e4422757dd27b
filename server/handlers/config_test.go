package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomis52/reactivities/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type mockConfigProvider struct {
	config *config.Config
}

func (m *mockConfigProvider) Config() *config.Config {
	return m.config
}

func TestConfigHandler(t *testing.T) {
	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL: "http://api.example.com/api",
			Token:   "secret-token",
			Timeout: 10 * time.Second,
		},
		User: config.UserConfig{
			Username: "bob",
		},
	}

	provider := &mockConfigProvider{config: cfg}
	handler := NewConfigHandler(provider)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/yaml", w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "secret-token")

	var resp config.Config
	err := yaml.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)

	assert.Equal(t, "http://api.example.com/api", resp.API.BaseURL)
	assert.Equal(t, "REDACTED", resp.API.Token)
	assert.Equal(t, "bob", resp.User.Username)
	assert.Equal(t, "secret-token", cfg.API.Token, "original config is not modified")
}
