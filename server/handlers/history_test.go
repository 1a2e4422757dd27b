package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/reactivities/server/runner"
)

type mockHistoryProvider struct {
	status  runner.RunStatus
	history []runner.RunStatus
}

func (m *mockHistoryProvider) RefreshStatus() runner.RunStatus { return m.status }
func (m *mockHistoryProvider) RefreshHistory() []runner.RunStatus { return m.history }

func TestHistoryHandler_Status(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	handler := NewHistoryHandler(&mockHistoryProvider{
		status: runner.RunStatus{ID: "run-1", State: runner.RunStateRunning, Trigger: runner.TriggerCron, StartedAt: &started},
	})

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"run-1","state":"running","trigger":"cron","started_at":"2024-05-01T12:00:00Z"}`, w.Body.String())
}

func TestHistoryHandler_List(t *testing.T) {
	provider := &mockHistoryProvider{history: []runner.RunStatus{{ID: "c"}, {ID: "b"}, {ID: "a"}}}
	handler := NewHistoryHandler(provider)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantIDs    []string
	}{
		{name: "all runs", wantStatus: http.StatusOK, wantIDs: []string{"c", "b", "a"}},
		{name: "limited", query: "?limit=2", wantStatus: http.StatusOK, wantIDs: []string{"c", "b"}},
		{name: "limit above count", query: "?limit=10", wantStatus: http.StatusOK, wantIDs: []string{"c", "b", "a"}},
		{name: "invalid limit", query: "?limit=x", wantStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.List(w, httptest.NewRequest(http.MethodGet, "/api/history"+tt.query, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp HistoryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			ids := make([]string, len(resp.Runs))
			for i, run := range resp.Runs {
				ids[i] = run.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
