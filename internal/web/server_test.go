package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

type fakeRegistry struct {
	roster []domain.AgentProfile
}

func (f *fakeRegistry) List() []domain.AgentProfile { return f.roster }

func (f *fakeRegistry) Get(agentID string) (domain.AgentProfile, bool) {
	for _, profile := range f.roster {
		if profile.AgentID == agentID {
			return profile, true
		}
	}
	return domain.AgentProfile{}, false
}

func (f *fakeRegistry) Add(profile domain.AgentProfile) error {
	f.roster = append(f.roster, profile)
	return nil
}

type fakeDecisions struct{}

func (fakeDecisions) EventsAfter(uint64) ([]domain.DecisionEventRecord, error) { return nil, nil }

type fakeScheduler struct{}

func (fakeScheduler) State() int32 { return 1 }
func (fakeScheduler) Tick() uint64 { return 42 }

type fakeHub struct {
	broadcasts []string
}

func (f *fakeHub) HandleWS(http.ResponseWriter, *http.Request) {}

func (f *fakeHub) Broadcast(channel string, _ any) {
	f.broadcasts = append(f.broadcasts, channel)
}

func newTestServer() (*Server, *fakeRegistry, *fakeHub) {
	registry := &fakeRegistry{}
	fanout := &fakeHub{}
	server := NewServer(":0", registry, fakeDecisions{}, fakeScheduler{}, fanout, zap.NewNop())
	return server, registry, fanout
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "running", body["scheduler"])
	assert.Equal(t, float64(42), body["tick"])
}

func TestHandleAgents(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		server, registry, fanout := newTestServer()

		payload, _ := json.Marshal(map[string]any{
			"name":          "Spectral Trader",
			"token_id":      7,
			"strategy":      "aggressive",
			"risk_appetite": 80,
			"capital":       5000,
		})
		rec := httptest.NewRecorder()
		server.handleAgents(rec, httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(payload)))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created domain.AgentProfile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.AgentID)
		assert.Equal(t, domain.StrategyAggressive, created.Strategy)
		assert.True(t, created.Capital.Equal(created.InitialCapital))

		require.Len(t, registry.roster, 1)
		assert.Contains(t, fanout.broadcasts, "agent.lifecycle")
	})

	t.Run("unknown strategy rejected", func(t *testing.T) {
		server, registry, _ := newTestServer()

		payload, _ := json.Marshal(map[string]any{"strategy": "reckless", "capital": 100})
		rec := httptest.NewRecorder()
		server.handleAgents(rec, httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(payload)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, registry.roster)
	})

	t.Run("non-positive capital rejected", func(t *testing.T) {
		server, _, _ := newTestServer()

		payload, _ := json.Marshal(map[string]any{"strategy": "balanced", "capital": 0})
		rec := httptest.NewRecorder()
		server.handleAgents(rec, httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader(payload)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		server, registry, _ := newTestServer()
		registry.roster = []domain.AgentProfile{{AgentID: "a1"}, {AgentID: "a2"}}

		rec := httptest.NewRecorder()
		server.handleAgents(rec, httptest.NewRequest(http.MethodGet, "/agents", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var roster []domain.AgentProfile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
		assert.Len(t, roster, 2)
	})

	t.Run("method not allowed", func(t *testing.T) {
		server, _, _ := newTestServer()
		rec := httptest.NewRecorder()
		server.handleAgents(rec, httptest.NewRequest(http.MethodDelete, "/agents", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
