// Package web exposes the HTTP surface: agent registration, health, the
// websocket fanout endpoint and an SSE replay of the decision trail.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kkdrhn/GhostBroker/internal/domain"
	"github.com/kkdrhn/GhostBroker/internal/services/hub"
)

const (
	decisionPollInterval = 2 * time.Second
	sseHeartbeat         = 30 * time.Second
)

type agentRegistry interface {
	List() []domain.AgentProfile
	Get(agentID string) (domain.AgentProfile, bool)
	Add(profile domain.AgentProfile) error
}

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
}

type schedulerStatus interface {
	State() int32
	Tick() uint64
}

type wsHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
	Broadcast(channel string, payload any)
}

// Server exposes the HTTP endpoints of the pipeline.
type Server struct {
	addr      string
	registry  agentRegistry
	decisions decisionReader
	scheduler schedulerStatus
	hub       wsHandler
	logger    *zap.Logger
}

// NewServer creates the HTTP server.
func NewServer(addr string, registry agentRegistry, decisions decisionReader,
	scheduler schedulerStatus, fanout wsHandler, logger *zap.Logger) *Server {
	return &Server{
		addr:      addr,
		registry:  registry,
		decisions: decisions,
		scheduler: scheduler,
		hub:       fanout,
		logger:    logger,
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/decisions/stream", s.handleDecisionStream)
	mux.HandleFunc("/ws", s.hub.HandleWS)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "stopped"
	if s.scheduler.State() != 0 {
		state = "running"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"scheduler": state,
		"tick":      s.scheduler.Tick(),
		"agents":    len(s.registry.List()),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.registry.List())
	case http.MethodPost:
		s.handleRegisterAgent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type registerAgentRequest struct {
	Name         string  `json:"name"`
	TokenID      uint64  `json:"token_id"`
	Strategy     string  `json:"strategy"`
	RiskAppetite int     `json:"risk_appetite"`
	Capital      float64 `json:"capital"`
	OwnerAddress string  `json:"owner_address"`
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	strategy, err := domain.ParseStrategy(req.Strategy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Capital <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capital must be positive"})
		return
	}

	capital := decimal.NewFromFloat(req.Capital)
	profile := domain.AgentProfile{
		AgentID:        uuid.NewString(),
		TokenID:        req.TokenID,
		Name:           req.Name,
		Strategy:       strategy,
		RiskAppetite:   req.RiskAppetite,
		Capital:        capital,
		InitialCapital: capital,
		OwnerAddress:   req.OwnerAddress,
	}

	if err := s.registry.Add(profile); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info("agent registered",
		zap.String("agent", profile.AgentID),
		zap.String("name", profile.Name),
		zap.String("strategy", profile.Strategy.String()))
	s.hub.Broadcast(hub.ChannelLifecycle, map[string]any{"type": "agent_registered", "data": profile})

	writeJSON(w, http.StatusCreated, profile)
}

// handleDecisionStream replays the decision WAL over SSE and follows new
// events as they are appended.
func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(decisionPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendEvents := func() error {
		records, err := s.decisions.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: decision\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendEvents(); err != nil {
		s.logger.Error("decision stream initial load failed", zap.Error(err))
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendEvents(); err != nil {
				s.logger.Warn("decision stream poll failed", zap.Error(err))
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
