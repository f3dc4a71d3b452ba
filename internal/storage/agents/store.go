// Package agents is the persistent agent registry: a JSON file on disk so
// registered agents survive restarts.
package agents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/kkdrhn/GhostBroker/internal/domain"
)

const defaultAgentsFile = "./data/agents.json"

// Store keeps the agent roster in memory and mirrors every change to disk.
// The slice preserves registration order, which the scheduler relies on for
// its per-tick iteration.
type Store struct {
	path string

	mu      sync.RWMutex
	roster  []domain.AgentProfile
	indexed map[string]int
}

// NewStore loads the registry from path, creating an empty one if the file
// does not exist yet.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultAgentsFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create agents dir")
	}

	s := &Store{path: path, indexed: make(map[string]int)}

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read agents file")
	}
	if len(payload) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(payload, &s.roster); err != nil {
		return nil, errors.Wrap(err, "decode agents file")
	}
	for i, profile := range s.roster {
		s.indexed[profile.AgentID] = i
	}

	return s, nil
}

// List returns the agents in registration order.
func (s *Store) List() []domain.AgentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AgentProfile, len(s.roster))
	copy(out, s.roster)
	return out
}

// Get returns the agent with the given id.
func (s *Store) Get(agentID string) (domain.AgentProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.indexed[agentID]
	if !ok {
		return domain.AgentProfile{}, false
	}
	return s.roster[i], true
}

// Add registers a new agent and persists the roster.
func (s *Store) Add(profile domain.AgentProfile) error {
	if profile.AgentID == "" {
		return errors.New("agent id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.indexed[profile.AgentID]; exists {
		return errors.Errorf("agent %s already registered", profile.AgentID)
	}

	s.roster = append(s.roster, profile)
	s.indexed[profile.AgentID] = len(s.roster) - 1
	return s.persist()
}

// Update replaces an existing agent's profile and persists the roster.
func (s *Store) Update(profile domain.AgentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexed[profile.AgentID]
	if !ok {
		return errors.Errorf("agent %s is not registered", profile.AgentID)
	}

	s.roster[i] = profile
	return s.persist()
}

// persist writes the roster atomically via a temp file. Callers hold s.mu.
func (s *Store) persist() error {
	payload, err := json.MarshalIndent(s.roster, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode agents file")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write agents temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist agents file")
	}
	return nil
}
