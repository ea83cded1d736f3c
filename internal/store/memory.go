package store

import (
	"sync"
	"time"

	"resonance/internal/types"
)

// MemoryStore keeps everything in process memory. All data is lost on
// restart. Trajectories are deep-copied on both load and save so callers
// never alias the stored state.
type MemoryStore struct {
	mu           sync.RWMutex
	trajectories map[string]*types.Trajectory
	logs         []types.ConversationLog
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trajectories: make(map[string]*types.Trajectory)}
}

func (m *MemoryStore) LoadTrajectory(userID string) (*types.Trajectory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trajectories[userID]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (m *MemoryStore) SaveTrajectory(t *types.Trajectory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trajectories[t.UserID] = t.Clone()
	return nil
}

func (m *MemoryStore) ListUserIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.trajectories))
	for id := range m.trajectories {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) SaveExperience(e *types.Experience) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	traj, ok := m.trajectories[e.UserID]
	if !ok {
		traj = types.NewTrajectory(e.UserID)
		m.trajectories[e.UserID] = traj
	}
	for i, existing := range traj.Experiences {
		if existing.ID == e.ID {
			traj.Experiences[i] = e.Clone()
			return nil
		}
	}
	traj.Experiences = append(traj.Experiences, e.Clone())
	return nil
}

func (m *MemoryStore) LoadExperience(userID, experienceID string) (*types.Experience, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	traj, ok := m.trajectories[userID]
	if !ok {
		return nil, nil
	}
	for _, e := range traj.Experiences {
		if e.ID == experienceID {
			return e.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) SaveFollowUp(userID, experienceID string, fu types.FollowUp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	traj, ok := m.trajectories[userID]
	if !ok {
		return nil
	}
	for _, e := range traj.Experiences {
		if e.ID == experienceID {
			e.FollowUps = append(e.FollowUps, fu)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) LogConversation(sessionID, userID, role, content, mode string, metrics map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, types.ConversationLog{
		ID:        int64(len(m.logs) + 1),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Mode:      mode,
		Timestamp: time.Now().UTC(),
		Metrics:   metrics,
	})
	return nil
}

func (m *MemoryStore) GetConversationLogs(sessionID, userID string, limit int) ([]types.ConversationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.ConversationLog
	for _, l := range m.logs {
		if sessionID != "" && l.SessionID != sessionID {
			continue
		}
		if userID != "" && l.UserID != userID {
			continue
		}
		out = append(out, l)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) HealthCheck() bool { return true }

func (m *MemoryStore) Close() error { return nil }
