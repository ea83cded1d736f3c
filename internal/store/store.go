// Package store persists user trajectories, experiences, follow-ups, and
// vector history across sessions. Without persistence the long arc is
// impossible: everything resets on restart.
//
// Store defines the interface. Implementations:
//   - MemoryStore: no persistence, for tests and demos
//   - SQLiteStore: local file persistence for production use
//
// The interface is deliberately trajectory-centric. The vector tracker is
// the primary consumer: it loads a trajectory, mutates it, and saves it back.
package store

import "resonance/internal/types"

// Store is the persistence layer behind the pipeline.
type Store interface {
	// LoadTrajectory returns a user's full trajectory, or nil if the user
	// has no stored history.
	LoadTrajectory(userID string) (*types.Trajectory, error)

	// SaveTrajectory persists a trajectory (upsert: create or update).
	SaveTrajectory(t *types.Trajectory) error

	// ListUserIDs lists all user ids with stored trajectories.
	ListUserIDs() ([]string, error)

	// SaveExperience persists a single experience.
	SaveExperience(e *types.Experience) error

	// LoadExperience returns a specific experience, or nil if absent.
	LoadExperience(userID, experienceID string) (*types.Experience, error)

	// SaveFollowUp persists a follow-up observation.
	SaveFollowUp(userID, experienceID string, fu types.FollowUp) error

	// LogConversation records a single chat message for observability.
	LogConversation(sessionID, userID, role, content, mode string, metrics map[string]interface{}) error

	// GetConversationLogs retrieves logged messages in chronological order,
	// optionally filtered by session or user. Empty filters match everything.
	GetConversationLogs(sessionID, userID string, limit int) ([]types.ConversationLog, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck() bool

	// Close releases any resources.
	Close() error
}
