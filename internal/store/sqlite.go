package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"resonance/internal/types"
)

// SQLiteStore implements persistent storage using SQLite.
// Vector snapshots are append-only: the full history is preserved so the
// long arc survives restarts. Trajectory-level history rows have a NULL
// experience_id; per-experience rows carry the owning experience id.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewSQLiteStore creates a new SQLite store at the given path, creating
// parent directories and the schema as needed. Use ":memory:" for an
// ephemeral database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initialize creates all tables if they don't exist.
func (s *SQLiteStore) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS trajectories (
			user_id TEXT PRIMARY KEY,
			creation_rate REAL DEFAULT 0,
			propagation_rate REAL DEFAULT 0,
			compounding_direction REAL DEFAULT 0,
			current_direction REAL,
			current_magnitude REAL,
			current_confidence REAL,
			current_horizon TEXT,
			current_at TEXT,
			experience_count INTEGER DEFAULT 0,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS experiences (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			description TEXT DEFAULT '',
			context TEXT DEFAULT '',
			self_rating REAL DEFAULT 0.5,
			created_at TEXT NOT NULL,
			provisional_intention TEXT DEFAULT 'pending',
			intention_confidence REAL DEFAULT 0,
			resonance_score REAL DEFAULT 0,
			quality_score REAL DEFAULT 0,
			quality_dimensions TEXT DEFAULT '{}',
			propagated INTEGER DEFAULT 0,
			propagation_events TEXT DEFAULT '[]',
			matrix_position TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_experiences_user ON experiences(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS follow_ups (
			id TEXT PRIMARY KEY,
			experience_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			source TEXT DEFAULT 'user_response',
			content TEXT DEFAULT '',
			created_something INTEGER DEFAULT 0,
			creation_description TEXT DEFAULT '',
			creation_magnitude REAL DEFAULT 0,
			shared_or_taught INTEGER DEFAULT 0,
			inspired_further_action INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_follow_ups_experience ON follow_ups(experience_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS vector_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			experience_id TEXT,
			created_at TEXT NOT NULL,
			direction REAL DEFAULT 0,
			magnitude REAL DEFAULT 0,
			confidence REAL DEFAULT 0,
			horizon TEXT DEFAULT 'immediate'
		)`,
		// NULL experience ids must still dedup, so the unique key coalesces.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_key
			ON vector_snapshots(user_id, COALESCE(experience_id, ''), created_at)`,
		`CREATE TABLE IF NOT EXISTS conversation_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT DEFAULT '',
			user_id TEXT DEFAULT '',
			role TEXT DEFAULT '',
			content TEXT DEFAULT '',
			mode TEXT DEFAULT 'direct',
			metrics TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_session ON conversation_logs(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_user ON conversation_logs(user_id, created_at)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// ========== Trajectories ==========

func (s *SQLiteStore) LoadTrajectory(userID string) (*types.Trajectory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT creation_rate, propagation_rate, compounding_direction,
		       current_direction, current_magnitude, current_confidence,
		       current_horizon, current_at
		FROM trajectories WHERE user_id = ?`, userID)

	var (
		creationRate, propagationRate, compounding float64
		curDir, curMag, curConf                    sql.NullFloat64
		curHorizon, curAt                          sql.NullString
	)
	err := row.Scan(&creationRate, &propagationRate, &compounding,
		&curDir, &curMag, &curConf, &curHorizon, &curAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trajectory: %w", err)
	}

	traj := types.NewTrajectory(userID)
	traj.CreationRate = creationRate
	traj.PropagationRate = propagationRate
	traj.CompoundingDirection = compounding

	if curDir.Valid {
		vec := types.VectorSnapshot{
			Direction:  curDir.Float64,
			Magnitude:  curMag.Float64,
			Confidence: curConf.Float64,
			Horizon:    types.HorizonImmediate,
		}
		if curHorizon.Valid && curHorizon.String != "" {
			vec.Horizon = types.TimeHorizon(curHorizon.String)
		}
		if curAt.Valid && curAt.String != "" {
			if ts, err := parseTimestamp(curAt.String); err == nil {
				vec.Timestamp = ts
			}
		}
		traj.CurrentVector = &vec
	}

	experiences, err := s.loadExperiences(userID)
	if err != nil {
		return nil, err
	}
	traj.Experiences = experiences

	history, err := s.loadSnapshots(userID, "")
	if err != nil {
		return nil, err
	}
	traj.VectorHistory = history

	return traj, nil
}

func (s *SQLiteStore) SaveTrajectory(t *types.Trajectory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var curDir, curMag, curConf interface{}
	var curHorizon, curAt interface{}
	if t.CurrentVector != nil {
		curDir = t.CurrentVector.Direction
		curMag = t.CurrentVector.Magnitude
		curConf = t.CurrentVector.Confidence
		curHorizon = string(t.CurrentVector.Horizon)
		curAt = formatTimestamp(t.CurrentVector.Timestamp)
	}

	_, err = tx.Exec(`
		INSERT INTO trajectories (user_id, creation_rate, propagation_rate,
			compounding_direction, current_direction, current_magnitude,
			current_confidence, current_horizon, current_at,
			experience_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			creation_rate = excluded.creation_rate,
			propagation_rate = excluded.propagation_rate,
			compounding_direction = excluded.compounding_direction,
			current_direction = excluded.current_direction,
			current_magnitude = excluded.current_magnitude,
			current_confidence = excluded.current_confidence,
			current_horizon = excluded.current_horizon,
			current_at = excluded.current_at,
			experience_count = excluded.experience_count,
			updated_at = excluded.updated_at`,
		t.UserID, t.CreationRate, t.PropagationRate, t.CompoundingDirection,
		curDir, curMag, curConf, curHorizon, curAt,
		len(t.Experiences), formatTimestamp(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to save trajectory: %w", err)
	}

	for _, e := range t.Experiences {
		if err := saveExperienceTx(tx, e); err != nil {
			return err
		}
	}

	for _, vs := range t.VectorHistory {
		if err := saveSnapshotTx(tx, t.UserID, "", vs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trajectory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUserIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT user_id FROM trajectories ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ========== Experiences ==========

func (s *SQLiteStore) SaveExperience(e *types.Experience) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveExperienceTx(tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit experience: %w", err)
	}
	return nil
}

func saveExperienceTx(tx *sql.Tx, e *types.Experience) error {
	dims, _ := json.Marshal(e.QualityDims)
	events, _ := json.Marshal(e.PropagationEvents)
	if e.PropagationEvents == nil {
		events = []byte("[]")
	}

	_, err := tx.Exec(`
		INSERT INTO experiences (id, user_id, description, context, self_rating,
			created_at, provisional_intention, intention_confidence,
			resonance_score, quality_score, quality_dimensions,
			propagated, propagation_events, matrix_position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			context = excluded.context,
			self_rating = excluded.self_rating,
			provisional_intention = excluded.provisional_intention,
			intention_confidence = excluded.intention_confidence,
			resonance_score = excluded.resonance_score,
			quality_score = excluded.quality_score,
			quality_dimensions = excluded.quality_dimensions,
			propagated = excluded.propagated,
			propagation_events = excluded.propagation_events,
			matrix_position = excluded.matrix_position`,
		e.ID, e.UserID, e.Description, e.Context, e.SelfRating,
		formatTimestamp(e.Timestamp), string(e.ProvisionalIntent),
		e.IntentionConfidence, e.ResonanceScore, e.QualityScore,
		string(dims), boolToInt(e.Propagated), string(events), e.MatrixPosition)
	if err != nil {
		return fmt.Errorf("failed to save experience: %w", err)
	}

	for _, fu := range e.FollowUps {
		if err := saveFollowUpTx(tx, e.UserID, e.ID, fu); err != nil {
			return err
		}
	}
	for _, vs := range e.Vectors {
		if err := saveSnapshotTx(tx, e.UserID, e.ID, vs); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadExperience(userID, experienceID string) (*types.Experience, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, user_id, description, context, self_rating, created_at,
		       provisional_intention, intention_confidence, resonance_score,
		       quality_score, quality_dimensions, propagated,
		       propagation_events, matrix_position
		FROM experiences WHERE user_id = ? AND id = ?`, userID, experienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load experience: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanExperience(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachChildren(e); err != nil {
		return nil, err
	}
	return e, nil
}

// loadExperiences returns all of a user's experiences with follow-ups and
// snapshots attached, ordered by creation time.
func (s *SQLiteStore) loadExperiences(userID string) ([]*types.Experience, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, description, context, self_rating, created_at,
		       provisional_intention, intention_confidence, resonance_score,
		       quality_score, quality_dimensions, propagated,
		       propagation_events, matrix_position
		FROM experiences WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiences: %w", err)
	}
	defer rows.Close()

	var experiences []*types.Experience
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			continue
		}
		experiences = append(experiences, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range experiences {
		if err := s.attachChildren(e); err != nil {
			return nil, err
		}
	}
	return experiences, nil
}

func scanExperience(rows *sql.Rows) (*types.Experience, error) {
	var (
		e          types.Experience
		createdAt  string
		intent     string
		dimsJSON   string
		eventsJSON string
		propagated int64
	)
	err := rows.Scan(&e.ID, &e.UserID, &e.Description, &e.Context, &e.SelfRating,
		&createdAt, &intent, &e.IntentionConfidence, &e.ResonanceScore,
		&e.QualityScore, &dimsJSON, &propagated, &eventsJSON, &e.MatrixPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to scan experience: %w", err)
	}

	if ts, err := parseTimestamp(createdAt); err == nil {
		e.Timestamp = ts
	}
	e.ProvisionalIntent = types.IntentSignal(intent)
	if e.ProvisionalIntent == "" {
		e.ProvisionalIntent = types.IntentPending
	}
	e.Propagated = propagated != 0
	e.QualityDims = make(map[string]float64)
	json.Unmarshal([]byte(dimsJSON), &e.QualityDims)
	json.Unmarshal([]byte(eventsJSON), &e.PropagationEvents)
	return &e, nil
}

func (s *SQLiteStore) attachChildren(e *types.Experience) error {
	fus, err := s.loadFollowUps(e.ID)
	if err != nil {
		return err
	}
	e.FollowUps = fus

	snaps, err := s.loadSnapshots(e.UserID, e.ID)
	if err != nil {
		return err
	}
	e.Vectors = snaps
	return nil
}

// ========== Follow-ups ==========

func (s *SQLiteStore) SaveFollowUp(userID, experienceID string, fu types.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveFollowUpTx(tx, userID, experienceID, fu); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit follow-up: %w", err)
	}
	return nil
}

func saveFollowUpTx(tx *sql.Tx, userID, experienceID string, fu types.FollowUp) error {
	_, err := tx.Exec(`
		INSERT INTO follow_ups (id, experience_id, user_id, created_at, source,
			content, created_something, creation_description,
			creation_magnitude, shared_or_taught, inspired_further_action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			created_something = excluded.created_something,
			creation_description = excluded.creation_description,
			creation_magnitude = excluded.creation_magnitude,
			shared_or_taught = excluded.shared_or_taught,
			inspired_further_action = excluded.inspired_further_action`,
		fu.ID, experienceID, userID, formatTimestamp(fu.Timestamp),
		string(fu.Source), fu.Content, boolToInt(fu.CreatedSomething),
		fu.CreationDescription, fu.CreationMagnitude,
		boolToInt(fu.SharedOrTaught), boolToInt(fu.InspiredFurtherAction))
	if err != nil {
		return fmt.Errorf("failed to save follow-up: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadFollowUps(experienceID string) ([]types.FollowUp, error) {
	rows, err := s.db.Query(`
		SELECT id, experience_id, created_at, source, content,
		       created_something, creation_description, creation_magnitude,
		       shared_or_taught, inspired_further_action
		FROM follow_ups WHERE experience_id = ? ORDER BY created_at, id`, experienceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load follow-ups: %w", err)
	}
	defer rows.Close()

	var fus []types.FollowUp
	for rows.Next() {
		var (
			fu                        types.FollowUp
			createdAt, source         string
			created, shared, inspired int64
		)
		err := rows.Scan(&fu.ID, &fu.ExperienceID, &createdAt, &source,
			&fu.Content, &created, &fu.CreationDescription,
			&fu.CreationMagnitude, &shared, &inspired)
		if err != nil {
			continue
		}
		if ts, err := parseTimestamp(createdAt); err == nil {
			fu.Timestamp = ts
		}
		fu.Source = types.FollowUpSource(source)
		fu.CreatedSomething = created != 0
		fu.SharedOrTaught = shared != 0
		fu.InspiredFurtherAction = inspired != 0
		fus = append(fus, fu)
	}
	return fus, rows.Err()
}

// ========== Vector snapshots ==========

// saveSnapshotTx appends one snapshot row. The unique index makes re-saves
// of already-persisted snapshots no-ops, keeping the table append-only.
func saveSnapshotTx(tx *sql.Tx, userID, experienceID string, vs types.VectorSnapshot) error {
	var expID interface{}
	if experienceID != "" {
		expID = experienceID
	}
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO vector_snapshots
			(user_id, experience_id, created_at, direction, magnitude, confidence, horizon)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, expID, formatTimestamp(vs.Timestamp),
		vs.Direction, vs.Magnitude, vs.Confidence, string(vs.Horizon))
	if err != nil {
		return fmt.Errorf("failed to save vector snapshot: %w", err)
	}
	return nil
}

// loadSnapshots returns snapshots for one experience, or the trajectory-level
// history when experienceID is empty.
func (s *SQLiteStore) loadSnapshots(userID, experienceID string) ([]types.VectorSnapshot, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if experienceID == "" {
		rows, err = s.db.Query(`
			SELECT created_at, direction, magnitude, confidence, horizon
			FROM vector_snapshots
			WHERE user_id = ? AND experience_id IS NULL
			ORDER BY created_at, id`, userID)
	} else {
		rows, err = s.db.Query(`
			SELECT created_at, direction, magnitude, confidence, horizon
			FROM vector_snapshots
			WHERE user_id = ? AND experience_id = ?
			ORDER BY created_at, id`, userID, experienceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vector snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []types.VectorSnapshot
	for rows.Next() {
		var (
			vs        types.VectorSnapshot
			createdAt string
			horizon   string
		)
		if err := rows.Scan(&createdAt, &vs.Direction, &vs.Magnitude, &vs.Confidence, &horizon); err != nil {
			continue
		}
		if ts, err := parseTimestamp(createdAt); err == nil {
			vs.Timestamp = ts
		}
		vs.Horizon = types.TimeHorizon(horizon)
		if vs.Horizon == "" {
			vs.Horizon = types.HorizonImmediate
		}
		snaps = append(snaps, vs)
	}
	return snaps, rows.Err()
}

// ========== Conversation logs ==========

func (s *SQLiteStore) LogConversation(sessionID, userID, role, content, mode string, metrics map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metricsJSON interface{}
	if metrics != nil {
		data, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
		metricsJSON = string(data)
	}
	if mode == "" {
		mode = "direct"
	}

	_, err := s.db.Exec(`
		INSERT INTO conversation_logs (session_id, user_id, role, content, mode, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, userID, role, content, mode, metricsJSON,
		formatTimestamp(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to log conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetConversationLogs(sessionID, userID string, limit int) ([]types.ConversationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, session_id, user_id, role, content, mode, metrics, created_at
		FROM conversation_logs WHERE 1=1`
	args := []interface{}{}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation logs: %w", err)
	}
	defer rows.Close()

	var logs []types.ConversationLog
	for rows.Next() {
		var (
			l           types.ConversationLog
			metricsJSON sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &l.UserID, &l.Role, &l.Content, &l.Mode, &metricsJSON, &createdAt); err != nil {
			continue
		}
		if ts, err := parseTimestamp(createdAt); err == nil {
			l.Timestamp = ts
		}
		if metricsJSON.Valid && metricsJSON.String != "" {
			json.Unmarshal([]byte(metricsJSON.String), &l.Metrics)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Chronological order.
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// ========== Lifecycle ==========

func (s *SQLiteStore) HealthCheck() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var one int
	return s.db.QueryRow(`SELECT 1`).Scan(&one) == nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// GetStats returns row counts per table, useful for status displays.
func (s *SQLiteStore) GetStats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, table := range []string{"trajectories", "experiences", "follow_ups", "vector_snapshots", "conversation_logs"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// ========== Helpers ==========

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

// timestampLayouts covers the formats other writers produce: with or without
// timezone, T or space separated, and fractional seconds of any length.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
