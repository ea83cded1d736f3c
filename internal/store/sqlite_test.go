package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"resonance/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStoreCreatesSchema(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	for _, table := range []string{"trajectories", "experiences", "follow_ups", "vector_snapshots", "conversation_logs"} {
		if _, ok := stats[table]; !ok {
			t.Errorf("stats missing table: %s", table)
		}
	}
	if !s.HealthCheck() {
		t.Error("expected healthy store")
	}
}

func TestNewSQLiteStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "resonance.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store at %s: %v", path, err)
	}
	defer s.Close()

	if err := s.SaveTrajectory(types.NewTrajectory("u1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
}

func TestSQLiteStoreTrajectoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	orig := seedTrajectory("u1")
	if err := s.SaveTrajectory(orig); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := s.LoadTrajectory("u1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected trajectory")
	}
	if diff := cmp.Diff(orig, loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	missing, err := s.LoadTrajectory("nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown user")
	}
}

func TestSQLiteStoreSnapshotsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	traj := seedTrajectory("u1")
	if err := s.SaveTrajectory(traj); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := s.SaveTrajectory(traj); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	// One per-experience snapshot and one history row; a re-save of the
	// same snapshots must not duplicate them.
	if stats["vector_snapshots"] != 2 {
		t.Fatalf("expected 2 snapshot rows after double save, got %d", stats["vector_snapshots"])
	}

	// A genuinely new history entry still appends.
	traj.VectorHistory = append(traj.VectorHistory, types.VectorSnapshot{
		Timestamp: traj.VectorHistory[0].Timestamp.Add(time.Hour),
		Direction: 0.4, Magnitude: 0.6, Confidence: 0.35,
		Horizon: types.HorizonImmediate,
	})
	if err := s.SaveTrajectory(traj); err != nil {
		t.Fatalf("third save failed: %v", err)
	}
	stats, _ = s.GetStats()
	if stats["vector_snapshots"] != 3 {
		t.Fatalf("expected 3 snapshot rows, got %d", stats["vector_snapshots"])
	}

	loaded, _ := s.LoadTrajectory("u1")
	if len(loaded.VectorHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(loaded.VectorHistory))
	}
}

func TestSQLiteStoreExperienceUpsert(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exp := types.NewExperience("u1", "recorded a song", "home studio", 0.9, ts)
	if err := s.SaveExperience(exp); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	exp.QualityScore = 0.8
	exp.Propagated = true
	exp.PropagationEvents = append(exp.PropagationEvents, "shared with the band")
	if err := s.SaveExperience(exp); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	loaded, err := s.LoadExperience("u1", exp.ID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected experience")
	}
	if loaded.QualityScore != 0.8 || !loaded.Propagated {
		t.Fatalf("expected updated fields, got quality=%f propagated=%v", loaded.QualityScore, loaded.Propagated)
	}
	if len(loaded.PropagationEvents) != 1 {
		t.Fatalf("expected 1 propagation event, got %v", loaded.PropagationEvents)
	}

	if missing, _ := s.LoadExperience("u1", "missing"); missing != nil {
		t.Fatal("expected nil for unknown experience")
	}
}

func TestSQLiteStoreSaveFollowUp(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exp := types.NewExperience("u1", "wrote a poem", "", 0.7, ts)
	if err := s.SaveExperience(exp); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	fu := types.NewFollowUp(exp.ID, ts.Add(48*time.Hour))
	fu.Content = "read it at open mic"
	fu.SharedOrTaught = true
	if err := s.SaveFollowUp("u1", exp.ID, fu); err != nil {
		t.Fatalf("save follow-up failed: %v", err)
	}

	loaded, _ := s.LoadExperience("u1", exp.ID)
	if len(loaded.FollowUps) != 1 {
		t.Fatalf("expected 1 follow-up, got %d", len(loaded.FollowUps))
	}
	got := loaded.FollowUps[0]
	if !got.SharedOrTaught || got.Content != "read it at open mic" {
		t.Fatalf("follow-up fields lost: %+v", got)
	}
	if !got.Timestamp.Equal(fu.Timestamp) {
		t.Fatalf("timestamp mismatch: %v vs %v", got.Timestamp, fu.Timestamp)
	}
}

func TestSQLiteStoreListUserIDs(t *testing.T) {
	s := newTestStore(t)
	s.SaveTrajectory(seedTrajectory("alpha"))
	s.SaveTrajectory(seedTrajectory("beta"))

	ids, err := s.ListUserIDs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSQLiteStoreConversationLogs(t *testing.T) {
	s := newTestStore(t)
	if err := s.LogConversation("s1", "u1", "user", "hello", "", map[string]interface{}{"tokens": 3.0}); err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if err := s.LogConversation("s1", "u1", "assistant", "hi there", "direct", nil); err != nil {
		t.Fatalf("log failed: %v", err)
	}

	logs, err := s.GetConversationLogs("s1", "u1", 10)
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Role != "user" || logs[1].Role != "assistant" {
		t.Fatal("expected chronological order")
	}
	if logs[0].Mode != "direct" {
		t.Fatalf("expected default mode, got %q", logs[0].Mode)
	}
	if logs[0].Metrics["tokens"] != 3.0 {
		t.Fatalf("metrics lost: %v", logs[0].Metrics)
	}
}

func TestParseTimestampFractionalPrecision(t *testing.T) {
	// Other writers produce fractions of varying precision; all must parse.
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-01T12:30:45Z", time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)},
		{"2025-06-01T12:30:45.123Z", time.Date(2025, 6, 1, 12, 30, 45, 123000000, time.UTC)},
		{"2025-06-01T12:30:45.71966+00:00", time.Date(2025, 6, 1, 12, 30, 45, 719660000, time.UTC)},
		{"2025-06-01T12:30:45.123456Z", time.Date(2025, 6, 1, 12, 30, 45, 123456000, time.UTC)},
		{"2025-06-01T12:30:45.123456789Z", time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)},
		{"2025-06-01T12:30:45.5", time.Date(2025, 6, 1, 12, 30, 45, 500000000, time.UTC)},
		{"2025-06-01 12:30:45.25", time.Date(2025, 6, 1, 12, 30, 45, 250000000, time.UTC)},
		{"2025-06-01T07:30:45.5-05:00", time.Date(2025, 6, 1, 12, 30, 45, 500000000, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseTimestamp(tc.in)
		if err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseTimestamp("not a timestamp"); err == nil {
		t.Error("expected error for garbage input")
	}
}
