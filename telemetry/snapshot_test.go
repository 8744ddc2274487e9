package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/systems"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:   SnapshotVersion,
		SessionID: "3f1c2d4e-0000-4000-8000-000000000001",
		RNGSeed:   42,
		Tick:      1000,
		NowMs:     100000,
		Profile: ProfileStateFrom(systems.PlayerProfile{
			Samples:         20,
			Aggression:      0.4,
			PreferredAngles: []float64{0.5, -1.2},
			Accuracy:        0.75,
		}),
		Zones: ZoneStatesFrom([]systems.HeatZone{
			{Key: systems.CellKey{X: -1, Z: 2}, Center: components.V(-0.5, 2.5), Intensity: 4, LastHitMs: 99000},
		}),
		Agents: []AgentState{
			{
				BehaviorSnapshot: components.BehaviorSnapshot{
					Tick:     1000,
					AgentID:  7,
					Type:     "aphid",
					X:        1.5,
					Z:        -2,
					Strategy: "flank",
					Tag:      "flanking",
				},
				Lifetime: (&LifetimeStats{FirstSeenTick: 900, LastSeenTick: 1000, Transitions: 3}).ToJSON(),
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkHeatSpike,
			Tick:        1000,
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Version != snapshot.Version || loaded.SessionID != snapshot.SessionID {
		t.Errorf("header mismatch: got %d/%s", loaded.Version, loaded.SessionID)
	}
	if loaded.RNGSeed != snapshot.RNGSeed || loaded.Tick != snapshot.Tick {
		t.Errorf("seed/tick mismatch: got %d/%d", loaded.RNGSeed, loaded.Tick)
	}
	if len(loaded.Zones) != 1 || loaded.Zones[0].CellX != -1 || loaded.Zones[0].Z != 2.5 {
		t.Errorf("zones mismatch: %+v", loaded.Zones)
	}
	if len(loaded.Profile.PreferredAngles) != 2 || loaded.Profile.Accuracy != 0.75 {
		t.Errorf("profile mismatch: %+v", loaded.Profile)
	}
	if len(loaded.Agents) != 1 {
		t.Fatalf("Agents count mismatch: got %d, want 1", len(loaded.Agents))
	}
	agent := loaded.Agents[0]
	if agent.AgentID != 7 || agent.Strategy != "flank" {
		t.Errorf("agent mismatch: %+v", agent.BehaviorSnapshot)
	}
	if agent.Lifetime == nil || agent.Lifetime.Ticks != 101 || agent.Lifetime.Transitions != 3 {
		t.Errorf("lifetime mismatch: %+v", agent.Lifetime)
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != snapshot.Bookmark.Type {
		t.Errorf("Bookmark type mismatch: got %s, want %s", loaded.Bookmark.Type, snapshot.Bookmark.Type)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Tick:    5000,
		Bookmark: &Bookmark{
			Type: BookmarkSwarmCollapse,
			Tick: 5000,
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected := filepath.Join(tmpDir, "snapshot_5000_swarm_collapse.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	snapshotNoBookmark := &Snapshot{
		Version: SnapshotVersion,
		Tick:    3000,
	}

	path, err = SaveSnapshot(snapshotNoBookmark, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	expected = filepath.Join(tmpDir, "snapshot_3000.json")
	if path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.RecordTransition(1) // unknown agents are ignored

	lt.Observe(1, 10, "avoiding", true, false)
	lt.Observe(1, 11, "normal", true, true)
	lt.RecordTransition(1)
	lt.RecordAbility(1)

	s := lt.Get(1)
	if s == nil {
		t.Fatal("agent not registered on first observation")
	}
	if s.Ticks() != 2 || s.AvoidingTicks != 1 || s.GroupedTicks != 2 || s.HiddenTicks != 1 {
		t.Errorf("unexpected tallies %+v", s)
	}
	if s.Transitions != 1 || s.Abilities != 1 {
		t.Errorf("unexpected decision counts %+v", s)
	}

	if removed := lt.Remove(1); removed != s || lt.Count() != 0 {
		t.Error("remove should hand back the stats and forget the agent")
	}
	lt.Observe(2, 0, "normal", false, false)
	if tr := lt.Track(3, 5); tr.FirstSeenTick != 5 || tr.AvoidingTicks != 0 || lt.Count() != 2 {
		t.Errorf("track should register without tallies, got %+v", tr)
	}
	lt.Reset()
	if lt.Count() != 0 {
		t.Error("reset left agents behind")
	}
}
