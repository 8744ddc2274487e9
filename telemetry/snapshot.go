package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a debug dump of controller state at one tick.
// It is written for offline inspection; controllers never load it back.
type Snapshot struct {
	Version   int    `json:"version"`
	SessionID string `json:"session_id"`
	RNGSeed   int64  `json:"rng_seed"`

	Tick  int64 `json:"tick"`
	NowMs int64 `json:"now_ms"`

	Profile ProfileState `json:"profile"`
	Zones   []ZoneState  `json:"zones"`
	Agents  []AgentState `json:"agents"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ProfileState is the JSON form of the player profile.
type ProfileState struct {
	Samples         int       `json:"samples"`
	SprayFrequency  float64   `json:"spray_frequency"`
	Aggression      float64   `json:"aggression"`
	PreferredAngles []float64 `json:"preferred_angles"`
	ReactionTimeMs  float64   `json:"reaction_time_ms"`
	Accuracy        float64   `json:"accuracy"`
	SurvivalRate    float64   `json:"survival_rate"`
}

// ZoneState is one active heat zone.
type ZoneState struct {
	CellX     int     `json:"cell_x"`
	CellZ     int     `json:"cell_z"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Intensity int     `json:"intensity"`
	LastHitMs int64   `json:"last_hit_ms"`
}

// AgentState holds one agent's debug view plus its lifetime tallies.
type AgentState struct {
	components.BehaviorSnapshot

	Lifetime *LifetimeStatsJSON `json:"lifetime,omitempty"`
}

// LifetimeStatsJSON is the JSON-serializable form of LifetimeStats.
type LifetimeStatsJSON struct {
	FirstSeenTick int64 `json:"first_seen_tick"`
	Ticks         int64 `json:"ticks"`
	Transitions   int   `json:"transitions"`
	Abilities     int   `json:"abilities"`
	AvoidingTicks int   `json:"avoiding_ticks"`
	GroupedTicks  int   `json:"grouped_ticks"`
	HiddenTicks   int   `json:"hidden_ticks"`
}

// ToJSON converts LifetimeStats to its JSON form.
func (ls *LifetimeStats) ToJSON() *LifetimeStatsJSON {
	if ls == nil {
		return nil
	}
	return &LifetimeStatsJSON{
		FirstSeenTick: ls.FirstSeenTick,
		Ticks:         ls.Ticks(),
		Transitions:   ls.Transitions,
		Abilities:     ls.Abilities,
		AvoidingTicks: ls.AvoidingTicks,
		GroupedTicks:  ls.GroupedTicks,
		HiddenTicks:   ls.HiddenTicks,
	}
}

// ProfileStateFrom converts a computed player profile.
func ProfileStateFrom(p systems.PlayerProfile) ProfileState {
	return ProfileState{
		Samples:         p.Samples,
		SprayFrequency:  p.SprayFrequency,
		Aggression:      p.Aggression,
		PreferredAngles: append([]float64(nil), p.PreferredAngles...),
		ReactionTimeMs:  p.ReactionTimeMs,
		Accuracy:        p.Accuracy,
		SurvivalRate:    p.SurvivalRate,
	}
}

// ZoneStatesFrom converts active heat zones.
func ZoneStatesFrom(zones []systems.HeatZone) []ZoneState {
	out := make([]ZoneState, len(zones))
	for i, z := range zones {
		out[i] = ZoneState{
			CellX:     z.Key.X,
			CellZ:     z.Key.Z,
			X:         z.Center.X,
			Z:         z.Center.Y,
			Intensity: z.Intensity,
			LastHitMs: z.LastHitMs,
		}
	}
	return out
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
