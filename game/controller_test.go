package game

import (
	"bufio"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(seed int64) (*Controller, *config.Config) {
	cfg := config.Default()
	return NewController(cfg, Options{Seed: seed, Logger: quietLogger()}), cfg
}

func pest(id components.AgentID, x, z, health float64) *components.Agent {
	return &components.Agent{
		ID:        id,
		Position:  components.V(x, z),
		BaseSpeed: 1,
		Speed:     1,
		Health:    health,
		MaxHealth: 100,
		Damage:    1,
		Type:      "beetle",
		Behavior:  components.BehaviorNormal,
		Opacity:   1,
	}
}

// mixedAgents builds a fresh population covering every pipeline branch.
func mixedAgents() []*components.Agent {
	swarm := func(id components.AgentID, x, z float64) *components.Agent {
		a := pest(id, x, z, 90)
		a.Type = "aphid"
		a.Behavior = components.BehaviorSwarm
		return a
	}
	healer := pest(5, 6, 6, 100)
	healer.Type = components.PestSpiderMite
	healer.Behavior = components.BehaviorSpreading
	healer.Ability = components.AbilityHealer
	healer.AbilityCooldownMs = 2000
	burrower := pest(6, -8, 3, 100)
	burrower.Type = "slug"
	burrower.Behavior = components.BehaviorBurrowing
	zigzag := pest(7, 0, -9, 100)
	zigzag.Behavior = components.BehaviorZigzag
	return []*components.Agent{
		swarm(1, 10, 0), swarm(2, 11, 0.5), swarm(3, 10, 1),
		pest(4, 7, 5, 40),
		healer, burrower, zigzag,
	}
}

func sprayAt(pos components.Vec2, now int64) []components.SprayEvent {
	return []components.SprayEvent{{Position: pos, Timestamp: now}}
}

func TestController_SkipsDeadAndNilAgents(t *testing.T) {
	c, _ := newTestController(1)
	a := pest(1, 5, 0, 100)
	dead := pest(2, 6, 0, 0)
	b := pest(3, 0, 5, 100)

	out := c.Tick(TickInput{Now: 100, Agents: []*components.Agent{a, nil, dead, b}})
	if len(out.Intents) != 2 || len(out.Snapshots) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(out.Intents))
	}
	if out.Intents[0].AgentID != 1 || out.Intents[1].AgentID != 3 {
		t.Errorf("intents out of slice order: %d, %d", out.Intents[0].AgentID, out.Intents[1].AgentID)
	}
	if _, ok := c.Strategy(dead.ID); ok {
		t.Error("dead agent should not get strategy state")
	}
}

func TestController_IntentsAreUnitAndAnnotateAgents(t *testing.T) {
	c, _ := newTestController(7)
	agents := mixedAgents()

	for tick := int64(1); tick <= 40; tick++ {
		now := tick * 100
		out := c.Tick(TickInput{Now: now, Agents: agents})
		for i, in := range out.Intents {
			if math.Abs(r2.Norm(in.Direction)-1) > 1e-6 {
				t.Fatalf("tick %d agent %d: direction %v not unit", tick, in.AgentID, in.Direction)
			}
			a := agents[i]
			if a.ID != in.AgentID {
				t.Fatalf("intent %d for agent %d, want %d", i, in.AgentID, a.ID)
			}
			if math.Abs(a.Speed-a.BaseSpeed*in.SpeedMul) > 1e-9 {
				t.Errorf("agent %d speed %v, want base*%v", a.ID, a.Speed, in.SpeedMul)
			}
			if a.Strategy != in.Strategy || a.AIHint != in.AIHint {
				t.Errorf("agent %d annotations %s/%q differ from intent %s/%q",
					a.ID, a.Strategy, a.AIHint, in.Strategy, in.AIHint)
			}
			if a.NextStrategyChangeAt < now {
				t.Errorf("agent %d next evaluation %d already due at %d", a.ID, a.NextStrategyChangeAt, now)
			}
			if in.Hidden && a.Opacity != 0 {
				t.Errorf("hidden agent %d has opacity %v", a.ID, a.Opacity)
			}
		}
	}
}

func TestController_SprayedCellExpires(t *testing.T) {
	c, cfg := newTestController(1)
	agents := []*components.Agent{pest(1, 15, 15, 100)}
	cell := components.V(2.5, 3.5)

	for _, ts := range []int64{0, 500, 1000, 1500} {
		c.Tick(TickInput{Now: ts, Sprays: sprayAt(cell, ts), Agents: agents})
	}
	c.Tick(TickInput{Now: 2000, Agents: agents})
	zones := c.ActiveZones()
	if len(zones) != 1 || zones[0].Intensity != 4 || zones[0].Key.X != 2 || zones[0].Key.Z != 3 {
		t.Fatalf("expected cell (2,3) at intensity 4, got %+v", zones)
	}

	c.Tick(TickInput{Now: 1500 + 11000, Agents: agents})
	if zones := c.ActiveZones(); len(zones) != 0 {
		t.Errorf("cell should have expired, got %+v", zones)
	}
	if c.heat.Len() != 0 {
		t.Errorf("compaction left %d cells (interval %d ms)", c.heat.Len(), cfg.Heatmap.CompactIntervalMs)
	}
}

func TestController_ActiveZonesIsACopy(t *testing.T) {
	c, _ := newTestController(1)
	agents := []*components.Agent{pest(1, 15, 15, 100)}
	c.Tick(TickInput{Now: 0, Sprays: sprayAt(components.V(2.5, 3.5), 0), Agents: agents})

	held := c.ActiveZones()
	if len(held) != 1 || held[0].Key.X != 2 {
		t.Fatalf("expected one zone at (2,3), got %+v", held)
	}

	// A hit on a lower key sorts first when the zones are rebuilt.
	c.Tick(TickInput{Now: 100, Sprays: sprayAt(components.V(-4.5, -4.5), 100), Agents: agents})
	if held[0].Key.X != 2 || held[0].Key.Z != 3 {
		t.Errorf("held zones changed by a later tick: %+v", held)
	}

	fresh := c.ActiveZones()
	fresh[0].Intensity = 99
	if again := c.ActiveZones(); len(again) != 2 || again[0].Intensity == 99 {
		t.Errorf("caller mutation leaked into controller zones: %+v", again)
	}
}

func TestController_SwarmAnnotations(t *testing.T) {
	c, _ := newTestController(3)
	leader := pest(1, 10, 0, 80)
	second := pest(2, 11, 0, 50)
	third := pest(3, 10, 1, 60)
	loner := pest(4, 50, 50, 100)
	for _, a := range []*components.Agent{leader, second, third, loner} {
		a.Behavior = components.BehaviorSwarm
	}

	out := c.Tick(TickInput{Now: 100, Agents: []*components.Agent{leader, second, third, loner}})

	wantRoles := []components.SwarmRole{components.RoleLeader, components.RoleFollower, components.RoleFollower, components.RoleNone}
	for i, in := range out.Intents {
		if in.Role != wantRoles[i] {
			t.Errorf("agent %d role %s, want %s", in.AgentID, in.Role, wantRoles[i])
		}
	}
	for _, a := range []*components.Agent{leader, second, third} {
		if a.SwarmGroupID != int(leader.ID) {
			t.Errorf("agent %d group %d, want %d", a.ID, a.SwarmGroupID, leader.ID)
		}
		if a.Strategy != components.StrategySwarmCoordinate {
			t.Errorf("agent %d strategy %s", a.ID, a.Strategy)
		}
	}
	if out.Intents[0].Tag != components.TagCoordinated {
		t.Errorf("grouped tag = %s, want coordinated", out.Intents[0].Tag)
	}
	if loner.SwarmGroupID != 0 || out.Intents[3].Tag == components.TagCoordinated {
		t.Errorf("loner should not be coordinated: group %d tag %s", loner.SwarmGroupID, out.Intents[3].Tag)
	}

	// The leader is removed: the next tick re-elects from the remaining members.
	leader.Health = 0
	c.Tick(TickInput{Now: 200, Agents: []*components.Agent{leader, second, third, loner}})
	if second.SwarmGroupID != int(third.ID) {
		t.Errorf("expected agent 3 to lead after removal, group %d", second.SwarmGroupID)
	}
}

func TestController_EmergedAgentIsRefiledInGrid(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.BurrowChance = 1
	cfg.Strategy.BurrowMinMs = 100
	cfg.Strategy.BurrowMaxMs = 100
	// Longer than a cell diagonal so every emergence crosses a cell boundary.
	offset := 1.5 * gridCellSize(cfg)
	cfg.Strategy.EmergeMinOffset = offset
	cfg.Strategy.EmergeMaxOffset = offset
	c := NewController(cfg, Options{Seed: 5, Logger: quietLogger()})

	burrower := pest(1, 0.5, 0.5, 100)
	burrower.Type = "slug"
	burrower.Behavior = components.BehaviorBurrowing
	watcher := pest(2, -20, -20, 100)
	agents := []*components.Agent{burrower, watcher}

	emerged := 0
	for now := int64(0); now <= 30000 && emerged < 3; now += 100 {
		before := burrower.Position
		out := c.Tick(TickInput{Now: now, Agents: agents})
		if !out.Intents[0].HasDelta {
			continue
		}
		emerged++
		if burrower.Position == before {
			t.Fatalf("emergence at %d did not move the agent", now)
		}
		found := c.grid.QueryRadiusInto(nil, burrower.Position, 0.01, nil)
		if len(found) != 1 || found[0].Agent != burrower {
			t.Errorf("emerged agent at %v not found in grid at tick %d", burrower.Position, now)
		}
		if stale := c.grid.QueryRadiusInto(nil, before, 0.01, nil); len(stale) != 0 {
			t.Errorf("grid still lists agent at pre-emerge position %v", before)
		}
	}
	if emerged == 0 {
		t.Fatal("burrower never emerged")
	}
}

func TestController_EnvironmentModifiers(t *testing.T) {
	c, cfg := newTestController(5)
	beetle := pest(1, 10, 0, 100)
	mite := pest(2, -10, 0, 60)
	mite.Type = components.PestSpiderMite

	out := c.Tick(TickInput{
		Now:    100,
		Env:    components.EnvironmentSnapshot{Weather: components.WeatherFog, Season: components.SeasonWinter},
		Agents: []*components.Agent{beetle, mite},
	})

	if math.Abs(beetle.Opacity-cfg.Environment.FogOpacity) > 1e-9 {
		t.Errorf("fog opacity = %v, want %v", beetle.Opacity, cfg.Environment.FogOpacity)
	}
	if out.Intents[1].Heal != cfg.Environment.WinterMiteHeal || out.Intents[0].Heal != 0 {
		t.Errorf("heal = %v/%v, want 0/%v", out.Intents[0].Heal, out.Intents[1].Heal, cfg.Environment.WinterMiteHeal)
	}
	if mite.Health != 60 {
		t.Errorf("controller must not change health, got %v", mite.Health)
	}

	// Opacity is recomputed every tick, not compounded.
	c.Tick(TickInput{Now: 200, Env: components.EnvironmentSnapshot{Weather: components.WeatherFog}, Agents: []*components.Agent{beetle}})
	if math.Abs(beetle.Opacity-cfg.Environment.FogOpacity) > 1e-9 {
		t.Errorf("second fog tick opacity = %v", beetle.Opacity)
	}
	c.Tick(TickInput{Now: 300, Agents: []*components.Agent{beetle}})
	if beetle.Opacity != 1 {
		t.Errorf("clear weather opacity = %v, want 1", beetle.Opacity)
	}
}

func TestController_HealerEmitsAbilityIntent(t *testing.T) {
	c, cfg := newTestController(2)
	healer := pest(1, 0, 5, 100)
	healer.Ability = components.AbilityHealer
	healer.AbilityCooldownMs = 5000
	ally := pest(2, 1, 5, 40)

	out := c.Tick(TickInput{Now: 10000, Agents: []*components.Agent{healer, ally}})
	if len(out.Abilities) != 1 || out.Abilities[0].Kind != components.AbilityHealer {
		t.Fatalf("expected one heal intent, got %+v", out.Abilities)
	}
	if out.Abilities[0].Targets[0] != ally.ID || out.Abilities[0].Amount != healer.MaxHealth*cfg.Abilities.HealFraction {
		t.Errorf("unexpected heal %+v", out.Abilities[0])
	}
	if ally.Health != 40 {
		t.Errorf("controller applied the heal itself: health %v", ally.Health)
	}

	out = c.Tick(TickInput{Now: 10000, Agents: []*components.Agent{healer, ally}})
	if len(out.Abilities) != 0 {
		t.Error("heal fired twice within the cooldown")
	}
	if ls := c.Lifetime(healer.ID); ls == nil || ls.Abilities != 1 {
		t.Errorf("lifetime ability count %+v", ls)
	}
}

func TestController_FlankTargetsAreIndependent(t *testing.T) {
	c, _ := newTestController(11)
	a := pest(1, 10, 0, 100)
	b := pest(2, 0, 10, 100)
	c.SetStrategy(a, components.StrategyFlank)
	c.SetStrategy(b, components.StrategyFlank)

	c.Tick(TickInput{Now: 100, Agents: []*components.Agent{a, b}})

	ta, okA := c.strategies.FlankTarget(a.ID)
	tb, okB := c.strategies.FlankTarget(b.ID)
	if !okA || !okB {
		t.Fatal("both flankers should hold a target")
	}
	if ta == tb {
		t.Errorf("flank targets are shared: %v", ta)
	}
}

func TestController_SweepReleasesRemovedAgents(t *testing.T) {
	c, _ := newTestController(1)
	a := pest(1, 5, 0, 100)
	b := pest(2, 0, 5, 100)
	b.Ability = components.AbilityBerserker

	c.Tick(TickInput{Now: 100, Agents: []*components.Agent{a, b}})
	if c.TrackedAgents() != 2 {
		t.Fatalf("tracked = %d, want 2", c.TrackedAgents())
	}

	out := c.Tick(TickInput{Now: 200, Agents: []*components.Agent{a}})
	if len(out.Swept) != 1 || out.Swept[0] != b.ID {
		t.Errorf("swept = %v, want [2]", out.Swept)
	}
	if c.TrackedAgents() != 1 || c.Lifetime(b.ID) != nil {
		t.Error("removed agent still tracked")
	}
}

func TestController_SameSeedSameDecisions(t *testing.T) {
	run := func(c *Controller) []TickOutput {
		agents := mixedAgents()
		var outs []TickOutput
		for tick := int64(1); tick <= 60; tick++ {
			now := tick * 100
			in := TickInput{Now: now, Agents: agents, Reference: components.V(0, 0)}
			if tick%4 == 0 {
				in.Sprays = sprayAt(components.V(6, 1), now)
				in.Actions = []components.PlayerAction{{Kind: components.ActionSpray, Timestamp: now, Angle: math.Pi, HasAngle: true, Hit: tick%8 == 0}}
			}
			outs = append(outs, c.Tick(in))
		}
		return outs
	}

	a, _ := newTestController(42)
	b, _ := newTestController(42)
	outA, outB := run(a), run(b)
	for i := range outA {
		if !reflect.DeepEqual(outA[i].Intents, outB[i].Intents) || !reflect.DeepEqual(outA[i].Abilities, outB[i].Abilities) {
			t.Fatalf("tick %d diverged between identically seeded controllers", i+1)
		}
	}
	if a.SessionID() == b.SessionID() {
		t.Error("controllers should have distinct session ids")
	}

	// Reset replays the same decisions.
	a.Reset()
	replay := run(a)
	for i := range outA {
		if !reflect.DeepEqual(outA[i].Intents, replay[i].Intents) {
			t.Fatalf("tick %d diverged after reset", i+1)
		}
	}
}

func TestController_ResetClearsEveryTable(t *testing.T) {
	c, _ := newTestController(9)
	agents := mixedAgents()
	for tick := int64(1); tick <= 20; tick++ {
		now := tick * 100
		c.Tick(TickInput{
			Now:     now,
			Sprays:  sprayAt(components.V(10, 0), now),
			Actions: []components.PlayerAction{{Kind: components.ActionSpray, Timestamp: now, Hit: true}},
			Agents:  agents,
		})
	}
	before := c.SessionID()

	c.Reset()
	if c.TickCount() != 0 || c.TrackedAgents() != 0 || c.heat.Len() != 0 || c.abilities.Len() != 0 {
		t.Errorf("tables survived reset: tick %d strategies %d heat %d abilities %d",
			c.TickCount(), c.TrackedAgents(), c.heat.Len(), c.abilities.Len())
	}
	if c.Profile().Samples != 0 || c.lifetime.Count() != 0 {
		t.Error("profile or lifetime survived reset")
	}
	if c.SessionID() == before {
		t.Error("reset should issue a new session id")
	}
}

func TestController_StatsWindowsAndOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.StatsWindowTicks = 5
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	metrics := telemetry.NewMetrics()

	var windows []telemetry.WindowStats
	c := NewController(cfg, Options{
		Seed:          3,
		Logger:        quietLogger(),
		Metrics:       metrics,
		Output:        om,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	agents := []*components.Agent{pest(1, 10, 0, 100), pest(2, -10, 0, 50), pest(3, 0, 10, 100)}
	for tick := int64(1); tick <= 10; tick++ {
		now := tick * 100
		c.Tick(TickInput{Now: now, Sprays: sprayAt(components.V(20, 20), now), Agents: agents})
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	w := windows[0]
	if w.WindowEndTick != 5 || w.Intents != 15 || w.Sprays != 5 || w.Agents != 3 {
		t.Errorf("unexpected window %+v", w)
	}
	if windows[1].WindowEndTick != 10 || windows[1].Intents != 15 {
		t.Errorf("unexpected second window %+v", windows[1])
	}

	if n := countLines(t, filepath.Join(dir, "telemetry.csv")); n != 3 {
		t.Errorf("telemetry.csv has %d lines, want header + 2", n)
	}
	if n := countLines(t, filepath.Join(dir, "behaviors.csv")); n != 7 {
		t.Errorf("behaviors.csv has %d lines, want header + 2x3", n)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"swarmmind_ticks_total 10", "swarmmind_sprays_total 10", "swarmmind_agents 3"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestController_SnapshotAndHeatmapImage(t *testing.T) {
	c, _ := newTestController(4)
	agents := []*components.Agent{pest(1, 3, 0, 100), pest(2, -3, 1, 70)}
	for tick := int64(1); tick <= 3; tick++ {
		now := tick * 100
		c.Tick(TickInput{Now: now, Sprays: sprayAt(components.V(1, 1), now), Agents: agents})
	}

	snap := c.Snapshot()
	if snap.SessionID != c.SessionID().String() || snap.Tick != 3 || snap.RNGSeed != 4 {
		t.Errorf("unexpected snapshot header %+v", snap)
	}
	if len(snap.Agents) != 2 || snap.Agents[0].Lifetime == nil || snap.Agents[0].Lifetime.Ticks != 3 {
		t.Errorf("unexpected snapshot agents %+v", snap.Agents)
	}
	if len(snap.Zones) != 1 || snap.Zones[0].Intensity != 3 {
		t.Errorf("unexpected snapshot zones %+v", snap.Zones)
	}

	img := c.HeatmapImage()
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Errorf("empty heatmap image %v", b)
	}
}

func TestTransitionLimiter(t *testing.T) {
	if newTransitionLimiter(0).Allow() {
		t.Error("zero rate should disable transition logs")
	}
	l := newTransitionLimiter(2)
	if !l.Allow() || !l.Allow() {
		t.Error("burst should allow two logs")
	}
	if l.Allow() {
		t.Error("third immediate log should be throttled")
	}
}
