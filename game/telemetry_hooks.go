package game

import (
	"image"

	"github.com/pthm-cable/swarmmind/telemetry"
)

// record fans one event out to the window collector and the Prometheus metrics.
func (c *Controller) record(e telemetry.Event) {
	c.collector.Record(e)
	c.metrics.Observe(e)
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (c *Controller) flushTelemetry() {
	if !c.collector.ShouldFlush(c.tick) {
		return
	}

	stats := c.collector.Flush(c.tick, c.sample())
	perfStats := c.perf.Stats()

	if c.statsCallback != nil {
		c.statsCallback(stats)
	}

	if c.logStats {
		stats.LogStats(c.logger)
		if c.perf != nil {
			perfStats.LogStats(c.logger)
		}
	}

	if c.output != nil {
		if err := c.output.WriteTelemetry(stats); err != nil {
			c.logger.Error("failed to write telemetry", "error", err)
		}
		if c.perf != nil {
			if err := c.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
				c.logger.Error("failed to write perf", "error", err)
			}
		}
		if err := c.output.WriteBehaviors(c.last.Snapshots); err != nil {
			c.logger.Error("failed to write behaviors", "error", err)
		}
	}

	for _, bm := range c.bookmarks.Check(stats) {
		if c.logStats {
			bm.LogBookmark(c.logger)
		}
		if c.output != nil {
			if err := c.output.WriteBookmark(bm); err != nil {
				c.logger.Error("failed to write bookmark", "error", err)
			}
		}
		if c.snapshotDir != "" {
			c.saveSnapshot(&bm)
		}
	}
}

// sample observes the controller state at window end.
func (c *Controller) sample() telemetry.Sample {
	healths := make([]float64, 0, len(c.frame.Agents))
	for _, a := range c.frame.Agents {
		if a.Alive() {
			healths = append(healths, a.HealthRatio())
		}
	}

	s := telemetry.Sample{
		Agents:      len(healths),
		Grouped:     c.grouped,
		Healths:     healths,
		ActiveZones: len(c.heat.ActiveZones(c.lastNow)),
		HeatCells:   c.heat.Len(),
	}
	if z, ok := c.heat.HottestZone(c.lastNow); ok {
		s.HottestZone = z.Intensity
	}
	p := c.frame.Profile
	s.Aggression = p.Aggression
	s.Accuracy = p.Accuracy
	return s
}

// saveSnapshot creates and saves a snapshot to disk.
func (c *Controller) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := telemetry.SaveSnapshot(c.createSnapshot(bookmark), c.snapshotDir)
	if err != nil {
		c.logger.Error("failed to save snapshot", "error", err)
		return
	}
	c.logger.Info("snapshot saved", "path", path, "tick", c.tick)
}

// Snapshot returns a debug dump of the current controller state.
func (c *Controller) Snapshot() *telemetry.Snapshot {
	return c.createSnapshot(nil)
}

// createSnapshot builds a snapshot from the last tick.
func (c *Controller) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		SessionID: c.sessionID.String(),
		RNGSeed:   c.seed,
		Tick:      c.tick,
		NowMs:     c.lastNow,
		Profile:   telemetry.ProfileStateFrom(c.profile.Current()),
		Zones:     telemetry.ZoneStatesFrom(c.heat.ActiveZones(c.lastNow)),
		Bookmark:  bookmark,
	}

	for _, row := range c.last.Snapshots {
		state := telemetry.AgentState{BehaviorSnapshot: row}
		if ls := c.lifetime.Get(row.AgentID); ls != nil {
			state.Lifetime = ls.ToJSON()
		}
		snapshot.Agents = append(snapshot.Agents, state)
	}

	return snapshot
}

// HeatmapImage renders the live heat zones and the last tick's agents.
func (c *Controller) HeatmapImage() image.Image {
	opts := telemetry.DefaultHeatmapImageOptions(c.cfg.Heatmap.CellSize, c.cfg.Heatmap.HotIntensity)
	return telemetry.RenderHeatmap(c.heat.ActiveZones(c.lastNow), c.last.Snapshots, c.target, opts)
}
