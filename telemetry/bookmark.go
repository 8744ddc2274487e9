package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkAvoidanceSurge BookmarkType = "avoidance_surge"
	BookmarkAbilityBurst   BookmarkType = "ability_burst"
	BookmarkSwarmCollapse  BookmarkType = "swarm_collapse"
	BookmarkHeatSpike      BookmarkType = "heat_spike"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int64        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using the given logger.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a controller session.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	recentGroupedPeak int // peak grouped agents in recent history
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for a rolling average
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkAvoidanceSurge(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkAbilityBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSwarmCollapse(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkHeatSpike(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Update history
	bd.addToHistory(stats)

	if stats.Grouped > bd.recentGroupedPeak {
		bd.recentGroupedPeak = stats.Grouped
	}

	return bookmarks
}

// Reset clears the rolling history.
func (bd *BookmarkDetector) Reset() {
	clear(bd.history)
	bd.historyIdx = 0
	bd.historyFull = false
	bd.recentGroupedPeak = 0
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkAvoidanceSurge fires when the share of avoiding intents doubles against
// the rolling average, i.e. pests started routing around the player's fire.
func (bd *BookmarkDetector) checkAvoidanceSurge(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var avg float64
	for _, h := range history {
		avg += h.AvoidingShare()
	}
	avg /= float64(len(history))
	if avg == 0 {
		return nil
	}

	share := stats.AvoidingShare()
	if share > avg*2.0 && stats.TagAvoiding >= 10 {
		return &Bookmark{
			Type:        BookmarkAvoidanceSurge,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Avoiding share %.2f is %.1fx average (%.2f)", share, share/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkAbilityBurst(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Abilities
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Abilities) > avg*2.0 && stats.Abilities >= 3 {
		return &Bookmark{
			Type:        BookmarkAbilityBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d ability intents, %.1fx average (%.1f)", stats.Abilities, float64(stats.Abilities)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSwarmCollapse(stats WindowStats) *Bookmark {
	if bd.recentGroupedPeak < 6 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Grouped)/float64(bd.recentGroupedPeak)
	if dropPercent > 0.5 {
		// Reset peak after collapse
		oldPeak := bd.recentGroupedPeak
		bd.recentGroupedPeak = stats.Grouped

		return &Bookmark{
			Type:        BookmarkSwarmCollapse,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Grouped pests fell %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Grouped),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkHeatSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.ActiveZones
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.ActiveZones) >= avg*2.0 && stats.ActiveZones >= 4 {
		return &Bookmark{
			Type:        BookmarkHeatSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d active heat zones, %.1fx average (%.1f)", stats.ActiveZones, float64(stats.ActiveZones)/avg, avg),
		}
	}
	return nil
}
