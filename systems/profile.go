package systems

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/config"
)

// PlayerProfile summarizes the recent action window.
type PlayerProfile struct {
	Samples         int
	SprayFrequency  float64   // sprays / window length
	Aggression      float64   // sprays per second normalized to [0,1]
	PreferredAngles []float64 // bucket centres in radians, most frequent first
	ReactionTimeMs  float64   // mean of positive reaction samples, 0 if none
	Accuracy        float64   // hits / sprays
	SurvivalRate    float64   // 1 - damaged / window length
}

// BehaviorProfile is a fixed-capacity FIFO window of player actions.
type BehaviorProfile struct {
	cfg       config.ProfileConfig
	bucketRad float64

	buf   []components.PlayerAction
	head  int // index of the oldest entry
	count int

	// scratch reused by Current
	reactions []float64
	buckets   map[int]*angleBucket
}

type angleBucket struct {
	index    int
	count    int
	lastSeen int // chronological position of the newest action in the bucket
}

// NewBehaviorProfile creates an empty window.
func NewBehaviorProfile(cfg config.ProfileConfig) *BehaviorProfile {
	if cfg.Window < 1 {
		cfg.Window = 1
	}
	if cfg.AngleBucketDeg <= 0 {
		cfg.AngleBucketDeg = 30
	}
	return &BehaviorProfile{
		cfg:       cfg,
		bucketRad: cfg.AngleBucketDeg * math.Pi / 180,
		buf:       make([]components.PlayerAction, cfg.Window),
		buckets:   make(map[int]*angleBucket),
	}
}

// RecordAction appends an action, evicting the oldest when the window is full.
func (p *BehaviorProfile) RecordAction(a components.PlayerAction) {
	if p.count < len(p.buf) {
		p.buf[(p.head+p.count)%len(p.buf)] = a
		p.count++
		return
	}
	p.buf[p.head] = a
	p.head = (p.head + 1) % len(p.buf)
}

// Len returns the number of actions in the window.
func (p *BehaviorProfile) Len() int {
	return p.count
}

// Actions returns the window oldest first.
func (p *BehaviorProfile) Actions() []components.PlayerAction {
	out := make([]components.PlayerAction, p.count)
	for i := range out {
		out[i] = p.at(i)
	}
	return out
}

func (p *BehaviorProfile) at(i int) components.PlayerAction {
	return p.buf[(p.head+i)%len(p.buf)]
}

// Reset empties the window.
func (p *BehaviorProfile) Reset() {
	p.head = 0
	p.count = 0
}

// Current recomputes the profile from the window.
func (p *BehaviorProfile) Current() PlayerProfile {
	prof := PlayerProfile{Samples: p.count, SurvivalRate: 1}
	if p.count == 0 {
		return prof
	}

	var sprays, hits, damaged int
	p.reactions = p.reactions[:0]
	clear(p.buckets)

	first, last := p.at(0).Timestamp, p.at(0).Timestamp
	for i := 0; i < p.count; i++ {
		a := p.at(i)
		first = min(first, a.Timestamp)
		last = max(last, a.Timestamp)

		switch a.Kind {
		case components.ActionSpray:
			sprays++
			if a.Hit {
				hits++
			}
		case components.ActionDamaged:
			damaged++
		}
		if a.ReactionMs > 0 {
			p.reactions = append(p.reactions, a.ReactionMs)
		}
		if a.HasAngle {
			idx := int(math.Floor(normalizeHeading(a.Angle) / p.bucketRad))
			b, ok := p.buckets[idx]
			if !ok {
				b = &angleBucket{index: idx}
				p.buckets[idx] = b
			}
			b.count++
			b.lastSeen = i
		}
	}

	n := float64(p.count)
	prof.SprayFrequency = float64(sprays) / n
	prof.SurvivalRate = 1 - float64(damaged)/n
	if sprays > 0 {
		prof.Accuracy = float64(hits) / float64(sprays)
	}
	if len(p.reactions) > 0 {
		prof.ReactionTimeMs = stat.Mean(p.reactions, nil)
	}
	if p.cfg.AggressionRateCap > 0 {
		spanSec := math.Max(float64(last-first)/1000, 1)
		prof.Aggression = clamp01(float64(sprays) / spanSec / p.cfg.AggressionRateCap)
	}
	prof.PreferredAngles = p.topAngles()
	return prof
}

// topAngles ranks buckets by count, then by most recent occurrence.
func (p *BehaviorProfile) topAngles() []float64 {
	if len(p.buckets) == 0 {
		return nil
	}
	ranked := make([]*angleBucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].lastSeen > ranked[j].lastSeen
	})
	n := min(p.cfg.TopAngles, len(ranked))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = (float64(ranked[i].index) + 0.5) * p.bucketRad
	}
	return out
}
