package game

import (
	"math"

	"golang.org/x/time/rate"

	"github.com/pthm-cable/swarmmind/components"
	"github.com/pthm-cable/swarmmind/telemetry"
)

// newTransitionLimiter allows perSec transition logs per second; 0 disables them.
func newTransitionLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(0, 0)
	}
	return rate.NewLimiter(rate.Limit(perSec), int(math.Ceil(perSec)))
}

// onTransition counts strategy changes and logs them at debug level, throttled.
func (c *Controller) onTransition(agent *components.Agent, from, to components.StrategyKind) {
	id := uint32(agent.ID)
	c.lifetime.RecordTransition(id)
	c.record(telemetry.NewTransitionEvent(c.tick, id, from.String(), to.String()))

	if !c.transitionLimit.Allow() {
		c.droppedTransLogs++
		return
	}
	c.logger.Debug("strategy transition",
		"tick", c.tick,
		"agent", id,
		"from", from.String(),
		"to", to.String(),
		"suppressed", c.droppedTransLogs,
	)
	c.droppedTransLogs = 0
}

// logReleased reports an agent whose strategy state was swept.
func (c *Controller) logReleased(id components.AgentID, ls *telemetry.LifetimeStats) {
	if ls == nil {
		return
	}
	c.logger.Debug("agent released",
		"tick", c.tick,
		"agent", uint32(id),
		"lifetime", ls,
	)
}
