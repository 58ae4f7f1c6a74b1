package controller

import (
	"math"
	"time"
)

// materialityGate passes when a newly computed brightness differs enough
// from the last value that produced a log line. It controls console
// verbosity and the logged baseline, never whether devices get written.
type materialityGate struct {
	lastLogged float64
	hasLogged  bool
}

// changed reports whether final is worth logging: always true before the
// first logged value, then only on a move of more than half a point.
func (g *materialityGate) changed(final float64) bool {
	return !g.hasLogged || math.Abs(final-g.lastLogged) > 0.5
}

// commit records final as the new logged baseline.
func (g *materialityGate) commit(final float64) {
	g.lastLogged = final
	g.hasLogged = true
}

// willChangeSoon reports whether brightness is about to move within the
// look-ahead horizon: the curve output now and at now+lookAhead differ by
// more than one point. It fails open so a genuine change is never silently
// missed.
func (c *Controller) willChangeSoon(now time.Time) (imminent bool) {
	defer func() {
		if recover() != nil {
			imminent = true
		}
	}()

	offset := float64(c.store.Offset())
	current := c.cfg.Curve.Target(c.altitudeAt(c.coords.Latitude, c.coords.Longitude, now)) + offset
	future := c.cfg.Curve.Target(c.altitudeAt(c.coords.Latitude, c.coords.Longitude, now.Add(c.cfg.LookAhead))) + offset
	return math.Abs(future-current) > 1
}
