package debounce

import (
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ReverseGate throttles reverse geocoding while a point is being moved. A
// lookup is allowed for the first point, and afterwards only when both the
// minimum interval has elapsed and the point moved at least the minimum
// distance since the last allowed lookup.
type ReverseGate struct {
	minInterval time.Duration
	minDistance float64 // meters

	mu     sync.Mutex
	last   orb.Point
	lastAt time.Time
	seen   bool
	now    func() time.Time
}

// NewReverseGate creates a gate.
func NewReverseGate(minInterval time.Duration, minDistanceMeters float64) *ReverseGate {
	return &ReverseGate{minInterval: minInterval, minDistance: minDistanceMeters, now: time.Now}
}

// Allow reports whether a lookup for p should run and, if so, records p as
// the last looked-up point.
func (g *ReverseGate) Allow(p orb.Point) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.seen {
		if now.Sub(g.lastAt) < g.minInterval {
			return false
		}
		if geo.Distance(g.last, p) < g.minDistance {
			return false
		}
	}
	g.last, g.lastAt, g.seen = p, now, true
	return true
}

// Reset forgets the last point so the next Allow succeeds.
func (g *ReverseGate) Reset() {
	g.mu.Lock()
	g.seen = false
	g.mu.Unlock()
}
