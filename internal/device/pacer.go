package device

import (
	"context"
	"math"
	"sync"
	"time"
)

// intervalWindow is how many recent tick intervals feed the rate stats
const intervalWindow = 100

// Pacer enforces the fixed tick rate and measures the rate the loop
// actually achieves. The tick loop is the only caller of Begin and Wait;
// Stats may be read concurrently by the health endpoints.
type Pacer struct {
	period time.Duration

	mu        sync.Mutex
	started   time.Time
	lastTick  time.Time
	ticks     uint64
	intervals []float64 // inter-tick gaps in seconds, newest last
}

// NewPacer creates a pacer for the given target frame rate
func NewPacer(fps int) *Pacer {
	if fps <= 0 {
		fps = 1
	}
	return &Pacer{
		period:    time.Second / time.Duration(fps),
		intervals: make([]float64, 0, intervalWindow),
	}
}

// Period returns the target tick duration
func (p *Pacer) Period() time.Duration {
	return p.period
}

// Begin marks the start of a tick and returns its start time
func (p *Pacer) Begin() time.Time {
	now := time.Now()

	p.mu.Lock()
	if p.started.IsZero() {
		p.started = now
	}
	if !p.lastTick.IsZero() {
		if len(p.intervals) == intervalWindow {
			copy(p.intervals, p.intervals[1:])
			p.intervals = p.intervals[:intervalWindow-1]
		}
		p.intervals = append(p.intervals, now.Sub(p.lastTick).Seconds())
	}
	p.lastTick = now
	p.ticks++
	p.mu.Unlock()

	return now
}

// Delay returns how long the loop should sleep after a tick whose work took
// elapsed, clamped at zero when the tick overran its period
func (p *Pacer) Delay(elapsed time.Duration) time.Duration {
	if elapsed >= p.period {
		return 0
	}
	return p.period - elapsed
}

// Wait sleeps out the remainder of the tick that began at start, returning
// early if ctx is done
func (p *Pacer) Wait(ctx context.Context, start time.Time) {
	remaining := p.Delay(time.Since(start))
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// PacerStats summarizes the achieved pacing
type PacerStats struct {
	Ticks          uint64
	AchievedFPS    float64 // ticks over total elapsed time
	IntervalMean   float64 // seconds, over the recent window
	IntervalStdDev float64 // seconds, over the recent window
	Stable         bool    // stddev below 15% of the mean interval
}

// Stats returns the achieved pacing over the loop's lifetime and the
// recent interval window
func (p *Pacer) Stats() PacerStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := PacerStats{Ticks: p.ticks}

	if !p.started.IsZero() {
		if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
			stats.AchievedFPS = float64(p.ticks) / elapsed
		}
	}

	n := len(p.intervals)
	if n == 0 {
		return stats
	}

	var sum float64
	for _, iv := range p.intervals {
		sum += iv
	}
	mean := sum / float64(n)

	var sumSquares float64
	for _, iv := range p.intervals {
		diff := iv - mean
		sumSquares += diff * diff
	}
	stdDev := math.Sqrt(sumSquares / float64(n))

	stats.IntervalMean = mean
	stats.IntervalStdDev = stdDev
	stats.Stable = stdDev < mean*0.15

	return stats
}
