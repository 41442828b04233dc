package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks progress over a known number of work units
type ProgressTracker struct {
	mu        sync.Mutex
	step      string
	total     int
	current   int
	startTime time.Time
	now       func() time.Time
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(step string, total int) *ProgressTracker {
	return &ProgressTracker{
		step:      step,
		total:     total,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Add advances progress by n units
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = min(p.current+n, p.total)
}

// Percentage returns completed work in [0, 100]
func (p *ProgressTracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total <= 0 {
		return 100
	}
	return float64(p.current) / float64(p.total) * 100
}

// ETA estimates the time remaining from the average rate so far
func (p *ProgressTracker) ETA() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == 0 || p.total == 0 {
		return 0, false
	}
	elapsed := p.now().Sub(p.startTime)
	perUnit := elapsed / time.Duration(p.current)
	return perUnit * time.Duration(p.total-p.current), true
}

// Message renders "step: current/total" with an ETA once one is known.
func (p *ProgressTracker) Message(unit string) string {
	eta, ok := p.ETA()
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := fmt.Sprintf("%s: %d/%d %s", p.step, p.current, p.total, unit)
	if ok && p.current < p.total {
		msg += fmt.Sprintf(", about %s left", formatDuration(eta))
	}
	return msg
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
