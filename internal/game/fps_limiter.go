package game

import (
	"time"

	"packed-flame/internal/config"
)

// FPSLimiter paces the frame loop when vsync is off.
type FPSLimiter struct {
	next  time.Time
	limit func() int
}

// NewFPSLimiter follows config.GetFPSLimit, so changes apply on the next frame.
func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{limit: config.GetFPSLimit}
}

// Wait blocks until the next frame is due. A limit of 0 returns immediately.
// Sleeps cover most of the wait and a short spin covers the rest.
func (f *FPSLimiter) Wait() {
	limit := f.limit()
	if limit <= 0 {
		f.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(limit)
	if f.next.IsZero() {
		f.next = time.Now().Add(target)
	} else {
		f.next = f.next.Add(target)
	}

	for {
		remaining := time.Until(f.next)
		if remaining <= 0 {
			break
		}
		if remaining > 200*time.Microsecond {
			time.Sleep(remaining - 200*time.Microsecond)
		}
	}

	// resync after a hitch instead of racing to catch up
	if late := -time.Until(f.next); late > target {
		f.next = time.Now().Add(target)
	}
}
