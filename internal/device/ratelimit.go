package device

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/pasikonik/sun-dimmer/internal/metrics"
)

// WriteLimiter spaces out brightness writes. DDC/CI monitors share a slow
// i2c bus and some firmwares wedge when setvcp commands arrive back to
// back, so every device write first takes a token here.
type WriteLimiter struct {
	limiter *rate.Limiter
	device  string
}

// NewWriteLimiter allows rps writes per second with the given burst.
func NewWriteLimiter(rps float64, burst int, device string) *WriteLimiter {
	return &WriteLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		device:  device,
	}
}

// Wait blocks until a write may proceed, or ctx is done. Reserve() is used
// so exactly one token is consumed per call.
func (l *WriteLimiter) Wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.DeviceRateLimitWaits.WithLabelValues(l.device).Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
