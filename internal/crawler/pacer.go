package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute is the polite request rate for index pages.
const DefaultRequestsPerMinute = 30

// Pacer blocks until the next request may be sent. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter allowing rpm requests per minute with a burst of
// one, so the first request is immediate and later ones are evenly spaced.
// rpm <= 0 disables pacing.
func NewPacer(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}
