package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Simulated models an external provider: an artificial settlement delay
// followed by a randomized outcome with the configured approval rate.
type Simulated struct {
	rate  float64
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

var _ Gateway = (*Simulated)(nil)

// NewSimulated builds a simulated gateway. rate is the approval probability
// in [0,1]; the demo default is 0.85.
func NewSimulated(rate float64, delay time.Duration) *Simulated {
	return &Simulated{
		rate:  rate,
		delay: delay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Authorize waits out the settlement delay (honoring ctx) and draws the
// outcome.
func (s *Simulated) Authorize(ctx context.Context, req Request) (Result, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	approved := s.rng.Float64() < s.rate
	ref := fmt.Sprintf("sim-%08x", s.rng.Uint32())
	s.mu.Unlock()

	return Result{Approved: approved, Reference: ref}, nil
}
