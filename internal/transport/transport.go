// Package transport simulates the unreliable network every mutating
// appointment operation would cross in a real deployment. The demo keeps all
// state in-process, so the latency and failures here are injected, not real.
package transport

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrTransient is returned when the simulated network drops an operation.
// The caller is expected to surface it and let the user retry manually.
var ErrTransient = errors.New("transport: transient network failure, please retry")

// Profile tunes the failure injection for a class of operations.
type Profile struct {
	FailureRate float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultProfile matches ordinary patient/doctor operations.
func DefaultProfile() Profile {
	return Profile{FailureRate: 0.05, MinDelay: 300 * time.Millisecond, MaxDelay: 800 * time.Millisecond}
}

// AdminProfile matches admin overrides, which fail less often.
func AdminProfile() Profile {
	return Profile{FailureRate: 0.02, MinDelay: 300 * time.Millisecond, MaxDelay: 800 * time.Millisecond}
}

// Transport runs an operation across the (simulated) network boundary.
type Transport interface {
	Execute(ctx context.Context, profile Profile, op func(ctx context.Context) error) error
}

// LatencyObserver receives the simulated round-trip duration of each call.
type LatencyObserver interface {
	ObserveTransportLatency(seconds float64)
}

// Simulated injects a bounded random delay and a random failure rate. The
// delay always runs to completion; only context cancellation cuts it short.
type Simulated struct {
	observer LatencyObserver

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a transport seeded from the current time.
func NewSimulated(observer LatencyObserver) *Simulated {
	return NewSimulatedWithSeed(observer, time.Now().UnixNano())
}

// NewSimulatedWithSeed allows deterministic failure sequences in tests.
func NewSimulatedWithSeed(observer LatencyObserver, seed int64) *Simulated {
	return &Simulated{
		observer: observer,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) roll(profile Profile) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := profile.MinDelay
	if span := profile.MaxDelay - profile.MinDelay; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	failed := s.rng.Float64() < profile.FailureRate
	return delay, failed
}

// Execute sleeps for the rolled delay, then either fails with ErrTransient or
// runs op. The failure decision is made before op runs, so a dropped call
// never mutates state.
func (s *Simulated) Execute(ctx context.Context, profile Profile, op func(ctx context.Context) error) error {
	delay, failed := s.roll(profile)

	start := time.Now()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if s.observer != nil {
		s.observer.ObserveTransportLatency(time.Since(start).Seconds())
	}

	if failed {
		return ErrTransient
	}
	return op(ctx)
}

// Direct runs operations inline with no delay and no injected failures.
// Tests use it to keep the state machine deterministic.
type Direct struct{}

// NewDirect creates a pass-through transport.
func NewDirect() Direct { return Direct{} }

// Execute runs op immediately.
func (Direct) Execute(ctx context.Context, _ Profile, op func(ctx context.Context) error) error {
	return op(ctx)
}

// IsTransient reports whether err is a simulated network failure and is
// therefore safe to retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
