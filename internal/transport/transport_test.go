package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastProfile(rate float64) Profile {
	return Profile{FailureRate: rate, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestSimulatedNeverFailsAtZeroRate(t *testing.T) {
	tr := NewSimulatedWithSeed(nil, 1)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		calls := 0
		err := tr.Execute(ctx, fastProfile(0), func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	}
}

func TestSimulatedAlwaysFailsAtFullRate(t *testing.T) {
	tr := NewSimulatedWithSeed(nil, 1)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		err := tr.Execute(ctx, fastProfile(1), func(context.Context) error {
			t.Fatal("operation must not run when the network drops the call")
			return nil
		})
		require.ErrorIs(t, err, ErrTransient)
		require.True(t, IsTransient(err))
	}
}

func TestSimulatedRespectsContextCancellation(t *testing.T) {
	tr := NewSimulatedWithSeed(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	profile := Profile{FailureRate: 0, MinDelay: time.Hour, MaxDelay: time.Hour}
	err := tr.Execute(ctx, profile, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedPropagatesOperationError(t *testing.T) {
	tr := NewSimulatedWithSeed(nil, 1)
	want := errors.New("boom")

	err := tr.Execute(context.Background(), fastProfile(0), func(context.Context) error {
		return want
	})
	require.ErrorIs(t, err, want)
	require.False(t, IsTransient(err))
}

type captureObserver struct {
	observed int
}

func (c *captureObserver) ObserveTransportLatency(float64) { c.observed++ }

func TestSimulatedReportsLatency(t *testing.T) {
	obs := &captureObserver{}
	tr := NewSimulatedWithSeed(obs, 1)

	err := tr.Execute(context.Background(), fastProfile(0), func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, obs.observed)
}

func TestDirectRunsInline(t *testing.T) {
	tr := NewDirect()
	ran := false
	err := tr.Execute(context.Background(), DefaultProfile(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}
