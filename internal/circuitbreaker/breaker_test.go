package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	b := New(Config{})
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 3, b.cfg.TripAfter)
	assert.Equal(t, 1, b.cfg.CloseAfter)
	assert.Equal(t, 2*time.Minute, b.cfg.ProbeAfter)
}

func TestDo_PassesThroughWhenClosed(t *testing.T) {
	t.Parallel()

	b := New(Config{TripAfter: 3})
	calls := 0
	err := b.Do(func() error { calls++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_TripsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := New(Config{TripAfter: 3, ProbeAfter: time.Hour})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	// Open breaker rejects without running fn.
	calls := 0
	err := b.Do(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
}

func TestDo_SuccessResetsFailureRun(t *testing.T) {
	t.Parallel()

	b := New(Config{TripAfter: 3, ProbeAfter: time.Hour})

	require.Error(t, b.Do(func() error { return errBoom }))
	require.Error(t, b.Do(func() error { return errBoom }))
	require.NoError(t, b.Do(func() error { return nil }))
	require.Error(t, b.Do(func() error { return errBoom }))
	require.Error(t, b.Do(func() error { return errBoom }))

	assert.Equal(t, StateClosed, b.State(), "run was interrupted by a success")
}

func TestDo_ProbesAfterWindow(t *testing.T) {
	t.Parallel()

	b := New(Config{TripAfter: 1, CloseAfter: 1, ProbeAfter: time.Millisecond})

	require.Error(t, b.Do(func() error { return errBoom }))
	require.Equal(t, StateOpen, b.state)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, StateProbing, b.State())

	// A passing probe closes the breaker.
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestDo_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	b := New(Config{TripAfter: 1, ProbeAfter: time.Millisecond})

	require.Error(t, b.Do(func() error { return errBoom }))
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, StateProbing, b.State())

	require.Error(t, b.Do(func() error { return errBoom }))
	assert.Equal(t, StateOpen, b.state)
}

func TestOnStateChange_SeesTransitions(t *testing.T) {
	t.Parallel()

	type change struct{ from, to State }
	var changes []change
	b := New(Config{
		TripAfter:  1,
		CloseAfter: 1,
		ProbeAfter: time.Millisecond,
		OnStateChange: func(from, to State) {
			changes = append(changes, change{from, to})
		},
	})

	require.Error(t, b.Do(func() error { return errBoom }))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, b.Do(func() error { return nil }))

	require.Len(t, changes, 3)
	assert.Equal(t, change{StateClosed, StateOpen}, changes[0])
	assert.Equal(t, change{StateOpen, StateProbing}, changes[1])
	assert.Equal(t, change{StateProbing, StateClosed}, changes[2])
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "probing", StateProbing.String())
	assert.Equal(t, "unknown", State(42).String())
}
