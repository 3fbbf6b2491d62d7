package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one recorded call result; true means success.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func record(b *Breaker, outcomes ...outcome) (last StateChange) {
	for _, o := range outcomes {
		if o {
			_, last = b.RecordSuccess()
		} else {
			_, last = b.RecordFailure()
		}
	}
	return last
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		outcomes  []outcome
		wantOpen  bool
		wantChg   StateChange
	}{
		{name: "new breaker is closed", failures: 3, wantOpen: false},
		{name: "below failure threshold", failures: 3, outcomes: []outcome{fail, fail}, wantOpen: false},
		{name: "threshold opens", failures: 3, outcomes: []outcome{fail, fail, fail}, wantOpen: true, wantChg: StateChange{Opened: true}},
		{name: "failures must be consecutive", failures: 3, outcomes: []outcome{fail, fail, ok, fail, fail}, wantOpen: false},
		{name: "already open reports no change", failures: 1, outcomes: []outcome{fail, fail}, wantOpen: true},
		{name: "one success below close threshold", failures: 1, successes: 2, outcomes: []outcome{fail, ok}, wantOpen: true},
		{name: "success threshold closes", failures: 1, successes: 2, outcomes: []outcome{fail, ok, ok}, wantOpen: false, wantChg: StateChange{Closed: true}},
		{name: "failure while open restarts recovery", failures: 1, successes: 2, outcomes: []outcome{fail, ok, fail, ok}, wantOpen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("audit-relay", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			chg := record(b, tt.outcomes...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantChg, chg)
		})
	}
}

func TestBreakerFallbackSignals(t *testing.T) {
	b := New("audit-relay", WithFailureThreshold(2))
	require.Equal(t, "audit-relay", b.Name())

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback, "a single failure keeps the primary path")

	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, StateOpen, b.State())

	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary, "default success threshold is one")
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReset(t *testing.T) {
	b := New("audit-relay", WithFailureThreshold(1))
	record(b, fail)
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	useFallback, _ := b.RecordFailure()
	assert.True(t, useFallback, "reset clears counters, not thresholds")
}
