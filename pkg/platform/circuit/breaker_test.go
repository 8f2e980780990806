package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replay records each step in order: 'f' is a failure, anything else a success.
func replay(b *Breaker, steps string) []StateChange {
	changes := make([]StateChange, 0, len(steps))
	for _, step := range steps {
		var change StateChange
		if step == 'f' {
			_, change = b.RecordFailure()
		} else {
			_, change = b.RecordSuccess()
		}
		changes = append(changes, change)
	}
	return changes
}

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		steps     string
		want      State
		openedAt  int
		closedAt  int
	}{
		{name: "stays closed below threshold", failures: 3, successes: 1, steps: "ff", want: StateClosed, openedAt: -1, closedAt: -1},
		{name: "opens on threshold", failures: 3, successes: 1, steps: "fff", want: StateOpen, openedAt: 2, closedAt: -1},
		{name: "success resets the failure run", failures: 3, successes: 1, steps: "ffsff", want: StateClosed, openedAt: -1, closedAt: -1},
		{name: "needs a run of successes to close", failures: 1, successes: 2, steps: "fs", want: StateOpen, openedAt: 0, closedAt: -1},
		{name: "closes after the success run", failures: 1, successes: 2, steps: "fss", want: StateClosed, openedAt: 0, closedAt: 2},
		{name: "failure while open restarts the success run", failures: 1, successes: 2, steps: "fsfs", want: StateOpen, openedAt: 0, closedAt: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("audit-store", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			changes := replay(b, tt.steps)

			assert.Equal(t, tt.want, b.State())
			for i, c := range changes {
				assert.Equal(t, i == tt.openedAt, c.Opened, "opened at step %d", i)
				assert.Equal(t, i == tt.closedAt, c.Closed, "closed at step %d", i)
			}
		})
	}
}

func TestBreaker_Defaults(t *testing.T) {
	b := New("audit-store", WithFailureThreshold(0), WithSuccessThreshold(-1))
	assert.Equal(t, "audit-store", b.Name())
	assert.Equal(t, "closed", b.State().String())

	replay(b, "ffff")
	assert.False(t, b.IsOpen(), "invalid thresholds keep the default of five")

	useFallback, _ := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, "open", b.State().String())

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary, "one success closes by default")
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("audit-store", WithFailureThreshold(1))
	replay(b, "f")
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened, "counters restart after a reset")
}

func TestBreaker_ConcurrentRecords(t *testing.T) {
	b := New("audit-store", WithFailureThreshold(50))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()

	assert.True(t, b.IsOpen())
}
