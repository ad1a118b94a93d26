package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func counter(n *int) func(time.Time) {
	return func(time.Time) { *n++ }
}

func TestNewRejectsBadTasks(t *testing.T) {
	_, err := New(start, Task{Name: "zero", Interval: 0, Run: func(time.Time) {}})
	assert.Error(t, err)

	_, err = New(start, Task{Name: "nil", Interval: time.Second})
	assert.Error(t, err)
}

func TestFirstRunAfterOneInterval(t *testing.T) {
	var polls int
	s, err := New(start, Task{Name: "poll", Interval: 10 * time.Millisecond, Run: counter(&polls)})
	require.NoError(t, err)

	assert.Empty(t, s.RunDue(start))
	assert.Empty(t, s.RunDue(start.Add(9*time.Millisecond)))
	assert.Equal(t, []string{"poll"}, s.RunDue(start.Add(10*time.Millisecond)))
	assert.Equal(t, 1, polls)
}

func TestRateLimiting(t *testing.T) {
	var polls, beats, syncs int
	s, err := New(start,
		Task{Name: "poll", Interval: 10 * time.Millisecond, Run: counter(&polls)},
		Task{Name: "heartbeat", Interval: time.Minute, Run: counter(&beats)},
		Task{Name: "sync", Interval: 12 * time.Hour, Run: counter(&syncs)},
	)
	require.NoError(t, err)

	// Drive the loop every millisecond for two minutes.
	for ms := 0; ms <= 120_000; ms++ {
		s.RunDue(start.Add(time.Duration(ms) * time.Millisecond))
	}

	assert.Equal(t, 12_000, polls)
	assert.Equal(t, 2, beats)
	assert.Equal(t, 0, syncs)
	assert.Equal(t, uint64(12_000), s.Runs("poll"))
	assert.Equal(t, uint64(0), s.Runs("missing"))
}

func TestLateTaskRunsOnce(t *testing.T) {
	var polls int
	s, _ := New(start, Task{Name: "poll", Interval: 10 * time.Millisecond, Run: counter(&polls)})

	s.RunDue(start.Add(time.Second))
	assert.Equal(t, 1, polls)

	// More than an interval late: the grid restarts at the late run.
	s.RunDue(start.Add(time.Second + 9*time.Millisecond))
	assert.Equal(t, 1, polls)
	s.RunDue(start.Add(time.Second + 10*time.Millisecond))
	assert.Equal(t, 2, polls)
}

func TestJitteredTicksKeepRate(t *testing.T) {
	var polls int
	s, _ := New(start, Task{Name: "poll", Interval: 10 * time.Millisecond, Run: counter(&polls)})

	// Ticks every 10ms, every other one delivered 0.3ms late.
	for i := 1; i <= 1000; i++ {
		at := start.Add(time.Duration(i) * 10 * time.Millisecond)
		if i%2 == 1 {
			at = at.Add(300 * time.Microsecond)
		}
		s.RunDue(at)
	}

	assert.Equal(t, 1000, polls)
}

func TestSlightlyLateRunKeepsGrid(t *testing.T) {
	var polls int
	s, _ := New(start, Task{Name: "poll", Interval: 10 * time.Millisecond, Run: counter(&polls)})

	s.RunDue(start.Add(14 * time.Millisecond))
	assert.Equal(t, 1, polls)
	assert.True(t, s.NextDue().Equal(start.Add(20*time.Millisecond)))

	s.RunDue(start.Add(20 * time.Millisecond))
	assert.Equal(t, 2, polls)
}

func TestTasksRunInOrder(t *testing.T) {
	var order []string
	record := func(name string) func(time.Time) {
		return func(time.Time) { order = append(order, name) }
	}
	s, _ := New(start,
		Task{Name: "a", Interval: time.Second, Run: record("a")},
		Task{Name: "b", Interval: time.Second, Run: record("b")},
	)

	ran := s.RunDue(start.Add(time.Second))
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRunReceivesNow(t *testing.T) {
	var got time.Time
	s, _ := New(start, Task{Name: "a", Interval: time.Second, Run: func(now time.Time) { got = now }})

	at := start.Add(1500 * time.Millisecond)
	s.RunDue(at)
	assert.True(t, got.Equal(at))
}

func TestNextDue(t *testing.T) {
	s, _ := New(start,
		Task{Name: "slow", Interval: time.Minute, Run: func(time.Time) {}},
		Task{Name: "fast", Interval: time.Second, Run: func(time.Time) {}},
	)
	assert.True(t, s.NextDue().Equal(start.Add(time.Second)))

	s.RunDue(start.Add(time.Second))
	assert.True(t, s.NextDue().Equal(start.Add(2*time.Second)))

	empty, _ := New(start)
	assert.True(t, empty.NextDue().IsZero())
}
