// Package schedule runs periodic tasks from a single cooperative loop.
// Each task keeps its own next-due time; nothing runs concurrently.
package schedule

import (
	"fmt"
	"time"
)

// Task is a named action run at a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time)
}

type entry struct {
	task Task
	next time.Time
	runs uint64
}

// Scheduler holds tasks and their next-due times.
type Scheduler struct {
	entries []*entry
}

// New creates a scheduler whose tasks first fall due one interval after start.
// Tasks run in the order given when several are due together.
func New(start time.Time, tasks ...Task) (*Scheduler, error) {
	s := &Scheduler{}
	for _, t := range tasks {
		if t.Interval <= 0 {
			return nil, fmt.Errorf("schedule: task %q has non-positive interval %v", t.Name, t.Interval)
		}
		if t.Run == nil {
			return nil, fmt.Errorf("schedule: task %q has no action", t.Name)
		}
		s.entries = append(s.entries, &entry{task: t, next: start.Add(t.Interval)})
	}
	return s, nil
}

// RunDue runs every task that is due at now and reschedules it one interval
// after its previous due time, so late ticks do not stretch the period.
// A task that fell a whole interval or more behind runs once and restarts
// its grid at now. It returns the names of the tasks that ran.
func (s *Scheduler) RunDue(now time.Time) []string {
	var ran []string
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		e.next = e.next.Add(e.task.Interval)
		if !now.Before(e.next) {
			e.next = now.Add(e.task.Interval)
		}
		e.runs++
		e.task.Run(now)
		ran = append(ran, e.task.Name)
	}
	return ran
}

// NextDue returns the earliest due time across all tasks.
func (s *Scheduler) NextDue() time.Time {
	var next time.Time
	for i, e := range s.entries {
		if i == 0 || e.next.Before(next) {
			next = e.next
		}
	}
	return next
}

// Runs returns how many times the named task has run.
func (s *Scheduler) Runs(name string) uint64 {
	for _, e := range s.entries {
		if e.task.Name == name {
			return e.runs
		}
	}
	return 0
}
