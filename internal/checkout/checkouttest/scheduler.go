// Package checkouttest provides a deterministic scheduler for driving the
// checkout machine in tests.
package checkouttest

import (
	"sync"
	"time"

	"github.com/toolshop/storefront/internal/checkout"
)

// Scheduler queues callbacks until Fire is called.
type Scheduler struct {
	mu     sync.Mutex
	tasks  []*task
	delays []time.Duration
}

type task struct {
	f       func()
	stopped bool
	fired   bool
	owner   *Scheduler
}

func (t *task) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) checkout.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &task{f: f, owner: s}
	s.tasks = append(s.tasks, t)
	s.delays = append(s.delays, d)
	return t
}

// Pending returns how many callbacks are scheduled and not stopped or fired.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// LastDelay returns the delay passed to the most recent AfterFunc.
func (s *Scheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.delays) == 0 {
		return 0
	}
	return s.delays[len(s.delays)-1]
}

// Fire runs every pending callback in scheduling order and returns how many ran.
func (s *Scheduler) Fire() int {
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}
