/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package sched

import (
	"sync"
	"time"
)

// Timer is the cancellable handle of one armed callback.
type Timer interface {
	Stop() bool
}

// Clock arms one-shot callbacks. The real implementation uses OS timers, the
// fake one is advanced manually in tests.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	if d <= 0 {
		t.at = c.now
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the fake time forward and fires every due, unstopped timer in
// deadline order. Callbacks run without the clock lock held, so they may arm
// new timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	now := c.now
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		dueIdx := -1
		for i, t := range c.timers {
			if t.stopped || t.at > now {
				continue
			}
			if due == nil || t.at < due.at {
				due = t
				dueIdx = i
			}
		}
		if due == nil {
			c.mu.Unlock()
			return
		}
		due.stopped = true
		c.timers = append(c.timers[:dueIdx], c.timers[dueIdx+1:]...)
		c.mu.Unlock()
		due.f()
	}
}

// Pending returns the number of armed, unstopped timers.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}
