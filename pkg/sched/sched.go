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

	"github.com/openplayout/go-playout/pkg/log"
)

// Position is the trigger point a timer is anchored to.
type Position int

const (
	PositionStart Position = iota
	PositionEnd
)

func (p Position) String() string {
	if p == PositionStart {
		return "start"
	}
	return "end"
}

// Key identifies one scheduled action. At most one timer is live per key;
// scheduling the same key again replaces the previous timer.
type Key struct {
	Item     string
	Position Position
}

type entry struct {
	timer Timer
	live  bool
}

// Scheduler owns all delayed actions of one application session. It is an
// explicit, injectable store: no package-level timer registry exists, so
// tests get a deterministic instance with a fake clock.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	timers map[Key]*entry
}

func New() *Scheduler {
	return NewWithClock(realClock{})
}

func NewWithClock(clock Clock) *Scheduler {
	return &Scheduler{
		clock:  clock,
		timers: make(map[Key]*entry),
	}
}

// Schedule arms action to run after delay, cancelling any live timer for the
// same key first. A non-positive delay still goes through the clock so that
// firing order stays consistent.
//
// The action runs only if its timer is still the registered one at fire
// time: a key cancelled or replaced between arm and fire is a guaranteed
// no-op.
func (s *Scheduler) Schedule(key Key, delay time.Duration, action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[key]; ok {
		old.live = false
		old.timer.Stop()
		delete(s.timers, key)
		log.Debug("Replacing timer for %s/%s", key.Item, key.Position)
	}

	e := &entry{live: true}
	e.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current != e || !e.live {
			// cancelled or replaced between arm and fire
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		action()
	})
	s.timers[key] = e
}

// Cancel stops the timer for a key. Cancelling a key with no live timer is a
// no-op.
func (s *Scheduler) Cancel(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[key]
	if !ok {
		return
	}
	e.live = false
	e.timer.Stop()
	delete(s.timers, key)
}

// CancelAll stops every live timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.timers {
		e.live = false
		e.timer.Stop()
		delete(s.timers, key)
	}
}

// Len returns the number of live timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
