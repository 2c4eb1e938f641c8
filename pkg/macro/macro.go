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

package macro

import (
	"github.com/openplayout/go-playout/pkg/log"
	"github.com/openplayout/go-playout/pkg/playout"
	"github.com/openplayout/go-playout/pkg/sched"
)

const (
	TriggerStart = "start"
	TriggerEnd   = "end"
)

// Macro is a side effect executed at a timecode offset relative to an item's
// start or end. Definitions are persisted by id and looked up again when the
// scheduled action fires, so edits and deletions take effect immediately.
type Macro struct {
	ID       string   `json:"id" toml:"id"`
	Name     string   `json:"name" toml:"name"`
	Trigger  string   `json:"trigger" toml:"trigger"`
	Offset   string   `json:"offset,omitempty" toml:"offset"`
	Commands []string `json:"commands" toml:"commands"`
}

// OffsetSeconds converts the macro's timecode offset to signed seconds at the
// given frame rate. An empty offset means "exactly at the trigger point".
func (m *Macro) OffsetSeconds(frameRate float64) (float64, error) {
	if m.Offset == "" {
		return 0, nil
	}
	offset, err := playout.ParseOffset(m.Offset)
	if err != nil {
		return 0, err
	}
	if err := offset.Validate(frameRate); err != nil {
		return 0, err
	}
	return offset.SecondsAt(frameRate), nil
}

// Position maps the trigger name to a scheduler position.
func (m *Macro) Position() sched.Position {
	if m.Trigger == TriggerEnd {
		return sched.PositionEnd
	}
	return sched.PositionStart
}

// Runner executes a macro's commands. The outbound command layer implements
// this; the daemon's default just logs.
type Runner interface {
	Run(m *Macro) error
}

// LogRunner logs macro executions without side effects.
type LogRunner struct{}

func (LogRunner) Run(m *Macro) error {
	log.Info("Macro %s (%s): %d command(s)", m.ID, m.Name, len(m.Commands))
	return nil
}
