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
	"testing"
	"time"

	"github.com/openplayout/go-playout/pkg/sched"
)

func TestPlanStart(t *testing.T) {
	plan := PlanStart(-1.5)
	if !plan.Immediate || plan.Lead != 1500*time.Millisecond {
		t.Errorf("negative offset: %+v", plan)
	}

	plan = PlanStart(2)
	if plan.Immediate || plan.After != 2*time.Second {
		t.Errorf("positive offset: %+v", plan)
	}

	plan = PlanStart(0)
	if plan.Immediate || plan.After != 0 || plan.Lead != 0 {
		t.Errorf("zero offset: %+v", plan)
	}
}

func TestEndDelay(t *testing.T) {
	if got := EndDelay(10, -2); got != 8*time.Second {
		t.Errorf("EndDelay(10, -2) = %v, want 8s", got)
	}
	if got := EndDelay(10, 0); got != 10*time.Second {
		t.Errorf("EndDelay(10, 0) = %v, want 10s", got)
	}
	if got := EndDelay(10, 1.5); got != 11500*time.Millisecond {
		t.Errorf("EndDelay(10, 1.5) = %v", got)
	}
	// an offset past the item start clamps to "fire now"
	if got := EndDelay(1, -2); got != 0 {
		t.Errorf("EndDelay(1, -2) = %v, want 0", got)
	}
}

func TestOffsetSeconds(t *testing.T) {
	m := &Macro{ID: "m", Trigger: TriggerStart, Offset: "-00:00:01:15"}
	got, err := m.OffsetSeconds(30)
	if err != nil {
		t.Fatal(err)
	}
	if got != -1.5 {
		t.Errorf("OffsetSeconds = %v, want -1.5", got)
	}

	// empty offset is the trigger point itself
	m = &Macro{ID: "m", Trigger: TriggerEnd}
	if got, err := m.OffsetSeconds(25); err != nil || got != 0 {
		t.Errorf("empty offset: %v %v", got, err)
	}

	// frames out of range for the rate
	m = &Macro{ID: "m", Offset: "00:00:00:29"}
	if _, err := m.OffsetSeconds(25); err == nil {
		t.Error("29 frames at rate 25 should fail")
	}
}

func TestPosition(t *testing.T) {
	if (&Macro{Trigger: TriggerEnd}).Position() != sched.PositionEnd {
		t.Error("end trigger")
	}
	if (&Macro{Trigger: TriggerStart}).Position() != sched.PositionStart {
		t.Error("start trigger")
	}
}
