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
	"time"
)

// StartPlan says when a start-triggered macro runs relative to the moment the
// start command is issued. A negative offset cannot be scheduled into the
// past, so the macro runs immediately and Lead tells the caller how long to
// wait before actually starting playback.
type StartPlan struct {
	Immediate bool
	Lead      time.Duration
	After     time.Duration
}

// PlanStart converts a signed start offset in seconds to a StartPlan.
func PlanStart(offsetSeconds float64) StartPlan {
	if offsetSeconds < 0 {
		return StartPlan{Immediate: true, Lead: secondsToDuration(-offsetSeconds)}
	}
	return StartPlan{After: secondsToDuration(offsetSeconds)}
}

// EndDelay computes the delay from item start at which an end-triggered macro
// fires: item duration plus the signed offset, clamped at zero (fire now).
func EndDelay(itemDuration, offsetSeconds float64) time.Duration {
	d := itemDuration + offsetSeconds
	if d <= 0 {
		return 0
	}
	return secondsToDuration(d)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
