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

package playout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Offset is a directed, frame-rate-relative time delta entered as a timecode.
// Negative means "before the trigger point".
type Offset struct {
	Hours    int  `json:"hours"`
	Minutes  int  `json:"minutes"`
	Seconds  int  `json:"seconds"`
	Frames   int  `json:"frames"`
	Negative bool `json:"negative"`
}

// Validate checks the timecode field ranges against a frame rate.
// Frames must satisfy 0 <= Frames < frameRate.
func (o Offset) Validate(frameRate float64) error {
	if frameRate <= 0 {
		return ErrBadOffset{What: fmt.Sprintf("frame rate %v not positive", frameRate)}
	}
	if o.Hours < 0 || o.Minutes < 0 || o.Seconds < 0 || o.Frames < 0 {
		return ErrBadOffset{What: "negative field, use the sign flag instead"}
	}
	if float64(o.Frames) >= math.Ceil(frameRate) {
		return ErrBadOffset{What: fmt.Sprintf("frames %d out of range for rate %v", o.Frames, frameRate)}
	}
	return nil
}

// SecondsAt converts the offset to signed seconds at the given frame rate.
func (o Offset) SecondsAt(frameRate float64) float64 {
	seconds := float64(o.Hours)*3600 + float64(o.Minutes)*60 + float64(o.Seconds) + float64(o.Frames)/frameRate
	if o.Negative {
		return -seconds
	}
	return seconds
}

func (o Offset) String() string {
	sign := ""
	if o.Negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d:%02d", sign, o.Hours, o.Minutes, o.Seconds, o.Frames)
}

// ParseOffset parses a human-entered timecode offset of the form
// [-]HH:MM:SS:FF. Shorter forms fill in from the right: SS:FF, MM:SS:FF.
func ParseOffset(s string) (Offset, error) {
	var o Offset
	raw := strings.TrimSpace(s)
	if strings.HasPrefix(raw, "-") {
		o.Negative = true
		raw = raw[1:]
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return o, ErrBadOffset{What: fmt.Sprintf("%q is not a timecode", s)}
	}
	fields := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return o, ErrBadOffset{What: fmt.Sprintf("%q is not a timecode", s)}
		}
		fields[i] = v
	}
	// fill hours/minutes/seconds/frames from the right
	padded := make([]int, 4)
	copy(padded[4-len(fields):], fields)
	o.Hours, o.Minutes, o.Seconds, o.Frames = padded[0], padded[1], padded[2], padded[3]
	return o, nil
}
