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
)

// ErrBadOffset returned when a timecode offset is malformed or out of range
// for the frame rate
type ErrBadOffset struct {
	What string
}

func (e ErrBadOffset) Error() string {
	return fmt.Sprintf("Bad timecode offset: %s", e.What)
}

// ErrLayerNotFound returned when a snapshot is requested for a layer that has
// never been observed
type ErrLayerNotFound struct {
	Key LayerKey
}

func (e ErrLayerNotFound) Error() string {
	return fmt.Sprintf("Layer not tracked: channel %d layer %d", e.Key.Channel, e.Key.Layer)
}
