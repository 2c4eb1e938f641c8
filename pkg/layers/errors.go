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

package layers

import (
	"fmt"
)

// ErrUnknownTypeTag returned when a message carries a type tag the decoder has
// no width for. Guessing zero width would corrupt every argument after it, so
// the whole message is rejected.
type ErrUnknownTypeTag struct {
	Tag     byte
	Address string
}

func (e ErrUnknownTypeTag) Error() string {
	return fmt.Sprintf("Unknown type tag %q in message %s", e.Tag, e.Address)
}

// ErrMalformedPacket returned when a packet can not be decoded at all
type ErrMalformedPacket struct {
	What string
}

func (e ErrMalformedPacket) Error() string {
	return fmt.Sprintf("Malformed telemetry packet: %s", e.What)
}
