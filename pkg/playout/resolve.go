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
	"strconv"
	"strings"
)

// PropertyKind classifies what aspect of layer state a telemetry address
// refers to.
type PropertyKind int

const (
	KindNone PropertyKind = iota
	KindTime
	KindFrame
	KindPaused
	KindLoop
	KindProducerType
	KindPath
)

func (k PropertyKind) String() string {
	switch k {
	case KindTime:
		return "time"
	case KindFrame:
		return "frame"
	case KindPaused:
		return "paused"
	case KindLoop:
		return "loop"
	case KindProducerType:
		return "producerType"
	case KindPath:
		return "path"
	}
	return "none"
}

// ResolvedAddress is the structured form of a telemetry address. Channel and
// Layer are -1 when the address does not match the channel/layer shape, in
// which case the state store ignores the message.
type ResolvedAddress struct {
	Channel  int
	Layer    int
	Kind     PropertyKind
	Property string
}

// Addressed reports whether the address carried a valid channel/layer pair.
func (r ResolvedAddress) Addressed() bool {
	return r.Channel >= 0 && r.Layer >= 0
}

// Resolve maps a telemetry address path to a (channel, layer, property kind)
// tuple. Only the fixed shape channel/<N>/stage/layer/<M>/<property...> is
// recognized; anything else resolves to an unaddressed KindNone result.
func Resolve(address string) ResolvedAddress {
	res := ResolvedAddress{Channel: -1, Layer: -1, Kind: KindNone}

	var parts []string
	for _, part := range strings.Split(address, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 5 || parts[0] != "channel" || parts[2] != "stage" || parts[3] != "layer" {
		return res
	}
	channel, err := strconv.Atoi(parts[1])
	if err != nil {
		return res
	}
	layer, err := strconv.Atoi(parts[4])
	if err != nil {
		return res
	}

	res.Channel = channel
	res.Layer = layer
	res.Property = strings.Join(parts[5:], "/")

	switch parts[len(parts)-1] {
	case "time":
		res.Kind = KindTime
	case "frame":
		res.Kind = KindFrame
	case "paused":
		res.Kind = KindPaused
	case "loop":
		res.Kind = KindLoop
	case "path":
		res.Kind = KindPath
	case "type":
		if strings.Contains(res.Property, "producer") {
			res.Kind = KindProducerType
		}
	}
	return res
}
