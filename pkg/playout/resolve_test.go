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
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		address string
		channel int
		layer   int
		kind    PropertyKind
	}{
		{"/channel/1/stage/layer/10/file/time", 1, 10, KindTime},
		{"/channel/1/stage/layer/10/file/frame", 1, 10, KindFrame},
		{"/channel/2/stage/layer/5/foreground/paused", 2, 5, KindPaused},
		{"/channel/1/stage/layer/0/loop", 1, 0, KindLoop},
		{"/channel/1/stage/layer/0/foreground/producer/type", 1, 0, KindProducerType},
		{"/channel/1/stage/layer/0/foreground/file/path", 1, 0, KindPath},
		// "type" alone is not a producer type
		{"/channel/1/stage/layer/0/type", 1, 0, KindNone},
		// unrecognized trailing property on a valid layer address
		{"/channel/1/stage/layer/3/volume", 1, 3, KindNone},
		// not addressed to a layer at all
		{"/mixer/volume", -1, -1, KindNone},
		{"/channel/1/output/port", -1, -1, KindNone},
		{"/channel/x/stage/layer/1/file/time", -1, -1, KindNone},
		{"/channel/1/stage/layer/y/file/time", -1, -1, KindNone},
		{"", -1, -1, KindNone},
	}
	for _, c := range cases {
		res := Resolve(c.address)
		if res.Channel != c.channel || res.Layer != c.layer || res.Kind != c.kind {
			t.Errorf("Resolve(%q) = {%d %d %s}, want {%d %d %s}",
				c.address, res.Channel, res.Layer, res.Kind, c.channel, c.layer, c.kind)
		}
	}
}

func TestResolve_property_tail(t *testing.T) {
	res := Resolve("/channel/1/stage/layer/10/foreground/file/time")
	if res.Property != "foreground/file/time" {
		t.Errorf("property tail: %q", res.Property)
	}
	if !res.Addressed() {
		t.Error("expected addressed result")
	}
}

func TestResolve_unaddressed_is_not_addressed(t *testing.T) {
	if Resolve("/mixer/volume").Addressed() {
		t.Error("mixer address must not be addressed")
	}
}
