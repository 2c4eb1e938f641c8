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
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/google/gopacket"
)

func encodeLayer(t *testing.T, messages ...*Message) []byte {
	t.Helper()
	l := &OSCLayer{Messages: messages}
	buf := gopacket.NewSerializeBuffer()
	if err := l.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		t.Fatalf("SerializeTo: %v", err)
	}
	return buf.Bytes()
}

func decodeLayer(t *testing.T, data []byte) *OSCLayer {
	t.Helper()
	l := &OSCLayer{}
	if err := l.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		t.Fatalf("DecodeFromBytes: %v", err)
	}
	return l
}

func TestDecode_roundtrip_all_types(t *testing.T) {
	in := &Message{
		Address: "/channel/1/stage/layer/10/file/time",
		Args: []Argument{
			IntArg(-42),
			FloatArg(12.5),
			StringArg("media/clip.mov"),
			BoolArg(true),
			BoolArg(false),
			Int64Arg(-1234567890123),
			DoubleArg(1575.04),
		},
	}
	l := decodeLayer(t, encodeLayer(t, in))
	if len(l.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(l.Messages))
	}
	out := l.Messages[0]
	if out.Address != in.Address {
		t.Errorf("address mismatch: %q != %q", out.Address, in.Address)
	}
	if out.TypeTags() != "ifsTFhd" {
		t.Errorf("type tags: %q", out.TypeTags())
	}
	if !reflect.DeepEqual(out.Args, in.Args) {
		t.Errorf("args mismatch:\n got %+v\nwant %+v", out.Args, in.Args)
	}
}

func TestDecode_bundle_preserves_order(t *testing.T) {
	first := &Message{Address: "/channel/1/stage/layer/10/file/time", Args: []Argument{FloatArg(1.0), FloatArg(10.0)}}
	second := &Message{Address: "/channel/1/stage/layer/10/paused", Args: []Argument{BoolArg(true)}}
	l := decodeLayer(t, encodeLayer(t, first, second))
	if len(l.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(l.Messages))
	}
	if l.Messages[0].Address != first.Address || l.Messages[1].Address != second.Address {
		t.Errorf("order not preserved: %s, %s", l.Messages[0].Address, l.Messages[1].Address)
	}
}

func TestDecode_nested_bundle(t *testing.T) {
	inner := encodeBundle([]*Message{
		{Address: "/channel/2/stage/layer/5/file/frame", Args: []Argument{Int64Arg(100), Int64Arg(250)}},
	}, TimeTagImmediate)
	outer := appendPaddedString(nil, BundleMarker)
	outer = append(outer, make([]byte, 8)...)
	binary.BigEndian.PutUint64(outer[len(outer)-8:], TimeTagImmediate)
	outer = append(outer, make([]byte, 4)...)
	binary.BigEndian.PutUint32(outer[len(outer)-4:], uint32(len(inner)))
	outer = append(outer, inner...)

	messages, err := decodePacket(outer)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message from nested bundle, got %d", len(messages))
	}
	if v, ok := messages[0].Args[1].AsInt64(); !ok || v != 250 {
		t.Errorf("nested args: %+v", messages[0].Args)
	}
}

func TestDecode_bundle_malformed_length_keeps_prefix(t *testing.T) {
	good := &Message{Address: "/channel/1/stage/layer/10/file/time", Args: []Argument{FloatArg(5)}}
	data := encodeBundle([]*Message{good}, TimeTagImmediate)
	// append a length prefix that overflows the remaining buffer
	data = append(data, make([]byte, 4)...)
	binary.BigEndian.PutUint32(data[len(data)-4:], 9999)
	data = append(data, 0x01, 0x02)

	messages, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if len(messages) != 1 || messages[0].Address != good.Address {
		t.Errorf("expected the valid prefix message, got %+v", messages)
	}
}

func TestDecode_bundle_negative_length_stops(t *testing.T) {
	data := appendPaddedString(nil, BundleMarker)
	data = append(data, make([]byte, 8)...) // time tag
	data = append(data, 0xff, 0xff, 0xff, 0xff)
	data = append(data, make([]byte, 16)...)

	messages, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages, got %d", len(messages))
	}
}

func TestDecode_unknown_type_tag_is_error(t *testing.T) {
	data := appendPaddedString(nil, "/channel/1/stage/layer/0/volume")
	data = appendPaddedString(data, ",q")

	_, err := decodePacket(data)
	if _, ok := err.(ErrUnknownTypeTag); !ok {
		t.Fatalf("expected ErrUnknownTypeTag, got %v", err)
	}
}

func TestDecode_unknown_tag_in_bundle_keeps_prior(t *testing.T) {
	good := encodeMessage(&Message{Address: "/channel/1/stage/layer/1/loop", Args: []Argument{BoolArg(false)}})
	bad := appendPaddedString(nil, "/channel/1/stage/layer/1/x")
	bad = appendPaddedString(bad, ",q")

	data := appendPaddedString(nil, BundleMarker)
	data = append(data, make([]byte, 8)...)
	for _, chunk := range [][]byte{good, bad} {
		data = append(data, make([]byte, 4)...)
		binary.BigEndian.PutUint32(data[len(data)-4:], uint32(len(chunk)))
		data = append(data, chunk...)
	}

	messages, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message before the bad element, got %d", len(messages))
	}
}

func TestDecode_truncated_argument_keeps_decoded_prefix(t *testing.T) {
	data := appendPaddedString(nil, "/channel/1/stage/layer/9/file/time")
	data = appendPaddedString(data, ",ff")
	data = append(data, make([]byte, 4)...) // only the first float present

	messages, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if len(messages) != 1 || len(messages[0].Args) != 1 {
		t.Fatalf("expected one message with one arg, got %+v", messages)
	}
}

func TestDecode_empty_and_garbage(t *testing.T) {
	if _, err := decodePacket(nil); err == nil {
		t.Error("empty packet should error")
	}
	if _, err := decodePacket([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("unterminated garbage should error")
	}
}

func TestPaddedStringSize(t *testing.T) {
	cases := map[string]int{
		"":        4,
		"abc":     4,
		"abcd":    8,
		"#bundle": 8,
	}
	for s, want := range cases {
		if got := paddedStringSize(s); got != want {
			t.Errorf("paddedStringSize(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestInt64_from_big_endian_halves(t *testing.T) {
	data := appendPaddedString(nil, "/x")
	data = appendPaddedString(data, ",h")
	data = append(data, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe)

	messages, err := decodePacket(data)
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if v, ok := messages[0].Args[0].AsInt64(); !ok || v != -2 {
		t.Errorf("expected -2, got %v", messages[0].Args[0])
	}
}
