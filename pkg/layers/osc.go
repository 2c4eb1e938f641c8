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
	"math"

	"github.com/google/gopacket"
	gopacketlayers "github.com/google/gopacket/layers"

	"github.com/openplayout/go-playout/pkg/log"
)

const (
	// OSCLayerNum identifies the layer
	OSCLayerNum = 2250
	// BundleMarker appears as the first field of every OSC bundle
	BundleMarker = "#bundle"
	// BundleHeaderSize is the padded bundle marker (8 bytes) plus the 8-byte time tag
	BundleHeaderSize = 16
	// TimeTagImmediate is the OSC time tag meaning "now"
	TimeTagImmediate = uint64(1)
)

// TypeTag denotes the wire type of one positional message argument.
type TypeTag byte

const (
	TypeTagInt    TypeTag = 'i'
	TypeTagFloat  TypeTag = 'f'
	TypeTagString TypeTag = 's'
	TypeTagTrue   TypeTag = 'T'
	TypeTagFalse  TypeTag = 'F'
	TypeTagInt64  TypeTag = 'h'
	TypeTagDouble TypeTag = 'd'
)

// Argument is one decoded message argument. Tag selects which of the value
// fields is meaningful.
type Argument struct {
	Tag    TypeTag
	Int    int32
	Float  float32
	Str    string
	Bool   bool
	Int64  int64
	Double float64
}

func IntArg(v int32) Argument      { return Argument{Tag: TypeTagInt, Int: v} }
func FloatArg(v float32) Argument  { return Argument{Tag: TypeTagFloat, Float: v} }
func StringArg(v string) Argument  { return Argument{Tag: TypeTagString, Str: v} }
func Int64Arg(v int64) Argument    { return Argument{Tag: TypeTagInt64, Int64: v} }
func DoubleArg(v float64) Argument { return Argument{Tag: TypeTagDouble, Double: v} }

func BoolArg(v bool) Argument {
	if v {
		return Argument{Tag: TypeTagTrue, Bool: true}
	}
	return Argument{Tag: TypeTagFalse, Bool: false}
}

// AsFloat64 coerces any numeric argument to float64.
func (a Argument) AsFloat64() (float64, bool) {
	switch a.Tag {
	case TypeTagInt:
		return float64(a.Int), true
	case TypeTagFloat:
		return float64(a.Float), true
	case TypeTagInt64:
		return float64(a.Int64), true
	case TypeTagDouble:
		return a.Double, true
	}
	return 0, false
}

// AsInt64 coerces an integer argument to int64.
func (a Argument) AsInt64() (int64, bool) {
	switch a.Tag {
	case TypeTagInt:
		return int64(a.Int), true
	case TypeTagInt64:
		return a.Int64, true
	}
	return 0, false
}

func (a Argument) AsBool() (bool, bool) {
	switch a.Tag {
	case TypeTagTrue:
		return true, true
	case TypeTagFalse:
		return false, true
	}
	return false, false
}

func (a Argument) AsString() (string, bool) {
	if a.Tag == TypeTagString {
		return a.Str, true
	}
	return "", false
}

// Message is one decoded telemetry message: an address path and its
// positional arguments.
type Message struct {
	Address string
	Args    []Argument
}

// TypeTags returns the message type tag string, without the leading comma.
func (m *Message) TypeTags() string {
	tags := make([]byte, len(m.Args))
	for i, arg := range m.Args {
		tags[i] = byte(arg.Tag)
	}
	return string(tags)
}

// OSCLayer holds the messages decoded from one telemetry datagram, bundles
// already flattened in wire order.
type OSCLayer struct {
	gopacketlayers.BaseLayer
	Messages []*Message
}

var OSCLayerType = gopacket.RegisterLayerType(OSCLayerNum,
	gopacket.LayerTypeMetadata{Name: "OSCLayerType", Decoder: gopacket.DecodeFunc(decodeOSCLayer)})

func (o *OSCLayer) LayerType() gopacket.LayerType {
	return OSCLayerType
}

// DecodeFromBytes attempts to decode the byte slice as an OSC packet. A
// malformed tail yields the messages decoded so far; an error is returned
// only when nothing could be decoded.
func (o *OSCLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	o.BaseLayer = gopacketlayers.BaseLayer{Contents: data}
	messages, err := decodePacket(data)
	o.Messages = messages
	if err != nil && len(messages) == 0 {
		df.SetTruncated()
		return err
	}
	return nil
}

func decodeOSCLayer(data []byte, p gopacket.PacketBuilder) error {
	o := &OSCLayer{}
	err := o.DecodeFromBytes(data, p)
	if err != nil {
		log.Debug("Error while decoding OSC layer: %s", err)
		return err
	}
	p.AddLayer(o)
	return nil
}

// decodePacket decodes a message-or-bundle chunk, recursing into bundles.
func decodePacket(data []byte) ([]*Message, error) {
	if len(data) == 0 {
		return nil, ErrMalformedPacket{What: "empty packet"}
	}
	if isBundle(data) {
		return decodeBundle(data)
	}
	message, err := decodeMessage(data)
	if err != nil {
		return nil, err
	}
	return []*Message{message}, nil
}

func isBundle(data []byte) bool {
	if len(data) < len(BundleMarker)+1 {
		return false
	}
	return string(data[:len(BundleMarker)]) == BundleMarker && data[len(BundleMarker)] == 0
}

// decodeBundle walks the length-prefixed elements of a bundle. A malformed
// element length or an undecodable element stops the walk early, the
// messages decoded up to that point are kept.
func decodeBundle(data []byte) ([]*Message, error) {
	if len(data) < BundleHeaderSize {
		return nil, ErrMalformedPacket{What: "bundle shorter than its header"}
	}
	var messages []*Message
	offset := BundleHeaderSize
	for offset < len(data) {
		if offset+4 > len(data) {
			log.Debug("Truncated bundle element length at offset %d", offset)
			break
		}
		size := int(int32(binary.BigEndian.Uint32(data[offset : offset+4])))
		offset += 4
		if size <= 0 || offset+size > len(data) {
			log.Debug("Malformed bundle element length %d at offset %d", size, offset-4)
			break
		}
		inner, err := decodePacket(data[offset : offset+size])
		messages = append(messages, inner...)
		if err != nil {
			log.Debug("Stopping bundle decode: %s", err)
			break
		}
		offset += size
	}
	return messages, nil
}

// decodeMessage decodes a single message: padded address string, padded type
// tag string led by a comma, then one argument per tag. A truncated argument
// list yields the arguments decoded so far; an unknown type tag rejects the
// whole message since its width on the wire is unknown.
func decodeMessage(data []byte) (*Message, error) {
	address, offset, err := readPaddedString(data, 0)
	if err != nil {
		return nil, err
	}
	message := &Message{Address: address}
	if offset >= len(data) {
		return message, nil
	}
	tags, offset, err := readPaddedString(data, offset)
	if err != nil || len(tags) == 0 || tags[0] != ',' {
		// no typed arguments
		return message, nil
	}
	for _, c := range []byte(tags[1:]) {
		arg, next, err := decodeArgument(TypeTag(c), address, data, offset)
		if err != nil {
			if _, unknown := err.(ErrUnknownTypeTag); unknown {
				return nil, err
			}
			log.Debug("Truncated argument list in message %s: %s", address, err)
			return message, nil
		}
		message.Args = append(message.Args, arg)
		offset = next
	}
	return message, nil
}

func decodeArgument(tag TypeTag, address string, data []byte, offset int) (Argument, int, error) {
	switch tag {
	case TypeTagInt:
		if offset+4 > len(data) {
			return Argument{}, 0, ErrMalformedPacket{What: "short int32"}
		}
		v := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		return IntArg(v), offset + 4, nil
	case TypeTagFloat:
		if offset+4 > len(data) {
			return Argument{}, 0, ErrMalformedPacket{What: "short float32"}
		}
		v := math.Float32frombits(binary.BigEndian.Uint32(data[offset : offset+4]))
		return FloatArg(v), offset + 4, nil
	case TypeTagString:
		s, next, err := readPaddedString(data, offset)
		if err != nil {
			return Argument{}, 0, err
		}
		return StringArg(s), next, nil
	case TypeTagTrue:
		return BoolArg(true), offset, nil
	case TypeTagFalse:
		return BoolArg(false), offset, nil
	case TypeTagInt64:
		if offset+8 > len(data) {
			return Argument{}, 0, ErrMalformedPacket{What: "short int64"}
		}
		high := binary.BigEndian.Uint32(data[offset : offset+4])
		low := binary.BigEndian.Uint32(data[offset+4 : offset+8])
		return Int64Arg(int64(high)<<32 | int64(low)), offset + 8, nil
	case TypeTagDouble:
		if offset+8 > len(data) {
			return Argument{}, 0, ErrMalformedPacket{What: "short float64"}
		}
		v := math.Float64frombits(binary.BigEndian.Uint64(data[offset : offset+8]))
		return DoubleArg(v), offset + 8, nil
	}
	return Argument{}, 0, ErrUnknownTypeTag{Tag: byte(tag), Address: address}
}

// paddedStringSize returns the wire size of a string: the terminating null is
// mandatory and the total is padded up to 4-byte alignment.
func paddedStringSize(s string) int {
	return (len(s) + 4) / 4 * 4
}

func readPaddedString(data []byte, offset int) (string, int, error) {
	if offset >= len(data) {
		return "", 0, ErrMalformedPacket{What: "string beyond end of packet"}
	}
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end == len(data) {
		return "", 0, ErrMalformedPacket{What: "unterminated string"}
	}
	s := string(data[offset:end])
	return s, offset + paddedStringSize(s), nil
}

// SerializeTo serializes the layer into bytes and writes the bytes to the
// SerializeBuffer. A single message is written bare, anything else as a
// bundle with an immediate time tag.
func (o *OSCLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	var payload []byte
	if len(o.Messages) == 1 {
		payload = encodeMessage(o.Messages[0])
	} else {
		payload = encodeBundle(o.Messages, TimeTagImmediate)
	}
	bytes, err := b.AppendBytes(len(payload))
	if err != nil {
		return err
	}
	copy(bytes, payload)
	return nil
}

func encodeBundle(messages []*Message, timeTag uint64) []byte {
	buf := appendPaddedString(nil, BundleMarker)
	buf = append(buf, make([]byte, 8)...)
	binary.BigEndian.PutUint64(buf[len(buf)-8:], timeTag)
	for _, message := range messages {
		encoded := encodeMessage(message)
		buf = append(buf, make([]byte, 4)...)
		binary.BigEndian.PutUint32(buf[len(buf)-4:], uint32(len(encoded)))
		buf = append(buf, encoded...)
	}
	return buf
}

func encodeMessage(m *Message) []byte {
	buf := appendPaddedString(nil, m.Address)
	buf = appendPaddedString(buf, ","+m.TypeTags())
	for _, arg := range m.Args {
		buf = appendArgument(buf, arg)
	}
	return buf
}

func appendArgument(buf []byte, arg Argument) []byte {
	switch arg.Tag {
	case TypeTagInt:
		buf = append(buf, make([]byte, 4)...)
		binary.BigEndian.PutUint32(buf[len(buf)-4:], uint32(arg.Int))
	case TypeTagFloat:
		buf = append(buf, make([]byte, 4)...)
		binary.BigEndian.PutUint32(buf[len(buf)-4:], math.Float32bits(arg.Float))
	case TypeTagString:
		buf = appendPaddedString(buf, arg.Str)
	case TypeTagInt64:
		buf = append(buf, make([]byte, 8)...)
		binary.BigEndian.PutUint64(buf[len(buf)-8:], uint64(arg.Int64))
	case TypeTagDouble:
		buf = append(buf, make([]byte, 8)...)
		binary.BigEndian.PutUint64(buf[len(buf)-8:], math.Float64bits(arg.Double))
	case TypeTagTrue, TypeTagFalse:
		// zero-width on the wire
	}
	return buf
}

func appendPaddedString(buf []byte, s string) []byte {
	padded := make([]byte, paddedStringSize(s))
	copy(padded, s)
	return append(buf, padded...)
}
