// Copyright 2024 The ofswitch Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ofp

import (
	"encoding/binary"
	"fmt"

	"github.com/ofswitch/ofswitch/flowkey"
)

// MatchLen is the fixed size of a wire match, per §6.
const MatchLen = 40

// Match is the 40-byte wire match layout. It carries no behavior of
// its own beyond encode/decode; flowkey.Template turns it into a
// domain Key and Wildcards.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DLSrc     [6]byte
	DLDst     [6]byte
	DLVlan    uint16
	DLType    uint16
	NWSrc     uint32
	NWDst     uint32
	NWProto   uint8
	TPSrc     uint16
	TPDst     uint16
}

// MarshalBinary encodes m in its 40-byte wire layout.
func (m Match) MarshalBinary() ([]byte, error) {
	b := make([]byte, MatchLen)
	binary.BigEndian.PutUint32(b[0:4], m.Wildcards)
	binary.BigEndian.PutUint16(b[4:6], m.InPort)
	copy(b[6:12], m.DLSrc[:])
	copy(b[12:18], m.DLDst[:])
	binary.BigEndian.PutUint16(b[18:20], m.DLVlan)
	binary.BigEndian.PutUint16(b[20:22], m.DLType)
	binary.BigEndian.PutUint32(b[22:26], m.NWSrc)
	binary.BigEndian.PutUint32(b[26:30], m.NWDst)
	b[30] = m.NWProto
	// b[31:34] pad
	binary.BigEndian.PutUint16(b[34:36], m.TPSrc)
	binary.BigEndian.PutUint16(b[36:38], m.TPDst)
	// b[38:40] unused trailing pad to round MatchLen to 40
	return b, nil
}

// UnmarshalMatch decodes a 40-byte wire match from the front of b.
func UnmarshalMatch(b []byte) (Match, error) {
	if len(b) < MatchLen {
		return Match{}, fmt.Errorf("ofp: short match: %d bytes", len(b))
	}
	var m Match
	m.Wildcards = binary.BigEndian.Uint32(b[0:4])
	m.InPort = binary.BigEndian.Uint16(b[4:6])
	copy(m.DLSrc[:], b[6:12])
	copy(m.DLDst[:], b[12:18])
	m.DLVlan = binary.BigEndian.Uint16(b[18:20])
	m.DLType = binary.BigEndian.Uint16(b[20:22])
	m.NWSrc = binary.BigEndian.Uint32(b[22:26])
	m.NWDst = binary.BigEndian.Uint32(b[26:30])
	m.NWProto = b[30]
	m.TPSrc = binary.BigEndian.Uint16(b[34:36])
	m.TPDst = binary.BigEndian.Uint16(b[36:38])
	return m, nil
}

// ToWireMatch adapts m to flowkey's decode-time shape.
func (m Match) ToWireMatch() flowkey.WireMatch {
	return flowkey.WireMatch{
		Wildcards: m.Wildcards,
		InPort:    m.InPort,
		DLSrc:     m.DLSrc,
		DLDst:     m.DLDst,
		DLVlan:    m.DLVlan,
		DLType:    m.DLType,
		NWSrc:     m.NWSrc,
		NWDst:     m.NWDst,
		NWProto:   m.NWProto,
		TPSrc:     m.TPSrc,
		TPDst:     m.TPDst,
	}
}

// MatchFromKey builds a wire Match from a domain key and wildcards,
// the inverse of ToWireMatch+flowkey.Template, used when emitting
// FLOW_EXPIRED and STATS_REPLY bodies.
func MatchFromKey(k flowkey.Key, w flowkey.Wildcards) Match {
	return Match{
		Wildcards: uint32(w),
		InPort:    k.InPort,
		DLSrc:     k.DLSrc,
		DLDst:     k.DLDst,
		DLVlan:    k.DLVlan,
		DLType:    k.DLType,
		NWSrc:     k.NWSrc,
		NWDst:     k.NWDst,
		NWProto:   k.NWProto,
		TPSrc:     k.TPSrc,
		TPDst:     k.TPDst,
	}
}
