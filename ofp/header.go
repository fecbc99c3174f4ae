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
)

// Header is the 8-byte prefix common to every control message.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	Xid     uint32
}

// MarshalBinary encodes the header in wire order.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderLen)
	b[0] = h.Version
	b[1] = byte(h.Type)
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], h.Xid)
	return b, nil
}

// UnmarshalHeader decodes the 8-byte header prefix of b.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("ofp: short header: %d bytes", len(b))
	}
	return Header{
		Version: b[0],
		Type:    Type(b[1]),
		Length:  binary.BigEndian.Uint16(b[2:4]),
		Xid:     binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// exemptFromVersionCheck reports whether t is one of the message types
// that must be accepted regardless of the declared version, per §4.10.
func exemptFromVersionCheck(t Type) bool {
	switch t {
	case TypeHello, TypeEchoRequest, TypeEchoReply, TypeError, TypeVendor:
		return true
	default:
		return false
	}
}

// ValidateHeader checks h against the declared buffer length and the
// minimum size for its type, returning the ProtocolError §7 specifies
// for each failure mode.
func ValidateHeader(h Header, bufLen int) *ProtocolError {
	if h.Version != Version && !exemptFromVersionCheck(h.Type) {
		return NewProtocolError(ErrorBadVersion, 0, nil)
	}
	if int(h.Length) > bufLen {
		return NewProtocolError(ErrorBadLength, 0, nil)
	}
	min, ok := minBodyLen[h.Type]
	if !ok {
		return NewProtocolError(ErrorBadType, uint16(h.Type), nil)
	}
	if int(h.Length) < HeaderLen+min {
		return NewProtocolError(ErrorBadLength, 0, nil)
	}
	return nil
}

// minBodyLen is the minimum body size (excluding the 8-byte header)
// for each known message type, used by ValidateHeader to reject
// truncated messages before a handler ever sees them.
var minBodyLen = map[Type]int{
	TypeHello:            0,
	TypeError:            4,
	TypeEchoRequest:      0,
	TypeEchoReply:        0,
	TypeVendor:           4,
	TypeFeaturesRequest:  0,
	TypeFeaturesReply:    36,
	TypeGetConfigRequest: 0,
	TypeGetConfigReply:   4,
	TypeSetConfig:        4,
	TypePacketIn:         10,
	TypeFlowExpired:      MatchLen + 24,
	TypePortMod:          PhyPortLen,
	TypePortStatus:       4 + PhyPortLen,
	TypePacketOut:        8,
	TypeFlowMod:          MatchLen + 18,
	TypeStatsRequest:     4,
	TypeStatsReply:       4,
}
