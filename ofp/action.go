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

// ActionType identifies the 8-byte body that follows an action header.
type ActionType uint16

// Action type codes, per §4.7.
const (
	ActionOutputType ActionType = iota
	ActionSetVlanVidType
	ActionSetVlanPcpType
	ActionStripVlanType
	ActionSetDlSrcType
	ActionSetDlDstType
	ActionSetNwSrcType
	ActionSetNwDstType
	ActionSetTpSrcType
	ActionSetTpDstType
)

// ActionLen is the fixed size of a single wire action.
const ActionLen = 8

// Action is a single 8-byte wire action: a 2-byte type, 2 bytes of
// padding, and a 4-byte argument whose interpretation depends on Type.
// SetDlSrc/SetDlDst need more than 4 bytes for a MAC address, so they
// are carried out-of-band in the MAC field and serialized across two
// wire slots (see MarshalBinary).
type Action struct {
	Type ActionType

	// ActionOutputType
	Port   uint16
	MaxLen uint16

	// ActionSetVlanVidType
	VlanVID uint16
	// ActionSetVlanPcpType
	VlanPCP uint8

	// ActionSetDlSrcType / ActionSetDlDstType
	MAC [6]byte

	// ActionSetNwSrcType / ActionSetNwDstType
	IPv4 uint32

	// ActionSetTpSrcType / ActionSetTpDstType
	TransportPort uint16
}

// wireLen returns the number of bytes Action occupies on the wire;
// MAC-carrying actions need a 4-byte header plus the 6-byte address
// plus 2 bytes of trailing pad, rounding to a multiple of ActionLen.
func (a Action) wireLen() int {
	switch a.Type {
	case ActionSetDlSrcType, ActionSetDlDstType:
		return ActionLen * 2
	default:
		return ActionLen
	}
}

// MarshalBinary encodes a onto the wire.
func (a Action) MarshalBinary() ([]byte, error) {
	b := make([]byte, a.wireLen())
	binary.BigEndian.PutUint16(b[0:2], uint16(a.Type))

	switch a.Type {
	case ActionOutputType:
		binary.BigEndian.PutUint16(b[4:6], a.Port)
		binary.BigEndian.PutUint16(b[6:8], a.MaxLen)
	case ActionSetVlanVidType:
		binary.BigEndian.PutUint16(b[4:6], a.VlanVID)
	case ActionSetVlanPcpType:
		b[4] = a.VlanPCP
	case ActionStripVlanType:
		// no argument
	case ActionSetDlSrcType, ActionSetDlDstType:
		copy(b[4:10], a.MAC[:])
	case ActionSetNwSrcType, ActionSetNwDstType:
		binary.BigEndian.PutUint32(b[4:8], a.IPv4)
	case ActionSetTpSrcType, ActionSetTpDstType:
		binary.BigEndian.PutUint16(b[4:6], a.TransportPort)
	default:
		return nil, fmt.Errorf("ofp: unknown action type %d", a.Type)
	}

	return b, nil
}

// UnmarshalActions decodes every action packed into b, returning the
// parsed list. It is used for both FLOW_MOD's trailing action list and
// PACKET_OUT's action union.
func UnmarshalActions(b []byte) ([]Action, error) {
	var actions []Action
	for len(b) > 0 {
		if len(b) < ActionLen {
			return nil, fmt.Errorf("ofp: trailing %d bytes too short for an action", len(b))
		}
		t := ActionType(binary.BigEndian.Uint16(b[0:2]))
		a := Action{Type: t}
		consumed := ActionLen

		switch t {
		case ActionOutputType:
			a.Port = binary.BigEndian.Uint16(b[4:6])
			a.MaxLen = binary.BigEndian.Uint16(b[6:8])
		case ActionSetVlanVidType:
			a.VlanVID = binary.BigEndian.Uint16(b[4:6])
		case ActionSetVlanPcpType:
			a.VlanPCP = b[4]
		case ActionStripVlanType:
		case ActionSetDlSrcType, ActionSetDlDstType:
			consumed = ActionLen * 2
			if len(b) < consumed {
				return nil, fmt.Errorf("ofp: truncated MAC action")
			}
			copy(a.MAC[:], b[4:10])
		case ActionSetNwSrcType, ActionSetNwDstType:
			a.IPv4 = binary.BigEndian.Uint32(b[4:8])
		case ActionSetTpSrcType, ActionSetTpDstType:
			a.TransportPort = binary.BigEndian.Uint16(b[4:6])
		default:
			return nil, fmt.Errorf("ofp: unknown action type %d", t)
		}

		actions = append(actions, a)
		b = b[consumed:]
	}
	return actions, nil
}

// MarshalActions encodes a list of actions back-to-back.
func MarshalActions(actions []Action) ([]byte, error) {
	var out []byte
	for _, a := range actions {
		b, err := a.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
