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

// Package action implements the flow-entry action program: a small,
// ordered instruction set applied to a frame on the packet path, plus
// the insert-time validation that keeps a loop out of the chain.
package action

import "github.com/ofswitch/ofswitch/ofp"

// Action is one instruction in a flow entry's action list. The set of
// implementations is closed; Execute type-switches over them.
type Action interface {
	isAction()
}

// Output transmits a copy of the frame out Port. Port may be a
// sentinel (ofp.PortController, ofp.PortFlood, ofp.PortAll,
// ofp.PortLocal) or a concrete port number. MaxLen bounds the copy
// sent to the controller; zero means no truncation.
type Output struct {
	Port   uint16
	MaxLen uint16
}

// SetVlanVid overwrites or inserts the 802.1Q VID, preserving PCP.
type SetVlanVid struct {
	VID uint16
}

// SetVlanPcp overwrites or inserts the 802.1Q priority bits.
type SetVlanPcp struct {
	PCP uint8
}

// StripVlan removes a present VLAN tag; a no-op if none is present.
type StripVlan struct{}

// SetDlSrc overwrites the Ethernet source address.
type SetDlSrc struct {
	MAC [6]byte
}

// SetDlDst overwrites the Ethernet destination address.
type SetDlDst struct {
	MAC [6]byte
}

// SetNwSrc overwrites the IPv4 source address, adjusting the IP and
// any TCP/UDP checksum incrementally.
type SetNwSrc struct {
	IP uint32
}

// SetNwDst overwrites the IPv4 destination address, adjusting the IP
// and any TCP/UDP checksum incrementally.
type SetNwDst struct {
	IP uint32
}

// SetTpSrc overwrites the TCP/UDP source port, adjusting the
// transport checksum incrementally.
type SetTpSrc struct {
	Port uint16
}

// SetTpDst overwrites the TCP/UDP destination port, adjusting the
// transport checksum incrementally.
type SetTpDst struct {
	Port uint16
}

func (Output) isAction()     {}
func (SetVlanVid) isAction() {}
func (SetVlanPcp) isAction() {}
func (StripVlan) isAction()  {}
func (SetDlSrc) isAction()   {}
func (SetDlDst) isAction()   {}
func (SetNwSrc) isAction()   {}
func (SetNwDst) isAction()   {}
func (SetTpSrc) isAction()   {}
func (SetTpDst) isAction()   {}

// Program is an ordered action list, applied left to right.
type Program []Action

// FromWire converts a decoded wire action list into a Program.
func FromWire(wire []ofp.Action) Program {
	prog := make(Program, 0, len(wire))
	for _, a := range wire {
		switch a.Type {
		case ofp.ActionOutputType:
			prog = append(prog, Output{Port: a.Port, MaxLen: a.MaxLen})
		case ofp.ActionSetVlanVidType:
			prog = append(prog, SetVlanVid{VID: a.VlanVID})
		case ofp.ActionSetVlanPcpType:
			prog = append(prog, SetVlanPcp{PCP: a.VlanPCP})
		case ofp.ActionStripVlanType:
			prog = append(prog, StripVlan{})
		case ofp.ActionSetDlSrcType:
			prog = append(prog, SetDlSrc{MAC: a.MAC})
		case ofp.ActionSetDlDstType:
			prog = append(prog, SetDlDst{MAC: a.MAC})
		case ofp.ActionSetNwSrcType:
			prog = append(prog, SetNwSrc{IP: a.IPv4})
		case ofp.ActionSetNwDstType:
			prog = append(prog, SetNwDst{IP: a.IPv4})
		case ofp.ActionSetTpSrcType:
			prog = append(prog, SetTpSrc{Port: a.TransportPort})
		case ofp.ActionSetTpDstType:
			prog = append(prog, SetTpDst{Port: a.TransportPort})
		}
	}
	return prog
}

// ToWire converts a Program back into its wire representation, the
// inverse of FromWire, used when serializing STATS_FLOW replies.
func ToWire(prog Program) []ofp.Action {
	wire := make([]ofp.Action, 0, len(prog))
	for _, a := range prog {
		switch v := a.(type) {
		case Output:
			wire = append(wire, ofp.Action{Type: ofp.ActionOutputType, Port: v.Port, MaxLen: v.MaxLen})
		case SetVlanVid:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetVlanVidType, VlanVID: v.VID})
		case SetVlanPcp:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetVlanPcpType, VlanPCP: v.PCP})
		case StripVlan:
			wire = append(wire, ofp.Action{Type: ofp.ActionStripVlanType})
		case SetDlSrc:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetDlSrcType, MAC: v.MAC})
		case SetDlDst:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetDlDstType, MAC: v.MAC})
		case SetNwSrc:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetNwSrcType, IPv4: v.IP})
		case SetNwDst:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetNwDstType, IPv4: v.IP})
		case SetTpSrc:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetTpSrcType, TransportPort: v.Port})
		case SetTpDst:
			wire = append(wire, ofp.Action{Type: ofp.ActionSetTpDstType, TransportPort: v.Port})
		}
	}
	return wire
}
